// Package main provides the entry point for pipesim.
// pipesim runs an instruction trace through a pipelined or non-pipelined
// CPU model coupled to a set-associative data cache.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sarchlab/pipesim/report"
	"github.com/sarchlab/pipesim/timing/cache"
	"github.com/sarchlab/pipesim/timing/core"
	"github.com/sarchlab/pipesim/timing/latency"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

type options struct {
	tracePath string

	cacheSize       int
	numBlocksPerSet int
	blockSize       int
	pipelined       int
	forwarding      int
	printRegisters  int

	configPath  string
	dumpConfig  string
	output      string
	asJSON      bool
	traceCycles bool
	locale      string
	verbose     bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "pipesim: ", 0)

	opts, err := parseArgs(args, stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case err != nil:
		logger.Print(err)
		return exitUsage
	}

	timing := latency.DefaultTimingConfig()
	if opts.configPath != "" {
		timing, err = latency.LoadConfig(opts.configPath)
		if err != nil {
			logger.Printf("%v: %v", opts.configPath, err)
			return exitError
		}
	}

	if opts.dumpConfig != "" {
		if err := timing.SaveConfig(opts.dumpConfig); err != nil {
			logger.Printf("%v: %v", opts.dumpConfig, err)
			return exitError
		}
		if opts.tracePath == "" {
			return exitOK
		}
	}

	if err := opts.requireSimulation(); err != nil {
		logger.Print(err)
		return exitUsage
	}

	geometry, err := cache.GeometryFromSize(opts.cacheSize, opts.numBlocksPerSet, opts.blockSize)
	if err != nil {
		logger.Print(err)
		return exitError
	}

	c, err := core.New(core.Config{
		Geometry:       geometry,
		Pipelined:      opts.pipelined == 1,
		Forwarding:     opts.forwarding == 1,
		PrintRegisters: opts.printRegisters == 1,
		TraceCycles:    opts.traceCycles,
		Timing:         timing,
		Locale:         opts.locale,
	})
	if err != nil {
		logger.Print(err)
		return exitError
	}

	if err := c.Load(opts.tracePath); err != nil {
		logger.Printf("%v: %v", opts.tracePath, err)
		return exitError
	}

	if opts.verbose {
		cfg := c.Config()
		logger.Printf("loaded %s: %d instructions, %d data words",
			opts.tracePath, c.Program().Len(), len(c.Program().Data))
		logger.Printf("mode %s, forwarding %s, cache %v",
			cfg.Mode(), cfg.ForwardingLabel(), cfg.Geometry)
		if err := c.Program().Disassemble(stderr); err != nil {
			logger.Print(err)
			return exitError
		}
	}

	if err := c.Run(); err != nil {
		logger.Print(err)
		return exitError
	}

	if opts.verbose {
		stats := c.Stats()
		logger.Printf("simulated %d instructions in %d cycles", stats.Instructions, stats.Cycles)
	}

	if err := dump(c, opts, stdout); err != nil {
		logger.Print(err)
		return exitError
	}

	return exitOK
}

func dump(c *core.Core, opts *options, stdout io.Writer) error {
	if opts.output != "-" {
		return c.DumpFile(opts.output, opts.asJSON)
	}
	if opts.asJSON {
		return c.DumpJSON(stdout)
	}
	return c.Dump(stdout)
}

// parseArgs accepts the trace path before, between or after the flags.
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("pipesim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pipesim [options] <trace>\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	fs.IntVar(&opts.cacheSize, "cache_size", 0, "Cache size in bytes (required)")
	fs.IntVar(&opts.numBlocksPerSet, "num_blocks_per_set", 0, "Number of blocks per set (required)")
	fs.IntVar(&opts.blockSize, "block_size", 0, "Block size in bytes (required)")
	fs.IntVar(&opts.pipelined, "pipelined", 0, "1 for pipelined, 2 for non-pipelined (required)")
	fs.IntVar(&opts.forwarding, "forwarding", 2, "1 for forwarding, 2 for not-forwarding (pipelined only)")
	fs.IntVar(&opts.printRegisters, "print_registers", 2, "1 to print registers, 2 not to (pipelined only)")
	fs.StringVar(&opts.configPath, "config", "", "Path to timing configuration JSON file")
	fs.StringVar(&opts.dumpConfig, "dump-config", "", "Write the effective timing configuration to this path")
	fs.StringVar(&opts.output, "o", "-", "Report output path, - for stdout")
	fs.BoolVar(&opts.asJSON, "json", false, "Write the report as JSON")
	fs.BoolVar(&opts.traceCycles, "trace-cycles", false, "Append a per-cycle trace to the report")
	fs.StringVar(&opts.locale, "locale", report.DefaultLocale,
		"Number format of the report, or "+report.AutoLocale+" to use the environment")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")

	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		if opts.tracePath != "" {
			return nil, fmt.Errorf("%w: unexpected argument %q", errUsage, fs.Arg(0))
		}
		opts.tracePath = fs.Arg(0)
		rest = fs.Args()[1:]
	}

	for _, choice := range []struct {
		name  string
		value int
	}{
		{"forwarding", opts.forwarding},
		{"print_registers", opts.printRegisters},
	} {
		if choice.value != 1 && choice.value != 2 {
			return nil, fmt.Errorf("%w: -%s must be 1 or 2, got %d", errUsage, choice.name, choice.value)
		}
	}

	return opts, nil
}

// requireSimulation checks the arguments a simulation cannot run without.
func (opts *options) requireSimulation() error {
	switch {
	case opts.tracePath == "":
		return fmt.Errorf("%w: missing trace path", errUsage)
	case opts.cacheSize == 0:
		return fmt.Errorf("%w: -cache_size is required", errUsage)
	case opts.numBlocksPerSet == 0:
		return fmt.Errorf("%w: -num_blocks_per_set is required", errUsage)
	case opts.blockSize == 0:
		return fmt.Errorf("%w: -block_size is required", errUsage)
	case opts.pipelined != 1 && opts.pipelined != 2:
		return fmt.Errorf("%w: -pipelined must be 1 or 2", errUsage)
	}
	return nil
}
