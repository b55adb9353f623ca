// Package core provides the simulator facade: it owns the machine state,
// picks the engine variant from the configuration, and implements the
// load, run and dump steps.
package core

import (
	"errors"
	"io"
	"os"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/loader"
	"github.com/sarchlab/pipesim/report"
	"github.com/sarchlab/pipesim/timing/cache"
	"github.com/sarchlab/pipesim/timing/latency"
)

var (
	// ErrConfig is wrapped by every configuration error.
	ErrConfig = errors.New("invalid configuration")
	// ErrNotLoaded is returned when Run or Dump is called before a
	// program was loaded.
	ErrNotLoaded = errors.New("no program loaded")
	// ErrAlreadyRun is returned when a program is run or loaded after a
	// run already happened.
	ErrAlreadyRun = errors.New("program already run")
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of stall cycles, the sum of the three kinds.
	Stalls     uint64
	DataStalls uint64
	MemStalls  uint64
	ExecStalls uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// Squashed is the number of wrong-path instructions flushed.
	Squashed uint64
	// Forwards is the number of operands bypassed.
	Forwards uint64
	// Cache holds the data cache statistics.
	Cache cache.Statistics
}

// CPI returns the cycles per instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Core is one simulation: a configuration, a program and the machine
// state it runs on.
type Core struct {
	cfg     Config
	factory engineFactory

	regFile *emu.RegFile
	memory  *emu.Memory
	dcache  *cache.Cache
	timing  *latency.Table

	program *insts.Program
	trace   *report.Trace
	ran     bool
	stats   Stats
}

// New validates cfg and creates a core for the engine variant it selects.
func New(cfg Config) (*Core, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	memory := emu.NewMemory()
	dcache, err := cache.New(cfg.Geometry, memory)
	if err != nil {
		return nil, err
	}

	return &Core{
		cfg:     cfg,
		factory: factoryFor(cfg),
		regFile: &emu.RegFile{},
		memory:  memory,
		dcache:  dcache,
		timing:  latency.NewTableWithConfig(cfg.Timing),
	}, nil
}

// Config returns the configuration the core was created with.
func (c *Core) Config() Config {
	return c.cfg
}

// Load reads and parses the trace at path.
func (c *Core) Load(path string) error {
	if c.ran {
		return ErrAlreadyRun
	}

	program, err := loader.Load(path)
	if err != nil {
		return err
	}

	c.program = program
	return nil
}

// LoadProgram installs an already parsed program.
func (c *Core) LoadProgram(program *insts.Program) error {
	if c.ran {
		return ErrAlreadyRun
	}
	c.program = program
	return nil
}

// Program returns the loaded program, or nil.
func (c *Core) Program() *insts.Program {
	return c.program
}

// Run executes the loaded program to completion. A core runs once.
func (c *Core) Run() error {
	switch {
	case c.program == nil:
		return ErrNotLoaded
	case c.ran:
		return ErrAlreadyRun
	}
	c.ran = true

	if c.cfg.TraceCycles {
		c.trace = &report.Trace{}
	}

	engine := c.factory(c.cfg, engineParams{
		program: c.program,
		regFile: c.regFile,
		memory:  c.memory,
		dcache:  c.dcache,
		timing:  c.timing,
		trace:   c.trace,
	})

	c.stats = engine.Run()
	c.stats.Cache = c.dcache.Stats()

	return nil
}

// Ran returns true once Run completed.
func (c *Core) Ran() bool {
	return c.ran
}

// Stats returns the statistics of the run.
func (c *Core) Stats() Stats {
	return c.stats
}

// Registers returns the register file in index order.
func (c *Core) Registers() []emu.RegValue {
	return c.regFile.Snapshot()
}

// Memory returns the backing memory.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Cache returns the data cache.
func (c *Core) Cache() *cache.Cache {
	return c.dcache
}

// ReportInput collects what the report shows.
func (c *Core) ReportInput() report.Input {
	s := c.stats
	in := report.Input{
		Mode:       c.cfg.Mode(),
		Forwarding: c.cfg.ForwardingLabel(),
		Geometry:   c.cfg.Geometry,
		Stats: report.Stats{
			Instructions: s.Instructions,
			Cycles:       s.Cycles,
			Stalls:       s.Stalls,
			DataStalls:   s.DataStalls,
			MemStalls:    s.MemStalls,
			ExecStalls:   s.ExecStalls,
			Flushes:      s.Flushes,
		},
		Cache: s.Cache,
		Trace: c.trace,
	}

	if c.cfg.Pipelined && c.cfg.PrintRegisters {
		in.Registers = c.Registers()
	}

	return in
}

// Dump writes the text report to w.
func (c *Core) Dump(w io.Writer) error {
	if c.program == nil {
		return ErrNotLoaded
	}

	tag, err := report.ParseLocale(c.cfg.Locale)
	if err != nil {
		return err
	}
	return report.Write(w, c.ReportInput(), report.Options{Language: tag})
}

// DumpJSON writes the report to w as JSON.
func (c *Core) DumpJSON(w io.Writer) error {
	if c.program == nil {
		return ErrNotLoaded
	}
	return report.WriteJSON(w, c.ReportInput())
}

// DumpFile writes the text report, or the JSON report when asJSON is
// set, to the file at path.
func (c *Core) DumpFile(path string, asJSON bool) error {
	if c.program == nil {
		return ErrNotLoaded
	}

	f, err := os.Create(path)
	if err != nil {
		return &loader.IOError{Op: "create", Path: path, Err: err}
	}

	if asJSON {
		err = c.DumpJSON(f)
	} else {
		err = c.Dump(f)
	}
	if err != nil {
		f.Close()
		return &loader.IOError{Op: "write", Path: path, Err: err}
	}

	if err := f.Close(); err != nil {
		return &loader.IOError{Op: "close", Path: path, Err: err}
	}
	return nil
}
