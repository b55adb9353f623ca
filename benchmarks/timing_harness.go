// Package benchmarks runs named trace kernels through every engine mode
// and reports their timing side by side.
package benchmarks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/cache"
	"github.com/sarchlab/pipesim/timing/core"
	"github.com/sarchlab/pipesim/timing/latency"
)

// Version is reported in the JSON metadata.
const Version = "0.1.0"

// ErrResultMismatch is returned when a kernel leaves a register with a
// value other than the one it declares.
var ErrResultMismatch = errors.New("unexpected result")

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Mode names the engine configuration the benchmark ran under
	Mode string `json:"mode"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of stall cycles
	StallCycles uint64 `json:"stall_cycles"`

	// DataStalls is stalls waiting for a register operand
	DataStalls uint64 `json:"data_stalls"`

	// ExecStalls is stalls due to multi-cycle execution
	ExecStalls uint64 `json:"exec_stalls"`

	// MemStalls is stalls due to cache misses
	MemStalls uint64 `json:"mem_stalls"`

	// PipelineFlushes is the number of pipeline flushes
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	// Forwards is the number of operands bypassed
	Forwards uint64 `json:"forwards"`

	CacheHits      uint64 `json:"cache_hits"`
	CacheMisses    uint64 `json:"cache_misses"`
	CacheEvictions uint64 `json:"cache_evictions"`
	Writebacks     uint64 `json:"writebacks"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark kernel.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Source is the trace text of the kernel
	Source string

	// Expect maps registers to the values the kernel must leave in them
	Expect map[uint8]uint64
}

// Mode is one engine configuration.
type Mode struct {
	Name       string
	Pipelined  bool
	Forwarding bool
}

// AllModes returns the three engine configurations: pipelined with and
// without forwarding, and non-pipelined.
func AllModes() []Mode {
	return []Mode{
		{Name: "pipelined+fwd", Pipelined: true, Forwarding: true},
		{Name: "pipelined", Pipelined: true},
		{Name: "non-pipelined"},
	}
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Geometry is the data cache every run uses
	Geometry cache.Geometry

	// Timing holds the latencies, nil for the defaults
	Timing *latency.TimingConfig

	// Modes lists the engine configurations each benchmark runs under
	Modes []Mode

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultConfig returns a default harness configuration: a 1 KiB 2-way
// cache with 32-byte blocks, default timing and every mode.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Geometry: cache.Geometry{Size: 1024, NumSets: 16, NumWays: 2, BlockSize: 32},
		Timing:   latency.DefaultTimingConfig(),
		Modes:    AllModes(),
		Output:   os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if len(config.Modes) == 0 {
		config.Modes = AllModes()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes every benchmark under every mode, benchmark-major.
// It stops at the first benchmark that fails to parse, configure or
// produce its expected registers.
func (h *Harness) RunAll() ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(h.benchmarks)*len(h.config.Modes))

	for _, bench := range h.benchmarks {
		prog, err := insts.ParseString(bench.Source)
		if err != nil {
			return results, fmt.Errorf("%s: %w", bench.Name, err)
		}

		for _, mode := range h.config.Modes {
			result, err := h.runBenchmark(bench, prog, mode)
			if err != nil {
				return results, fmt.Errorf("%s (%s): %w", bench.Name, mode.Name, err)
			}
			results = append(results, result)
		}
	}

	return results, nil
}

// runBenchmark executes a single benchmark on a fresh core.
func (h *Harness) runBenchmark(bench Benchmark, prog *insts.Program, mode Mode) (BenchmarkResult, error) {
	c, err := core.New(core.Config{
		Geometry:   h.config.Geometry,
		Pipelined:  mode.Pipelined,
		Forwarding: mode.Forwarding,
		Timing:     h.config.Timing,
	})
	if err != nil {
		return BenchmarkResult{}, err
	}
	if err := c.LoadProgram(prog); err != nil {
		return BenchmarkResult{}, err
	}

	start := time.Now()
	if err := c.Run(); err != nil {
		return BenchmarkResult{}, err
	}
	wallTime := time.Since(start)

	regs := c.Registers()
	for reg, want := range bench.Expect {
		if got := regs[reg].Value; got != want {
			return BenchmarkResult{}, fmt.Errorf("%w: R%d = %d, want %d",
				ErrResultMismatch, reg, got, want)
		}
	}

	stats := c.Stats()
	return BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		Mode:                mode.Name,
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Instructions,
		CPI:                 stats.CPI(),
		StallCycles:         stats.Stalls,
		DataStalls:          stats.DataStalls,
		ExecStalls:          stats.ExecStalls,
		MemStalls:           stats.MemStalls,
		PipelineFlushes:     stats.Flushes,
		Forwards:            stats.Forwards,
		CacheHits:           stats.Cache.Hits,
		CacheMisses:         stats.Cache.Misses,
		CacheEvictions:      stats.Cache.Evictions,
		Writebacks:          stats.Cache.Writebacks,
		WallTime:            wallTime,
	}, nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	out := h.config.Output
	_, _ = fmt.Fprintln(out, "=== Pipesim Timing Benchmark Results ===")
	_, _ = fmt.Fprintf(out, "Cache: %v\n", h.config.Geometry)
	_, _ = fmt.Fprintln(out, "")

	last := ""
	for _, r := range results {
		if r.Name != last {
			_, _ = fmt.Fprintf(out, "Benchmark: %s\n", r.Name)
			_, _ = fmt.Fprintf(out, "  Description: %s\n", r.Description)
			last = r.Name
		}
		_, _ = fmt.Fprintf(out, "  --- %s ---\n", r.Mode)
		_, _ = fmt.Fprintf(out, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(out, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(out, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(out, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(out, "  Data Stalls:          %d\n", r.DataStalls)
		_, _ = fmt.Fprintf(out, "  Exec Stalls:          %d\n", r.ExecStalls)
		_, _ = fmt.Fprintf(out, "  Mem Stalls:           %d\n", r.MemStalls)
		_, _ = fmt.Fprintf(out, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)
		if r.Forwards > 0 {
			_, _ = fmt.Fprintf(out, "  Forwards:             %d\n", r.Forwards)
		}
		_, _ = fmt.Fprintf(out, "  Cache Hits/Misses:    %d/%d\n", r.CacheHits, r.CacheMisses)
		_, _ = fmt.Fprintf(out, "  Evictions:            %d\n", r.CacheEvictions)
		_, _ = fmt.Fprintf(out, "  Wall Time: %v\n", r.WallTime)
	}
	_, _ = fmt.Fprintln(out, "")
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,mode,cycles,instructions,cpi,stalls,data_stalls,exec_stalls,mem_stalls,flushes,forwards,cache_hits,cache_misses,evictions,writebacks")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.Mode,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.DataStalls,
			r.ExecStalls,
			r.MemStalls,
			r.PipelineFlushes,
			r.Forwards,
			r.CacheHits,
			r.CacheMisses,
			r.CacheEvictions,
			r.Writebacks,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics per mode
	Summary []ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Version of the simulator
	Version string `json:"version"`

	// Cache describes the data cache used by every run
	Cache string `json:"cache"`

	// Timing holds the latencies used by every run
	Timing *latency.TimingConfig `json:"timing"`
}

// ReportSummary contains aggregate statistics across all benchmarks run
// under one mode.
type ReportSummary struct {
	Mode string `json:"mode"`

	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is TotalCycles over TotalInstructions
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Summarize aggregates results per mode, in the harness's mode order.
func (h *Harness) Summarize(results []BenchmarkResult) []ReportSummary {
	summaries := make([]ReportSummary, 0, len(h.config.Modes))

	for _, mode := range h.config.Modes {
		s := ReportSummary{Mode: mode.Name}
		for _, r := range results {
			if r.Mode != mode.Name {
				continue
			}
			s.TotalBenchmarks++
			s.TotalCycles += r.SimulatedCycles
			s.TotalInstructions += r.InstructionsRetired
			s.TotalWallTime += r.WallTime
		}
		if s.TotalInstructions > 0 {
			s.AverageCPI = float64(s.TotalCycles) / float64(s.TotalInstructions)
		}
		summaries = append(summaries, s)
	}

	return summaries
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	timing := h.config.Timing
	if timing == nil {
		timing = latency.DefaultTimingConfig()
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Cache:     h.config.Geometry.String(),
			Timing:    timing,
		},
		Results: results,
		Summary: h.Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
