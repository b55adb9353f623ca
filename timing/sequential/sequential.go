// Package sequential provides the non-pipelined timing model: every
// instruction runs to completion before the next one is fetched.
package sequential

import (
	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/cache"
	"github.com/sarchlab/pipesim/timing/latency"
)

// Statistics holds the timing statistics of a run.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions completed.
	Instructions uint64
	// MemStalls is the number of cycles spent on cache miss penalties.
	MemStalls uint64
	// ExecStalls is the number of execute cycles beyond the first.
	ExecStalls uint64
	// TakenBranches is the number of branches that redirected the stream.
	TakenBranches uint64
}

// Stalls returns the cycles spent beyond the base cost of each instruction.
func (s Statistics) Stalls() uint64 {
	return s.MemStalls + s.ExecStalls
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// StepRecord is the timing of one executed instruction.
type StepRecord struct {
	// Start is the first cycle the instruction occupies, 1-based.
	Start  uint64
	Cycles uint64
	Inst   *insts.Instruction
	Miss   bool
	Taken  bool
}

// StepObserver receives one record per executed instruction.
type StepObserver func(StepRecord)

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithLatencyTable sets a custom latency table for instruction timing.
func WithLatencyTable(table *latency.Table) Option {
	return func(e *Engine) {
		e.latencyTable = table
	}
}

// WithStepObserver registers a callback invoked once per instruction.
func WithStepObserver(observer StepObserver) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

// Engine is the non-pipelined timing model.
type Engine struct {
	emulator     *emu.Emulator
	port         *cachePort
	latencyTable *latency.Table
	observer     StepObserver
	stats        Statistics
}

// NewEngine creates an engine that runs program against regFile and
// memory, with loads and stores going through dcache. The program's data
// words are stored to memory.
func NewEngine(
	program *insts.Program,
	regFile *emu.RegFile,
	memory *emu.Memory,
	dcache *cache.Cache,
	opts ...Option,
) *Engine {
	port := &cachePort{cache: dcache}
	e := &Engine{
		emulator: emu.NewEmulator(
			emu.WithRegFile(regFile),
			emu.WithMemory(memory),
			emu.WithDataPort(port),
		),
		port:         port,
		latencyTable: latency.NewTable(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.emulator.LoadProgram(program)

	return e
}

// Stats returns the statistics so far.
func (e *Engine) Stats() Statistics {
	return e.stats
}

// Done returns true once the stream is exhausted.
func (e *Engine) Done() bool {
	return e.emulator.Done()
}

// Step executes one instruction and charges its cycles.
func (e *Engine) Step() StepRecord {
	e.port.missed = false
	step := e.emulator.Step()
	if step.Inst == nil {
		return StepRecord{}
	}

	record := StepRecord{
		Start: e.stats.Cycles + 1,
		Inst:  step.Inst,
		Miss:  e.port.missed,
		Taken: step.Taken,
	}

	extra := e.latencyTable.ExtraExecuteCycles(step.Inst)
	record.Cycles = e.latencyTable.BaseCycles(step.Inst) + extra
	e.stats.ExecStalls += extra

	if record.Miss {
		penalty := e.latencyTable.MissPenalty()
		record.Cycles += penalty
		e.stats.MemStalls += penalty
	}
	if record.Taken {
		e.stats.TakenBranches++
	}

	e.stats.Cycles += record.Cycles
	e.stats.Instructions++

	if e.observer != nil {
		e.observer(record)
	}

	return record
}

// Run executes until the stream is exhausted, then flushes the data cache
// so that memory holds every stored value.
func (e *Engine) Run() Statistics {
	for !e.Done() {
		e.Step()
	}
	e.port.cache.Flush()
	return e.stats
}

// cachePort routes the emulator's loads and stores through the cache and
// remembers whether the last access missed.
type cachePort struct {
	cache  *cache.Cache
	missed bool
}

func (p *cachePort) Read64(addr uint64) uint64 {
	result := p.cache.Read(addr)
	p.missed = !result.Hit
	return result.Data
}

func (p *cachePort) Write64(addr uint64, value uint64) {
	p.missed = !p.cache.Write(addr, value).Hit
}
