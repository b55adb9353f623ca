package pipeline

import (
	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/cache"
	"github.com/sarchlab/pipesim/timing/latency"
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions completed (retired).
	Instructions uint64
	// Stalls is the number of stall cycles of any kind.
	Stalls uint64
	// DataStalls is the number of cycles decode waited on a RAW hazard.
	DataStalls uint64
	// MemStalls is the number of stalls due to cache misses.
	MemStalls uint64
	// ExecStalls is the number of stalls due to multi-cycle execution.
	ExecStalls uint64
	// Flushes is the number of taken branches that flushed the front end.
	Flushes uint64
	// Squashed is the number of wrong-path instructions removed by flushes.
	Squashed uint64
	// Forwards is the number of operands supplied by the bypass network.
	Forwards uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// CycleSnapshot is the state of the pipeline at the end of one cycle,
// before the slots latch.
type CycleSnapshot struct {
	Cycle uint64
	// Stages holds the disassembly of the instruction each stage worked
	// on, "" for a bubble.
	Stages [NumStages]string
	// Event names the stall or flush of this cycle, if any.
	Event     string
	Registers []emu.RegValue
}

// CycleObserver receives one snapshot per simulated cycle.
type CycleObserver func(CycleSnapshot)

// Cycle events.
const (
	EventMemStall  = "mem-stall"
	EventExecStall = "exec-stall"
	EventDataStall = "data-stall"
	EventFlush     = "flush"
)

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithForwarding enables or disables the bypass network. Forwarding is
// enabled by default.
func WithForwarding(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.forwarding = enabled
	}
}

// WithLatencyTable sets a custom latency table for instruction timing.
// Multi-cycle operations stall the pipeline for their extra cycles.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.latencyTable = table
	}
}

// WithCycleObserver registers a callback invoked once per cycle.
func WithCycleObserver(observer CycleObserver) PipelineOption {
	return func(p *Pipeline) {
		p.observer = observer
	}
}

// Pipeline implements a 5-stage pipelined CPU model.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
type Pipeline struct {
	// One slot per stage, indexed by Stage.
	slots [NumStages]Slot

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	// Hazard detection
	hazardUnit *HazardUnit
	forwarding bool

	// Instruction timing
	latencyTable *latency.Table

	// Shared resources
	regFile *emu.RegFile
	cache   *cache.Cache
	program *insts.Program

	// pc is the stream position of the next fetch.
	pc int

	observer CycleObserver
	stats    Statistics
}

// NewPipeline creates a new 5-stage pipeline that runs program against
// regFile, with loads and stores going through dcache.
func NewPipeline(
	program *insts.Program,
	regFile *emu.RegFile,
	dcache *cache.Cache,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		fetchStage:     NewFetchStage(program),
		decodeStage:    NewDecodeStage(),
		executeStage:   NewExecuteStage(regFile),
		memoryStage:    NewMemoryStage(dcache),
		writebackStage: NewWritebackStage(regFile),
		forwarding:     true,
		latencyTable:   latency.NewTable(),
		regFile:        regFile,
		cache:          dcache,
		program:        program,
	}

	// Apply options
	for _, opt := range opts {
		opt(p)
	}

	p.hazardUnit = NewHazardUnit(p.forwarding)

	return p
}

// PC returns the stream position of the next fetch.
func (p *Pipeline) PC() int {
	return p.pc
}

// Forwarding returns true if the bypass network is enabled.
func (p *Pipeline) Forwarding() bool {
	return p.forwarding
}

// Slot returns a copy of the slot occupying the given stage.
func (p *Pipeline) Slot(stage Stage) Slot {
	return p.slots[stage]
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Done returns true once the stream is exhausted and every stage is empty.
func (p *Pipeline) Done() bool {
	if p.pc < p.program.Len() {
		return false
	}
	for i := range p.slots {
		if p.slots[i].Valid {
			return false
		}
	}
	return true
}

// Run ticks the pipeline until it drains, then flushes the data cache so
// that memory holds every stored value.
func (p *Pipeline) Run() Statistics {
	for !p.Done() {
		p.Tick()
	}
	p.cache.Flush()
	return p.stats
}

// RunCycles executes the pipeline for at most the given number of cycles.
// Returns true if there is still work left.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.Done(); i++ {
		p.Tick()
	}
	return !p.Done()
}

// Tick executes one pipeline cycle.
//
// Stages are evaluated in reverse order (WB→MEM→EX→ID→IF) so that each
// one sees the state the later stages leave behind in the same cycle,
// then the slots latch.
//
// Hazard handling:
//   - A cache miss holds MEM, and every earlier stage, for the miss penalty
//   - Multi-cycle execution holds EX, ID and IF
//   - Without forwarding, decode waits until producers in EX and MEM commit
//   - A taken branch resolves in EX and flushes the front end
func (p *Pipeline) Tick() {
	if p.Done() {
		return
	}

	p.stats.Cycles++
	var snapshot CycleSnapshot

	// Stage 5: Writeback
	committed := p.slots[StageWriteback]
	if p.writebackStage.Writeback(&committed) {
		p.stats.Instructions++
	}
	p.slots[StageWriteback].Clear()
	snapshot.Stages[StageWriteback] = committed.Label()

	// Stage 4: Memory
	memStall := p.doMemory()
	snapshot.Stages[StageMemory] = p.slots[StageMemory].Label()

	// Stage 3: Execute
	execStall := false
	branchTaken := false
	branchTarget := 0
	if !memStall {
		execStall, branchTaken, branchTarget = p.doExecute(&committed)
	}
	snapshot.Stages[StageExecute] = p.slots[StageExecute].Label()

	// Stage 2: Decode
	decode := &p.slots[StageDecode]
	if decode.Valid {
		*decode = p.decodeStage.Decode(decode.Inst)
	}
	snapshot.Stages[StageDecode] = decode.Label()

	dataHazard := false
	if !memStall && !execStall && !branchTaken {
		dataHazard = p.hazardUnit.DetectDataHazard(
			decode, &p.slots[StageExecute], &p.slots[StageMemory])
	}

	stalls := p.hazardUnit.ComputeStalls(dataHazard, branchTaken)
	if stalls.FlushID || stalls.FlushIF {
		p.flush(stalls, branchTarget)
	}

	// Stage 1: Fetch
	if !p.slots[StageFetch].Valid {
		if inst, ok := p.fetchStage.Fetch(p.pc); ok {
			p.slots[StageFetch] = Slot{Valid: true, Inst: inst}
			p.pc++
		}
	}
	snapshot.Stages[StageFetch] = p.slots[StageFetch].Label()

	switch {
	case memStall:
		p.stats.MemStalls++
		p.stats.Stalls++
		snapshot.Event = EventMemStall
	case execStall:
		p.stats.ExecStalls++
		p.stats.Stalls++
		snapshot.Event = EventExecStall
	case dataHazard:
		p.stats.DataStalls++
		p.stats.Stalls++
		snapshot.Event = EventDataStall
	case branchTaken:
		snapshot.Event = EventFlush
	}

	p.latch(memStall, execStall, stalls)

	if p.observer != nil {
		snapshot.Cycle = p.stats.Cycles
		snapshot.Registers = p.regFile.Snapshot()
		p.observer(snapshot)
	}
}

// doMemory performs the MEM stage and returns true while the slot waits
// on a cache miss.
func (p *Pipeline) doMemory() bool {
	slot := &p.slots[StageMemory]
	if !slot.Valid || !(slot.MemRead || slot.MemWrite) {
		return false
	}

	if !slot.memAccessed {
		slot.memAccessed = true
		result := p.memoryStage.Access(slot)
		slot.MemData = result.MemData
		if !result.Hit {
			slot.memRemaining = p.latencyTable.MissPenalty()
		}
	} else if slot.memRemaining > 0 {
		slot.memRemaining--
	}

	return slot.memRemaining > 0
}

// doExecute performs the EX stage. It returns true for stall while the
// instruction still has execute cycles left, and the branch outcome once
// it computes.
func (p *Pipeline) doExecute(committed *Slot) (stall, taken bool, target int) {
	slot := &p.slots[StageExecute]
	if !slot.Valid {
		return false, false, 0
	}

	if !slot.execStarted {
		slot.execStarted = true
		slot.execRemaining = p.latencyTable.GetLatency(slot.Inst)
	}
	if slot.execRemaining > 1 {
		slot.execRemaining--
		return true, false, 0
	}
	slot.execRemaining = 0

	rsValue, rtValue := p.executeStage.ReadOperands(slot)
	forwarding := p.hazardUnit.DetectForwarding(slot, &p.slots[StageMemory], committed)
	if forwarding.ForwardRs != ForwardNone {
		p.stats.Forwards++
	}
	if forwarding.ForwardRt != ForwardNone {
		p.stats.Forwards++
	}
	rsValue = p.hazardUnit.GetForwardedValue(
		forwarding.ForwardRs, rsValue, &p.slots[StageMemory], committed)
	rtValue = p.hazardUnit.GetForwardedValue(
		forwarding.ForwardRt, rtValue, &p.slots[StageMemory], committed)

	result := p.executeStage.Execute(slot, rsValue, rtValue)
	slot.ALUResult = result.ALUResult
	slot.StoreValue = result.StoreValue
	slot.BranchTaken = slot.IsBranch && result.BranchTaken

	return false, slot.BranchTaken, result.BranchTarget
}

// flush squashes the wrong-path instructions behind a taken branch and
// redirects fetch.
func (p *Pipeline) flush(stalls StallResult, target int) {
	p.stats.Flushes++

	if stalls.FlushID && p.slots[StageDecode].Valid {
		p.stats.Squashed++
		p.slots[StageDecode].Clear()
	}
	if stalls.FlushIF && p.slots[StageFetch].Valid {
		p.stats.Squashed++
		p.slots[StageFetch].Clear()
	}

	p.pc = target
}

// latch advances every slot that is not held. A stalled stage keeps its
// slot and the stage after it receives a bubble.
func (p *Pipeline) latch(memStall, execStall bool, stalls StallResult) {
	if memStall {
		return
	}
	p.move(StageWriteback, StageMemory)

	if execStall {
		return
	}
	p.move(StageMemory, StageExecute)

	if !stalls.InsertBubbleEX {
		p.move(StageExecute, StageDecode)
	}

	if stalls.StallID || stalls.StallIF {
		return
	}
	p.move(StageDecode, StageFetch)
}

func (p *Pipeline) move(dst, src Stage) {
	if p.slots[dst].Valid {
		emu.Violate("pipeline stage %v overwritten by %v", dst, src)
	}
	p.slots[dst] = p.slots[src]
	p.slots[src].Clear()
}
