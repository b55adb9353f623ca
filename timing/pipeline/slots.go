// Package pipeline provides the 5-stage pipeline implementation for timing simulation.
package pipeline

import "github.com/sarchlab/pipesim/insts"

// Stage identifies one of the five pipeline stages.
type Stage int

// Pipeline stages in program order.
const (
	StageFetch Stage = iota
	StageDecode
	StageExecute
	StageMemory
	StageWriteback

	// NumStages is the number of pipeline stages.
	NumStages
)

var stageNames = [NumStages]string{"IF", "ID", "EX", "MEM", "WB"}

func (s Stage) String() string {
	if s < 0 || s >= NumStages {
		return "?"
	}
	return stageNames[s]
}

// Slot holds the instruction occupying one stage together with the
// control signals and values it carries down the pipeline.
type Slot struct {
	// Valid indicates if this slot holds an instruction. An invalid slot
	// is a bubble.
	Valid bool

	// Inst is the instruction in the slot.
	Inst *insts.Instruction

	// Register numbers for hazard detection.
	Rd uint8
	Rs uint8
	Rt uint8

	// Control signals, set by decode.
	UsesRs   bool
	UsesRt   bool
	MemRead  bool // True for load instructions
	MemWrite bool // True for store instructions
	RegWrite bool // True if the instruction commits a register
	MemToReg bool // True if the result comes from memory (load)
	IsBranch bool

	// ALUResult is the computed value, or the effective address for
	// loads and stores.
	ALUResult uint64

	// StoreValue is the value a store writes.
	StoreValue uint64

	// MemData is the value a load read.
	MemData uint64

	// BranchTaken is set by execute when the branch redirects fetch.
	BranchTaken bool

	// Execute countdown. execRemaining is loaded from the latency table
	// the first cycle the instruction is in EX.
	execStarted   bool
	execRemaining uint64

	// Memory state. memRemaining counts the miss penalty cycles left.
	memAccessed  bool
	memRemaining uint64
}

// Clear resets the slot to a bubble.
func (s *Slot) Clear() {
	*s = Slot{}
}

// Result returns the value the instruction commits to Rd.
func (s *Slot) Result() uint64 {
	if s.MemToReg {
		return s.MemData
	}
	return s.ALUResult
}

// Writes returns true if the slot holds an instruction that will commit
// reg. R0 never matches.
func (s *Slot) Writes(reg uint8) bool {
	return s.Valid && s.RegWrite && reg != 0 && s.Rd == reg
}

// Label returns the disassembly of the slot's instruction, or "" for a
// bubble.
func (s *Slot) Label() string {
	if !s.Valid || s.Inst == nil {
		return ""
	}
	return s.Inst.String()
}
