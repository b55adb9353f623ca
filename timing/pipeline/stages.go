package pipeline

import (
	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/cache"
)

// FetchStage hands out instructions from the stream.
type FetchStage struct {
	program *insts.Program
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(program *insts.Program) *FetchStage {
	return &FetchStage{program: program}
}

// Fetch returns the instruction at stream position pc, or false once
// the stream is exhausted.
func (s *FetchStage) Fetch(pc int) (*insts.Instruction, bool) {
	inst := s.program.At(pc)
	return inst, inst != nil
}

// DecodeStage sets control signals.
type DecodeStage struct{}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage() *DecodeStage {
	return &DecodeStage{}
}

// Decode fills the register numbers and control signals of a slot.
func (s *DecodeStage) Decode(inst *insts.Instruction) Slot {
	return Slot{
		Valid:    true,
		Inst:     inst,
		Rd:       inst.Rd,
		Rs:       inst.Rs,
		Rt:       inst.Rt,
		UsesRs:   inst.UsesRs(),
		UsesRt:   inst.UsesRt(),
		MemRead:  inst.IsLoad(),
		MemWrite: inst.IsStore(),
		RegWrite: inst.WritesRd(),
		MemToReg: inst.IsLoad(),
		IsBranch: inst.IsBranch(),
	}
}

// ExecuteStage handles ALU operations, address calculation and branch
// resolution.
type ExecuteStage struct {
	regFile *emu.RegFile
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(regFile *emu.RegFile) *ExecuteStage {
	return &ExecuteStage{regFile: regFile}
}

// ReadOperands reads the source registers of a slot from the register file.
func (s *ExecuteStage) ReadOperands(slot *Slot) (rs, rt uint64) {
	return s.regFile.ReadReg(slot.Rs), s.regFile.ReadReg(slot.Rt)
}

// ExecuteResult holds the result of the execute stage.
type ExecuteResult struct {
	ALUResult  uint64
	StoreValue uint64

	// Branch result.
	BranchTaken  bool
	BranchTarget int
}

// Execute computes the slot's result from its (possibly forwarded) operands.
func (s *ExecuteStage) Execute(slot *Slot, rsValue, rtValue uint64) ExecuteResult {
	inst := slot.Inst
	if inst == nil {
		return ExecuteResult{}
	}

	exec := emu.Execute(inst, rsValue, rtValue)
	result := ExecuteResult{
		ALUResult:   exec.Value,
		BranchTaken: exec.Taken,
	}

	if slot.MemWrite {
		result.StoreValue = rtValue
	}
	if exec.Taken {
		result.BranchTarget = inst.Target()
	}

	return result
}

// MemoryStage handles load/store accesses through the data cache.
type MemoryStage struct {
	cache *cache.Cache
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(c *cache.Cache) *MemoryStage {
	return &MemoryStage{cache: c}
}

// MemoryResult holds the result of the memory stage.
type MemoryResult struct {
	MemData uint64
	Hit     bool
}

// Access performs the cache read or write of a slot. Slots that do not
// touch memory report a hit.
func (s *MemoryStage) Access(slot *Slot) MemoryResult {
	switch {
	case !slot.Valid:
		return MemoryResult{Hit: true}
	case slot.MemRead:
		access := s.cache.Read(slot.ALUResult)
		return MemoryResult{MemData: access.Data, Hit: access.Hit}
	case slot.MemWrite:
		access := s.cache.Write(slot.ALUResult, slot.StoreValue)
		return MemoryResult{Hit: access.Hit}
	default:
		return MemoryResult{Hit: true}
	}
}

// WritebackStage handles register file writeback.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{regFile: regFile}
}

// Writeback commits the slot's result. It returns true if the slot held
// an instruction, which then counts as retired.
func (s *WritebackStage) Writeback(slot *Slot) bool {
	if !slot.Valid {
		return false
	}

	if slot.RegWrite {
		s.regFile.WriteReg(slot.Rd, slot.Result())
	}

	return true
}
