package emu

import "github.com/sarchlab/pipesim/insts"

// DataPort is where loads and stores go. Memory implements it directly;
// timing models put a cache in front of it.
type DataPort interface {
	Read64(addr uint64) uint64
	Write64(addr uint64, value uint64)
}

// StepResult describes one executed instruction.
type StepResult struct {
	// Inst is the instruction that was executed, or nil when the stream
	// was already exhausted.
	Inst *insts.Instruction

	// Addr is the effective address of a load or store.
	Addr uint64

	// Taken is true if a branch redirected the stream.
	Taken bool
}

// Emulator executes an instruction stream functionally, one instruction at
// a time, with no notion of time.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	port    DataPort

	prog *insts.Program
	pc   int

	instructionCount uint64
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithRegFile uses an existing register file.
func WithRegFile(regFile *RegFile) EmulatorOption {
	return func(e *Emulator) {
		e.regFile = regFile
	}
}

// WithMemory uses an existing memory.
func WithMemory(memory *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = memory
	}
}

// WithDataPort routes loads and stores through port instead of memory.
func WithDataPort(port DataPort) EmulatorOption {
	return func(e *Emulator) {
		e.port = port
	}
}

// NewEmulator creates a new emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{}
	for _, opt := range opts {
		opt(e)
	}

	if e.regFile == nil {
		e.regFile = &RegFile{}
	}
	if e.memory == nil {
		e.memory = NewMemory()
	}
	if e.port == nil {
		e.port = e.memory
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// PC returns the stream position of the next instruction.
func (e *Emulator) PC() int {
	return e.pc
}

// LoadProgram installs the stream, stores its initial data and rewinds.
func (e *Emulator) LoadProgram(prog *insts.Program) {
	e.prog = prog
	e.pc = 0
	e.instructionCount = 0
	e.memory.LoadData(prog.Data)
}

// Done returns true once the stream is exhausted.
func (e *Emulator) Done() bool {
	return e.prog == nil || e.pc >= e.prog.Len()
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.Done() {
		return StepResult{}
	}

	inst := e.prog.At(e.pc)
	rs := e.regFile.ReadReg(inst.Rs)
	rt := e.regFile.ReadReg(inst.Rt)
	exec := Execute(inst, rs, rt)

	result := StepResult{Inst: inst}
	switch {
	case inst.IsLoad():
		result.Addr = exec.Value
		e.regFile.WriteReg(inst.Rd, e.port.Read64(exec.Value))
	case inst.IsStore():
		result.Addr = exec.Value
		e.port.Write64(exec.Value, rt)
	case inst.WritesRd():
		e.regFile.WriteReg(inst.Rd, exec.Value)
	}

	e.pc++
	if exec.Taken {
		result.Taken = true
		e.pc = inst.Target()
	}
	e.instructionCount++

	return result
}

// Run executes until the stream is exhausted and returns the number of
// instructions executed.
func (e *Emulator) Run() uint64 {
	for !e.Done() {
		e.Step()
	}
	return e.instructionCount
}
