package insts

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// NumRegs is the number of general-purpose registers.
const NumRegs = 32

// Op represents an opcode.
type Op uint8

// Opcodes.
const (
	OpUnknown Op = iota
	OpADD
	OpSUB
	OpMUL
	OpAND
	OpOR
	OpXOR
	OpSLT
	OpSLL
	OpSRL
	OpADDI
	OpLOAD
	OpSTORE
	OpBEQ
	OpBNE
	OpJ
	OpNOP
)

var opNames = [...]string{
	OpUnknown: "???",
	OpADD:     "ADD",
	OpSUB:     "SUB",
	OpMUL:     "MUL",
	OpAND:     "AND",
	OpOR:      "OR",
	OpXOR:     "XOR",
	OpSLT:     "SLT",
	OpSLL:     "SLL",
	OpSRL:     "SRL",
	OpADDI:    "ADDI",
	OpLOAD:    "LOAD",
	OpSTORE:   "STORE",
	OpBEQ:     "BEQ",
	OpBNE:     "BNE",
	OpJ:       "J",
	OpNOP:     "NOP",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return opNames[OpUnknown]
}

// Format represents the operand layout of an instruction.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatReg            // Rd, Rs, Rt
	FormatImm            // Rd, Rs, imm
	FormatLoad           // Rd, [Rs+imm]
	FormatStore          // Rt, [Rs+imm]
	FormatBranch         // Rs, Rt, offset
	FormatJump           // offset
	FormatNone           // no operands
)

// Class groups opcodes that share timing behaviour.
type Class uint8

// Instruction classes.
const (
	ClassALU Class = iota
	ClassMultiply
	ClassLoad
	ClassStore
	ClassBranch
	ClassNop
)

// Instruction is one decoded trace entry. It is never modified after parsing.
type Instruction struct {
	Op     Op
	Format Format

	Rd uint8 // Destination register
	Rs uint8 // First source register, or memory base register
	Rt uint8 // Second source register, or store data register

	// Imm is the immediate operand, memory displacement or branch offset.
	Imm int64

	Index  int // Position in the stream
	LineNo int // Source line, 1-based
}

// Class returns the timing class of the instruction.
func (i *Instruction) Class() Class {
	switch i.Op {
	case OpMUL:
		return ClassMultiply
	case OpLOAD:
		return ClassLoad
	case OpSTORE:
		return ClassStore
	case OpBEQ, OpBNE, OpJ:
		return ClassBranch
	case OpNOP:
		return ClassNop
	default:
		return ClassALU
	}
}

// UsesRs returns true if the instruction reads Rs.
func (i *Instruction) UsesRs() bool {
	switch i.Format {
	case FormatReg, FormatImm, FormatLoad, FormatStore, FormatBranch:
		return true
	default:
		return false
	}
}

// UsesRt returns true if the instruction reads Rt.
func (i *Instruction) UsesRt() bool {
	switch i.Format {
	case FormatReg, FormatStore, FormatBranch:
		return true
	default:
		return false
	}
}

// WritesRd returns true if the instruction commits a value to Rd.
// Writes to R0 are discarded, so they never count.
func (i *Instruction) WritesRd() bool {
	switch i.Format {
	case FormatReg, FormatImm, FormatLoad:
		return i.Rd != 0
	default:
		return false
	}
}

// IsLoad returns true for memory reads.
func (i *Instruction) IsLoad() bool { return i.Op == OpLOAD }

// IsStore returns true for memory writes.
func (i *Instruction) IsStore() bool { return i.Op == OpSTORE }

// IsMemory returns true if the instruction accesses the data cache.
func (i *Instruction) IsMemory() bool { return i.IsLoad() || i.IsStore() }

// IsBranch returns true for branches and jumps.
func (i *Instruction) IsBranch() bool {
	return i.Format == FormatBranch || i.Format == FormatJump
}

// Target returns the stream position a taken branch continues at. A
// target past math.MaxInt saturates, which still ends the stream.
func (i *Instruction) Target() int {
	if i.Imm > 0 && uint64(i.Imm) > uint64(math.MaxInt-i.Index) {
		return math.MaxInt
	}
	return i.Index + int(i.Imm)
}

func (i *Instruction) String() string {
	switch i.Format {
	case FormatReg:
		return fmt.Sprintf("%v R%d, R%d, R%d", i.Op, i.Rd, i.Rs, i.Rt)
	case FormatImm:
		return fmt.Sprintf("%v R%d, R%d, %d", i.Op, i.Rd, i.Rs, i.Imm)
	case FormatLoad:
		return fmt.Sprintf("%v R%d, %v", i.Op, i.Rd, memOperand(i.Rs, i.Imm))
	case FormatStore:
		return fmt.Sprintf("%v R%d, %v", i.Op, i.Rt, memOperand(i.Rs, i.Imm))
	case FormatBranch:
		return fmt.Sprintf("%v R%d, R%d, %d", i.Op, i.Rs, i.Rt, i.Imm)
	case FormatJump:
		return fmt.Sprintf("%v %d", i.Op, i.Imm)
	default:
		return i.Op.String()
	}
}

func memOperand(base uint8, disp int64) string {
	switch {
	case base == 0:
		return fmt.Sprintf("[%#x]", uint64(disp))
	case disp == 0:
		return fmt.Sprintf("[R%d]", base)
	case disp < 0:
		return fmt.Sprintf("[R%d-%d]", base, -disp)
	default:
		return fmt.Sprintf("[R%d+%d]", base, disp)
	}
}

// DataWord is an initial memory value set by a .word directive.
type DataWord struct {
	Addr  uint64
	Value uint64
}

// Program is a parsed trace: the ordered instruction stream plus initial data.
type Program struct {
	Insts []*Instruction
	Data  []DataWord
}

// Len returns the number of instructions in the stream.
func (p *Program) Len() int {
	return len(p.Insts)
}

// At returns the instruction at stream position index, or nil when index is
// past the end of the stream.
func (p *Program) At(index int) *Instruction {
	if index < 0 || index >= len(p.Insts) {
		return nil
	}
	return p.Insts[index]
}

// Disassemble writes the stream, one instruction per line.
func (p *Program) Disassemble(w io.Writer) error {
	var sb strings.Builder
	for _, inst := range p.Insts {
		fmt.Fprintf(&sb, "%4d: %v\n", inst.Index, inst)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
