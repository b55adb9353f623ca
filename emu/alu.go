package emu

import "github.com/sarchlab/pipesim/insts"

// ExecResult is the outcome of the execute step of one instruction.
type ExecResult struct {
	// Value is the ALU result, or the word-aligned effective address for
	// loads and stores.
	Value uint64

	// Taken is true when a branch or jump redirects the stream.
	Taken bool
}

// Execute computes the result of inst from its source operand values. It
// has no side effects and is shared by every engine.
func Execute(inst *insts.Instruction, rs, rt uint64) ExecResult {
	switch inst.Op {
	case insts.OpADD:
		return ExecResult{Value: rs + rt}
	case insts.OpSUB:
		return ExecResult{Value: rs - rt}
	case insts.OpMUL:
		return ExecResult{Value: rs * rt}
	case insts.OpAND:
		return ExecResult{Value: rs & rt}
	case insts.OpOR:
		return ExecResult{Value: rs | rt}
	case insts.OpXOR:
		return ExecResult{Value: rs ^ rt}
	case insts.OpSLT:
		if int64(rs) < int64(rt) {
			return ExecResult{Value: 1}
		}
		return ExecResult{Value: 0}
	case insts.OpSLL:
		return ExecResult{Value: rs << (rt & 63)}
	case insts.OpSRL:
		return ExecResult{Value: rs >> (rt & 63)}
	case insts.OpADDI:
		return ExecResult{Value: rs + uint64(inst.Imm)}
	case insts.OpLOAD, insts.OpSTORE:
		return ExecResult{Value: AlignWord(rs + uint64(inst.Imm))}
	case insts.OpBEQ:
		return ExecResult{Taken: rs == rt}
	case insts.OpBNE:
		return ExecResult{Taken: rs != rt}
	case insts.OpJ:
		return ExecResult{Taken: true}
	default:
		return ExecResult{}
	}
}
