package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
)

var _ = Describe("Execute", func() {
	inst := func(op insts.Op, imm int64) *insts.Instruction {
		return &insts.Instruction{Op: op, Imm: imm}
	}

	DescribeTable("ALU operations",
		func(op insts.Op, rs, rt, want uint64) {
			Expect(emu.Execute(inst(op, 0), rs, rt).Value).To(Equal(want))
		},
		Entry("ADD", insts.OpADD, uint64(3), uint64(4), uint64(7)),
		Entry("ADD wraps", insts.OpADD, ^uint64(0), uint64(2), uint64(1)),
		Entry("SUB", insts.OpSUB, uint64(3), uint64(4), ^uint64(0)),
		Entry("MUL", insts.OpMUL, uint64(6), uint64(7), uint64(42)),
		Entry("AND", insts.OpAND, uint64(0b1100), uint64(0b1010), uint64(0b1000)),
		Entry("OR", insts.OpOR, uint64(0b1100), uint64(0b1010), uint64(0b1110)),
		Entry("XOR", insts.OpXOR, uint64(0b1100), uint64(0b1010), uint64(0b0110)),
		Entry("SLT signed true", insts.OpSLT, ^uint64(0), uint64(1), uint64(1)),
		Entry("SLT false", insts.OpSLT, uint64(5), uint64(1), uint64(0)),
		Entry("SLL", insts.OpSLL, uint64(1), uint64(4), uint64(16)),
		Entry("SLL masks amount", insts.OpSLL, uint64(1), uint64(65), uint64(2)),
		Entry("SRL", insts.OpSRL, uint64(16), uint64(4), uint64(1)),
	)

	It("should add the immediate for ADDI", func() {
		Expect(emu.Execute(inst(insts.OpADDI, -3), 10, 0).Value).To(Equal(uint64(7)))
	})

	It("should compute aligned effective addresses", func() {
		Expect(emu.Execute(inst(insts.OpLOAD, 0x13), 0x100, 0).Value).To(Equal(uint64(0x110)))
		Expect(emu.Execute(inst(insts.OpSTORE, -8), 0x100, 99).Value).To(Equal(uint64(0xF8)))
	})

	It("should decide branches", func() {
		Expect(emu.Execute(inst(insts.OpBEQ, 1), 5, 5).Taken).To(BeTrue())
		Expect(emu.Execute(inst(insts.OpBEQ, 1), 5, 6).Taken).To(BeFalse())
		Expect(emu.Execute(inst(insts.OpBNE, 1), 5, 6).Taken).To(BeTrue())
		Expect(emu.Execute(inst(insts.OpJ, 1), 0, 0).Taken).To(BeTrue())
		Expect(emu.Execute(inst(insts.OpNOP, 0), 1, 2)).To(Equal(emu.ExecResult{}))
	})
})
