package insts_test

import (
	"errors"
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
)

var _ = Describe("Parser", func() {
	parseErr := func(text string) *insts.ParseError {
		_, err := insts.ParseString(text)
		Expect(err).To(HaveOccurred())
		var pe *insts.ParseError
		Expect(errors.As(err, &pe)).To(BeTrue())
		return pe
	}

	Describe("instructions", func() {
		It("should parse register format", func() {
			prog, err := insts.ParseString("add r1, R2, r31\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Insts).To(HaveLen(1))

			inst := prog.Insts[0]
			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Format).To(Equal(insts.FormatReg))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs).To(Equal(uint8(2)))
			Expect(inst.Rt).To(Equal(uint8(31)))
			Expect(inst.LineNo).To(Equal(1))
		})

		It("should preserve order and index every entry", func() {
			prog, err := insts.ParseString("NOP\n\n# comment only\nADDI R1, R0, 1\nNOP ; trailing\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Len()).To(Equal(3))
			for i, inst := range prog.Insts {
				Expect(inst.Index).To(Equal(i))
			}
			Expect(prog.Insts[1].LineNo).To(Equal(4))
		})

		It("should accept tabs between mnemonic and operands", func() {
			prog, err := insts.ParseString("SUB\tR1,R2,R3\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Insts[0].Op).To(Equal(insts.OpSUB))
		})

		It("should parse LW and SW aliases", func() {
			prog, err := insts.ParseString("LW R1, [R2]\nSW R1, [R2+4]\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Insts[0].Op).To(Equal(insts.OpLOAD))
			Expect(prog.Insts[1].Op).To(Equal(insts.OpSTORE))
			Expect(prog.Insts[1].Rt).To(Equal(uint8(1)))
			Expect(prog.Insts[1].Imm).To(Equal(int64(4)))
		})

		DescribeTable("memory operands",
			func(operand string, base uint8, disp int64) {
				prog, err := insts.ParseString("LOAD R1, " + operand + "\n")
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Insts[0].Rs).To(Equal(base))
				Expect(prog.Insts[0].Imm).To(Equal(disp))
			},
			Entry("absolute", "[0x100]", uint8(0), int64(0x100)),
			Entry("register", "[R4]", uint8(4), int64(0)),
			Entry("positive displacement", "[R4+8]", uint8(4), int64(8)),
			Entry("negative displacement", "[R4-8]", uint8(4), int64(-8)),
			Entry("spaces inside", "[ R4 + 0x10 ]", uint8(4), int64(16)),
		)
	})

	Describe("directives", func() {
		It("should define and use equates", func() {
			prog, err := insts.ParseString(".equ BASE 0x200\nLOAD R1, [R2+BASE]\nADDI R3, R0, BASE\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Insts[0].Imm).To(Equal(int64(0x200)))
			Expect(prog.Insts[1].Imm).To(Equal(int64(0x200)))
		})

		It("should evaluate expressions with earlier equates", func() {
			prog, err := insts.ParseString(".equ N 4\nADDI R1, R0, $(N * 8 + 1)\nADDI R2, R0, $(N // 3)\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Insts[0].Imm).To(Equal(int64(33)))
			Expect(prog.Insts[1].Imm).To(Equal(int64(1)))
		})

		It("should record initial memory words", func() {
			prog, err := insts.ParseString(".word 0x40, 42\n.word 0x48, -1\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Insts).To(BeEmpty())
			Expect(prog.Data).To(Equal([]insts.DataWord{
				{Addr: 0x40, Value: 42},
				{Addr: 0x48, Value: ^uint64(0)},
			}))
		})

		It("should reject forward references", func() {
			pe := parseErr("ADDI R1, R0, LATER\n.equ LATER 1\n")
			Expect(pe.LineNo).To(Equal(1))
			Expect(pe.Err).To(MatchError(insts.ErrValueInvalid))
		})

		It("should reject duplicate equates", func() {
			pe := parseErr(".equ A 1\n.equ A 2\n")
			Expect(pe.LineNo).To(Equal(2))
			Expect(errors.Is(pe, insts.ErrEquateDuplicate)).To(BeTrue())
		})

		It("should reject register names as equates", func() {
			pe := parseErr(".equ R3 1\n")
			Expect(errors.Is(pe, insts.ErrEquateSyntax)).To(BeTrue())
		})
	})

	Describe("errors", func() {
		It("should name the line with an unknown opcode", func() {
			pe := parseErr("NOP\nNOP\nFROB R1, R2\n")
			Expect(pe.LineNo).To(Equal(3))
			Expect(pe.Line).To(Equal("FROB R1, R2"))
			Expect(errors.Is(pe, insts.ErrOpcodeInvalid)).To(BeTrue())
			Expect(pe.Error()).To(ContainSubstring("line 3"))
		})

		It("should reject an offset whose target overflows", func() {
			pe := parseErr("NOP\nJ 0x7fffffffffffffff\nNOP\n")
			Expect(pe.LineNo).To(Equal(2))
			Expect(errors.Is(pe, insts.ErrOffsetInvalid)).To(BeTrue())

			pe = parseErr("NOP\nNOP\nBEQ R1, R2, 0x7ffffffffffffffe\n")
			Expect(pe.LineNo).To(Equal(3))
			Expect(errors.Is(pe, insts.ErrOffsetInvalid)).To(BeTrue())
		})

		It("should accept the largest offset that still fits", func() {
			prog, err := insts.ParseString("J 0x7fffffffffffffff\nNOP\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Insts[0].Target()).To(Equal(math.MaxInt))
		})

		It("should accept lines longer than the default scanner buffer", func() {
			prog, err := insts.ParseString("NOP ; " + strings.Repeat("x", 100_000) + "\nNOP\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Len()).To(Equal(2))
		})

		It("should report an overlong line as a parse error", func() {
			pe := parseErr("NOP\n" + strings.Repeat("x", insts.MaxLineLength+1) + "\n")
			Expect(pe.LineNo).To(Equal(2))
			Expect(errors.Is(pe, insts.ErrLineTooLong)).To(BeTrue())
		})

		DescribeTable("malformed lines",
			func(line string, want error) {
				pe := parseErr(line + "\n")
				Expect(errors.Is(pe, want)).To(BeTrue(), pe.Error())
			},
			Entry("too few operands", "ADD R1, R2", insts.ErrOperandCount),
			Entry("too many operands", "NOP R1", insts.ErrOperandCount),
			Entry("register out of range", "ADD R1, R2, R32", insts.ErrRegisterInvalid),
			Entry("immediate where register expected", "ADD R1, R2, 5", insts.ErrRegisterInvalid),
			Entry("bad immediate", "ADDI R1, R2, five", insts.ErrValueInvalid),
			Entry("unbracketed memory", "LOAD R1, R2", insts.ErrMemOperand),
			Entry("empty memory", "LOAD R1, []", insts.ErrMemOperand),
			Entry("backward branch", "BEQ R1, R2, -1", insts.ErrOffsetInvalid),
			Entry("zero jump", "J 0", insts.ErrOffsetInvalid),
			Entry("non-integer expression", `ADDI R1, R0, $("x")`, insts.ErrExpression),
			Entry("unbalanced expression", "ADDI R1, R0, $(1 + 2", insts.ErrExpression),
		)
	})
})
