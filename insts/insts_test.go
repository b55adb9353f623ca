package insts_test

import (
	"bytes"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
)

var _ = Describe("Instruction", func() {
	It("should classify opcodes", func() {
		Expect((&insts.Instruction{Op: insts.OpMUL}).Class()).To(Equal(insts.ClassMultiply))
		Expect((&insts.Instruction{Op: insts.OpLOAD}).Class()).To(Equal(insts.ClassLoad))
		Expect((&insts.Instruction{Op: insts.OpSTORE}).Class()).To(Equal(insts.ClassStore))
		Expect((&insts.Instruction{Op: insts.OpJ}).Class()).To(Equal(insts.ClassBranch))
		Expect((&insts.Instruction{Op: insts.OpNOP}).Class()).To(Equal(insts.ClassNop))
		Expect((&insts.Instruction{Op: insts.OpXOR}).Class()).To(Equal(insts.ClassALU))
	})

	It("should report register usage by format", func() {
		store := &insts.Instruction{Op: insts.OpSTORE, Format: insts.FormatStore, Rt: 3, Rs: 4}
		Expect(store.UsesRs()).To(BeTrue())
		Expect(store.UsesRt()).To(BeTrue())
		Expect(store.WritesRd()).To(BeFalse())

		load := &insts.Instruction{Op: insts.OpLOAD, Format: insts.FormatLoad, Rd: 2, Rs: 1}
		Expect(load.UsesRt()).To(BeFalse())
		Expect(load.WritesRd()).To(BeTrue())
	})

	It("should never write R0", func() {
		inst := &insts.Instruction{Op: insts.OpADD, Format: insts.FormatReg, Rd: 0, Rs: 1, Rt: 2}
		Expect(inst.WritesRd()).To(BeFalse())
	})

	It("should compute branch targets relative to the branch", func() {
		inst := &insts.Instruction{Op: insts.OpJ, Format: insts.FormatJump, Imm: 3, Index: 4}
		Expect(inst.Target()).To(Equal(7))
	})

	It("should saturate a target past the largest index", func() {
		inst := &insts.Instruction{Op: insts.OpJ, Format: insts.FormatJump, Imm: math.MaxInt64, Index: 4}
		Expect(inst.Target()).To(Equal(math.MaxInt))
	})

	It("should disassemble every format", func() {
		prog, err := insts.ParseString(`
			ADD R1, R2, R3
			ADDI R4, R0, -7
			LOAD R5, [R6+16]
			STORE R7, [R8-8]
			LOAD R9, [0x40]
			BNE R1, R2, 2
			J 1
			NOP
		`)
		Expect(err).NotTo(HaveOccurred())

		var buf bytes.Buffer
		Expect(prog.Disassemble(&buf)).To(Succeed())
		Expect(buf.String()).To(Equal(
			"   0: ADD R1, R2, R3\n" +
				"   1: ADDI R4, R0, -7\n" +
				"   2: LOAD R5, [R6+16]\n" +
				"   3: STORE R7, [R8-8]\n" +
				"   4: LOAD R9, [0x40]\n" +
				"   5: BNE R1, R2, 2\n" +
				"   6: J 1\n" +
				"   7: NOP\n"))
	})

	It("should return nil past the end of the stream", func() {
		prog, err := insts.ParseString("NOP\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.At(0)).NotTo(BeNil())
		Expect(prog.At(1)).To(BeNil())
		Expect(prog.At(-1)).To(BeNil())
	})
})
