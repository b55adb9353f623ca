package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/cache"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

func decodeLine(line string) pipeline.Slot {
	prog, err := insts.ParseString(line + "\n")
	Expect(err).NotTo(HaveOccurred())
	return pipeline.NewDecodeStage().Decode(prog.Insts[0])
}

var _ = Describe("Pipeline Stages", func() {
	Describe("Stage", func() {
		It("should name every stage", func() {
			Expect(pipeline.StageFetch.String()).To(Equal("IF"))
			Expect(pipeline.StageMemory.String()).To(Equal("MEM"))
			Expect(pipeline.StageWriteback.String()).To(Equal("WB"))
			Expect(pipeline.NumStages.String()).To(Equal("?"))
		})
	})

	Describe("FetchStage", func() {
		It("should fetch until the stream is exhausted", func() {
			prog, err := insts.ParseString("NOP\nNOP\n")
			Expect(err).NotTo(HaveOccurred())
			fetch := pipeline.NewFetchStage(prog)

			inst, ok := fetch.Fetch(1)
			Expect(ok).To(BeTrue())
			Expect(inst.Index).To(Equal(1))

			_, ok = fetch.Fetch(2)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("DecodeStage", func() {
		It("should set control signals for a register ALU op", func() {
			slot := decodeLine("ADD R3, R1, R2")
			Expect(slot.Valid).To(BeTrue())
			Expect(slot.RegWrite).To(BeTrue())
			Expect(slot.UsesRs).To(BeTrue())
			Expect(slot.UsesRt).To(BeTrue())
			Expect(slot.MemRead || slot.MemWrite || slot.IsBranch).To(BeFalse())
		})

		It("should set control signals for a load", func() {
			slot := decodeLine("LOAD R3, [R1+8]")
			Expect(slot.MemRead).To(BeTrue())
			Expect(slot.MemToReg).To(BeTrue())
			Expect(slot.RegWrite).To(BeTrue())
			Expect(slot.UsesRt).To(BeFalse())
		})

		It("should set control signals for a store", func() {
			slot := decodeLine("STORE R3, [R1]")
			Expect(slot.MemWrite).To(BeTrue())
			Expect(slot.RegWrite).To(BeFalse())
			Expect(slot.Rt).To(Equal(uint8(3)))
			Expect(slot.UsesRt).To(BeTrue())
		})

		It("should set control signals for a branch", func() {
			slot := decodeLine("BEQ R1, R2, 3")
			Expect(slot.IsBranch).To(BeTrue())
			Expect(slot.RegWrite).To(BeFalse())
		})
	})

	Describe("ExecuteStage", func() {
		It("should compute ALU results from the given operands", func() {
			slot := decodeLine("SUB R3, R1, R2")
			result := pipeline.NewExecuteStage(&emu.RegFile{}).Execute(&slot, 10, 4)
			Expect(result.ALUResult).To(Equal(uint64(6)))
			Expect(result.BranchTaken).To(BeFalse())
		})

		It("should compute the address and data of a store", func() {
			slot := decodeLine("STORE R3, [R1+8]")
			result := pipeline.NewExecuteStage(&emu.RegFile{}).Execute(&slot, 0x100, 77)
			Expect(result.ALUResult).To(Equal(uint64(0x108)))
			Expect(result.StoreValue).To(Equal(uint64(77)))
		})

		It("should resolve a taken branch to its target", func() {
			prog, err := insts.ParseString("NOP\nBNE R1, R2, 3\n")
			Expect(err).NotTo(HaveOccurred())
			slot := pipeline.NewDecodeStage().Decode(prog.Insts[1])

			result := pipeline.NewExecuteStage(&emu.RegFile{}).Execute(&slot, 1, 2)
			Expect(result.BranchTaken).To(BeTrue())
			Expect(result.BranchTarget).To(Equal(4))
		})

		It("should read operands from the register file", func() {
			regFile := &emu.RegFile{}
			regFile.WriteReg(1, 5)
			regFile.WriteReg(2, 6)
			slot := decodeLine("ADD R3, R1, R2")

			rs, rt := pipeline.NewExecuteStage(regFile).ReadOperands(&slot)
			Expect(rs).To(Equal(uint64(5)))
			Expect(rt).To(Equal(uint64(6)))
		})
	})

	Describe("MemoryStage", func() {
		var (
			memory *emu.Memory
			stage  *pipeline.MemoryStage
		)

		BeforeEach(func() {
			memory = emu.NewMemory()
			geometry, err := cache.GeometryFromSize(256, 1, 32)
			Expect(err).NotTo(HaveOccurred())
			dcache, err := cache.New(geometry, memory)
			Expect(err).NotTo(HaveOccurred())
			stage = pipeline.NewMemoryStage(dcache)
		})

		It("should miss then hit", func() {
			memory.Write64(0x40, 12)
			slot := decodeLine("LOAD R1, [0x40]")
			slot.ALUResult = 0x40

			first := stage.Access(&slot)
			Expect(first.Hit).To(BeFalse())
			Expect(first.MemData).To(Equal(uint64(12)))
			Expect(stage.Access(&slot).Hit).To(BeTrue())
		})

		It("should treat non-memory slots as hits", func() {
			slot := decodeLine("ADD R1, R2, R3")
			Expect(stage.Access(&slot).Hit).To(BeTrue())
			Expect(stage.Access(&pipeline.Slot{}).Hit).To(BeTrue())
		})
	})

	Describe("WritebackStage", func() {
		It("should commit results and report retirement", func() {
			regFile := &emu.RegFile{}
			stage := pipeline.NewWritebackStage(regFile)

			slot := decodeLine("LOAD R4, [R1]")
			slot.MemData = 99
			Expect(stage.Writeback(&slot)).To(BeTrue())
			Expect(regFile.ReadReg(4)).To(Equal(uint64(99)))

			Expect(stage.Writeback(&pipeline.Slot{})).To(BeFalse())
		})
	})
})
