package loader_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/loader"
)

var _ = Describe("Load", func() {
	var dir string

	write := func(name, text string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(text), 0644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should parse a trace file", func() {
		path := write("ok.trace", "LOAD R1, [0x100]\nADD R2, R1, R1\n")

		prog, err := loader.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Len()).To(Equal(2))
		Expect(prog.Insts[1].Op).To(Equal(insts.OpADD))
	})

	It("should return an IOError for a missing file", func() {
		_, err := loader.Load(filepath.Join(dir, "missing.trace"))

		var ioErr *loader.IOError
		Expect(errors.As(err, &ioErr)).To(BeTrue())
		Expect(ioErr.Op).To(Equal("open"))
		Expect(errors.Is(err, fs.ErrNotExist)).To(BeTrue())
	})

	It("should return the parse error unchanged", func() {
		path := write("bad.trace", "NOP\nBOGUS\n")

		_, err := loader.Load(path)

		var pe *insts.ParseError
		Expect(errors.As(err, &pe)).To(BeTrue())
		Expect(pe.LineNo).To(Equal(2))

		var ioErr *loader.IOError
		Expect(errors.As(err, &ioErr)).To(BeFalse())
	})

	It("should report an overlong line as a parse error", func() {
		path := write("long.trace", "NOP\nNOP ; "+strings.Repeat("x", insts.MaxLineLength)+"\n")

		_, err := loader.Load(path)

		var pe *insts.ParseError
		Expect(errors.As(err, &pe)).To(BeTrue())
		Expect(pe.LineNo).To(Equal(2))
		Expect(errors.Is(err, insts.ErrLineTooLong)).To(BeTrue())

		var ioErr *loader.IOError
		Expect(errors.As(err, &ioErr)).To(BeFalse())
	})
})
