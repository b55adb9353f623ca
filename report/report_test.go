package report_test

import (
	"bytes"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/text/language"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/report"
	"github.com/sarchlab/pipesim/timing/cache"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func sampleInput() report.Input {
	geometry, err := cache.GeometryFromSize(1024, 2, 32)
	Expect(err).NotTo(HaveOccurred())

	return report.Input{
		Mode:       "pipelined",
		Forwarding: "enabled",
		Geometry:   geometry,
		Stats: report.Stats{
			Instructions: 3,
			Cycles:       17,
			Stalls:       10,
			MemStalls:    10,
		},
		Cache: cache.Statistics{Reads: 3, Hits: 2, Misses: 1},
	}
}

const expectedReport = `Mode:                pipelined
Forwarding:          enabled
Cache:               1,024 bytes (16 sets x 2 ways x 32-byte blocks)

Instructions:        3
Total cycles:        17
CPI:                 5.67
Stall cycles:        10
  Data hazard:       0
  Memory:            10
  Execute:           0
Flushes:             0

Cache accesses:      3
Cache hits:          2
Cache misses:        1
Hit rate:            66.67%
Evictions:           0
Writebacks:          0
`

var _ = Describe("Write", func() {
	It("should render the statistics", func() {
		var buf bytes.Buffer
		Expect(report.Write(&buf, sampleInput(), report.Options{})).To(Succeed())
		Expect(buf.String()).To(Equal(expectedReport))
	})

	It("should be deterministic", func() {
		var first, second bytes.Buffer
		Expect(report.Write(&first, sampleInput(), report.Options{})).To(Succeed())
		Expect(report.Write(&second, sampleInput(), report.Options{})).To(Succeed())
		Expect(first.Bytes()).To(Equal(second.Bytes()))
	})

	It("should print registers when given", func() {
		in := sampleInput()
		regFile := &emu.RegFile{}
		regFile.WriteReg(10, 1234)
		in.Registers = regFile.Snapshot()

		var buf bytes.Buffer
		Expect(report.Write(&buf, in, report.Options{})).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("\nRegisters:\nR0  = 0\nR1  = 0\n"))
		Expect(buf.String()).To(ContainSubstring("\nR10 = 1234\n"))
		Expect(buf.String()).To(HaveSuffix("R31 = 0\n"))
	})

	It("should print the cycle trace when given", func() {
		in := sampleInput()
		in.Trace = &report.Trace{
			Header: []string{"IF", "ID"},
			Rows: []report.TraceRow{
				{Cycle: 1, Cells: []string{"NOP", ""}},
				{Cycle: 2, Cells: []string{"", "NOP"}, Event: "flush"},
			},
		}

		var buf bytes.Buffer
		Expect(report.Write(&buf, in, report.Options{})).To(Succeed())
		Expect(buf.String()).To(HaveSuffix(
			"\nCycle trace:\n" +
				"Cycle  IF   ID   Event\n" +
				"1      NOP  -    \n" +
				"2      -    NOP  flush\n"))
	})

	It("should format numbers for the chosen language", func() {
		var buf bytes.Buffer
		opts := report.Options{Language: language.German}
		Expect(report.Write(&buf, sampleInput(), opts)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("1.024 bytes"))
	})

	It("should return write errors", func() {
		err := report.Write(failingWriter{}, sampleInput(), report.Options{})
		Expect(err).To(MatchError("disk full"))
	})
})

var _ = Describe("WriteJSON", func() {
	It("should render the same data as JSON", func() {
		var buf bytes.Buffer
		Expect(report.WriteJSON(&buf, sampleInput())).To(Succeed())

		var doc map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &doc)).To(Succeed())
		Expect(doc["mode"]).To(Equal("pipelined"))
		Expect(doc["cpi"]).To(BeNumerically("~", 17.0/3.0))
		Expect(doc["stats"]).To(HaveKeyWithValue("cycles", BeNumerically("==", 17)))
		Expect(doc["cache"]).To(HaveKeyWithValue("misses", BeNumerically("==", 1)))
		Expect(doc["cache_geometry"]).To(HaveKeyWithValue("num_sets", BeNumerically("==", 16)))
		Expect(doc).NotTo(HaveKey("registers"))
	})
})

var _ = Describe("ParseLocale", func() {
	It("should default to en-US", func() {
		tag, err := report.ParseLocale("")
		Expect(err).NotTo(HaveOccurred())
		Expect(tag).To(Equal(language.MustParse("en-US")))
	})

	It("should parse a BCP 47 tag", func() {
		tag, err := report.ParseLocale("de-DE")
		Expect(err).NotTo(HaveOccurred())
		Expect(tag).To(Equal(language.MustParse("de-DE")))
	})

	It("should detect the environment locale", func() {
		tag, err := report.ParseLocale("auto")
		Expect(err).NotTo(HaveOccurred())
		Expect(tag).NotTo(Equal(language.Und))
	})

	It("should reject malformed names", func() {
		_, err := report.ParseLocale("not a locale")
		Expect(err).To(HaveOccurred())
	})
})
