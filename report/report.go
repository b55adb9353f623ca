// Package report renders the statistics of a simulation run.
//
// Numbers are formatted for a fixed language through
// golang.org/x/text/message so that the output is deterministic for a
// given locale.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/message"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/timing/cache"
)

// Stats holds the engine counters of a run.
type Stats struct {
	Instructions uint64 `json:"instructions"`
	Cycles       uint64 `json:"cycles"`
	Stalls       uint64 `json:"stalls"`
	DataStalls   uint64 `json:"data_stalls"`
	MemStalls    uint64 `json:"mem_stalls"`
	ExecStalls   uint64 `json:"exec_stalls"`
	Flushes      uint64 `json:"flushes"`
}

// CPI returns the cycles per instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// TraceRow is one line of the cycle trace.
type TraceRow struct {
	Cycle uint64   `json:"cycle"`
	Cells []string `json:"cells"`
	Event string   `json:"event,omitempty"`
}

// Trace is a per-cycle (or per-instruction) table. Header names the
// columns of every row's Cells.
type Trace struct {
	Header []string   `json:"header"`
	Rows   []TraceRow `json:"rows"`
}

// Input is everything a report shows.
type Input struct {
	Mode       string
	Forwarding string
	Geometry   cache.Geometry
	Stats      Stats
	Cache      cache.Statistics

	// Registers is printed when non-nil.
	Registers []emu.RegValue

	// Trace is printed when non-nil.
	Trace *Trace
}

const labelWidth = 21

// Write renders the text report.
func Write(w io.Writer, in Input, opts Options) error {
	p := message.NewPrinter(opts.language())
	var sb strings.Builder

	line := func(label string, format string, args ...any) {
		fmt.Fprintf(&sb, "%-*s%s\n", labelWidth, label, p.Sprintf(format, args...))
	}

	g := in.Geometry
	line("Mode:", "%s", in.Mode)
	line("Forwarding:", "%s", in.Forwarding)
	line("Cache:", "%d bytes (%d sets x %d ways x %d-byte blocks)",
		g.Size, g.NumSets, g.NumWays, g.BlockSize)
	sb.WriteString("\n")

	s := in.Stats
	line("Instructions:", "%d", s.Instructions)
	line("Total cycles:", "%d", s.Cycles)
	line("CPI:", "%.2f", s.CPI())
	line("Stall cycles:", "%d", s.Stalls)
	line("  Data hazard:", "%d", s.DataStalls)
	line("  Memory:", "%d", s.MemStalls)
	line("  Execute:", "%d", s.ExecStalls)
	line("Flushes:", "%d", s.Flushes)
	sb.WriteString("\n")

	c := in.Cache
	line("Cache accesses:", "%d", c.Accesses())
	line("Cache hits:", "%d", c.Hits)
	line("Cache misses:", "%d", c.Misses)
	line("Hit rate:", "%.2f%%", c.HitRate()*100)
	line("Evictions:", "%d", c.Evictions)
	line("Writebacks:", "%d", c.Writebacks)

	if in.Registers != nil {
		sb.WriteString("\nRegisters:\n")
		for _, reg := range in.Registers {
			fmt.Fprintf(&sb, "R%-2d = %d\n", reg.Index, reg.Value)
		}
	}

	if in.Trace != nil {
		sb.WriteString("\nCycle trace:\n")
		writeTrace(&sb, in.Trace)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeTrace(sb *strings.Builder, trace *Trace) {
	tw := tabwriter.NewWriter(sb, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Cycle\t%s\tEvent\n", strings.Join(trace.Header, "\t"))
	for _, row := range trace.Rows {
		cells := make([]string, len(trace.Header))
		for i := range cells {
			cells[i] = "-"
			if i < len(row.Cells) && row.Cells[i] != "" {
				cells[i] = row.Cells[i]
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", row.Cycle, strings.Join(cells, "\t"), row.Event)
	}

	tw.Flush()
}
