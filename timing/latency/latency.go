// Package latency provides the instruction timing model shared by the
// pipelined and non-pipelined engines.
//
// Latency values can be configured via TimingConfig.
package latency

import (
	"github.com/sarchlab/pipesim/insts"
)

// Number of stages every instruction visits, and the extra stages some
// instructions add.
const (
	frontEndStages = 3 // fetch, decode, execute
	memoryStage    = 1
	writebackStage = 1
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the number of cycles the instruction occupies the
// execute stage.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch inst.Class() {
	case insts.ClassALU:
		return t.config.ALULatency
	case insts.ClassMultiply:
		return t.config.MultiplyLatency
	case insts.ClassBranch:
		return t.config.BranchLatency
	case insts.ClassLoad, insts.ClassStore:
		return t.config.AddressLatency
	default:
		return 1
	}
}

// ExtraExecuteCycles returns the execute cycles beyond the first.
func (t *Table) ExtraExecuteCycles(inst *insts.Instruction) uint64 {
	latency := t.GetLatency(inst)
	if latency == 0 {
		return 0
	}
	return latency - 1
}

// BaseCycles returns one cycle per stage the instruction visits when it
// runs alone: fetch, decode and execute always; memory for loads and
// stores; writeback for instructions that write a register.
func (t *Table) BaseCycles(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 0
	}

	cycles := uint64(frontEndStages)
	if inst.IsMemory() {
		cycles += memoryStage
	}
	if writesBack(inst) {
		cycles += writebackStage
	}
	return cycles
}

// writesBack reports whether the instruction visits writeback. A write
// to R0 still visits the stage even though it commits nothing.
func writesBack(inst *insts.Instruction) bool {
	switch inst.Format {
	case insts.FormatReg, insts.FormatImm, insts.FormatLoad:
		return true
	default:
		return false
	}
}

// MissPenalty returns the extra cycles a cache miss costs.
func (t *Table) MissPenalty() uint64 {
	return t.config.MissPenalty
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
