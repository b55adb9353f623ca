// Package emu provides the architectural state and functional execution.
package emu

import "github.com/sarchlab/pipesim/insts"

// RegFile holds the general-purpose registers R0-R31.
// R0 is hardwired to zero: writes are ignored and reads return 0.
type RegFile struct {
	X [insts.NumRegs]uint64
}

// RegValue is one entry of a register snapshot.
type RegValue struct {
	Index uint8
	Value uint64
}

// ReadReg reads a register value.
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if int(reg) >= insts.NumRegs {
		Violate("read of register R%d", reg)
	}
	if reg == 0 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to R0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if int(reg) >= insts.NumRegs {
		Violate("write of register R%d", reg)
	}
	if reg == 0 {
		return
	}
	r.X[reg] = value
}

// Snapshot returns every register in index order.
func (r *RegFile) Snapshot() []RegValue {
	snap := make([]RegValue, insts.NumRegs)
	for i := range snap {
		snap[i] = RegValue{Index: uint8(i), Value: r.ReadReg(uint8(i))}
	}
	return snap
}
