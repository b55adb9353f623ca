package emu

import "github.com/sarchlab/pipesim/insts"

const (
	pageBits = 12
	pageSize = 1 << pageBits
	pageMask = pageSize - 1
)

// WordSize is the width in bytes of every load and store.
const WordSize = 8

// Memory is a sparse, paged, little-endian byte memory. Untouched bytes
// read as zero.
type Memory struct {
	pages map[uint64]*[pageSize]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64]*[pageSize]byte)}
}

func (m *Memory) page(addr uint64, create bool) *[pageSize]byte {
	key := addr >> pageBits
	p, ok := m.pages[key]
	if !ok && create {
		p = new([pageSize]byte)
		m.pages[key] = p
	}
	return p
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint64) byte {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&pageMask]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint64, value byte) {
	m.page(addr, true)[addr&pageMask] = value
}

// Read64 reads a 64-bit little-endian value.
func (m *Memory) Read64(addr uint64) uint64 {
	var value uint64
	for i := uint64(0); i < WordSize; i++ {
		value |= uint64(m.Read8(addr+i)) << (8 * i)
	}
	return value
}

// Write64 writes a 64-bit little-endian value.
func (m *Memory) Write64(addr uint64, value uint64) {
	for i := uint64(0); i < WordSize; i++ {
		m.Write8(addr+i, byte(value>>(8*i)))
	}
}

// AlignWord rounds an address down to a word boundary.
func AlignWord(addr uint64) uint64 {
	return addr &^ (WordSize - 1)
}

// LoadData stores the initial words of a program. Addresses are aligned
// down to a word boundary the same way effective addresses are.
func (m *Memory) LoadData(words []insts.DataWord) {
	for _, w := range words {
		m.Write64(AlignWord(w.Addr), w.Value)
	}
}

// ReadBlock fills buf with the bytes starting at addr.
func (m *Memory) ReadBlock(addr uint64, buf []byte) {
	for i := range buf {
		buf[i] = m.Read8(addr + uint64(i))
	}
}

// WriteBlock stores data starting at addr.
func (m *Memory) WriteBlock(addr uint64, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint64(i), b)
	}
}
