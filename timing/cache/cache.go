// Package cache provides a set-associative data cache model using Akita
// cache components.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/pipesim/emu"
)

// BackingStore is the next level in the memory hierarchy.
type BackingStore interface {
	// ReadBlock fills buf from the backing store.
	ReadBlock(addr uint64, buf []byte)
	// WriteBlock stores data to the backing store.
	WriteBlock(addr uint64, data []byte)
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Data is the word read (for loads).
	Data uint64
	// Set and Way locate the block that served the access.
	Set int
	Way int
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the block address of the replaced block.
	EvictedAddr uint64
	// Writeback is true if the replaced block was dirty.
	Writeback bool
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
	// FlushWritebacks counts dirty blocks written back by Flush.
	FlushWritebacks uint64
}

// Accesses returns the total number of reads and writes.
func (s Statistics) Accesses() uint64 {
	return s.Hits + s.Misses
}

// HitRate returns hits / accesses, or 0 when there were no accesses.
func (s Statistics) HitRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses())
}

// WayState is the externally visible state of one way.
type WayState struct {
	Valid   bool
	Dirty   bool
	Tag     uint64
	Recency uint64
}

// Cache is a write-back, write-allocate, true-LRU cache.
type Cache struct {
	geometry Geometry

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Data storage and recency stamps, indexed by (setID * ways + wayID)
	dataStore [][]byte
	recency   []uint64

	// clock is the logical time, advanced once per access.
	clock uint64

	stats   Statistics
	backing BackingStore
}

// New creates a cache with a validated geometry. backing may be nil, in
// which case fills read zeros and write-backs are dropped.
func New(geometry Geometry, backing BackingStore) (*Cache, error) {
	if err := geometry.Validate(); err != nil {
		return nil, err
	}

	totalBlocks := geometry.NumSets * geometry.NumWays
	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, geometry.BlockSize)
	}

	return &Cache{
		geometry: geometry,
		directory: akitacache.NewDirectory(
			geometry.NumSets,
			geometry.NumWays,
			geometry.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		recency:   make([]uint64, totalBlocks),
		backing:   backing,
	}, nil
}

// Geometry returns the cache geometry.
func (c *Cache) Geometry() Geometry {
	return c.geometry
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.geometry.NumWays + block.WayID
}

// Read performs a word read.
func (c *Cache) Read(addr uint64) AccessResult {
	return c.Access(addr, false, 0)
}

// Write performs a word write.
func (c *Cache) Write(addr uint64, value uint64) AccessResult {
	return c.Access(addr, true, value)
}

// Access looks addr up, filling the block on a miss. Every access counts
// exactly one hit or one miss and refreshes the block's recency.
func (c *Cache) Access(addr uint64, isWrite bool, value uint64) AccessResult {
	addr = emu.AlignWord(addr)
	c.clock++
	if isWrite {
		c.stats.Writes++
	} else {
		c.stats.Reads++
	}

	blockAddr := c.geometry.BlockAddr(addr)
	block := c.directory.Lookup(0, blockAddr)

	var result AccessResult
	if block != nil && block.IsValid {
		c.stats.Hits++
		result.Hit = true
	} else {
		c.stats.Misses++
		block = c.fill(blockAddr, &result)
	}

	c.checkPlacement(addr, block)
	c.directory.Visit(block)
	c.recency[c.blockIndex(block)] = c.clock
	result.Set = block.SetID
	result.Way = block.WayID

	offset := addr - blockAddr
	data := c.dataStore[c.blockIndex(block)]
	if isWrite {
		storeData(data, offset, value)
		block.IsDirty = true
	} else {
		result.Data = extractData(data, offset)
	}

	return result
}

// fill picks the LRU victim for blockAddr, writes it back if dirty and
// loads the new block from the backing store.
func (c *Cache) fill(blockAddr uint64, result *AccessResult) *akitacache.Block {
	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		emu.Violate("no victim in set for address %#x", blockAddr)
	}

	data := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag // Tag stores block-aligned address

		if victim.IsDirty {
			c.stats.Writebacks++
			result.Writeback = true
			if c.backing != nil {
				c.backing.WriteBlock(victim.Tag, data)
			}
		}
	}

	if c.backing != nil {
		c.backing.ReadBlock(blockAddr, data)
	} else {
		clear(data)
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false

	return victim
}

// checkPlacement verifies the directory placed addr in the set its index
// bits select.
func (c *Cache) checkPlacement(addr uint64, block *akitacache.Block) {
	fields := c.geometry.Decompose(addr)
	if block.SetID != fields.Index || block.WayID < 0 || block.WayID >= c.geometry.NumWays {
		emu.Violate("address %#x (set %d) placed in set %d way %d",
			addr, fields.Index, block.SetID, block.WayID)
	}
}

// Contains reports whether addr's block is resident, without touching
// statistics or recency.
func (c *Cache) Contains(addr uint64) bool {
	block := c.directory.Lookup(0, c.geometry.BlockAddr(addr))
	return block != nil && block.IsValid
}

// Ways returns the state of every way in set, in way order.
func (c *Cache) Ways(set int) []WayState {
	ways := make([]WayState, c.geometry.NumWays)
	for _, block := range c.directory.GetSets()[set].Blocks {
		state := WayState{
			Valid:   block.IsValid,
			Dirty:   block.IsDirty,
			Recency: c.recency[c.blockIndex(block)],
		}
		if block.IsValid {
			state.Tag = c.geometry.Decompose(block.Tag).Tag
		}
		ways[block.WayID] = state
	}
	return ways
}

// Flush writes back every dirty block. Blocks stay valid and become clean.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if !block.IsValid || !block.IsDirty {
				continue
			}
			if c.backing != nil {
				c.backing.WriteBlock(block.Tag, c.dataStore[c.blockIndex(block)])
			}
			c.stats.FlushWritebacks++
			block.IsDirty = false
		}
	}
}

// Reset invalidates all cache lines without writeback and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
	c.clock = 0
	clear(c.recency)
}

// extractData reads a little-endian word from a block.
func extractData(data []byte, offset uint64) uint64 {
	if int(offset)+emu.WordSize > len(data) {
		emu.Violate("word at offset %d overruns %d-byte block", offset, len(data))
	}

	var result uint64
	for i := 0; i < emu.WordSize; i++ {
		result |= uint64(data[int(offset)+i]) << (i * 8)
	}
	return result
}

// storeData writes a little-endian word into a block.
func storeData(data []byte, offset uint64, value uint64) {
	if int(offset)+emu.WordSize > len(data) {
		emu.Violate("word at offset %d overruns %d-byte block", offset, len(data))
	}

	for i := 0; i < emu.WordSize; i++ {
		data[int(offset)+i] = byte(value >> (i * 8))
	}
}
