package cache

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/sarchlab/pipesim/emu"
)

// ErrInvalidGeometry is matched by every ConfigError.
var ErrInvalidGeometry = errors.New("invalid cache geometry")

// ConfigError reports an inconsistent cache geometry.
type ConfigError struct {
	Field  string
	Value  int
	Reason string
}

func (err *ConfigError) Error() string {
	return fmt.Sprintf("cache %s = %d: %s", err.Field, err.Value, err.Reason)
}

func (err *ConfigError) Unwrap() error {
	return ErrInvalidGeometry
}

// Geometry describes the shape of a set-associative cache.
type Geometry struct {
	// Size in bytes. Always NumSets * NumWays * BlockSize.
	Size int
	// NumSets is the number of sets, a power of two.
	NumSets int
	// NumWays is the number of blocks per set.
	NumWays int
	// BlockSize in bytes, a power of two no smaller than one word.
	BlockSize int
}

// GeometryFromSize derives the number of sets from the total size, the
// associativity and the block size, then validates the result.
func GeometryFromSize(size, numWays, blockSize int) (Geometry, error) {
	if numWays <= 0 {
		return Geometry{}, &ConfigError{"num_blocks_per_set", numWays, "must be positive"}
	}
	if blockSize <= 0 {
		return Geometry{}, &ConfigError{"block_size", blockSize, "must be positive"}
	}
	if numWays > math.MaxInt/blockSize {
		return Geometry{}, &ConfigError{"num_blocks_per_set", numWays,
			fmt.Sprintf("times block_size %d overflows", blockSize)}
	}

	g := Geometry{
		Size:      size,
		NumSets:   size / (numWays * blockSize),
		NumWays:   numWays,
		BlockSize: blockSize,
	}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

// Validate checks every field and that Size == NumSets*NumWays*BlockSize.
func (g Geometry) Validate() error {
	switch {
	case g.Size <= 0:
		return &ConfigError{"cache_size", g.Size, "must be positive"}
	case g.NumWays <= 0:
		return &ConfigError{"num_blocks_per_set", g.NumWays, "must be positive"}
	case g.BlockSize <= 0:
		return &ConfigError{"block_size", g.BlockSize, "must be positive"}
	case !isPowerOfTwo(g.BlockSize):
		return &ConfigError{"block_size", g.BlockSize, "must be a power of two"}
	case g.BlockSize < emu.WordSize:
		return &ConfigError{"block_size", g.BlockSize,
			fmt.Sprintf("must hold at least one %d-byte word", emu.WordSize)}
	case g.NumSets <= 0:
		return &ConfigError{"num_sets", g.NumSets, "must be positive"}
	case !isPowerOfTwo(g.NumSets):
		return &ConfigError{"num_sets", g.NumSets, "must be a power of two"}
	case g.NumWays > math.MaxInt/g.BlockSize ||
		g.NumSets > math.MaxInt/(g.NumWays*g.BlockSize):
		return &ConfigError{"cache_size", g.Size, fmt.Sprintf(
			"num_sets * num_blocks_per_set * block_size overflows (%d * %d * %d)",
			g.NumSets, g.NumWays, g.BlockSize)}
	case g.NumSets*g.NumWays*g.BlockSize != g.Size:
		return &ConfigError{"cache_size", g.Size, fmt.Sprintf(
			"must equal num_sets * num_blocks_per_set * block_size (%d * %d * %d)",
			g.NumSets, g.NumWays, g.BlockSize)}
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && bits.OnesCount(uint(n)) == 1
}

// Address is an address split into its cache fields.
type Address struct {
	Offset uint64
	Index  int
	Tag    uint64
}

// Decompose splits addr into offset, set index and tag.
func (g Geometry) Decompose(addr uint64) Address {
	block := uint64(g.BlockSize)
	sets := uint64(g.NumSets)
	return Address{
		Offset: addr % block,
		Index:  int((addr / block) % sets),
		Tag:    addr / (block * sets),
	}
}

// BlockAddr returns the address of the first byte of addr's block.
func (g Geometry) BlockAddr(addr uint64) uint64 {
	return addr - addr%uint64(g.BlockSize)
}

func (g Geometry) String() string {
	return fmt.Sprintf("%d bytes (%d sets x %d ways x %d-byte blocks)",
		g.Size, g.NumSets, g.NumWays, g.BlockSize)
}
