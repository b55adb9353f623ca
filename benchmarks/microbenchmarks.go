package benchmarks

import (
	"fmt"
	"strings"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets a specific pipeline or cache characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		loadUse(),
		memorySequential(),
		cacheThrash(),
		branchTaken(),
		multiplyChain(),
		storeReload(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 benchmarks for quick
// validation: hazards, cache conflicts and control flow.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loadUse(),
		cacheThrash(),
		branchTaken(),
	}
}

// Lookup returns the benchmark with the given name.
func Lookup(name string) (Benchmark, bool) {
	for _, b := range GetMicrobenchmarks() {
		if b.Name == name {
			return b, true
		}
	}
	return Benchmark{}, false
}

// trace accumulates the lines of a kernel.
type trace struct {
	sb strings.Builder
}

func (t *trace) line(format string, args ...any) {
	fmt.Fprintf(&t.sb, format, args...)
	t.sb.WriteByte('\n')
}

func (t *trace) String() string {
	return t.sb.String()
}

// 1. Arithmetic Sequential - ALU throughput with no dependent neighbours
func arithmeticSequential() Benchmark {
	var t trace
	for i := 0; i < 20; i++ {
		reg := 1 + i%5
		t.line("ADDI R%d, R%d, 1", reg, reg)
	}

	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "20 ADDIs over 5 registers - measures ALU throughput",
		Source:      t.String(),
		Expect:      map[uint8]uint64{1: 4, 2: 4, 3: 4, 4: 4, 5: 4},
	}
}

// 2. Dependency Chain - back-to-back RAW hazards
func dependencyChain() Benchmark {
	var t trace
	for i := 0; i < 20; i++ {
		t.line("ADDI R1, R1, 1")
	}

	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 dependent ADDIs (R1 = R1 + 1) - measures forwarding",
		Source:      t.String(),
		Expect:      map[uint8]uint64{1: 20},
	}
}

// 3. Load Use - every load is consumed by the next instruction
func loadUse() Benchmark {
	var t trace
	t.line(".equ BASE 0x100")
	for i := 0; i < 8; i++ {
		t.line(".word $(BASE + %d), %d", 8*i, i)
	}
	for i := 0; i < 8; i++ {
		t.line("LOAD R1, [$(BASE + %d)]", 8*i)
		t.line("ADD  R2, R2, R1")
	}

	return Benchmark{
		Name:        "load_use",
		Description: "8 LOAD/ADD pairs - measures load-use stalls",
		Source:      t.String(),
		Expect:      map[uint8]uint64{2: 28},
	}
}

// 4. Memory Sequential - spatial locality within cache blocks
func memorySequential() Benchmark {
	var t trace
	t.line(".equ BASE 0x200")
	for i := 0; i < 16; i++ {
		t.line(".word $(BASE + %d), %d", 8*i, i+1)
	}
	for i := 0; i < 16; i++ {
		t.line("LOAD R%d, [$(BASE + %d)]", 1+i%8, 8*i)
	}
	t.line("ADD  R10, R1, R2")
	t.line("ADD  R10, R10, R8")
	t.line("STORE R10, [$(BASE + 128)]")

	return Benchmark{
		Name:        "memory_sequential",
		Description: "16 sequential word loads - measures block reuse",
		Source:      t.String(),
		// R1, R2, R8 hold the second round: 9, 10, 16.
		Expect: map[uint8]uint64{1: 9, 2: 10, 8: 16, 10: 35},
	}
}

// 5. Cache Thrash - three blocks competing for one 2-way set
func cacheThrash() Benchmark {
	var t trace
	addrs := []int{0x000, 0x200, 0x400}
	for i, addr := range addrs {
		t.line(".word %#x, %d", addr, i+1)
	}
	for round := 0; round < 4; round++ {
		for i, addr := range addrs {
			t.line("LOAD R%d, [%#x]", i+1, addr)
		}
	}

	return Benchmark{
		Name:        "cache_thrash",
		Description: "3 conflicting blocks read round-robin - measures LRU eviction",
		Source:      t.String(),
		Expect:      map[uint8]uint64{1: 1, 2: 2, 3: 3},
	}
}

// 6. Branch Taken - every branch skips one instruction
func branchTaken() Benchmark {
	var t trace
	for i := 0; i < 8; i++ {
		t.line("ADDI R1, R1, 1")
		t.line("BEQ  R0, R0, 2")
		t.line("ADDI R2, R2, 1")
	}

	return Benchmark{
		Name:        "branch_taken",
		Description: "8 taken forward branches - measures flush cost",
		Source:      t.String(),
		Expect:      map[uint8]uint64{1: 8, 2: 0},
	}
}

// 7. Multiply Chain - dependent multi-cycle operations
func multiplyChain() Benchmark {
	var t trace
	t.line("ADDI R1, R0, 1")
	t.line("ADDI R2, R0, 2")
	for i := 0; i < 10; i++ {
		t.line("MUL  R1, R1, R2")
	}

	return Benchmark{
		Name:        "multiply_chain",
		Description: "10 dependent MULs - measures execute stalls",
		Source:      t.String(),
		Expect:      map[uint8]uint64{1: 1024},
	}
}

// 8. Store Reload - dirty blocks written back on eviction
func storeReload() Benchmark {
	var t trace
	for i := 0; i < 4; i++ {
		t.line("ADDI R%d, R0, %d", i+1, 10*(i+1))
		t.line("STORE R%d, [$(%d * 0x200)]", i+1, i)
	}
	for i := 0; i < 4; i++ {
		t.line("LOAD R%d, [$(%d * 0x200)]", i+5, i)
	}

	return Benchmark{
		Name:        "store_reload",
		Description: "4 stores to one set then reloads - measures writebacks",
		Source:      t.String(),
		Expect:      map[uint8]uint64{5: 10, 6: 20, 7: 30, 8: 40},
	}
}
