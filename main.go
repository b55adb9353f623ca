// Package main provides the entry point for pipesim.
// pipesim is a cycle-stepped CPU pipeline simulator coupled to a
// set-associative data cache.
//
// For the full CLI, use: go run ./cmd/pipesim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("pipesim - Pipeline and Cache Simulator")
	fmt.Println("")
	fmt.Println("Usage: pipesim [options] <trace>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -cache_size          Cache size in bytes")
	fmt.Println("  -num_blocks_per_set  Number of blocks per set")
	fmt.Println("  -block_size          Block size in bytes")
	fmt.Println("  -pipelined           1 for pipelined, 2 for non-pipelined")
	fmt.Println("  -forwarding          1 for forwarding, 2 for not-forwarding")
	fmt.Println("  -print_registers     1 to print registers, 2 not to")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/pipesim -h' for every option.")
	fmt.Println("Run 'go run ./cmd/benchmark' for the benchmark harness.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/pipesim' instead.")
	}
}
