// Package insts provides the instruction set and the trace parser.
//
// A trace is a small assembly-like text file. Each non-blank line holds one
// instruction or directive:
//
//	.equ  BASE 0x100        ; named constant, usable by later lines
//	.word BASE, 42          ; initial memory contents
//	ADDI  R1, R0, 5
//	LOAD  R2, [R1+BASE]
//	ADD   R3, R2, R2
//	STORE R3, [$(BASE + 8)]
//	BEQ   R3, R0, 2         ; forward-only, relative to the branch
//	NOP
//
// Usage:
//
//	prog, err := insts.ParseString("ADD R1, R2, R3\n")
//	fmt.Println(prog.Insts[0]) // ADD R1, R2, R3
package insts
