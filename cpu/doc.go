// Package cpu implements the LC-3 processor and assembler.
//
// The processor consists of eight 16-bit general purpose registers
// (R0-R7), a program counter, three mutually exclusive condition
// flags (N/Z/P), the sixteen-opcode instruction set, and the built-in
// trap service routines for console I/O. Instructions execute
// strictly sequentially over a memory bus: fetch, increment PC,
// decode, execute.
//
// The assembler provides the classic LC-3 assembly language,
// extended with equates and compile-time expression evaluation.
package cpu
