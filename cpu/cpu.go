package cpu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"os"

	"github.com/ezrec/lc3/mem"
)

// Status is the run loop state. Halted, Faulted and Interrupted are
// terminal: no instruction executes after any of them is entered.
type Status int

//go:generate go tool stringer -linecomment -type=Status
const (
	StatusRunning     = Status(0) // running
	StatusHalted      = Status(1) // halted
	StatusFaulted     = Status(2) // faulted
	StatusInterrupted = Status(3) // interrupted
)

var _cpu_defines = map[string]string{
	"TRAP_GETC":  fmt.Sprintf("%#x", int(TRAP_GETC)),
	"TRAP_OUT":   fmt.Sprintf("%#x", int(TRAP_OUT)),
	"TRAP_PUTS":  fmt.Sprintf("%#x", int(TRAP_PUTS)),
	"TRAP_IN":    fmt.Sprintf("%#x", int(TRAP_IN)),
	"TRAP_PUTSP": fmt.Sprintf("%#x", int(TRAP_PUTSP)),
	"TRAP_HALT":  fmt.Sprintf("%#x", int(TRAP_HALT)),
}

// Cpu is the LC-3 execution engine: the fetch-decode-execute loop
// over a memory bus, a register file and the trap service routines.
type Cpu struct {
	Verbose bool // Set to enable instruction tracing.

	Bus *mem.Bus  // Memory bus, with memory-mapped keyboard.
	Out io.Writer // Console output for the trap routines.

	RegisterFile

	Status Status // Current run loop state.
	Ticks  int    // Instructions executed since reset.
}

// NewCpu creates a CPU attached to a memory bus, writing console
// output to stdout until redirected.
func NewCpu(bus *mem.Bus) (cpu *Cpu) {
	cpu = &Cpu{
		Bus: bus,
		Out: os.Stdout,
	}

	return
}

// Defines for the cpu.
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset clears the register file, sets PC to origin, and returns the
// CPU to the Running state.
func (cpu *Cpu) Reset(origin uint16) {
	if cpu.Verbose {
		log.Printf("cpu: reset, origin x%04X", origin)
	}

	cpu.RegisterFile.Reset(origin)
	cpu.Status = StatusRunning
	cpu.Ticks = 0
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text = fmt.Sprintf("%6s: x%04X\n", "pc", cpu.PC)
	text += fmt.Sprintf("%6s: %v\n", "cond", cpu.Cond)
	for r := R0; r <= R7; r++ {
		text += fmt.Sprintf("%6v: x%04X\n", r, cpu.Reg[r])
	}
	text += fmt.Sprintf("%6s: %v\n", "state", cpu.Status)

	return
}

// Step fetches, decodes and executes a single instruction. PC is
// incremented immediately after the fetch, so every PC-relative
// offset is taken against the post-increment PC.
//
// A fatal instruction moves the CPU to Faulted and returns an
// ErrFault carrying the offending PC and raw word. An operator
// interrupt observed at a keyboard wait moves the CPU to Interrupted
// and returns nil.
func (cpu *Cpu) Step(ctx context.Context) (err error) {
	if cpu.Status != StatusRunning {
		return
	}

	pc := cpu.PC
	code := Code(cpu.Bus.Read(pc))
	cpu.PC++

	if cpu.Verbose {
		log.Printf("x%04X: %v", pc, code)
	}

	err = cpu.execute(ctx, code)
	cpu.Ticks++

	if err != nil {
		if errors.Is(err, ErrInterrupted) {
			cpu.Status = StatusInterrupted
			err = nil
			return
		}
		cpu.Status = StatusFaulted
		err = &ErrFault{PC: pc, Code: code, Err: err}
	}

	return
}

// Run executes instructions until the CPU leaves the Running state.
// Cancellation is checked once per iteration and at every keyboard
// wait; a cancelled run stops in the Interrupted state with no error.
func (cpu *Cpu) Run(ctx context.Context) (err error) {
	for cpu.Status == StatusRunning {
		select {
		case <-ctx.Done():
			cpu.Status = StatusInterrupted
			return
		default:
		}

		err = cpu.Step(ctx)
		if err != nil {
			return
		}
	}

	return
}

// execute dispatches a single decoded instruction. The switch is
// exhaustive over the 16 opcodes; RTI and the reserved opcode decode
// but always fault.
func (cpu *Cpu) execute(ctx context.Context, code Code) (err error) {
	switch code.Op() {
	case OP_ADD:
		dr, sr1, imm, sr2, imm5 := code.ArithDecode()
		operand := cpu.Read(sr2)
		if imm {
			operand = imm5
		}
		cpu.WriteCC(dr, cpu.Read(sr1)+operand)

	case OP_AND:
		dr, sr1, imm, sr2, imm5 := code.ArithDecode()
		operand := cpu.Read(sr2)
		if imm {
			operand = imm5
		}
		cpu.WriteCC(dr, cpu.Read(sr1)&operand)

	case OP_NOT:
		dr, sr := code.NotDecode()
		cpu.WriteCC(dr, ^cpu.Read(sr))

	case OP_BR:
		nzp, off9 := code.BrDecode()
		if nzp&cpu.Cond != 0 {
			cpu.PC += off9
		}

	case OP_JMP:
		cpu.PC = cpu.Read(code.JmpDecode())

	case OP_JSR:
		long, off11, base := code.JsrDecode()
		// Base is read before R7 is linked, so JSRR R7 jumps to
		// the old return address.
		target := cpu.Read(base)
		cpu.Write(R7, cpu.PC)
		if long {
			cpu.PC += off11
		} else {
			cpu.PC = target
		}

	case OP_LD:
		dr, off9 := code.PcRelDecode()
		cpu.WriteCC(dr, cpu.Bus.Read(cpu.PC+off9))

	case OP_LDI:
		dr, off9 := code.PcRelDecode()
		cpu.WriteCC(dr, cpu.Bus.Read(cpu.Bus.Read(cpu.PC+off9)))

	case OP_LDR:
		dr, base, off6 := code.BaseRelDecode()
		cpu.WriteCC(dr, cpu.Bus.Read(cpu.Read(base)+off6))

	case OP_LEA:
		dr, off9 := code.PcRelDecode()
		cpu.WriteCC(dr, cpu.PC+off9)

	case OP_ST:
		sr, off9 := code.PcRelDecode()
		cpu.Bus.Write(cpu.PC+off9, cpu.Read(sr))

	case OP_STI:
		sr, off9 := code.PcRelDecode()
		cpu.Bus.Write(cpu.Bus.Read(cpu.PC+off9), cpu.Read(sr))

	case OP_STR:
		sr, base, off6 := code.BaseRelDecode()
		cpu.Bus.Write(cpu.Read(base)+off6, cpu.Read(sr))

	case OP_TRAP:
		err = cpu.trap(ctx, code.TrapDecode())

	case OP_RTI:
		err = ErrOpcodeRti

	case OP_RES:
		err = ErrOpcodeReserved
	}

	return
}
