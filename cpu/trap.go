package cpu

import (
	"context"
	"fmt"

	"github.com/ezrec/lc3/mem"
)

// readKey waits for a key via the memory-mapped keyboard registers.
// Each KBSR read is a bounded poll, and the interrupt request is
// re-checked between polls, so the wait never blocks indefinitely.
func (cpu *Cpu) readKey(ctx context.Context) (key byte, err error) {
	for {
		if ctx.Err() != nil {
			err = ErrInterrupted
			return
		}

		if cpu.Bus.Read(mem.KBSR)&mem.Ready != 0 {
			key = byte(cpu.Bus.Read(mem.KBDR))
			return
		}
	}
}

func (cpu *Cpu) putc(c byte) (err error) {
	_, err = cpu.Out.Write([]byte{c})
	return
}

// trap executes one of the built-in I/O service routines. The set is
// closed; any other vector is fatal.
func (cpu *Cpu) trap(ctx context.Context, vector TrapVector) (err error) {
	switch vector {
	case TRAP_GETC:
		// No echo, and the condition flags are left alone.
		var key byte
		key, err = cpu.readKey(ctx)
		if err != nil {
			return
		}
		cpu.Write(R0, uint16(key))

	case TRAP_OUT:
		err = cpu.putc(byte(cpu.Read(R0)))

	case TRAP_PUTS:
		// One character per word, terminated by a zero word.
		addr := cpu.Read(R0)
		for {
			word := cpu.Bus.Read(addr)
			if word == 0 {
				break
			}
			err = cpu.putc(byte(word))
			if err != nil {
				return
			}
			addr++
		}

	case TRAP_IN:
		_, err = fmt.Fprint(cpu.Out, "Enter a character: ")
		if err != nil {
			return
		}
		var key byte
		key, err = cpu.readKey(ctx)
		if err != nil {
			return
		}
		err = cpu.putc(key)
		if err != nil {
			return
		}
		cpu.WriteCC(R0, uint16(key))

	case TRAP_PUTSP:
		// Two characters packed per word, low byte first; a zero
		// word terminates.
		addr := cpu.Read(R0)
		for {
			word := cpu.Bus.Read(addr)
			if word == 0 {
				break
			}
			err = cpu.putc(byte(word))
			if err != nil {
				return
			}
			if hi := byte(word >> 8); hi != 0 {
				err = cpu.putc(hi)
				if err != nil {
					return
				}
			}
			addr++
		}

	case TRAP_HALT:
		_, err = fmt.Fprintln(cpu.Out, "\nHALT")
		if err != nil {
			return
		}
		cpu.Status = StatusHalted

	default:
		err = ErrTrapUnknown
	}

	return
}
