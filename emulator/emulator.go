// Package emulator composes the LC-3 CPU, the memory bus and the
// keyboard/console collaborators into a loadable, runnable machine.
package emulator

import (
	"context"
	"errors"
	"io"
	"iter"
	"maps"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/internal"
	"github.com/ezrec/lc3/mem"
)

// Emulator state. CPU + memory bus + console.
type Emulator struct {
	Verbose  bool // If set, enables verbose logging.
	*cpu.Cpu      // Reference to the CPU simulation.

	Bus mem.Bus // Memory bus with the memory-mapped keyboard.

	Program *cpu.Program // Optional listing for line-level diagnostics.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{}
	emu.Cpu = cpu.NewCpu(&emu.Bus)

	return
}

// Defines returns an iterator over all of the defines.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(
		emu.Cpu.Defines(),
		maps.All(emu.Bus.Defines()),
	)
}

// LoadImage reads a big-endian image stream into memory and resets
// the CPU to its origin.
func (emu *Emulator) LoadImage(input io.Reader) (err error) {
	origin, words, err := ReadImage(input)
	if err != nil {
		return
	}

	emu.Bus.Reset()
	emu.Bus.Load(origin, words)
	emu.Cpu.Reset(origin)

	return
}

// LoadProgram loads an assembled listing into memory and resets the
// CPU to its origin. The listing is retained for diagnostics.
func (emu *Emulator) LoadProgram(prog *cpu.Program) {
	emu.Program = prog

	emu.Bus.Reset()
	emu.Bus.Load(prog.Origin, prog.Words())
	emu.Cpu.Reset(prog.Origin)
}

// Run executes the loaded program until the machine stops, reporting
// the terminal status. A fault is returned as an error; when a
// listing is loaded the error carries its source line.
func (emu *Emulator) Run(ctx context.Context) (status cpu.Status, err error) {
	emu.Cpu.Verbose = emu.Verbose

	err = emu.Cpu.Run(ctx)
	status = emu.Cpu.Status

	if err != nil && emu.Program != nil {
		var fault *cpu.ErrFault
		if errors.As(err, &fault) {
			if lineno := emu.Program.LineNo(fault.PC); lineno != 0 {
				err = &ErrRuntime{LineNo: lineno, Err: err}
			}
		}
	}

	return
}
