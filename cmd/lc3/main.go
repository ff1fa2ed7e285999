package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/emulator"
	lc3io "github.com/ezrec/lc3/io"
)

// Exit codes. A clean HALT is 0; every other stop is distinct.
const (
	exitHalted      = 0
	exitFaulted     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func usage(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "%v: %v\n", os.Args[0], fmt.Sprintf(format, args...))
	return exitUsage
}

func run() int {
	var compile string
	var output string
	var save bool
	var verbose bool

	flag.StringVar(&compile, "c", "", ".asm file to assemble")
	flag.StringVar(&output, "o", "a.obj", "Assembled image output for -s")
	flag.BoolVar(&save, "s", false, "Save the assembled image, do not execute")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	emu := emulator.NewEmulator()
	emu.Verbose = verbose

	// Assemble a new image.
	var prog *cpu.Program
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			return usage("%v: %v", compile, err)
		}

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}

		prog, err = asm.Parse(inf)
		inf.Close()
		if err != nil {
			return usage("%v: %v", compile, err)
		}

		if save {
			err = os.WriteFile(output, prog.Binary(), 0644)
			if err != nil {
				return usage("%v: %v", output, err)
			}
			return exitHalted
		}
	}

	switch {
	case prog != nil:
		if flag.NArg() != 0 {
			return usage("unexpected arguments: %v", flag.Args())
		}
		emu.LoadProgram(prog)

	default:
		if flag.NArg() != 1 {
			return usage("usage: lc3 [-v] [-c file.asm [-s] [-o out.obj]] image.obj")
		}

		inf, err := os.Open(flag.Arg(0))
		if err != nil {
			return usage("%v: %v", flag.Arg(0), err)
		}

		err = emu.LoadImage(inf)
		inf.Close()
		if err != nil {
			return usage("%v: %v", flag.Arg(0), err)
		}
	}

	keyboard := lc3io.NewTerminal(os.Stdin)
	emu.Bus.Keyboard = keyboard
	emu.Out = os.Stdout

	if err := keyboard.Raw(); err != nil {
		return usage("raw mode: %v", err)
	}
	defer keyboard.Restore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	status, err := emu.Run(ctx)
	keyboard.Restore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v: %v\n", os.Args[0], err)
	}

	switch status {
	case cpu.StatusHalted:
		return exitHalted
	case cpu.StatusInterrupted:
		fmt.Fprintln(os.Stderr)
		return exitInterrupted
	default:
		return exitFaulted
	}
}

func main() {
	os.Exit(run())
}
