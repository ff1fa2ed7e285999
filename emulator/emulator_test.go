package emulator

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3/cpu"
	lc3io "github.com/ezrec/lc3/io"
)

func TestReadImage(t *testing.T) {
	assert := assert.New(t)

	origin, words, err := ReadImage(bytes.NewReader([]byte{
		0x30, 0x00,
		0xF0, 0x25,
		0x12, 0x34,
	}))
	assert.NoError(err)
	assert.Equal(uint16(0x3000), origin)
	assert.Equal([]uint16{0xF025, 0x1234}, words)
}

func TestReadImageTruncated(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		data []byte
	}){
		{"empty", nil},
		{"origin_only", []byte{0x30, 0x00}},
		{"half_origin", []byte{0x30}},
	}

	for _, entry := range table {
		_, _, err := ReadImage(bytes.NewReader(entry.data))
		assert.ErrorIs(err, ErrImageTruncated, entry.name)
	}
}

func TestReadImageOddByte(t *testing.T) {
	assert := assert.New(t)

	origin, words, err := ReadImage(bytes.NewReader([]byte{
		0x30, 0x00,
		0xF0, 0x25,
		0xAB,
	}))
	assert.NoError(err)
	assert.Equal(uint16(0x3000), origin)
	assert.Equal([]uint16{0xF025, 0xAB00}, words)
}

func TestReadImageTooLarge(t *testing.T) {
	assert := assert.New(t)

	// Four payload words cannot fit above origin 0xFFFE.
	image := []byte{0xFF, 0xFE, 0, 1, 0, 2, 0, 3, 0, 4}
	_, _, err := ReadImage(bytes.NewReader(image))
	assert.Error(err)

	var size *ErrImageSize
	if assert.ErrorAs(err, &size) {
		assert.Equal(uint16(0xFFFE), size.Origin)
		assert.Equal(4, size.Words)
	}
}

func testEmulator() (emu *Emulator, out *bytes.Buffer) {
	emu = NewEmulator()
	emu.Bus.PollQuantum = time.Millisecond

	out = &bytes.Buffer{}
	emu.Cpu.Out = out

	return emu, out
}

func assemble(t *testing.T, emu *Emulator, source string) *cpu.Program {
	t.Helper()

	asm := cpu.Assembler{}
	for attr, value := range emu.Defines() {
		asm.Predefine(attr, value)
	}

	prog, err := asm.Parse(strings.NewReader(source))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	return prog
}

func TestRunHello(t *testing.T) {
	assert := assert.New(t)

	emu, out := testEmulator()
	prog := assemble(t, emu, `
	.orig x3000
	      LEA R0, MSG
	      PUTS
	      HALT
	MSG:  .stringz "OK"
	.end
	`)
	emu.LoadProgram(prog)

	status, err := emu.Run(context.Background())
	assert.NoError(err)
	assert.Equal(cpu.StatusHalted, status)
	assert.Equal("OK\nHALT\n", out.String())
}

func TestRunRawImage(t *testing.T) {
	assert := assert.New(t)

	// The same program, hand assembled into an image stream.
	words := []uint16{0x3000, 0xE002, 0xF022, 0xF025, 'O', 'K', 0}
	image := []byte{}
	for _, word := range words {
		image = append(image, byte(word>>8), byte(word))
	}

	emu, out := testEmulator()
	err := emu.LoadImage(bytes.NewReader(image))
	assert.NoError(err)

	status, err := emu.Run(context.Background())
	assert.NoError(err)
	assert.Equal(cpu.StatusHalted, status)
	assert.Equal("OK\nHALT\n", out.String())
}

func TestRunFaultDiagnostic(t *testing.T) {
	assert := assert.New(t)

	emu, _ := testEmulator()
	prog := assemble(t, emu, `
	ADD R0, R0, #1
	.fill xD000
	`)
	emu.LoadProgram(prog)

	status, err := emu.Run(context.Background())
	assert.Equal(cpu.StatusFaulted, status)
	assert.Error(err)
	assert.ErrorIs(err, cpu.ErrOpcodeReserved)

	// With a listing loaded, the fault carries the source line.
	var rterr *ErrRuntime
	if assert.ErrorAs(err, &rterr) {
		assert.Equal(3, rterr.LineNo)
	}

	var fault *cpu.ErrFault
	if assert.ErrorAs(err, &fault) {
		assert.Equal(uint16(0x3001), fault.PC)
	}
}

func TestRunInterrupted(t *testing.T) {
	assert := assert.New(t)

	emu, _ := testEmulator()
	prog := assemble(t, emu, `SPIN: BRnzp SPIN`)
	emu.LoadProgram(prog)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	status, err := emu.Run(ctx)
	assert.NoError(err)
	assert.Equal(cpu.StatusInterrupted, status)
}

func TestRunScriptedKeyboard(t *testing.T) {
	assert := assert.New(t)

	emu, out := testEmulator()
	emu.Bus.Keyboard = &lc3io.Script{Input: strings.NewReader("Z")}

	// Echo one scripted key via GETC and OUT.
	prog := assemble(t, emu, `
	GETC
	OUT
	HALT
	`)
	emu.LoadProgram(prog)

	status, err := emu.Run(context.Background())
	assert.NoError(err)
	assert.Equal(cpu.StatusHalted, status)
	assert.Equal("Z\nHALT\n", out.String())
}

func TestRunPollingLoop(t *testing.T) {
	assert := assert.New(t)

	emu, out := testEmulator()
	emu.Bus.Keyboard = &lc3io.Script{Input: strings.NewReader("!")}

	// Poll KBSR until ready, then read KBDR directly.
	prog := assemble(t, emu, `
	      LDI R1, PKBSR
	      BRzp #-2
	      LDI R0, PKBDR
	      OUT
	      HALT
	PKBSR: .fill KBSR
	PKBDR: .fill KBDR
	`)
	emu.LoadProgram(prog)

	status, err := emu.Run(context.Background())
	assert.NoError(err)
	assert.Equal(cpu.StatusHalted, status)
	assert.Equal("!\nHALT\n", out.String())
}

func TestDefines(t *testing.T) {
	assert := assert.New(t)

	emu, _ := testEmulator()

	defines := map[string]string{}
	for attr, value := range emu.Defines() {
		defines[attr] = value
	}

	assert.Equal("0xfe00", defines["KBSR"])
	assert.Equal("0x25", defines["TRAP_HALT"])
}
