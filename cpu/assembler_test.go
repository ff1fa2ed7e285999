package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func parse(t *testing.T, source string) (*Program, error) {
	t.Helper()

	asm := Assembler{}
	return asm.Parse(strings.NewReader(source))
}

func TestAssemblerEmpty(t *testing.T) {
	assert := assert.New(t)

	prog, err := parse(t, "")
	assert.NoError(err)
	assert.Equal(uint16(DefaultOrigin), prog.Origin)
	assert.Empty(prog.Statements)
}

func TestAssemblerCodes(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		line string
		code Code
	}){
		{"ADD R0, R1, R2", MakeCodeArith(OP_ADD, R0, R1, R2)},
		{"ADD R1, R1, #-1", MakeCodeArithImm(OP_ADD, R1, R1, -1)},
		{"AND R1, R2, x0F", MakeCodeArithImm(OP_AND, R1, R2, 0x0F)},
		{"AND R3, R3, #0", MakeCodeArithImm(OP_AND, R3, R3, 0)},
		{"NOT R3, R4", MakeCodeNot(R3, R4)},
		{"JMP R2", MakeCodeJmp(R2)},
		{"RET", MakeCodeJmp(R7)},
		{"JSR #12", MakeCodeJsr(12)},
		{"JSRR R5", MakeCodeJsrr(R5)},
		{"LD R0, #4", MakeCodePcRel(OP_LD, R0, 4)},
		{"LDI R1, #-2", MakeCodePcRel(OP_LDI, R1, -2)},
		{"LEA R0, #2", MakeCodePcRel(OP_LEA, R0, 2)},
		{"ST R6, #1", MakeCodePcRel(OP_ST, R6, 1)},
		{"STI R6, #1", MakeCodePcRel(OP_STI, R6, 1)},
		{"LDR R2, R3, #-1", MakeCodeBaseRel(OP_LDR, R2, R3, -1)},
		{"STR R2, R3, b11", MakeCodeBaseRel(OP_STR, R2, R3, 3)},
		{"RTI", Code(0x8000)},
		{"TRAP x21", MakeCodeTrap(TRAP_OUT)},
		{"GETC", MakeCodeTrap(TRAP_GETC)},
		{"HALT", MakeCodeTrap(TRAP_HALT)},
		{"BR #-1", MakeCodeBr(FlagN|FlagZ|FlagP, -1)},
		{"BRnzp #-1", MakeCodeBr(FlagN|FlagZ|FlagP, -1)},
		{"BRp #2", MakeCodeBr(FlagP, 2)},
		{"BRnz #0", MakeCodeBr(FlagN|FlagZ, 0)},
		{".fill xBEEF", Code(0xBEEF)},
		{".fill #-1", Code(0xFFFF)},
		{".fill 'A'", Code('A')},
		{`.fill '\n'`, Code('\n')},
	}

	for _, entry := range table {
		prog, err := parse(t, entry.line)
		if !assert.NoError(err, entry.line) {
			continue
		}
		if assert.Len(prog.Statements, 1, entry.line) {
			assert.Equal([]Code{entry.code}, prog.Statements[0].Codes, entry.line)
		}
	}
}

func TestAssemblerProgram(t *testing.T) {
	assert := assert.New(t)

	prog, err := parse(t, `
	.orig x4000
	      ADD R1, R1, #3    ; loop counter
	LOOP: ADD R1, R1, #-1
	      BRp LOOP
	      HALT
	.end
	`)
	assert.NoError(err)
	assert.Equal(uint16(0x4000), prog.Origin)

	want := []uint16{
		uint16(MakeCodeArithImm(OP_ADD, R1, R1, 3)),
		uint16(MakeCodeArithImm(OP_ADD, R1, R1, -1)),
		uint16(MakeCodeBr(FlagP, -2)),
		uint16(MakeCodeTrap(TRAP_HALT)),
	}
	assert.Equal(want, prog.Words())
}

func TestAssemblerForwardLabel(t *testing.T) {
	assert := assert.New(t)

	prog, err := parse(t, `
	      LEA R0, MSG
	      BRnzp DONE
	MSG:  .stringz "hi"
	DONE: HALT
	`)
	assert.NoError(err)

	want := []uint16{
		uint16(MakeCodePcRel(OP_LEA, R0, 1)),
		uint16(MakeCodeBr(FlagN|FlagZ|FlagP, 3)),
		'h', 'i', 0,
		uint16(MakeCodeTrap(TRAP_HALT)),
	}
	assert.Equal(want, prog.Words())
}

func TestAssemblerFillLabel(t *testing.T) {
	assert := assert.New(t)

	// A .fill label is the absolute address, not PC-relative.
	prog, err := parse(t, `
	HERE: HALT
	      .fill HERE
	`)
	assert.NoError(err)
	assert.Equal([]uint16{
		uint16(MakeCodeTrap(TRAP_HALT)),
		0x3000,
	}, prog.Words())
}

func TestAssemblerStringz(t *testing.T) {
	assert := assert.New(t)

	prog, err := parse(t, `MSG: .stringz "OK; fine\n"`)
	assert.NoError(err)
	assert.Equal([]uint16{'O', 'K', ';', ' ', 'f', 'i', 'n', 'e', '\n', 0}, prog.Words())

	asm := Assembler{}
	_, err = asm.Parse(strings.NewReader(`MSG: .stringz "OK"`))
	assert.NoError(err)
	assert.Equal(0x3000, asm.Label["MSG"])
}

func TestAssemblerBlkw(t *testing.T) {
	assert := assert.New(t)

	prog, err := parse(t, `
	      .blkw #3
	END:  .fill END
	`)
	assert.NoError(err)
	assert.Equal([]uint16{0, 0, 0, 0x3003}, prog.Words())
}

func TestAssemblerEquate(t *testing.T) {
	assert := assert.New(t)

	prog, err := parse(t, `
	.equ COUNT #5
	ADD R0, R0, COUNT
	TRAP TRAP_HALT
	`)
	assert.NoError(err)
	assert.Equal([]uint16{
		uint16(MakeCodeArithImm(OP_ADD, R0, R0, 5)),
		uint16(MakeCodeTrap(TRAP_HALT)),
	}, prog.Words())
}

func TestAssemblerPredefine(t *testing.T) {
	assert := assert.New(t)

	asm := Assembler{}
	asm.Predefine("KBSR", "0xfe00")

	prog, err := asm.Parse(strings.NewReader(".fill KBSR"))
	assert.NoError(err)
	assert.Equal([]uint16{0xFE00}, prog.Words())
}

func TestAssemblerExpression(t *testing.T) {
	assert := assert.New(t)

	prog, err := parse(t, `
	.equ BASE #8
	ADD R0, R0, $(BASE * 2 - 1)
	`)
	assert.NoError(err)
	assert.Equal([]uint16{
		uint16(MakeCodeArithImm(OP_ADD, R0, R0, 15)),
	}, prog.Words())
}

func TestAssemblerErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		source string
		want   error
	}){
		{"bad_opcode", "FROB R0", ErrOpcodeInvalid},
		{"bad_register", "ADD R0, R9, #1", ErrRegisterInvalid},
		{"operand_count", "ADD R0, R1", ErrOperandCount},
		{"orig_syntax", ".orig", ErrOrigSyntax},
		{"late_orig", "HALT\n.orig x4000", ErrOrigLate},
		{"duplicate_label", "A: HALT\nA: HALT", ErrLabelDuplicate},
		{"duplicate_equate", ".equ X #1\n.equ X #2", ErrEquateDuplicate},
		{"equate_syntax", ".equ X", ErrEquateSyntax},
		{"bad_string", `.stringz "\q"`, ErrStringSyntax},
	}

	for _, entry := range table {
		_, err := parse(t, entry.source)
		assert.ErrorIs(err, entry.want, entry.name)

		var serr ErrSyntax
		assert.ErrorAs(err, &serr, entry.name)
	}
}

func TestAssemblerValueRange(t *testing.T) {
	assert := assert.New(t)

	_, err := parse(t, "ADD R0, R0, #16")
	assert.Error(err)

	var vr ErrValueRange
	if assert.ErrorAs(err, &vr) {
		assert.Equal(16, vr.Value)
		assert.Equal(5, vr.Bits)
	}
}

func TestAssemblerMissingLabel(t *testing.T) {
	assert := assert.New(t)

	_, err := parse(t, "LD R0, NOWHERE")
	assert.Error(err)
	assert.True(errors.As(err, new(ErrLabelMissing)))

	var serr ErrSyntax
	if assert.ErrorAs(err, &serr) {
		assert.Equal(1, serr.LineNo)
	}
}

func TestAssemblerBranchRange(t *testing.T) {
	assert := assert.New(t)

	// A label further than the 9 bit offset reaches cannot link.
	_, err := parse(t, `
	      BRnzp FAR
	      .blkw #300
	FAR:  HALT
	`)
	assert.Error(err)

	var vr ErrValueRange
	if assert.ErrorAs(err, &vr) {
		assert.Equal(9, vr.Bits)
	}
}

func TestAssemblerLineNo(t *testing.T) {
	assert := assert.New(t)

	prog, err := parse(t, `
	; counter
	ADD R0, R0, #1
	HALT
	`)
	assert.NoError(err)

	assert.Equal(3, prog.LineNo(0x3000))
	assert.Equal(4, prog.LineNo(0x3001))
	assert.Equal(0, prog.LineNo(0x4000))
}
