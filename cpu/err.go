package cpu

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	// Execution errors
	ErrOpcodeReserved = errors.New(f("reserved opcode"))
	ErrOpcodeRti      = errors.New(f("rti without interrupt context"))
	ErrTrapUnknown    = errors.New(f("unknown trap vector"))

	// ErrInterrupted reports an operator interrupt observed at a
	// keyboard wait. It is an orderly stop, not a fault.
	ErrInterrupted = errors.New(f("interrupted"))

	// Assembler errors
	ErrEquateSyntax    = errors.New(f(".equ syntax"))
	ErrEquateDuplicate = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate  = errors.New(f("label duplicated"))
	ErrOrigSyntax      = errors.New(f(".orig syntax"))
	ErrOrigLate        = errors.New(f(".orig after code"))
	ErrOperandCount    = errors.New(f("operand count"))
	ErrOpcodeInvalid   = errors.New(f("opcode invalid"))
	ErrRegisterInvalid = errors.New(f("register invalid"))
	ErrStringSyntax    = errors.New(f(".stringz syntax"))
)

// ErrFault is the diagnostic for a fatal instruction: the address of
// the offending instruction and its raw word.
type ErrFault struct {
	PC   uint16
	Code Code
	Err  error
}

func (ef *ErrFault) Error() string {
	return f("fault at x%04X: x%04X (%v): %v", ef.PC, uint16(ef.Code), ef.Code, ef.Err)
}

func (ef *ErrFault) Unwrap() error {
	return ef.Err
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrValueRange reports a value that does not fit its instruction
// field.
type ErrValueRange struct {
	Value int
	Bits  int
}

func (err ErrValueRange) Error() string {
	return f("%v does not fit in %v bits", err.Value, err.Bits)
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}
