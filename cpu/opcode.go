package cpu

import (
	"fmt"
)

// Opcode is the 4-bit instruction class in the top of every word.
type Opcode int

//go:generate go tool stringer -linecomment -type=Opcode
const (
	OP_BR   = Opcode(0)  // BR
	OP_ADD  = Opcode(1)  // ADD
	OP_LD   = Opcode(2)  // LD
	OP_ST   = Opcode(3)  // ST
	OP_JSR  = Opcode(4)  // JSR
	OP_AND  = Opcode(5)  // AND
	OP_LDR  = Opcode(6)  // LDR
	OP_STR  = Opcode(7)  // STR
	OP_RTI  = Opcode(8)  // RTI
	OP_NOT  = Opcode(9)  // NOT
	OP_LDI  = Opcode(10) // LDI
	OP_STI  = Opcode(11) // STI
	OP_JMP  = Opcode(12) // JMP
	OP_RES  = Opcode(13) // RES
	OP_LEA  = Opcode(14) // LEA
	OP_TRAP = Opcode(15) // TRAP
)

// Reg is a general purpose register index.
type Reg int

const (
	R0 = Reg(0)
	R1 = Reg(1)
	R2 = Reg(2)
	R3 = Reg(3)
	R4 = Reg(4)
	R5 = Reg(5)
	R6 = Reg(6)
	R7 = Reg(7)
)

func (r Reg) String() string {
	return fmt.Sprintf("R%d", int(r))
}

// Condition is the N/Z/P flag set. Exactly one flag is set after any
// flag-updating instruction; a BR instruction may test any subset.
type Condition uint16

const (
	FlagP = Condition(1 << 0)
	FlagZ = Condition(1 << 1)
	FlagN = Condition(1 << 2)
)

func (cond Condition) String() (out string) {
	if cond&FlagN != 0 {
		out += "n"
	}
	if cond&FlagZ != 0 {
		out += "z"
	}
	if cond&FlagP != 0 {
		out += "p"
	}
	return
}

// ConditionOf returns the condition produced by writing value to a
// register: N, Z or P from its signed interpretation.
func ConditionOf(value uint16) Condition {
	switch {
	case value == 0:
		return FlagZ
	case value>>15 != 0:
		return FlagN
	default:
		return FlagP
	}
}

// TrapVector is an 8-bit trap code.
type TrapVector int

//go:generate go tool stringer -linecomment -type=TrapVector
const (
	TRAP_GETC  = TrapVector(0x20) // GETC
	TRAP_OUT   = TrapVector(0x21) // OUT
	TRAP_PUTS  = TrapVector(0x22) // PUTS
	TRAP_IN    = TrapVector(0x23) // IN
	TRAP_PUTSP = TrapVector(0x24) // PUTSP
	TRAP_HALT  = TrapVector(0x25) // HALT
)

// Code is a single 16-bit instruction word.
//
// Decoding is total: every word has an Opcode, and every per-format
// decode method returns defined values for any word. Whether the
// decoded operation is executable is the CPU's concern.
type Code uint16

// sext widens the low bits of x to 16 bits by replicating the sign
// bit.
func sext(x uint16, bits int) uint16 {
	if (x>>(bits-1))&1 != 0 {
		x |= 0xFFFF << bits
	}
	return x
}

// Op returns the instruction class from the top 4 bits.
func (code Code) Op() Opcode {
	return Opcode(code >> 12)
}

// ArithDecode decodes an ADD or AND word. When imm is true the second
// operand is imm5, already sign-extended to 16 bits; otherwise it is
// register sr2.
func (code Code) ArithDecode() (dr, sr1 Reg, imm bool, sr2 Reg, imm5 uint16) {
	word := uint16(code)
	dr = Reg((word >> 9) & 0x7)
	sr1 = Reg((word >> 6) & 0x7)
	imm = (word>>5)&1 != 0
	sr2 = Reg(word & 0x7)
	imm5 = sext(word&0x1F, 5)
	return
}

// NotDecode decodes a NOT word.
func (code Code) NotDecode() (dr, sr Reg) {
	word := uint16(code)
	dr = Reg((word >> 9) & 0x7)
	sr = Reg((word >> 6) & 0x7)
	return
}

// BrDecode decodes a BR word into the tested flag subset and the
// sign-extended 9-bit offset.
func (code Code) BrDecode() (nzp Condition, off9 uint16) {
	word := uint16(code)
	nzp = Condition((word >> 9) & 0x7)
	off9 = sext(word&0x1FF, 9)
	return
}

// JmpDecode decodes a JMP (or RET) word.
func (code Code) JmpDecode() (base Reg) {
	return Reg((uint16(code) >> 6) & 0x7)
}

// JsrDecode decodes a JSR/JSRR word. When long is true the target is
// PC-relative via the sign-extended 11-bit offset; otherwise it is
// register base.
func (code Code) JsrDecode() (long bool, off11 uint16, base Reg) {
	word := uint16(code)
	long = (word>>11)&1 != 0
	off11 = sext(word&0x7FF, 11)
	base = Reg((word >> 6) & 0x7)
	return
}

// PcRelDecode decodes a LD, LDI, LEA, ST or STI word into its
// register operand and sign-extended 9-bit PC offset.
func (code Code) PcRelDecode() (r Reg, off9 uint16) {
	word := uint16(code)
	r = Reg((word >> 9) & 0x7)
	off9 = sext(word&0x1FF, 9)
	return
}

// BaseRelDecode decodes a LDR or STR word into its register operand,
// base register and sign-extended 6-bit offset.
func (code Code) BaseRelDecode() (r, base Reg, off6 uint16) {
	word := uint16(code)
	r = Reg((word >> 9) & 0x7)
	base = Reg((word >> 6) & 0x7)
	off6 = sext(word&0x3F, 6)
	return
}

// TrapDecode decodes a TRAP word into its 8-bit vector.
func (code Code) TrapDecode() (vector TrapVector) {
	return TrapVector(uint16(code) & 0xFF)
}

// MakeCodeArith creates a register-mode ADD or AND instruction.
func MakeCodeArith(op Opcode, dr, sr1, sr2 Reg) Code {
	return Code(uint16(op)<<12 | uint16(dr)<<9 | uint16(sr1)<<6 | uint16(sr2))
}

// MakeCodeArithImm creates an immediate-mode ADD or AND instruction.
func MakeCodeArithImm(op Opcode, dr, sr1 Reg, imm5 int16) Code {
	return Code(uint16(op)<<12 | uint16(dr)<<9 | uint16(sr1)<<6 | 1<<5 | uint16(imm5)&0x1F)
}

// MakeCodeNot creates a NOT instruction.
func MakeCodeNot(dr, sr Reg) Code {
	return Code(uint16(OP_NOT)<<12 | uint16(dr)<<9 | uint16(sr)<<6 | 0x3F)
}

// MakeCodeBr creates a BR instruction testing the nzp flag subset.
func MakeCodeBr(nzp Condition, off9 int16) Code {
	return Code(uint16(OP_BR)<<12 | uint16(nzp)<<9 | uint16(off9)&0x1FF)
}

// MakeCodeJmp creates a JMP instruction. Base R7 is RET.
func MakeCodeJmp(base Reg) Code {
	return Code(uint16(OP_JMP)<<12 | uint16(base)<<6)
}

// MakeCodeJsr creates a PC-relative JSR instruction.
func MakeCodeJsr(off11 int16) Code {
	return Code(uint16(OP_JSR)<<12 | 1<<11 | uint16(off11)&0x7FF)
}

// MakeCodeJsrr creates a register JSRR instruction.
func MakeCodeJsrr(base Reg) Code {
	return Code(uint16(OP_JSR)<<12 | uint16(base)<<6)
}

// MakeCodePcRel creates a LD, LDI, LEA, ST or STI instruction.
func MakeCodePcRel(op Opcode, r Reg, off9 int16) Code {
	return Code(uint16(op)<<12 | uint16(r)<<9 | uint16(off9)&0x1FF)
}

// MakeCodeBaseRel creates a LDR or STR instruction.
func MakeCodeBaseRel(op Opcode, r, base Reg, off6 int16) Code {
	return Code(uint16(op)<<12 | uint16(r)<<9 | uint16(base)<<6 | uint16(off6)&0x3F)
}

// MakeCodeTrap creates a TRAP instruction.
func MakeCodeTrap(vector TrapVector) Code {
	return Code(uint16(OP_TRAP)<<12 | uint16(vector)&0xFF)
}

// signed reinterprets a sign-extended field for display.
func signed(x uint16) int {
	return int(int16(x))
}

// String returns the assembly representation of the instruction word.
func (code Code) String() (out string) {
	op := code.Op()

	switch op {
	case OP_ADD, OP_AND:
		dr, sr1, imm, sr2, imm5 := code.ArithDecode()
		if imm {
			out = fmt.Sprintf("%v %v, %v, #%d", op, dr, sr1, signed(imm5))
		} else {
			out = fmt.Sprintf("%v %v, %v, %v", op, dr, sr1, sr2)
		}
	case OP_NOT:
		dr, sr := code.NotDecode()
		out = fmt.Sprintf("%v %v, %v", op, dr, sr)
	case OP_BR:
		nzp, off9 := code.BrDecode()
		out = fmt.Sprintf("BR%v #%d", nzp, signed(off9))
	case OP_JMP:
		base := code.JmpDecode()
		if base == R7 {
			out = "RET"
		} else {
			out = fmt.Sprintf("%v %v", op, base)
		}
	case OP_JSR:
		long, off11, base := code.JsrDecode()
		if long {
			out = fmt.Sprintf("JSR #%d", signed(off11))
		} else {
			out = fmt.Sprintf("JSRR %v", base)
		}
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		r, off9 := code.PcRelDecode()
		out = fmt.Sprintf("%v %v, #%d", op, r, signed(off9))
	case OP_LDR, OP_STR:
		r, base, off6 := code.BaseRelDecode()
		out = fmt.Sprintf("%v %v, %v, #%d", op, r, base, signed(off6))
	case OP_TRAP:
		vector := code.TrapDecode()
		switch vector {
		case TRAP_GETC, TRAP_OUT, TRAP_PUTS, TRAP_IN, TRAP_PUTSP, TRAP_HALT:
			out = vector.String()
		default:
			out = fmt.Sprintf("TRAP x%02X", int(vector))
		}
	case OP_RTI, OP_RES:
		out = op.String()
	}

	return
}
