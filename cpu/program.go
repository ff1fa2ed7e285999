package cpu

import (
	"encoding/binary"
	"iter"
)

// DefaultOrigin is the conventional start of LC-3 user space, used
// when a listing has no .orig directive.
const DefaultOrigin = 0x3000

// Statement is one assembled source line: its location, source words
// and generated instruction words.
type Statement struct {
	LineNo    int
	Addr      int
	Words     []string
	Codes     []Code
	LinkLabel string
	LinkBits  int
}

// Program is an assembled listing together with its load origin.
type Program struct {
	Origin     uint16
	Statements []Statement
}

// Debug returns the statement covering addr, or nil.
func (prog *Program) Debug(addr uint16) (stmt *Statement) {
	for n := range prog.Statements {
		s := &prog.Statements[n]
		if int(addr) >= s.Addr && int(addr) < s.Addr+len(s.Codes) {
			stmt = s
			break
		}
	}

	return
}

// LineNo returns the source line number for the code at addr, or 0.
func (prog *Program) LineNo(addr uint16) int {
	stmt := prog.Debug(addr)
	if stmt == nil {
		return 0
	}

	return stmt.LineNo
}

// Codes iterates the program as address, instruction word pairs.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for _, stmt := range prog.Statements {
			addr := uint16(stmt.Addr)
			for n, code := range stmt.Codes {
				if !yield(addr+uint16(n), code) {
					return
				}
			}
		}
	}
}

// Words returns the image payload as a contiguous word slice starting
// at the origin.
func (prog *Program) Words() (words []uint16) {
	for addr, code := range prog.Codes() {
		for int(addr-prog.Origin) >= len(words) {
			words = append(words, 0)
		}
		words[addr-prog.Origin] = uint16(code)
	}

	return
}

// Binary returns the loadable big-endian image: the origin word
// followed by the program words.
func (prog *Program) Binary() (image []byte) {
	image = binary.BigEndian.AppendUint16(image, prog.Origin)
	for _, word := range prog.Words() {
		image = binary.BigEndian.AppendUint16(image, word)
	}

	return
}
