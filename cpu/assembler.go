package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":     "0",
	"TRAP_GETC":  fmt.Sprintf("%#x", int(TRAP_GETC)),
	"TRAP_OUT":   fmt.Sprintf("%#x", int(TRAP_OUT)),
	"TRAP_PUTS":  fmt.Sprintf("%#x", int(TRAP_PUTS)),
	"TRAP_IN":    fmt.Sprintf("%#x", int(TRAP_IN)),
	"TRAP_PUTSP": fmt.Sprintf("%#x", int(TRAP_PUTSP)),
	"TRAP_HALT":  fmt.Sprintf("%#x", int(TRAP_HALT)),
}

// Assembler is a single pass assembler for the LC-3 instruction set.
//
// It accepts the usual LC-3 surface: the 15 usable mnemonics with the
// BRnzp variants, RET, the trap aliases (GETC, OUT, PUTS, IN, PUTSP,
// HALT), and the .orig/.end/.fill/.blkw/.stringz directives. Labels
// carry a ':' suffix. On top of that it supports .equ equates,
// character literals, and compile-time $(...) expressions.
type Assembler struct {
	Verbose    bool        // If set, verbosely logs the assembler actions.
	Statements []Statement // List of generated statements.

	origin  int
	hasOrig bool
	ended   bool

	predefine map[string]string // Predefines
	Label     map[string]int    // Map of labels to addresses.
	Equate    map[string]string // Map of equates.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regMap is a map of register names to register indexes.
var regMap = map[string]Reg{
	"r0": R0,
	"r1": R1,
	"r2": R2,
	"r3": R3,
	"r4": R4,
	"r5": R5,
	"r6": R6,
	"r7": R7,
}

func regOf(word string) (r Reg, ok bool) {
	r, ok = regMap[strings.ToLower(word)]
	return
}

func isBinary(str string) bool {
	for _, c := range str {
		if c != '0' && c != '1' {
			return false
		}
	}
	return len(str) > 0
}

// valueOf returns the value of a simple word: #decimal, xHEX,
// bBINARY, or any strconv base-0 literal.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}

	var v64 int64
	var perr error
	switch {
	case word[0] == '#':
		v64, perr = strconv.ParseInt(word[1:], 10, 32)
	case (word[0] == 'x' || word[0] == 'X') && len(word) > 1:
		v64, perr = strconv.ParseInt(word[1:], 16, 32)
	case (word[0] == 'b' || word[0] == 'B') && isBinary(word[1:]):
		v64, perr = strconv.ParseInt(word[1:], 2, 32)
	default:
		v64, perr = strconv.ParseInt(word, 0, 32)
	}
	if perr != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)
	return
}

// checkRange verifies that value fits the signed field width.
func checkRange(value int, bits int) (err error) {
	limit := 1 << (bits - 1)
	if value < -limit || value >= limit {
		err = ErrValueRange{Value: value, Bits: bits}
	}
	return
}

// parenEval does compile-time $(...) evaluations.
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		val, verr := asm.valueOf(str)
		if verr != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(val)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// stripComment removes a ';' comment, ignoring semicolons inside a
// string literal.
func stripComment(line string) string {
	quoted := false
	for n, c := range line {
		switch {
		case c == '"':
			quoted = !quoted
		case c == ';' && !quoted:
			return line[:n]
		}
	}
	return line
}

var stringzRe = regexp.MustCompile(`(?i)^(?:([^\s:]+):\s*)?\.stringz\s+(".*")\s*$`)

// parseLine parses a single line into operand words, expanding
// character literals, $(...) expressions and equates, and recording
// any leading labels.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	re := regexp.MustCompile(`'\\?[^']'`)
	line = re.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			switch str[1:] {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "0":
				str = "\x00"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	re = regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%v", value)
	})
	if err != nil {
		return
	}

	line = strings.ReplaceAll(line, ",", " ")
	words = slices.DeleteFunc(strings.Split(line, " "), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if strings.ToLower(words[0]) == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddr()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	return
}

// currentAddr gets the load address of the next emitted word.
func (asm *Assembler) currentAddr() int {
	if len(asm.Statements) == 0 {
		return asm.origin
	}

	last := asm.Statements[len(asm.Statements)-1]

	return last.Addr + len(last.Codes)
}

// brMap covers the BR variants; plain BR tests all three flags.
var brMap = map[string]Condition{
	"br":    FlagN | FlagZ | FlagP,
	"brn":   FlagN,
	"brz":   FlagZ,
	"brp":   FlagP,
	"brnz":  FlagN | FlagZ,
	"brnp":  FlagN | FlagP,
	"brzp":  FlagZ | FlagP,
	"brnzp": FlagN | FlagZ | FlagP,
}

var trapAlias = map[string]TrapVector{
	"getc":  TRAP_GETC,
	"out":   TRAP_OUT,
	"puts":  TRAP_PUTS,
	"in":    TRAP_IN,
	"putsp": TRAP_PUTSP,
	"halt":  TRAP_HALT,
}

// parseWords assembles a single statement from its operand words.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	if len(words) == 0 || asm.ended {
		return
	}

	mnemonic := strings.ToLower(words[0])
	args := words[1:]

	stmt := Statement{
		LineNo: lineno,
		Addr:   asm.currentAddr(),
		Words:  slices.Clone(words),
	}

	need := func(count int) bool {
		if len(args) != count {
			err = ErrOperandCount
		}
		return err == nil
	}

	reg := func(word string) (r Reg) {
		r, ok := regOf(word)
		if !ok {
			err = ErrRegisterInvalid
		}
		return
	}

	// offsetOrLabel resolves a PC-relative operand: a number is used
	// directly, anything else links to a label after parsing.
	offsetOrLabel := func(word string, bits int) (off int) {
		value, verr := asm.valueOf(word)
		if verr != nil {
			stmt.LinkLabel = word
			stmt.LinkBits = bits
			return
		}
		err = checkRange(value, bits)
		off = value
		return
	}

	switch mnemonic {
	case ".orig":
		if len(args) != 1 {
			err = ErrOrigSyntax
			return
		}
		if asm.hasOrig || len(asm.Statements) != 0 {
			err = ErrOrigLate
			return
		}
		var value int
		value, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if value < 0 || value > 0xFFFF {
			err = ErrValueRange{Value: value, Bits: 16}
			return
		}
		asm.origin = value
		asm.hasOrig = true
		return

	case ".end":
		asm.ended = true
		return

	case ".fill":
		if !need(1) {
			return
		}
		value, verr := asm.valueOf(args[0])
		if verr != nil {
			stmt.LinkLabel = args[0]
			stmt.LinkBits = 16
			stmt.Codes = []Code{0}
			break
		}
		if value < -0x8000 || value > 0xFFFF {
			err = ErrValueRange{Value: value, Bits: 16}
			return
		}
		stmt.Codes = []Code{Code(uint16(value))}

	case ".blkw":
		if !need(1) {
			return
		}
		var count int
		count, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if count < 0 || count > 0xFFFF {
			err = ErrValueRange{Value: count, Bits: 16}
			return
		}
		stmt.Codes = make([]Code, count)

	case "add", "and":
		if !need(3) {
			return
		}
		op := OP_ADD
		if mnemonic == "and" {
			op = OP_AND
		}
		dr, sr1 := reg(args[0]), reg(args[1])
		if err != nil {
			return
		}
		if sr2, ok := regOf(args[2]); ok {
			stmt.Codes = []Code{MakeCodeArith(op, dr, sr1, sr2)}
			break
		}
		var imm5 int
		imm5, err = asm.valueOf(args[2])
		if err == nil {
			err = checkRange(imm5, 5)
		}
		if err != nil {
			return
		}
		stmt.Codes = []Code{MakeCodeArithImm(op, dr, sr1, int16(imm5))}

	case "not":
		if !need(2) {
			return
		}
		dr, sr := reg(args[0]), reg(args[1])
		if err != nil {
			return
		}
		stmt.Codes = []Code{MakeCodeNot(dr, sr)}

	case "jmp":
		if !need(1) {
			return
		}
		base := reg(args[0])
		if err != nil {
			return
		}
		stmt.Codes = []Code{MakeCodeJmp(base)}

	case "ret":
		if !need(0) {
			return
		}
		stmt.Codes = []Code{MakeCodeJmp(R7)}

	case "jsr":
		if !need(1) {
			return
		}
		off := offsetOrLabel(args[0], 11)
		if err != nil {
			return
		}
		stmt.Codes = []Code{MakeCodeJsr(int16(off))}

	case "jsrr":
		if !need(1) {
			return
		}
		base := reg(args[0])
		if err != nil {
			return
		}
		stmt.Codes = []Code{MakeCodeJsrr(base)}

	case "ld", "ldi", "lea", "st", "sti":
		if !need(2) {
			return
		}
		op := map[string]Opcode{
			"ld": OP_LD, "ldi": OP_LDI, "lea": OP_LEA,
			"st": OP_ST, "sti": OP_STI,
		}[mnemonic]
		r := reg(args[0])
		if err != nil {
			return
		}
		off := offsetOrLabel(args[1], 9)
		if err != nil {
			return
		}
		stmt.Codes = []Code{MakeCodePcRel(op, r, int16(off))}

	case "ldr", "str":
		if !need(3) {
			return
		}
		op := OP_LDR
		if mnemonic == "str" {
			op = OP_STR
		}
		r, base := reg(args[0]), reg(args[1])
		if err != nil {
			return
		}
		var off6 int
		off6, err = asm.valueOf(args[2])
		if err == nil {
			err = checkRange(off6, 6)
		}
		if err != nil {
			return
		}
		stmt.Codes = []Code{MakeCodeBaseRel(op, r, base, int16(off6))}

	case "rti":
		if !need(0) {
			return
		}
		stmt.Codes = []Code{Code(uint16(OP_RTI) << 12)}

	case "trap":
		if !need(1) {
			return
		}
		var vector int
		vector, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if vector < 0 || vector > 0xFF {
			err = ErrValueRange{Value: vector, Bits: 8}
			return
		}
		stmt.Codes = []Code{MakeCodeTrap(TrapVector(vector))}

	default:
		if nzp, ok := brMap[mnemonic]; ok {
			if !need(1) {
				return
			}
			off := offsetOrLabel(args[0], 9)
			if err != nil {
				return
			}
			stmt.Codes = []Code{MakeCodeBr(nzp, int16(off))}
			break
		}
		if vector, ok := trapAlias[mnemonic]; ok {
			if !need(0) {
				return
			}
			stmt.Codes = []Code{MakeCodeTrap(vector)}
			break
		}
		err = ErrOpcodeInvalid
		return
	}

	if len(stmt.Codes) != 0 {
		asm.Statements = append(asm.Statements, stmt)
	}

	return
}

// parseStringz assembles a .stringz statement: one character per
// word, zero terminated.
func (asm *Assembler) parseStringz(label, literal string, lineno int) (err error) {
	if label != "" {
		_, ok := asm.Label[label]
		if ok {
			return ErrLabelDuplicate
		}
		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddr()
	}

	str, err := strconv.Unquote(literal)
	if err != nil {
		return ErrStringSyntax
	}

	stmt := Statement{
		LineNo: lineno,
		Addr:   asm.currentAddr(),
		Words:  []string{".stringz", literal},
	}
	for _, c := range str {
		stmt.Codes = append(stmt.Codes, Code(uint16(c)))
	}
	stmt.Codes = append(stmt.Codes, 0)

	asm.Statements = append(asm.Statements, stmt)
	return
}

// link resolves label references into PC-relative offsets, or the
// absolute address for a .fill.
func (asm *Assembler) link() (err error) {
	for n := range asm.Statements {
		stmt := &asm.Statements[n]

		if len(stmt.LinkLabel) == 0 {
			continue
		}

		addr, ok := asm.Label[stmt.LinkLabel]
		if !ok {
			return ErrSyntax{LineNo: stmt.LineNo, Line: strings.Join(stmt.Words, " "),
				Err: ErrLabelMissing(stmt.LinkLabel)}
		}

		linked := &stmt.Codes[len(stmt.Codes)-1]
		if stmt.LinkBits == 16 {
			*linked = Code(uint16(addr))
			continue
		}

		rel := addr - (stmt.Addr + 1)
		err = checkRange(rel, stmt.LinkBits)
		if err != nil {
			return ErrSyntax{LineNo: stmt.LineNo, Line: strings.Join(stmt.Words, " "), Err: err}
		}
		mask := Code(1<<stmt.LinkBits) - 1
		*linked |= Code(rel) & mask
	}

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			if _, ok := err.(ErrSyntax); !ok {
				err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
			}
		}
	}()

	clear(asm.Label)
	asm.Statements = asm.Statements[:0]
	asm.origin = DefaultOrigin
	asm.hasOrig = false
	asm.ended = false
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.TrimSpace(stripComment(text))
		if len(line) == 0 {
			continue
		}

		if asm.ended {
			continue
		}

		// .stringz takes the raw line: the literal may contain
		// spaces and commas.
		if match := stringzRe.FindStringSubmatch(line); match != nil {
			err = asm.parseStringz(match[1], match[2], lineno)
			if err != nil {
				return
			}
			continue
		}

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}
	if err = scanner.Err(); err != nil {
		return
	}

	err = asm.link()
	if err != nil {
		return
	}

	prog = &Program{
		Origin:     uint16(asm.origin),
		Statements: slices.Clone(asm.Statements),
	}

	return
}
