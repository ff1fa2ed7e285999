package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgramBinary(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Origin: 0x3000,
		Statements: []Statement{
			{Addr: 0x3000, Codes: []Code{0x1042}},
			{Addr: 0x3001, Codes: []Code{0xF025}},
		},
	}

	assert.Equal([]byte{
		0x30, 0x00,
		0x10, 0x42,
		0xF0, 0x25,
	}, prog.Binary())
}

func TestProgramWordsPadding(t *testing.T) {
	assert := assert.New(t)

	// A gap between statements is padded with zero words.
	prog := &Program{
		Origin: 0x3000,
		Statements: []Statement{
			{Addr: 0x3000, Codes: []Code{0xF025}},
			{Addr: 0x3003, Codes: []Code{0x1234}},
		},
	}

	assert.Equal([]uint16{0xF025, 0, 0, 0x1234}, prog.Words())
}

func TestProgramDebug(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Origin: 0x3000,
		Statements: []Statement{
			{LineNo: 2, Addr: 0x3000, Codes: []Code{0x1042}},
			{LineNo: 3, Addr: 0x3001, Codes: []Code{'h', 'i', 0}},
		},
	}

	stmt := prog.Debug(0x3003)
	if assert.NotNil(stmt) {
		assert.Equal(3, stmt.LineNo)
	}
	assert.Nil(prog.Debug(0x3004))

	assert.Equal(2, prog.LineNo(0x3000))
	assert.Equal(0, prog.LineNo(0x5000))
}

func TestProgramCodes(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Origin: 0x3000,
		Statements: []Statement{
			{Addr: 0x3000, Codes: []Code{0x1042, 0xF025}},
		},
	}

	got := map[uint16]Code{}
	for addr, code := range prog.Codes() {
		got[addr] = code
	}

	assert.Equal(map[uint16]Code{
		0x3000: 0x1042,
		0x3001: 0xF025,
	}, got)
}
