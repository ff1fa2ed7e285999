// Package mem implements the LC-3 memory bus: a 65536-word address
// space with the keyboard status and keyboard data registers mapped
// into it.
//
// Addresses are 16 bits wide, so all address arithmetic wraps modulo
// the memory size. The two keyboard registers are intercepted on read;
// every other address is plain storage.
package mem

import (
	"time"
)

// Size is the number of addressable words.
const Size = 1 << 16

// Memory-mapped device register addresses.
const (
	KBSR = uint16(0xFE00) // Keyboard status register.
	KBDR = uint16(0xFE02) // Keyboard data register.
)

// Ready is the KBSR bit indicating a pending key.
const Ready = uint16(1 << 15)

// DefaultPollQuantum bounds a single keyboard status poll.
const DefaultPollQuantum = 20 * time.Millisecond

var _mem_defines = map[string]string{
	"KBSR": "0xfe00",
	"KBDR": "0xfe02",
}

// Keyboard is the external input collaborator behind KBSR/KBDR.
// Implementations deliver characters one at a time, unbuffered and
// unechoed.
type Keyboard interface {
	// Poll waits up to timeout for a pending key. It returns ok=false
	// when no key arrived within the timeout.
	Poll(timeout time.Duration) (key byte, ok bool)
}

// Bus is the LC-3 address space plus the memory-mapped keyboard.
type Bus struct {
	// Keyboard supplies KBSR/KBDR. A nil Keyboard never has a key
	// pending.
	Keyboard Keyboard

	// PollQuantum bounds the keyboard poll performed by a KBSR read.
	// Zero selects DefaultPollQuantum.
	PollQuantum time.Duration

	cell [Size]uint16
}

// Defines returns the assembler predefines for the bus.
func (bus *Bus) Defines() map[string]string {
	return _mem_defines
}

// Reset clears the address space.
func (bus *Bus) Reset() {
	clear(bus.cell[:])
}

// Read returns the word at addr.
//
// Reading KBSR polls the keyboard for at most one quantum and latches
// any key that arrived into KBDR with the ready bit set. Reading KBDR
// is one-shot: it clears the ready bit, so the next KBSR read polls
// for a fresh key.
func (bus *Bus) Read(addr uint16) (value uint16) {
	switch addr {
	case KBSR:
		if bus.cell[KBSR]&Ready == 0 {
			bus.pollKeyboard()
		}
	case KBDR:
		bus.cell[KBSR] &^= Ready
	}

	return bus.cell[addr]
}

// Write stores value at addr. The keyboard registers are device
// owned; stores to them are dropped.
func (bus *Bus) Write(addr, value uint16) {
	if addr == KBSR || addr == KBDR {
		return
	}
	bus.cell[addr] = value
}

// Load copies words into memory starting at origin, wrapping at the
// top of the address space like every other access.
func (bus *Bus) Load(origin uint16, words []uint16) {
	addr := origin
	for _, word := range words {
		bus.cell[addr] = word
		addr++
	}
}

func (bus *Bus) pollKeyboard() {
	quantum := bus.PollQuantum
	if quantum == 0 {
		quantum = DefaultPollQuantum
	}

	if bus.Keyboard == nil {
		// Keep the poll bounded even with nothing attached, so a
		// status-polling loop spins at the quantum, not flat out.
		time.Sleep(quantum)
		return
	}

	key, ok := bus.Keyboard.Poll(quantum)
	if !ok {
		return
	}

	bus.cell[KBSR] |= Ready
	bus.cell[KBDR] = uint16(key)
}
