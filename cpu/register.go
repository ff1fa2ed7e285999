package cpu

// RegisterFile holds the eight general purpose registers, the program
// counter and the condition flags.
type RegisterFile struct {
	Reg  [8]uint16
	PC   uint16
	Cond Condition
}

// Reset zeroes the registers and restarts execution at origin with
// the Z flag set.
func (rf *RegisterFile) Reset(origin uint16) {
	clear(rf.Reg[:])
	rf.PC = origin
	rf.Cond = FlagZ
}

// Read returns the value of r.
func (rf *RegisterFile) Read(r Reg) uint16 {
	return rf.Reg[r]
}

// Write stores value in r without touching the condition flags.
func (rf *RegisterFile) Write(r Reg, value uint16) {
	rf.Reg[r] = value
}

// WriteCC stores value in r and updates the condition flags from its
// signed interpretation.
func (rf *RegisterFile) WriteCC(r Reg, value uint16) {
	rf.Reg[r] = value
	rf.Cond = ConditionOf(value)
}
