// Package io provides the keyboard collaborators for the LC-3
// emulator: a raw-mode terminal keyboard for interactive runs, and a
// scripted keyboard replaying a byte stream for tests and headless
// runs. Both deliver characters one at a time, unbuffered and
// unechoed.
package io
