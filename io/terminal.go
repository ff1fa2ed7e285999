package io

import (
	"os"
	"time"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/ezrec/lc3/mem"
)

// Terminal delivers keys from a terminal put into raw mode: no line
// buffering, no local echo.
type Terminal struct {
	Input *os.File

	saved unix.Termios
	raw   bool
}

var _ mem.Keyboard = (*Terminal)(nil)

// NewTerminal creates a keyboard reading from input.
func NewTerminal(input *os.File) *Terminal {
	return &Terminal{Input: input}
}

// Raw switches the input into raw mode, saving the prior
// configuration. It is a no-op when the input is not a terminal, so
// piped input works unchanged.
func (t *Terminal) Raw() (err error) {
	if !term.IsTerminal(int(t.Input.Fd())) {
		return
	}

	err = termios.Tcgetattr(t.Input.Fd(), &t.saved)
	if err != nil {
		return
	}

	raw := t.saved
	raw.Lflag &^= unix.ICANON | unix.ECHO
	err = termios.Tcsetattr(t.Input.Fd(), termios.TCSANOW, &raw)
	if err != nil {
		return
	}

	t.raw = true
	return
}

// Restore returns the terminal to its saved configuration.
func (t *Terminal) Restore() (err error) {
	if !t.raw {
		return
	}

	t.raw = false
	return termios.Tcsetattr(t.Input.Fd(), termios.TCSANOW, &t.saved)
}

// Poll waits up to timeout for a pending key. A signal interrupting
// the poll reports no key; the caller re-checks its interrupt request
// and polls again.
func (t *Terminal) Poll(timeout time.Duration) (key byte, ok bool) {
	fds := []unix.PollFd{{Fd: int32(t.Input.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err != nil || n == 0 {
		return
	}

	var buf [1]byte
	count, err := t.Input.Read(buf[:])
	if count == 0 || err != nil {
		return
	}

	key = buf[0]
	ok = true
	return
}
