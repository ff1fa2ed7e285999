package io

import (
	"io"
	"time"

	"github.com/ezrec/lc3/mem"
)

// Script replays keys from a byte stream. A key is pending whenever
// the stream has bytes left; at end of stream no key ever arrives.
type Script struct {
	Input io.Reader
}

var _ mem.Keyboard = (*Script)(nil)

// Poll returns the next scripted key, if any. The timeout is not
// waited out: a script is never slow, only exhausted.
func (s *Script) Poll(timeout time.Duration) (key byte, ok bool) {
	var buf [1]byte
	count, _ := s.Input.Read(buf[:])
	if count == 0 {
		return
	}

	key = buf[0]
	ok = true
	return
}
