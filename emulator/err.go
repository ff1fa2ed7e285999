package emulator

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	// ErrImageTruncated indicates an image with no payload words.
	ErrImageTruncated = errors.New(f("image truncated"))
)

// ErrImageSize indicates an image that does not fit the address
// space above its origin.
type ErrImageSize struct {
	Origin uint16
	Words  int
}

func (err *ErrImageSize) Error() string {
	return f("image of %d words does not fit at origin x%04X", err.Words, err.Origin)
}

// ErrRuntime indicates the source location of a runtime fault.
type ErrRuntime struct {
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	return f("line %d %v", err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
