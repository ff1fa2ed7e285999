package emulator

import (
	"io"

	"encoding/binary"

	"github.com/ezrec/lc3/mem"
)

// ReadImage parses an LC-3 image stream: big-endian 16-bit words, the
// first being the load origin and the rest the payload. An image with
// zero payload words is a format error, and the payload must fit the
// address space above its origin.
func ReadImage(input io.Reader) (origin uint16, words []uint16, err error) {
	data, err := io.ReadAll(input)
	if err != nil {
		return
	}

	if len(data) < 4 {
		err = ErrImageTruncated
		return
	}

	origin = binary.BigEndian.Uint16(data)
	payload := data[2:]

	for len(payload) >= 2 {
		words = append(words, binary.BigEndian.Uint16(payload))
		payload = payload[2:]
	}
	if len(payload) == 1 {
		// A trailing odd byte is the high half of a final word.
		words = append(words, uint16(payload[0])<<8)
	}

	if len(words) > mem.Size-int(origin) {
		err = &ErrImageSize{Origin: origin, Words: len(words)}
		origin = 0
		words = nil
	}

	return
}
