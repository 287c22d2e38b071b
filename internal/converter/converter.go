// Package converter reads fixed-width values out of firmware image buffers.
package converter

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// WordSize is the width of an ARM64 instruction word in bytes.
const WordSize = 4

// ErrOutOfRange is returned when a read would cross the end of the buffer.
var ErrOutOfRange = errors.New("read out of range")

// LEWord reads the little-endian 32-bit word at off.
func LEWord(buf []byte, off int) (uint32, error) {
	if off < 0 || off > len(buf)-WordSize {
		return 0, fmt.Errorf("%w: word at 0x%x, image size 0x%x", ErrOutOfRange, off, len(buf))
	}
	return binary.LittleEndian.Uint32(buf[off : off+WordSize]), nil
}

// LEWords reads n consecutive little-endian words starting at off.
// Nothing is returned unless all n words are inside the buffer.
func LEWords(buf []byte, off, n int) ([]uint32, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative word count %d", n)
	}
	if n > 0 {
		// validate the last word up front so a truncated image fails as a whole
		if _, err := LEWord(buf, off+(n-1)*WordSize); err != nil {
			return nil, err
		}
	}
	words := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		w, err := LEWord(buf, off+i*WordSize)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, nil
}
