// Package search finds wildcarded byte signatures in firmware images.
//
// A signature is written as a string read left to right:
//
//   - '.' is one byte that matches anything
//   - two characters form one byte; each is a hex digit or '?', and '?'
//     matches any value of that nibble
//   - whitespace is ignored
//
// "...94081c00121f050071..0054" is therefore 16 bytes: a BL with any
// displacement, AND w8, w0, #0xff, CMP w8, #1 and a B.cond whose condition
// and displacement are left open.
package search

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard marks a whole byte that matches anything.
const Wildcard = '.'

// NibbleWildcard marks a single nibble that matches anything.
const NibbleWildcard = '?'

// ErrInvalidPattern is returned when a signature string cannot be compiled.
var ErrInvalidPattern = errors.New("invalid pattern")

// Pattern is a compiled signature. Bytes and Mask have the same length;
// a byte of the image matches position i when image&Mask[i] == Bytes[i].
type Pattern struct {
	Bytes []byte
	Mask  []byte
}

// Parse compiles a signature string.
func Parse(s string) (Pattern, error) {
	var p Pattern
	var half []byte // pending first nibble of a byte token

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			continue
		case ch == Wildcard:
			if len(half) != 0 {
				return Pattern{}, fmt.Errorf("%w: %q: '.' at %d splits a byte", ErrInvalidPattern, s, i)
			}
			p.Bytes = append(p.Bytes, 0)
			p.Mask = append(p.Mask, 0)
		case ch == NibbleWildcard || isHexChar(ch):
			half = append(half, ch)
			if len(half) == 2 {
				b, m := nibble(half[0])
				lb, lm := nibble(half[1])
				p.Bytes = append(p.Bytes, b<<4|lb)
				p.Mask = append(p.Mask, m<<4|lm)
				half = half[:0]
			}
		default:
			return Pattern{}, fmt.Errorf("%w: %q: unexpected %q at %d", ErrInvalidPattern, s, ch, i)
		}
	}

	if len(half) != 0 {
		return Pattern{}, fmt.Errorf("%w: %q: dangling nibble", ErrInvalidPattern, s)
	}
	if len(p.Bytes) == 0 {
		return Pattern{}, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	return p, nil
}

// MustParse is like Parse but panics on error. It is meant for signatures
// compiled into the binary.
func MustParse(s string) Pattern {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the pattern length in bytes.
func (p Pattern) Len() int {
	return len(p.Bytes)
}

// Fixed returns the number of nibbles that are not wildcarded. Two patterns
// of the same length are ranked by this: the higher, the tighter.
func (p Pattern) Fixed() int {
	n := 0
	for _, m := range p.Mask {
		if m&0xf0 != 0 {
			n++
		}
		if m&0x0f != 0 {
			n++
		}
	}
	return n
}

// MatchAt reports whether the pattern matches image starting at off.
func (p Pattern) MatchAt(image []byte, off int) bool {
	if off < 0 || off+len(p.Bytes) > len(image) {
		return false
	}
	for i, want := range p.Bytes {
		if image[off+i]&p.Mask[i] != want {
			return false
		}
	}
	return true
}

// FindAll returns every offset at which the pattern matches, in ascending
// order. Overlapping matches are all reported.
func (p Pattern) FindAll(image []byte) []int {
	results := []int{}
	if len(p.Bytes) == 0 {
		return results
	}

	// Anchor on the first fully fixed byte so most positions are rejected
	// with a single comparison.
	anchor := -1
	for i, m := range p.Mask {
		if m == 0xff {
			anchor = i
			break
		}
	}

	last := len(image) - len(p.Bytes)
	for off := 0; off <= last; off++ {
		if anchor >= 0 && image[off+anchor] != p.Bytes[anchor] {
			continue
		}
		if p.MatchAt(image, off) {
			results = append(results, off)
		}
	}
	return results
}

// String returns the canonical form of the pattern, lowercase with '.' for
// whole wildcard bytes.
func (p Pattern) String() string {
	var sb strings.Builder
	for i, b := range p.Bytes {
		switch p.Mask[i] {
		case 0x00:
			sb.WriteByte(Wildcard)
		default:
			sb.WriteByte(nibbleChar(b>>4, p.Mask[i]>>4))
			sb.WriteByte(nibbleChar(b&0x0f, p.Mask[i]&0x0f))
		}
	}
	return sb.String()
}

// FindAll compiles pattern and returns every match offset in image.
func FindAll(image []byte, pattern string) ([]int, error) {
	p, err := Parse(pattern)
	if err != nil {
		return nil, err
	}
	return p.FindAll(image), nil
}

func isHexChar(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// nibble returns the value and mask of one pattern character.
func nibble(ch byte) (value, mask byte) {
	switch {
	case ch >= '0' && ch <= '9':
		return ch - '0', 0x0f
	case ch >= 'a' && ch <= 'f':
		return ch - 'a' + 10, 0x0f
	case ch >= 'A' && ch <= 'F':
		return ch - 'A' + 10, 0x0f
	default:
		return 0, 0
	}
}

func nibbleChar(v, mask byte) byte {
	if mask == 0 {
		return NibbleWildcard
	}
	return "0123456789abcdef"[v]
}
