package heuristic

import (
	"fmt"

	"fspatch/internal/search"
)

const (
	// ImmFieldMask26 selects the imm26 field of B/BL.
	ImmFieldMask26 = 0x3ffffff

	// InstructionWidth scales a branch immediate to bytes.
	InstructionWidth = 4

	// AddressWindow20 keeps branch targets inside a 1MiB image.
	AddressWindow20 = 0xfffff

	// DefaultProximity is the distance under which two fragments are
	// considered part of the same build.
	DefaultProximity = 0xffff
)

// Branch describes how to follow a branch found inside a match.
type Branch struct {
	WordIndex int    // word of the match holding the branch
	FieldMask uint32 // immediate field of the encoding
	Scale     int    // bytes per immediate unit
	Window    int    // mask applied to the computed target
	Words     int    // words to decode at the target
}

// Variant is the data behind one heuristic: which signature to look for
// and how to filter and report its matches.
type Variant struct {
	Name        string
	Description string
	Pattern     string
	// Adjust is added to every raw match offset, e.g. 4 to step past a
	// leading instruction that is only there to anchor the signature.
	Adjust int
	// Ceiling drops raw matches above it. Zero disables the filter.
	Ceiling int
	// Proximity is the narrowing window; zero means DefaultProximity.
	Proximity   int
	DecodeWords int
	Branch      *Branch
	// Priority orders variants during resolution, lowest first.
	Priority int
}

// Validate checks that the variant can be scanned and reported.
func (v Variant) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidVariant)
	}
	if _, err := search.Parse(v.Pattern); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidVariant, v.Name, err)
	}
	if v.Ceiling < 0 || v.Proximity < 0 || v.DecodeWords < 0 {
		return fmt.Errorf("%w: %s: negative ceiling, proximity or word count", ErrInvalidVariant, v.Name)
	}
	if b := v.Branch; b != nil {
		if b.WordIndex < 0 || b.Scale <= 0 || b.Window <= 0 || b.Words < 0 || b.FieldMask == 0 {
			return fmt.Errorf("%w: %s: bad branch parameters", ErrInvalidVariant, v.Name)
		}
	}
	return nil
}

func (v Variant) proximity() int {
	if v.Proximity == 0 {
		return DefaultProximity
	}
	return v.Proximity
}

// BranchTarget computes where the branch encoded in word lands when word was
// read at matchOffset: ((word & FieldMask) * Scale + matchOffset) & Window.
func BranchTarget(word uint32, matchOffset int, b Branch) int {
	return (int(word&b.FieldMask)*b.Scale + matchOffset) & b.Window
}
