// Package heuristic wraps signature searches with the firmware knowledge
// needed to turn a list of matches into one patch offset.
//
// A Heuristic scans the image once when it is built. Its candidate set is
// the confidence signal: one candidate means resolved, none means the
// firmware region was not found, more than one means another heuristic's
// result is needed to narrow it down (see SetOffsetsNearby).
package heuristic

import (
	"fmt"
	"slices"
	"strings"

	"fspatch/internal/converter"
	"fspatch/internal/disasm"
	"fspatch/internal/search"
)

// Heuristic locates one code region of a firmware image.
type Heuristic interface {
	Name() string

	// IsFound reports whether exactly one candidate remains.
	IsFound() bool

	// WantLessEntropy reports whether more than one candidate remains and
	// the heuristic needs outside help to pick one.
	WantLessEntropy() bool

	// Offset returns the single remaining candidate.
	Offset() (int, error)

	// SetOffsetsNearby keeps only candidates close to offsetNearby and
	// reports whether that resolved the heuristic.
	SetOffsetsNearby(offsetNearby int) bool

	// Details decodes the matched region for a human to check.
	Details() (string, error)
}

// Finder is the Heuristic implementation driven by a Variant.
type Finder struct {
	variant  Variant
	pattern  search.Pattern
	image    []byte
	findings []int
}

var _ Heuristic = (*Finder)(nil)

// New scans image for the variant's signature. The image is retained and
// must not be modified while the Finder is in use.
func New(image []byte, v Variant) (*Finder, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	f := &Finder{
		variant: v,
		pattern: search.MustParse(v.Pattern),
		image:   image,
	}

	matches := f.pattern.FindAll(image)
	f.findings = make([]int, 0, len(matches))
	for _, raw := range matches {
		if v.Ceiling > 0 && raw > v.Ceiling {
			continue
		}
		f.findings = append(f.findings, raw+v.Adjust)
	}
	return f, nil
}

func (f *Finder) Name() string { return f.variant.Name }

// Variant returns the definition the Finder was built from.
func (f *Finder) Variant() Variant { return f.variant }

// Tightness is the number of fixed nibbles in the signature.
func (f *Finder) Tightness() int { return f.pattern.Fixed() }

// Candidates returns a copy of the remaining candidate offsets.
func (f *Finder) Candidates() []int { return slices.Clone(f.findings) }

func (f *Finder) IsFound() bool { return len(f.findings) == 1 }

func (f *Finder) WantLessEntropy() bool { return len(f.findings) > 1 }

func (f *Finder) Offset() (int, error) {
	switch len(f.findings) {
	case 0:
		return 0, fmt.Errorf("%s: %w", f.variant.Name, ErrNoMatch)
	case 1:
		return f.findings[0], nil
	default:
		return 0, fmt.Errorf("%s: %w (%d candidates)", f.variant.Name, ErrAmbiguousMatch, len(f.findings))
	}
}

func (f *Finder) SetOffsetsNearby(offsetNearby int) bool {
	f.findings = f.Nearby(offsetNearby)
	return f.IsFound()
}

// Nearby returns the candidates SetOffsetsNearby would keep for ref,
// without changing the Finder.
func (f *Finder) Nearby(ref int) []int {
	window := f.variant.proximity()
	return slices.DeleteFunc(slices.Clone(f.findings), func(off int) bool {
		return distance(off, ref) >= window
	})
}

func (f *Finder) Details() (string, error) {
	offset, err := f.Offset()
	if err != nil {
		return "", err
	}
	raw := offset - f.variant.Adjust

	words, err := converter.LEWords(f.image, raw, f.variant.DecodeWords)
	if err != nil {
		return "", fmt.Errorf("%s: %w", f.variant.Name, err)
	}
	lines := []string{disasm.DecodeWords(words, raw).String()}

	if b := f.variant.Branch; b != nil {
		at := raw + b.WordIndex*converter.WordSize
		word, err := converter.LEWord(f.image, at)
		if err != nil {
			return "", fmt.Errorf("%s: branch word: %w", f.variant.Name, err)
		}
		target := BranchTarget(word, at, *b)
		targetWords, err := converter.LEWords(f.image, target, b.Words)
		if err != nil {
			return "", fmt.Errorf("%s: branch target 0x%x: %w", f.variant.Name, target, err)
		}
		lines = append(lines, "...", disasm.DecodeWords(targetWords, target).String())
	}
	return strings.Join(lines, "\n"), nil
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
