package search

import (
	"bytes"
	"errors"
	"testing"
)

const fsPattern = "...94081c00121f050071..0054"

// fsFragment is one concrete encoding of fsPattern.
var fsFragment = []byte{
	0x10, 0x00, 0x00, 0x94, // bl   .+0x40
	0x08, 0x1c, 0x00, 0x12, // and  w8, w0, #0xff
	0x1f, 0x05, 0x00, 0x71, // cmp  w8, #0x1
	0x41, 0x01, 0x00, 0x54, // b.ne .+0x28
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		pattern   string
		wantLen   int
		wantFixed int
		wantStr   string
		wantErr   bool
	}{
		{
			name:      "fs signature",
			pattern:   fsPattern,
			wantLen:   16,
			wantFixed: 22,
			wantStr:   fsPattern,
		},
		{
			name:      "uppercase and spaces",
			pattern:   "1F 05 00 71",
			wantLen:   4,
			wantFixed: 8,
			wantStr:   "1f050071",
		},
		{
			name:      "nibble wildcards",
			pattern:   "?4..0?",
			wantLen:   4,
			wantFixed: 2,
			wantStr:   "?4..0?",
		},
		{
			name:      "all nibbles wild collapses to dot",
			pattern:   "??",
			wantLen:   1,
			wantFixed: 0,
			wantStr:   ".",
		},
		{name: "empty", pattern: "", wantErr: true},
		{name: "only spaces", pattern: "   ", wantErr: true},
		{name: "dangling nibble", pattern: "94f", wantErr: true},
		{name: "dot splits byte", pattern: "9.4", wantErr: true},
		{name: "bad character", pattern: "zz", wantErr: true},
		{name: "0x prefix", pattern: "0x94", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.pattern)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPattern) {
					t.Fatalf("Parse(%q) error = %v, want ErrInvalidPattern", tt.pattern, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.pattern, err)
			}
			if p.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", p.Len(), tt.wantLen)
			}
			if p.Fixed() != tt.wantFixed {
				t.Errorf("Fixed() = %d, want %d", p.Fixed(), tt.wantFixed)
			}
			if p.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", p.String(), tt.wantStr)
			}
		})
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse did not panic on invalid pattern")
		}
	}()
	MustParse("xyz")
}

func TestFindAll(t *testing.T) {
	p := MustParse(fsPattern)

	image := make([]byte, 0x200)
	copy(image[0x10:], fsFragment)
	copy(image[0x100:], fsFragment)

	// Different displacement and condition still match.
	variant := bytes.Clone(fsFragment)
	variant[0], variant[1], variant[2] = 0xaa, 0xbb, 0xcc
	variant[12], variant[13] = 0x01, 0xff
	copy(image[0x1f0:], variant)

	got := p.FindAll(image)
	want := []int{0x10, 0x100, 0x1f0}
	if len(got) != len(want) {
		t.Fatalf("FindAll() = %#x, want %#x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("match %d = 0x%x, want 0x%x", i, got[i], want[i])
		}
	}
}

func TestFindAllNoMatch(t *testing.T) {
	p := MustParse(fsPattern)

	tests := []struct {
		name  string
		image []byte
	}{
		{name: "nil image", image: nil},
		{name: "shorter than pattern", image: fsFragment[:15]},
		{name: "zeros", image: make([]byte, 4096)},
		{name: "fixed byte differs", image: func() []byte {
			b := bytes.Clone(fsFragment)
			b[15] = 0x55
			return b
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.FindAll(tt.image)
			if got == nil {
				t.Fatal("FindAll() returned nil, want empty slice")
			}
			if len(got) != 0 {
				t.Errorf("FindAll() = %#x, want none", got)
			}
		})
	}
}

func TestFindAllOverlapping(t *testing.T) {
	image := []byte{0xaa, 0xaa, 0xaa, 0xaa}
	got, err := FindAll(image, "aaaa")
	if err != nil {
		t.Fatalf("FindAll() unexpected error: %v", err)
	}
	want := []int{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("FindAll() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("match %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFindAllNibbleWildcard(t *testing.T) {
	image := []byte{0x00, 0x34, 0x12, 0x00, 0x3f, 0x1f}
	got, err := FindAll(image, "3?1?")
	if err != nil {
		t.Fatalf("FindAll() unexpected error: %v", err)
	}
	want := []int{1, 4}
	if len(got) != len(want) {
		t.Fatalf("FindAll() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("match %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFindAllAllWildcards(t *testing.T) {
	got, err := FindAll(make([]byte, 5), "..")
	if err != nil {
		t.Fatalf("FindAll() unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("FindAll() = %v, want 4 matches", got)
	}
}

func TestFindAllInvalidPattern(t *testing.T) {
	if _, err := FindAll([]byte{1, 2}, "g0"); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("FindAll() error = %v, want ErrInvalidPattern", err)
	}
}

func TestMatchAtBounds(t *testing.T) {
	p := MustParse("1f050071")
	image := []byte{0x1f, 0x05, 0x00, 0x71}
	if !p.MatchAt(image, 0) {
		t.Error("MatchAt(0) = false, want true")
	}
	if p.MatchAt(image, 1) {
		t.Error("MatchAt(1) = true past end")
	}
	if p.MatchAt(image, -1) {
		t.Error("MatchAt(-1) = true")
	}
}
