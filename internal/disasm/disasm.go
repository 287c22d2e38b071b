// Package disasm defines a common instruction representation and renders
// raw ARM64 words found in firmware images as simplified assembly.
package disasm

import (
	"fmt"
	"strings"
)

// Inst is a simplified decoded instruction.
type Inst struct {
	VA        uint64  // offset of the instruction in the image
	Text      string  // formatted disassembly string
	Op        string  // mnemonic in lowercase
	Raw       [4]byte // raw encoding (for branch target calc)
	Target    uint64  // resolved PC-relative target, valid when HasTarget
	HasTarget bool
}

// Word returns the raw encoding as a little-endian word.
func (i Inst) Word() uint32 {
	return uint32(i.Raw[0]) | uint32(i.Raw[1])<<8 | uint32(i.Raw[2])<<16 | uint32(i.Raw[3])<<24
}

// String renders the instruction as a single listing line:
// offset, raw word, then the simplified assembly.
func (i Inst) String() string {
	line := fmt.Sprintf("%08x  %08x  %s", i.VA, i.Word(), i.Text)
	if i.HasTarget {
		line = fmt.Sprintf("%-44s ; -> 0x%x", line, i.Target)
	}
	return line
}

// Stream is a linear sequence of instructions.
type Stream []Inst

// String renders the stream one instruction per line.
func (s Stream) String() string {
	lines := make([]string, len(s))
	for i, inst := range s {
		lines[i] = inst.String()
	}
	return strings.Join(lines, "\n")
}
