package disasm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"
)

// Decode renders a raw little-endian word read at off. Words that do not
// decode to a known instruction are shown as a .word directive.
func Decode(word uint32, off int) Inst {
	inst := Inst{VA: uint64(off)}
	binary.LittleEndian.PutUint32(inst.Raw[:], word)

	decoded, err := arm64asm.Decode(inst.Raw[:])
	if err != nil {
		inst.Op = ".word"
		inst.Text = fmt.Sprintf(".word 0x%08x", word)
		return inst
	}

	inst.Op = strings.ToLower(decoded.Op.String())
	inst.Text = arm64asm.GNUSyntax(decoded)
	for _, arg := range decoded.Args {
		if arg == nil {
			break
		}
		if pcrel, ok := arg.(arm64asm.PCRel); ok {
			inst.Target = uint64(int64(off) + int64(pcrel))
			inst.HasTarget = true
		}
	}
	return inst
}

// PrintSimplified returns one listing line for word at off.
func PrintSimplified(word uint32, off int) string {
	return Decode(word, off).String()
}

// DecodeWords decodes consecutive words starting at off.
func DecodeWords(words []uint32, off int) Stream {
	stream := make(Stream, 0, len(words))
	for i, w := range words {
		stream = append(stream, Decode(w, off+i*4))
	}
	return stream
}
