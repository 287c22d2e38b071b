package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// DisasmStyleName is the chroma style registered by this package.
const DisasmStyleName = "fspatch-disasm"

// DisasmDark keeps mnemonics white, registers teal and immediates pink.
var DisasmDark = styles.Register(chroma.MustNewStyle(DisasmStyleName, chroma.StyleEntries{
	chroma.Text:           "#FFFFFF",
	chroma.Background:     "bg:#1e1e1e",
	chroma.Comment:        "#6A9955",
	chroma.CommentPreproc: "#6A9955",

	chroma.Keyword:       "#FFFFFF",
	chroma.KeywordPseudo: "#FFFFFF",
	chroma.Name:          "#7C9C9D",
	chroma.NameBuiltin:   "#7C9C9D",
	chroma.NameVariable:  "#7C9C9D",
	chroma.NameFunction:  "#FFFFFF", // mnemonics lex as functions
	chroma.NameLabel:     "#FFD700",

	chroma.LiteralNumber:        "#FF5F87",
	chroma.LiteralNumberHex:     "#FF5F87",
	chroma.LiteralNumberInteger: "#FF5F87",

	chroma.Operator:    "#FFFFFF",
	chroma.Punctuation: "#FFFFFF",
	chroma.String:      "#EACD53",
}))
