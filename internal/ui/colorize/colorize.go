// Package colorize highlights decoded instruction listings for the terminal.
// Set FSPATCH_NO_COLOR to any value to disable it.
package colorize

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const (
	offsetColor = "\033[38;2;79;79;79m"
	rawColor    = "\033[38;2;120;120;120m"
	sepColor    = "\033[38;2;235;194;237m"
	reset       = "\033[0m"
)

// Enabled reports whether colour output is allowed.
func Enabled() bool {
	return os.Getenv("FSPATCH_NO_COLOR") == ""
}

// getAssemblyLexer returns an appropriate assembly lexer with fallbacks
func getAssemblyLexer() chroma.Lexer {
	for _, name := range []string{"armasm", "gas", "nasm"} {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// getDisasmStyle returns the disassembly style with fallbacks
func getDisasmStyle() *chroma.Style {
	for _, name := range []string{DisasmStyleName, "dracula", "monokai"} {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Assembly highlights code with the assembly lexer.
func Assembly(code string) (string, error) {
	if !Enabled() {
		return code, nil
	}

	lexer := getAssemblyLexer()
	if lexer == nil {
		return code, nil
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}

	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getDisasmStyle(), iterator); err != nil {
		return code, err
	}
	out := buf.String()
	// Lexers that ensure a trailing newline add one the input did not have.
	if !strings.HasSuffix(code, "\n") {
		if i := strings.LastIndex(out, "\n"); i >= 0 && Strip(out[i:]) == "\n" {
			out = out[:i] + out[i+1:]
		}
	}
	return out, nil
}

// Line highlights one "offset  word  text" line as produced by the
// decoder: offset and raw word are dimmed, the instruction goes through
// chroma. Lines of another shape are highlighted as a whole.
func Line(line string) string {
	if !Enabled() {
		return line
	}

	if strings.TrimSpace(line) == "..." {
		return sepColor + line + reset
	}

	fields := strings.SplitN(line, "  ", 3)
	if len(fields) != 3 || !isHex(fields[0]) || !isHex(fields[1]) {
		out, _ := Assembly(line)
		return out
	}

	asm, _ := Assembly(fields[2])
	return fmt.Sprintf("%s%s%s  %s%s%s  %s", offsetColor, fields[0], reset, rawColor, fields[1], reset, asm)
}

// Listing highlights every line of a multi-line listing.
func Listing(listing string) string {
	if !Enabled() {
		return listing
	}
	lines := strings.Split(listing, "\n")
	for i, l := range lines {
		lines[i] = Line(l)
	}
	return strings.Join(lines, "\n")
}

// Strip removes ANSI escape sequences.
func Strip(s string) string {
	var result strings.Builder
	inEscape := false

	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !((ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')) {
			return false
		}
	}
	return true
}
