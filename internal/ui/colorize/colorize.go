// Package colorize highlights LA32R assembly listings for the terminal.
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

// Disabled reports whether LA32RSTATS_NO_COLOR or NO_COLOR is set.
func Disabled() bool {
	return os.Getenv("LA32RSTATS_NO_COLOR") != "" || os.Getenv("NO_COLOR") != ""
}

// getAssemblyLexer returns an appropriate assembly lexer with fallbacks
func getAssemblyLexer() chroma.Lexer {
	// GNU as syntax first, loong64asm prints GNU operands
	for _, name := range []string{"gas", "GAS", "nasm"} {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

func getDisasmStyle() *chroma.Style {
	for _, name := range []string{"la32r-dark", "dracula", "monokai"} {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

func getTerminalFormatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// ColorizeAssembly applies syntax highlighting to a block of assembly.
// The input is returned unchanged when colors are disabled.
func ColorizeAssembly(code string) (string, error) {
	if Disabled() {
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
	return buf.String(), nil
}

// ListingLine formats one listing row: address, raw word and assembly.
func ListingLine(addr uint64, word uint32, asm string) string {
	return fmt.Sprintf("%08x  %08x  %s", addr, word, asm)
}

// ColorizeInstructionLine colorizes a row produced by ListingLine. The
// address and raw word are dimmed and the assembly goes through chroma.
func ColorizeInstructionLine(line string) string {
	if Disabled() {
		return line
	}
	addr, rest, ok := strings.Cut(line, "  ")
	if !ok || !isHex(addr) {
		return colorizeFullLine(line)
	}
	word, asm, ok := strings.Cut(rest, "  ")
	if !ok || !isHex(word) {
		return fmt.Sprintf("\033[38;2;79;79;79m%s\033[0m  %s", addr, colorizeFullLine(rest))
	}
	return fmt.Sprintf("\033[38;2;79;79;79m%s\033[0m  \033[38;2;110;110;110m%s\033[0m  %s", addr, word, colorizeFullLine(asm))
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

func colorizeFullLine(line string) string {
	out, err := ColorizeAssembly(line)
	if err != nil {
		return line
	}
	// lexers append a newline to their input
	return strings.ReplaceAll(out, "\n", "")
}

// StripANSI removes SGR escape sequences.
func StripANSI(s string) string {
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
