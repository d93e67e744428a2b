package analysis

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// EscapeUnprintable returns a string where printable Unicode runes are preserved.
// Control and unprintable runes are escaped as \uXXXX. Invalid UTF-8 is escaped as \xXX.
func EscapeUnprintable(b []byte) string {
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			sb.WriteString(fmt.Sprintf("\\x%02X", b[0]))
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteString(fmt.Sprintf("\\u%04X", r))
		}
		b = b[size:]
	}
	return sb.String()
}

// SectionLabel renders a section name for tables. Empty names come from
// headers whose name could not be resolved.
func SectionLabel(name string) string {
	if name == "" {
		return "?"
	}
	return EscapeUnprintable([]byte(name))
}
