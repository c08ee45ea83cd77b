package taxonomy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// separatorRun matches any run of whitespace, hyphens, or underscores.
// Whitespace is the Unicode set, including the C0 separators U+001C..U+001F
// and NEL, which NFKC leaves in place.
var separatorRun = regexp.MustCompile(`[\p{Z}\t\n\v\f\r\x{1c}-\x{1f}\x{85}\-_]+`)

// isSpace reports whether r is whitespace in the sense of separatorRun.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// trimSpace trims the whitespace runes separatorRun collapses.
func trimSpace(s string) string {
	return strings.TrimFunc(s, isSpace)
}

// Fold returns the comparison key for a label: trimmed, NFKC-normalized,
// with separator runs collapsed to one space, and case-folded.
//
// A new Caser is built on every call because casers keep state and must not
// be shared between goroutines.
func Fold(s string) string {
	s = norm.NFKC.String(trimSpace(s))
	s = separatorRun.ReplaceAllString(s, " ")
	return cases.Fold().String(s)
}
