package strings

import (
	"strings"
	"unicode"
)

// Ellipsis is appended to clipped text.
const Ellipsis = " …"

// NormalizeSpace collapses every run of whitespace to a single space and trims the ends.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Clip normalizes whitespace and truncates to at most limit runes, marking
// truncation with Ellipsis. A non-positive limit returns the normalized text.
func Clip(s string, limit int) string {
	s = NormalizeSpace(s)
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := strings.TrimRightFunc(string(runes[:limit]), unicode.IsSpace)
	return cut + Ellipsis
}
