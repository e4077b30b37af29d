// Package textnorm canonicalizes titles for exact comparison.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// zeroWidth drops ZWSP, ZWNJ, ZWJ and the byte order mark.
var zeroWidth = strings.NewReplacer(
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\ufeff", "",
)

// Normalize applies NFKC folding, drops zero-width and BOM runes, collapses
// every whitespace run to a single ASCII space and trims the result.
// Punctuation is kept as-is.
//
// Removing a zero-width joiner can bring a base rune and a combining mark
// together, so the folding step is repeated when anything was dropped; this
// keeps Normalize idempotent.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := norm.NFKC.String(raw)
	if stripped := zeroWidth.Replace(s); stripped != s {
		s = norm.NFKC.String(stripped)
	}
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// Equal reports whether a and b are identical after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Contains reports whether the normalized haystack contains the normalized
// needle. An empty needle never matches.
func Contains(haystack, needle string) bool {
	n := Normalize(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Normalize(haystack), n)
}

// Truncate shortens s to at most n runes, for log lines.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
