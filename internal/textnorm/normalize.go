package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nonASCII matches every rune outside the 7-bit range, including the
// combining marks NFKD splits off accented letters.
var nonASCII = runes.Predicate(func(r rune) bool {
	return r > unicode.MaxASCII
})

// Normalize applies compatibility decomposition (NFKD) and then drops every
// code point that is not ASCII. Accented Latin letters keep their base
// letter; scripts with no ASCII decomposition disappear entirely.
//
// Normalize is pure and idempotent.
func Normalize(text string) string {
	// Chained transformers keep state, so a fresh chain is built per call.
	t := transform.Chain(norm.NFKD, runes.Remove(nonASCII))
	out, _, err := transform.String(t, text)
	if err != nil {
		return fallback(text)
	}
	return out
}

// NormalizeAll normalizes every element of texts into a new slice.
func NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = Normalize(t)
	}
	return out
}

// fallback decomposes rune by rune; used only if the chained transform fails.
func fallback(text string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(text) {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}
