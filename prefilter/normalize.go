package prefilter

import (
	"strings"
	"unicode"
)

// Normalize folds text into the form compared for exact duplicates: lower
// case, with every rune that is not a letter, digit or underscore removed.
// Whitespace is removed too, so "Hello World!" and "helloworld" are equal.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
