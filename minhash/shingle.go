package minhash

import (
	"strings"
	"unicode"
)

// DefaultShingleSize is the default character k-gram length.
const DefaultShingleSize = 5

// Normalize lowercases text and collapses every whitespace run into a single
// space.
func Normalize(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))

	inSpace := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsSpace(r) {
			if !inSpace {
				sb.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// Shingles returns the distinct character k-grams of the normalized text in
// first-occurrence order. Text shorter than k yields no shingles.
func Shingles(text string, k int) []string {
	if k <= 0 {
		k = DefaultShingleSize
	}
	runes := []rune(Normalize(text))
	if len(runes) < k {
		return nil
	}

	seen := make(map[string]struct{}, len(runes)-k+1)
	out := make([]string, 0, len(runes)-k+1)
	for i := 0; i+k <= len(runes); i++ {
		s := string(runes[i : i+k])
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
