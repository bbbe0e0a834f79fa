package domain

import (
	"strings"
	"unicode"
)

// fingerprintWords is how many leading words make up a fingerprint
const fingerprintWords = 20

// Fingerprint computes the normalized digest of a post's text used for
// approximate duplicate detection: lower-cased, punctuation stripped,
// first 20 words. It is a heuristic over a rolling window, not a
// correctness guarantee.
func Fingerprint(text string) string {
	lowered := strings.ToLower(text)
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, lowered)

	words := strings.Fields(stripped)
	if len(words) > fingerprintWords {
		words = words[:fingerprintWords]
	}
	return strings.Join(words, " ")
}
