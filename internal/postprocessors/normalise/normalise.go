// Package normalise cleans extracted text before it is chunked.
package normalise

import (
	"strings"
	"unicode"
)

// keptPunctuation lists the punctuation that survives cleaning.
const keptPunctuation = ".,!?;:()-'\""

// Text collapses every whitespace run to a single space, replaces any rune
// that is not a letter, number, underscore or kept punctuation with a space,
// and trims the result. Empty input yields empty output.
func Text(s string) string {
	if s == "" {
		return ""
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsLetter(r), unicode.IsNumber(r), r == '_':
			return r
		case strings.ContainsRune(keptPunctuation, r):
			return r
		default:
			return ' '
		}
	}, s)

	return strings.Join(strings.Fields(cleaned), " ")
}
