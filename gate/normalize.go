package gate

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases the query and, for Latin-script text, strips
// diacritics so "éclosabilité" matches "eclosabilite". Non-Latin text
// is only lower-cased; folding would destroy it.
func Normalize(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if !IsLatin(lowered) {
		return lowered
	}
	out, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		return lowered
	}
	return out
}

// IsLatin reports whether the letters of the text are predominantly
// Latin script. Digits and punctuation are ignored.
func IsLatin(text string) bool {
	var latin, other int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.Is(unicode.Latin, r) {
			latin++
		} else {
			other++
		}
	}
	if latin+other == 0 {
		return true
	}
	return latin >= other
}

// Tokenize splits normalized text into scoring tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
