package indexer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips diacritics ("Café" -> "cafe").
func Fold(s string) string {
	// A transform.Chain keeps state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Tokenize folds text and reduces it to space-separated runs of letters and digits.
func Tokenize(text string) string {
	folded := Fold(text)
	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, " ")
}

// BuildSearchText joins page texts in order with newlines and tokenizes the result.
func BuildSearchText(pageTexts []string) string {
	return Tokenize(strings.Join(pageTexts, "\n"))
}
