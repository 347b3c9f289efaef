package search

import (
	"strings"

	"github.com/hyperjump/folio/internal/indexer"
)

// Match is a half-open rune range [Start, End) in the original text.
type Match struct {
	Start int
	End   int
}

// FindMatches returns the non-overlapping occurrences of needle, which must already be
// folded, in text. Matching runs on the folded text; the returned ranges index the
// original runes.
func FindMatches(text, needle []rune) []Match {
	if len(needle) == 0 {
		return nil
	}
	// folded[i] came from text[origin[i]].
	folded := make([]rune, 0, len(text))
	origin := make([]int, 0, len(text))
	for i, r := range text {
		for _, f := range indexer.Fold(string(r)) {
			folded = append(folded, f)
			origin = append(origin, i)
		}
	}

	var matches []Match
	for i := 0; i+len(needle) <= len(folded); {
		if !equalRunes(folded[i:i+len(needle)], needle) {
			i++
			continue
		}
		matches = append(matches, Match{Start: origin[i], End: origin[i+len(needle)-1] + 1})
		i += len(needle)
	}
	return matches
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Snippet returns text[start:end] with up to radius runes of context on each side.
// Line breaks become spaces and cut edges are marked with "...".
func Snippet(text []rune, start, end, radius int) string {
	from := max(0, start-radius)
	to := min(len(text), end+radius)
	var b strings.Builder
	if from > 0 {
		b.WriteString("...")
	}
	b.WriteString(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\f", " ").Replace(string(text[from:to])))
	if to < len(text) {
		b.WriteString("...")
	}
	return b.String()
}
