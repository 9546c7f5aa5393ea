package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	parentheticalRegexp = regexp.MustCompile(`\s*\([^)]*\)`)
	punctuationReplacer = strings.NewReplacer("(", " ", ")", " ", ",", " ")
)

// NormalizeText canonicalizes a city, product or market name: parenthetical
// notes, stray parentheses and commas are removed, letters are lowercased
// and stripped of accents, and whitespace runs become a single "_".
// NormalizeText(NormalizeText(s)) == NormalizeText(s).
func NormalizeText(s string) string {
	s = parentheticalRegexp.ReplaceAllString(s, "")
	s = punctuationReplacer.Replace(s)
	s = strings.ToLower(s)

	// Transformers carry state, so each call builds its own chain.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), "_")
}
