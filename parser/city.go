package parser

import (
	"regexp"
	"strings"
)

var (
	parentheticalRegexp = regexp.MustCompile(`\s*\([^)]*\)`)
	capitalRegexp       = regexp.MustCompile(`(?i)bogot[aá]\s*,?\s*d\.?\s*c\.?`)
)

// splitCityMarket cleans a "city, marketplace" cell. Parenthetical notes are
// removed, the capital's formal name becomes "bogota", and the text is split
// on its first comma. Market is empty when the cell names only a city.
func splitCityMarket(raw string) (city, market string) {
	s := parentheticalRegexp.ReplaceAllString(raw, "")
	s = capitalRegexp.ReplaceAllString(s, "bogota")

	city, market, _ = strings.Cut(s, ",")
	return strings.TrimSpace(city), strings.TrimSpace(market)
}
