package parser

import (
	"path"
	"strings"

	"github.com/sebmatecho/sipsa-tracker/models"
)

// Last bulletin published with the single-sheet layout.
const (
	lastLayoutAYear = 2018
	lastLayoutAWeek = 19
)

// Classify returns the layout of the bulletin for the given year and week.
// Every (year, week) pair maps to exactly one layout.
func Classify(year, week int) models.Layout {
	if year < lastLayoutAYear || (year == lastLayoutAYear && week <= lastLayoutAWeek) {
		return models.LayoutA
	}
	return models.LayoutB
}

// IsWorkbook reports whether key names a spreadsheet the parsers can read.
// Other objects stored under the reports prefix are ignored.
func IsWorkbook(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".xls", ".xlsx":
		return true
	}
	return false
}
