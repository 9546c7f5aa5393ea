// Package parser turns SIPSA weekly bulletins into raw price records. Two
// spreadsheet layouts exist; Classify picks the right one from the bulletin's
// year and week.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/sebmatecho/sipsa-tracker/models"
)

// ErrMalformed is wrapped by every error describing a workbook whose
// structure does not match its layout.
var ErrMalformed = errors.New("malformed bulletin")

var (
	ErrNoSectionMarkers     = fmt.Errorf("%w: no \"cuadro\" section markers", ErrMalformed)
	ErrUnexpectedSheetCount = fmt.Errorf("%w: unexpected sheet count", ErrMalformed)
	ErrUnreadableWorkbook   = fmt.Errorf("%w: unreadable workbook", ErrMalformed)
	ErrNoCategoryData       = fmt.Errorf("%w: no category produced any rows", ErrMalformed)
)

// Parser extracts raw records from the bytes of one bulletin.
type Parser interface {
	Parse(file models.SourceFile, data []byte) ([]models.RawRecord, error)
}

// cell returns the trimmed value at (r, c), or "" when out of range.
func cell(rows [][]string, r, c int) string {
	if r < 0 || r >= len(rows) {
		return ""
	}
	return rowCell(rows[r], c)
}

func rowCell(row []string, c int) string {
	if c < 0 || c >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[c])
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
