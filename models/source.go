package models

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	weekPrefixRegexp = regexp.MustCompile(`^week_(\d+)_(.+)$`)
	trailingYear     = regexp.MustCompile(`(\d{4})$`)
)

// Layout identifies one of the two spreadsheet encodings used by the
// publisher over time.
type Layout int

const (
	LayoutUnknown Layout = iota
	LayoutA              // single sheet, categories separated by "cuadro" titles
	LayoutB              // one sheet per category
)

func (l Layout) String() string {
	switch l {
	case LayoutA:
		return "layout-a"
	case LayoutB:
		return "layout-b"
	default:
		return "unknown"
	}
}

// YearLink is an anchor on the bulletin index page pointing at one year.
type YearLink struct {
	Label string // directory label used in storage keys, usually the year
	Year  int
	Href  string
}

// ReportLink is a bulletin anchor on a year page. Ordinal is 1-based in page
// order (newest first).
type ReportLink struct {
	Href    string
	Text    string
	Ordinal int
}

// SourceFile identifies one weekly bulletin.
type SourceFile struct {
	Year         int
	YearLabel    string
	Week         int
	OriginalName string
	StorageKey   string
	Link         string
}

// FileName is the persisted name of the bulletin: week_<n>_<original>.
func (f SourceFile) FileName() string {
	return fmt.Sprintf("week_%d_%s", f.Week, f.OriginalName)
}

// BuildStorageKey returns <prefix>/<year-label>/week_<n>_<original>.
func BuildStorageKey(prefix, yearLabel string, week int, originalName string) string {
	prefix = strings.Trim(prefix, "/")
	name := fmt.Sprintf("week_%d_%s", week, originalName)
	if prefix == "" {
		return yearLabel + "/" + name
	}
	return prefix + "/" + yearLabel + "/" + name
}

// ParseStorageKey recovers a SourceFile from a storage key such as
// reports/2016/week_3_Sem_9ene__15ene_2016.xls. The week comes from the
// week_<n>_ prefix; the year from the trailing four digits of the file stem,
// falling back to the year directory of the key.
func ParseStorageKey(key string) (SourceFile, error) {
	base := path.Base(key)
	m := weekPrefixRegexp.FindStringSubmatch(base)
	if m == nil {
		return SourceFile{}, fmt.Errorf("storage key %q: missing week_<n>_ prefix", key)
	}
	week, err := strconv.Atoi(m[1])
	if err != nil {
		return SourceFile{}, fmt.Errorf("storage key %q: week: %w", key, err)
	}

	label := path.Base(path.Dir(key))
	stem := strings.TrimSuffix(base, path.Ext(base))

	year := 0
	if ym := trailingYear.FindString(stem); ym != "" {
		year, _ = strconv.Atoi(ym)
	}
	if year == 0 || year < 1990 || year > 2100 {
		year, err = strconv.Atoi(label)
		if err != nil {
			return SourceFile{}, fmt.Errorf("storage key %q: no year in file name or directory", key)
		}
	}

	return SourceFile{
		Year:         year,
		YearLabel:    label,
		Week:         week,
		OriginalName: m[2],
		StorageKey:   key,
	}, nil
}

// TrackerEntry is one row of the durable progress ledger.
type TrackerEntry struct {
	File      string
	Link      string
	DateAdded time.Time
	Loaded    bool
}
