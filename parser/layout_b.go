package parser

import (
	"fmt"

	"github.com/sebmatecho/sipsa-tracker/models"
	"github.com/sebmatecho/sipsa-tracker/utils"
)

// Layout B columns: product, city, minimum, maximum and average price, trend.
const (
	colBProduct = iota
	colBCity
	colBMin
	colBMax
	colBAvg
	colBTrend
)

// Sheet 0 is a cover; sheets 1..8 hold one category each.
const layoutBMinSheets = 9

// LayoutBParser reads the multi-sheet bulletins published from week 20 of
// 2018 on.
type LayoutBParser struct {
	logger    *utils.Logger
	overrides map[string]sheetParser
}

// sheetParser turns the rows of one category sheet into records.
type sheetParser func(rows [][]string, category string, file models.SourceFile) []models.RawRecord

func NewLayoutBParser(logger *utils.Logger) *LayoutBParser {
	return &LayoutBParser{logger: logger, overrides: layoutBOverrides}
}

// Parse extracts the records of the eight category sheets. Unreadable or
// empty sheets are skipped with a warning; a workbook where every sheet is
// skipped is malformed.
func (p *LayoutBParser) Parse(file models.SourceFile, data []byte) ([]models.RawRecord, error) {
	name := file.FileName()
	wb, err := OpenWorkbook(name, data)
	if err != nil {
		return nil, err
	}
	if len(wb.Sheets) < layoutBMinSheets {
		return nil, fmt.Errorf("%s: %w: got %d, want at least %d",
			name, ErrUnexpectedSheetCount, len(wb.Sheets), layoutBMinSheets)
	}

	parse := parseLayoutBSheet
	if override, ok := p.overrides[name]; ok {
		p.logger.Debug("[layout-b] %s: using column override", name)
		parse = override
	}

	var records []models.RawRecord
	for i, category := range models.Categories {
		sheet := wb.Sheets[i+1]
		if sheet.Err != nil {
			p.logger.Warn("[layout-b] %s: failed to read sheet %q: %v", name, sheet.Name, sheet.Err)
			continue
		}
		if len(sheet.Rows) == 0 {
			p.logger.Warn("[layout-b] %s: no data found in sheet %q", name, sheet.Name)
			continue
		}
		got := parse(sheet.Rows, category, file)
		if len(got) == 0 {
			p.logger.Warn("[layout-b] %s: sheet %q produced no records", name, sheet.Name)
		}
		records = append(records, got...)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoCategoryData)
	}

	p.logger.Debug("[layout-b] %s: %d records", name, len(records))
	return records, nil
}

// parseLayoutBSheet handles the standard sheet: a title row, a block of
// headings, then data from body row 9 or 10 depending on whether body row 9
// is blank.
func parseLayoutBSheet(rows [][]string, category string, file models.SourceFile) []models.RawRecord {
	body := rows[1:]
	start := 9
	if cell(body, 9, 0) == "" {
		start = 10
	}
	if start >= len(body) {
		return nil
	}

	var records []models.RawRecord
	product := ""
	for _, row := range body[start:] {
		// Merged product cells are only filled on their first row.
		if p := rowCell(row, colBProduct); p != "" {
			product = p
		}
		rawCity := rowCell(row, colBCity)
		if product == "" || !hasLetter(rawCity) {
			continue
		}
		city, market := splitCityMarket(rawCity)
		if city == "" {
			continue
		}
		records = append(records, models.RawRecord{
			Product:  product,
			City:     city,
			Market:   market,
			Category: category,
			PriceMin: rowCell(row, colBMin),
			PriceMax: rowCell(row, colBMax),
			PriceAvg: rowCell(row, colBAvg),
			Trend:    rowCell(row, colBTrend),
			Week:     file.Week,
			Year:     file.Year,
		})
	}
	return records
}
