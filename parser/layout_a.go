package parser

import (
	"fmt"
	"strings"

	"github.com/sebmatecho/sipsa-tracker/models"
	"github.com/sebmatecho/sipsa-tracker/utils"
)

// Layout A columns: city, minimum, maximum and average price, trend.
const (
	colACity = iota
	colAMin
	colAMax
	colAAvg
	colATrend
)

var layoutARules = Rules{
	Keep: func(row []string) bool {
		return hasLetter(rowCell(row, colACity))
	},
	IsSection: func(row []string) bool {
		return strings.Contains(strings.ToLower(rowCell(row, colACity)), "cuadro")
	},
	IsProduct: func(row []string) bool {
		return rowCell(row, colAMin) == ""
	},
}

// LayoutAParser reads the single-sheet bulletins published up to week 19 of
// 2018. Categories follow each other on the first sheet, each introduced by
// a "Cuadro N" title row.
type LayoutAParser struct {
	logger *utils.Logger
}

func NewLayoutAParser(logger *utils.Logger) *LayoutAParser {
	return &LayoutAParser{logger: logger}
}

// Parse extracts every priced city row of every category section.
func (p *LayoutAParser) Parse(file models.SourceFile, data []byte) ([]models.RawRecord, error) {
	name := file.FileName()
	wb, err := OpenWorkbook(name, data)
	if err != nil {
		return nil, err
	}
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("%s: %w: no sheets", name, ErrMalformed)
	}
	sheet := wb.Sheets[0]
	if sheet.Err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrUnreadableWorkbook, sheet.Err)
	}

	sections := SplitSections(Tokenize(sheet.Rows, layoutARules))
	if len(sections) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoSectionMarkers)
	}
	if len(sections) > len(models.Categories) {
		p.logger.Warn("[layout-a] %s: %d section markers found, ignoring all after the %dth",
			name, len(sections), len(models.Categories))
		sections = sections[:len(models.Categories)]
	}

	var records []models.RawRecord
	for _, sec := range sections {
		category := models.Categories[sec.Index]
		if len(sec.Blocks) == 0 {
			p.logger.Warn("[layout-a] %s: section %q (row %d) has no products, skipping",
				name, rowCell(sec.Header.Cells, colACity), sec.Header.Row+1)
			continue
		}
		for _, block := range sec.Blocks {
			for _, ev := range block.Rows {
				avg := rowCell(ev.Cells, colAAvg)
				if avg == "" {
					continue
				}
				city, market := splitCityMarket(rowCell(ev.Cells, colACity))
				if city == "" {
					continue
				}
				records = append(records, models.RawRecord{
					Product:  block.Product,
					City:     city,
					Market:   market,
					Category: category,
					PriceMin: rowCell(ev.Cells, colAMin),
					PriceMax: rowCell(ev.Cells, colAMax),
					PriceAvg: avg,
					Trend:    rowCell(ev.Cells, colATrend),
					Week:     file.Week,
					Year:     file.Year,
				})
			}
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoCategoryData)
	}

	p.logger.Debug("[layout-a] %s: %d sections, %d records", name, len(sections), len(records))
	return records, nil
}
