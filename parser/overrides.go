package parser

import (
	"strings"

	"github.com/sebmatecho/sipsa-tracker/models"
)

// layoutBOverrides maps exact bulletin file names to sheet parsers for files
// whose columns do not follow the standard layout.
var layoutBOverrides = map[string]sheetParser{
	// Plain header row; city and marketplace share a "Mercado mayorista" column.
	"week_20_Sem_12may__18may_2018.xlsx": parseByHeaderNames,
}

var headerKeyReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
)

func headerKey(s string) string {
	s = headerKeyReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
	return strings.Join(strings.Fields(s), "_")
}

// parseByHeaderNames locates the header row containing "Mercado mayorista"
// and resolves every column by its heading.
func parseByHeaderNames(rows [][]string, category string, file models.SourceFile) []models.RawRecord {
	headerRow := -1
	cols := map[string]int{}
	for r := 0; r < len(rows) && r < 20 && headerRow < 0; r++ {
		for _, v := range rows[r] {
			if headerKey(v) == "mercado_mayorista" {
				headerRow = r
				break
			}
		}
	}
	if headerRow < 0 {
		return nil
	}
	for c, v := range rows[headerRow] {
		if k := headerKey(v); k != "" {
			if _, dup := cols[k]; !dup {
				cols[k] = c
			}
		}
	}

	col := func(row []string, key string) string {
		c, ok := cols[key]
		if !ok {
			return ""
		}
		return rowCell(row, c)
	}

	var records []models.RawRecord
	product := ""
	for _, row := range rows[headerRow+1:] {
		if p := col(row, "producto"); p != "" {
			product = p
		}
		raw := col(row, "mercado_mayorista")
		if product == "" || !hasLetter(raw) {
			continue
		}
		city, market := splitCityMarket(raw)
		if city == "" {
			continue
		}
		records = append(records, models.RawRecord{
			Product:  product,
			City:     city,
			Market:   market,
			Category: category,
			PriceMin: col(row, "precio_minimo"),
			PriceMax: col(row, "precio_maximo"),
			PriceAvg: col(row, "precio_medio"),
			Trend:    col(row, "tendencia"),
			Week:     file.Week,
			Year:     file.Year,
		})
	}
	return records
}
