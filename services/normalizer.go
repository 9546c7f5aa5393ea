package services

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sebmatecho/sipsa-tracker/models"
	"github.com/sebmatecho/sipsa-tracker/utils"
)

// thousandsRegexp matches numbers written with comma thousands separators,
// e.g. 1,200 or 12,345.50.
var thousandsRegexp = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)

var priceStripper = strings.NewReplacer("$", "", " ", "", "\u00a0", "")

// NormalizeReport counts what the normalizer did with one file's records.
type NormalizeReport struct {
	Input   int
	Output  int
	Dropped int
}

// Normalizer turns RawRecords into Records with numeric prices and a region.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize coerces prices and derives regions. Records whose prices cannot
// be read as numbers are dropped and logged.
func (n *Normalizer) Normalize(file string, raws []models.RawRecord) ([]models.Record, NormalizeReport) {
	report := NormalizeReport{Input: len(raws)}
	out := make([]models.Record, 0, len(raws))

	for _, r := range raws {
		lo, errLo := ParsePrice(r.PriceMin)
		hi, errHi := ParsePrice(r.PriceMax)
		avg, errAvg := ParsePrice(r.PriceAvg)
		if err := firstErr(errLo, errHi, errAvg); err != nil {
			report.Dropped++
			n.logger.Debug("[normalizer] %s: dropping %s/%s: %v", file, r.Product, r.City, err)
			continue
		}

		out = append(out, models.Record{
			Product:  strings.TrimSpace(r.Product),
			City:     strings.TrimSpace(r.City),
			Market:   strings.TrimSpace(r.Market),
			Category: r.Category,
			PriceMin: lo,
			PriceMax: hi,
			PriceAvg: avg,
			Trend:    strings.TrimSpace(r.Trend),
			Week:     r.Week,
			Year:     r.Year,
			Region:   RegionFor(r.City),
		})
	}

	report.Output = len(out)
	if report.Dropped > 0 {
		n.logger.Warn("[normalizer] %s: %d of %d records dropped on price coercion",
			file, report.Dropped, report.Input)
	}
	return out, report
}

// ParsePrice reads a price cell. Plain numbers, a leading "$" and comma
// thousands separators are accepted; anything else is an error.
func ParsePrice(raw string) (float64, error) {
	s := priceStripper.Replace(strings.TrimSpace(raw))
	if s == "" {
		return 0, fmt.Errorf("price: empty value")
	}
	if thousandsRegexp.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("price: %q is not a number", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("price: %q is not a finite number", raw)
	}
	return v, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
