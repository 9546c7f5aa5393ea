package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/sebmatecho/sipsa-tracker/models"
	"github.com/sebmatecho/sipsa-tracker/utils"
)

// VocabularyMode controls how unknown cities and products are treated.
type VocabularyMode string

const (
	VocabularyAdvisory VocabularyMode = "advisory" // keep and flag
	VocabularyStrict   VocabularyMode = "strict"   // reject
	VocabularyOff      VocabularyMode = "off"      // ignore
)

// ParseVocabularyMode parses a configuration value.
func ParseVocabularyMode(s string) (VocabularyMode, error) {
	switch m := VocabularyMode(strings.ToLower(strings.TrimSpace(s))); m {
	case VocabularyAdvisory, VocabularyStrict, VocabularyOff:
		return m, nil
	case "":
		return VocabularyAdvisory, nil
	}
	return "", fmt.Errorf("validator: unknown vocabulary mode %q", s)
}

// Check names one validation rule.
type Check string

const (
	CheckCity     Check = "city"
	CheckProduct  Check = "product"
	CheckPrice    Check = "price"
	CheckTrend    Check = "trend"
	CheckCategory Check = "category"
)

// RejectionError describes why a record failed validation.
type RejectionError struct {
	Check Check
	Value string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("validation: %s check failed for %q", e.Check, e.Value)
}

// ValidationReport aggregates the validation of one batch of records.
type ValidationReport struct {
	Total           int
	Valid           int
	Rejected        int
	ByCheck         map[Check]int
	UnknownCities   int // advisory mode only
	UnknownProducts int
}

// Validator normalizes record text and enforces the record invariants.
type Validator struct {
	mode       VocabularyMode
	cities     vocabulary
	products   vocabulary
	trends     map[string]struct{}
	categories map[string]struct{}
	logger     *utils.Logger
}

// ValidatorConfig carries the vocabulary mode and any extra vocabulary terms
// on top of the built-in lists.
type ValidatorConfig struct {
	Mode          VocabularyMode
	ExtraCities   []string
	ExtraProducts []string
}

// NewValidator creates a Validator.
func NewValidator(cfg ValidatorConfig, logger *utils.Logger) *Validator {
	mode := cfg.Mode
	if mode == "" {
		mode = VocabularyAdvisory
	}
	v := &Validator{
		mode:       mode,
		cities:     newVocabulary(DefaultCities, cfg.ExtraCities),
		products:   newVocabulary(DefaultProducts, cfg.ExtraProducts),
		trends:     make(map[string]struct{}, len(models.Trends)),
		categories: make(map[string]struct{}, len(models.Categories)),
		logger:     logger,
	}
	for _, t := range models.Trends {
		v.trends[t] = struct{}{}
	}
	for _, c := range models.Categories {
		v.categories[c] = struct{}{}
	}
	return v
}

// ValidateRecord normalizes the text fields of rec and runs every check in
// order: city, product, prices, trend, category. The first failing check is
// returned as a *RejectionError.
func (v *Validator) ValidateRecord(rec models.Record) (models.ValidatedRecord, error) {
	rec.City = NormalizeText(rec.City)
	rec.Product = NormalizeText(rec.Product)
	rec.Market = NormalizeText(rec.Market)
	out := models.ValidatedRecord{Record: rec}

	if rec.City == "" {
		return out, &RejectionError{Check: CheckCity, Value: rec.City}
	}
	if v.mode != VocabularyOff && !v.cities.contains(rec.City) {
		if v.mode == VocabularyStrict {
			return out, &RejectionError{Check: CheckCity, Value: rec.City}
		}
		out.UnknownCity = true
	}

	if rec.Product == "" {
		return out, &RejectionError{Check: CheckProduct, Value: rec.Product}
	}
	if v.mode != VocabularyOff && !v.products.contains(rec.Product) {
		if v.mode == VocabularyStrict {
			return out, &RejectionError{Check: CheckProduct, Value: rec.Product}
		}
		out.UnknownProduct = true
	}

	for _, p := range []float64{rec.PriceMin, rec.PriceMax, rec.PriceAvg} {
		if p < 0 || math.IsNaN(p) {
			return out, &RejectionError{Check: CheckPrice, Value: fmt.Sprintf("%g", p)}
		}
	}

	if _, ok := v.trends[rec.Trend]; !ok {
		return out, &RejectionError{Check: CheckTrend, Value: rec.Trend}
	}
	if _, ok := v.categories[rec.Category]; !ok {
		return out, &RejectionError{Check: CheckCategory, Value: rec.Category}
	}
	return out, nil
}

// Validate keeps the records that pass every check and reports how many
// were rejected, and by which check.
func (v *Validator) Validate(file string, recs []models.Record) ([]models.ValidatedRecord, ValidationReport) {
	report := ValidationReport{Total: len(recs), ByCheck: make(map[Check]int)}
	out := make([]models.ValidatedRecord, 0, len(recs))

	for _, rec := range recs {
		vr, err := v.ValidateRecord(rec)
		if err != nil {
			report.Rejected++
			if rej, ok := err.(*RejectionError); ok {
				report.ByCheck[rej.Check]++
			}
			continue
		}
		if vr.UnknownCity {
			report.UnknownCities++
		}
		if vr.UnknownProduct {
			report.UnknownProducts++
		}
		out = append(out, vr)
	}
	report.Valid = len(out)

	if report.Rejected > 0 {
		v.logger.Warn("[validator] %s: %d of %d records rejected %v",
			file, report.Rejected, report.Total, report.ByCheck)
	}
	if report.UnknownCities > 0 || report.UnknownProducts > 0 {
		v.logger.Debug("[validator] %s: %d unknown cities, %d unknown products",
			file, report.UnknownCities, report.UnknownProducts)
	}
	return out, report
}
