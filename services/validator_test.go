package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebmatecho/sipsa-tracker/models"
)

func validRecord() models.Record {
	return models.Record{
		Product:  "Acelga",
		City:     "Bogotá",
		Category: "verduras_hortalizas",
		PriceMin: 1000,
		PriceMax: 1400,
		PriceAvg: 1200,
		Trend:    "+",
		Week:     3,
		Year:     2016,
	}
}

func TestNormalizeText(t *testing.T) {
	cases := map[string]string{
		"Medellín":                  "medellin",
		"La Central":                "la_central",
		"Bogotá, D.C. (Corabastos)": "bogota_d.c.",
		"  Tomate   chonto ":        "tomate_chonto",
		"Cúcuta (Cenabastos)":       "cucuta",
		"Peñol":                     "penol",
		"Güepsa":                    "guepsa",
		"papa)":                     "papa",
		"":                          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeText(in), in)
	}
}

func TestNormalizeTextIsIdempotent(t *testing.T) {
	inputs := []string{
		"Medellín, La Central", "Bogotá, D.C. (Corabastos)", "  ÑAME  criollo ",
		"Papa (( rara", "cebolla_junca", "Mora de Castilla",
	}
	for _, in := range inputs {
		once := NormalizeText(in)
		assert.Equal(t, once, NormalizeText(once), in)
	}
}

func TestValidateRecordNormalizesText(t *testing.T) {
	v := NewValidator(ValidatorConfig{}, newTestLogger())

	rec := validRecord()
	rec.City = "Medellín"
	rec.Market = "La Central"
	got, err := v.ValidateRecord(rec)
	require.NoError(t, err)

	assert.Equal(t, "medellin", got.City)
	assert.Equal(t, "la_central", got.Market)
	assert.Equal(t, "acelga", got.Product)
	assert.False(t, got.UnknownCity)
	assert.False(t, got.UnknownProduct)
}

func TestValidateRecordTrend(t *testing.T) {
	v := NewValidator(ValidatorConfig{}, newTestLogger())

	rec := validRecord()
	rec.Trend = "++"
	_, err := v.ValidateRecord(rec)
	assert.NoError(t, err)

	rec.Trend = "x"
	_, err = v.ValidateRecord(rec)
	var rej *RejectionError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, CheckTrend, rej.Check)
}

func TestValidateRecordRejections(t *testing.T) {
	v := NewValidator(ValidatorConfig{}, newTestLogger())

	cases := []struct {
		name  string
		mut   func(*models.Record)
		check Check
	}{
		{"negative price", func(r *models.Record) { r.PriceMin = -1 }, CheckPrice},
		{"unknown category", func(r *models.Record) { r.Category = "bebidas" }, CheckCategory},
		{"empty city", func(r *models.Record) { r.City = " (n.d.) " }, CheckCity},
		{"empty product", func(r *models.Record) { r.Product = "" }, CheckProduct},
	}
	for _, tc := range cases {
		rec := validRecord()
		tc.mut(&rec)
		_, err := v.ValidateRecord(rec)
		var rej *RejectionError
		if assert.True(t, errors.As(err, &rej), tc.name) {
			assert.Equal(t, tc.check, rej.Check, tc.name)
		}
	}
}

func TestVocabularyModes(t *testing.T) {
	rec := validRecord()
	rec.City = "Atlantis"
	rec.Product = "Maracuyá"

	advisory := NewValidator(ValidatorConfig{Mode: VocabularyAdvisory}, newTestLogger())
	got, err := advisory.ValidateRecord(rec)
	require.NoError(t, err)
	assert.True(t, got.UnknownCity)
	assert.True(t, got.UnknownProduct)

	off := NewValidator(ValidatorConfig{Mode: VocabularyOff}, newTestLogger())
	got, err = off.ValidateRecord(rec)
	require.NoError(t, err)
	assert.False(t, got.UnknownCity)

	strict := NewValidator(ValidatorConfig{Mode: VocabularyStrict}, newTestLogger())
	_, err = strict.ValidateRecord(rec)
	var rej *RejectionError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, CheckCity, rej.Check)

	extended := NewValidator(ValidatorConfig{
		Mode:          VocabularyStrict,
		ExtraCities:   []string{"Atlantis"},
		ExtraProducts: []string{"maracuyá"},
	}, newTestLogger())
	_, err = extended.ValidateRecord(rec)
	assert.NoError(t, err)
}

func TestValidateIsSound(t *testing.T) {
	v := NewValidator(ValidatorConfig{Mode: VocabularyAdvisory}, newTestLogger())

	good := validRecord()
	badTrend := validRecord()
	badTrend.Trend = "x"
	badPrice := validRecord()
	badPrice.PriceAvg = -5
	unknown := validRecord()
	unknown.Product = "Guanábana"

	out, report := v.Validate("week_3_a.xls", []models.Record{good, badTrend, badPrice, unknown})

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.Valid)
	assert.Equal(t, 2, report.Rejected)
	assert.Equal(t, 1, report.ByCheck[CheckTrend])
	assert.Equal(t, 1, report.ByCheck[CheckPrice])
	assert.Equal(t, 1, report.UnknownProducts)

	trends := map[string]bool{}
	for _, tr := range models.Trends {
		trends[tr] = true
	}
	categories := map[string]bool{}
	for _, c := range models.Categories {
		categories[c] = true
	}
	for _, r := range out {
		assert.GreaterOrEqual(t, r.PriceMin, 0.0)
		assert.GreaterOrEqual(t, r.PriceMax, 0.0)
		assert.GreaterOrEqual(t, r.PriceAvg, 0.0)
		assert.True(t, trends[r.Trend])
		assert.True(t, categories[r.Category])
		assert.Equal(t, r.City, NormalizeText(r.City))
	}
}

func TestParseVocabularyMode(t *testing.T) {
	m, err := ParseVocabularyMode("")
	require.NoError(t, err)
	assert.Equal(t, VocabularyAdvisory, m)

	m, err = ParseVocabularyMode(" STRICT ")
	require.NoError(t, err)
	assert.Equal(t, VocabularyStrict, m)

	_, err = ParseVocabularyMode("lenient")
	assert.Error(t, err)
}

func TestLoadVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.txt")
	require.NoError(t, os.WriteFile(path, []byte("# extra cities\nTuluá\n\n  Palmira \n"), 0o644))

	terms, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tuluá", "Palmira"}, terms)

	_, err = LoadVocabulary(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
