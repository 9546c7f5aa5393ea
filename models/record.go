package models

// Categories is the fixed, ordered list of food categories used by every
// bulletin. Position i (0-based) is category number i+1 in the source files.
var Categories = []string{
	"verduras_hortalizas",
	"frutas_frescas",
	"tuberculos_raices_platanos",
	"granos_cereales",
	"huevos_lacteos",
	"carnes",
	"pescados",
	"productos_procesados",
}

// Trends is the set of trend symbols a bulletin may report.
var Trends = []string{"+", "-", "=", "++", "--", "+++", "---"}

// RawRecord is one price quote as it was read from a spreadsheet, before any
// coercion or validation. Prices keep their raw cell text.
type RawRecord struct {
	Product  string
	City     string
	Market   string // empty when the layout exposes no marketplace
	Category string
	PriceMin string
	PriceMax string
	PriceAvg string
	Trend    string
	Week     int
	Year     int
}

// Record is a RawRecord with numeric prices and a derived region.
type Record struct {
	Product  string
	City     string
	Market   string
	Category string
	PriceMin float64
	PriceMax float64
	PriceAvg float64
	Trend    string
	Week     int
	Year     int
	Region   string // empty when the city has no known region
}

// ValidatedRecord is a Record whose text fields are normalized and that
// passed every enforced check. Only these are persisted.
type ValidatedRecord struct {
	Record

	// Set in advisory vocabulary mode when the value is not in the vocabulary.
	UnknownCity    bool
	UnknownProduct bool
}
