package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCityMarket(t *testing.T) {
	cases := []struct {
		raw, city, market string
	}{
		{"Bogotá, D.C. (Corabastos)", "bogota", ""},
		{"Bogotá, D.C., Paloquemao", "bogota", "Paloquemao"},
		{"BOGOTÁ D.C.", "bogota", ""},
		{"Medellín, La Central", "Medellín", "La Central"},
		{"Medellín, Central Mayorista de Antioquia", "Medellín", "Central Mayorista de Antioquia"},
		{"Cali (Santa Helena)", "Cali", ""},
		{"  Pasto  ", "Pasto", ""},
		{"Cúcuta, Cenabastos, bodega 2", "Cúcuta", "Cenabastos, bodega 2"},
	}
	for _, tc := range cases {
		city, market := splitCityMarket(tc.raw)
		assert.Equal(t, tc.city, city, tc.raw)
		assert.Equal(t, tc.market, market, tc.raw)
	}
}
