package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeAndSplitSections(t *testing.T) {
	rows := [][]string{
		{"Boletín semanal"},
		{""},
		{"Cuadro 1. Verduras"},
		{"Mercado", "Mínimo", "Máximo", "Medio", "Tendencia"},
		{"Acelga", ""},
		{"Bogotá", "1", "2", "3", "+"},
		{"Tunja", "1", "2", "3", "="},
		{"Cuadro 2. Frutas"},
		{"Mora", ""},
		{"Pasto", "4", "5", "6", "-"},
	}
	rules := Rules{
		Keep:      func(row []string) bool { return rowCell(row, 0) != "" },
		IsSection: func(row []string) bool { return strings.Contains(strings.ToLower(rowCell(row, 0)), "cuadro") },
		IsProduct: func(row []string) bool { return rowCell(row, 1) == "" },
	}

	events := Tokenize(rows, rules)
	require.Len(t, events, 9)
	assert.Equal(t, EventProductHeader, events[0].Kind, "title row with no prices looks like a product header")
	assert.Equal(t, EventSectionHeader, events[1].Kind)
	assert.Equal(t, 2, events[1].Row)

	sections := SplitSections(events)
	require.Len(t, sections, 2)

	assert.Equal(t, 0, sections[0].Index)
	require.Len(t, sections[0].Blocks, 1)
	assert.Equal(t, "Acelga", sections[0].Blocks[0].Product)
	assert.Len(t, sections[0].Blocks[0].Rows, 2)

	assert.Equal(t, 1, sections[1].Index)
	require.Len(t, sections[1].Blocks, 1)
	assert.Equal(t, "Mora", sections[1].Blocks[0].Product)
	assert.Equal(t, 9, sections[1].Blocks[0].Rows[0].Row)
}

func TestSplitSectionsWithoutHeaders(t *testing.T) {
	events := []Event{
		{Kind: EventProductHeader, Cells: []string{"Acelga"}},
		{Kind: EventDataRow, Cells: []string{"Tunja", "1"}},
	}
	assert.Empty(t, SplitSections(events))
}
