package storage

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebmatecho/sipsa-tracker/models"
	"github.com/sebmatecho/sipsa-tracker/utils"
)

func newTestSink(t *testing.T, batchSize int) *Sink {
	t.Helper()
	s, err := OpenSink(t.Context(), SinkConfig{
		Driver:    DriverSQLite,
		DSN:       filepath.Join(t.TempDir(), "sipsa.db"),
		Table:     "product_prices",
		BatchSize: batchSize,
	}, utils.NewLoggerTo(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecords(n int, category string) []models.ValidatedRecord {
	out := make([]models.ValidatedRecord, n)
	for i := range out {
		out[i] = models.ValidatedRecord{Record: models.Record{
			Product: "papa", City: "bogota", Category: category,
			PriceMin: 1000, PriceMax: 1400, PriceAvg: 1200,
			Trend: "+", Week: 3, Year: 2016,
		}}
	}
	out[0].Market = "corabastos"
	return out
}

func countRows(t *testing.T, s *Sink) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM product_prices").Scan(&n))
	return n
}

func TestSinkIngestSplitsIntoBatches(t *testing.T) {
	s := newTestSink(t, 4)

	n, err := s.Ingest(t.Context(), sampleRecords(10, "verduras_hortalizas"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, 10, countRows(t, s))
}

func TestSinkStoresColumnContract(t *testing.T) {
	s := newTestSink(t, 0)
	_, err := s.Ingest(t.Context(), sampleRecords(2, "carnes"))
	require.NoError(t, err)

	rows, err := s.db.Query(`SELECT producto, ciudad, precio_minimo, precio_maximo, precio_medio,
		tendencia, categoria, mercado, semana_no, anho FROM product_prices ORDER BY mercado IS NULL`)
	require.NoError(t, err)
	defer rows.Close()

	var got []models.Record
	for rows.Next() {
		var r models.Record
		var market sql.NullString
		require.NoError(t, rows.Scan(&r.Product, &r.City, &r.PriceMin, &r.PriceMax, &r.PriceAvg,
			&r.Trend, &r.Category, &market, &r.Week, &r.Year))
		r.Market = market.String
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 2)
	assert.Equal(t, "corabastos", got[0].Market)
	assert.Equal(t, "", got[1].Market)
	assert.Equal(t, 1200.0, got[0].PriceAvg)
	assert.Equal(t, 2016, got[0].Year)
}

func TestSinkIngestRollsBackOnFailure(t *testing.T) {
	s := newTestSink(t, 2)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := s.Ingest(ctx, sampleRecords(5, "carnes"))
	require.Error(t, err)
	assert.Equal(t, 0, countRows(t, s))
}

func TestSinkCountByCategory(t *testing.T) {
	s := newTestSink(t, 0)
	ctx := t.Context()

	_, err := s.Ingest(ctx, sampleRecords(3, "carnes"))
	require.NoError(t, err)
	_, err = s.Ingest(ctx, sampleRecords(2, "pescados"))
	require.NoError(t, err)

	counts, err := s.CountByCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"carnes": 3, "pescados": 2}, counts)
}

func TestSinkRejectsBadTableName(t *testing.T) {
	db, err := sql.Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSink(t.Context(), db, DriverSQLite, "prices; DROP TABLE x", 0, utils.NewLoggerTo(io.Discard))
	assert.Error(t, err)
}

func TestSinkPlaceholders(t *testing.T) {
	pg := &Sink{driver: DriverPostgres}
	lite := &Sink{driver: DriverSQLite}

	assert.Equal(t, "($11,$12,$13)", pg.placeholders(10, 3))
	assert.Equal(t, "(?,?,?)", lite.placeholders(10, 3))
}

func TestOpenSinkUnknownDriver(t *testing.T) {
	_, err := OpenSink(t.Context(), SinkConfig{Driver: "oracle"}, utils.NewLoggerTo(io.Discard))
	assert.Error(t, err)
}
