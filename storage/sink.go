package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/sebmatecho/sipsa-tracker/models"
	"github.com/sebmatecho/sipsa-tracker/utils"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultBatchSize = 500
)

// sinkColumns is the relational column contract, in order.
var sinkColumns = []string{
	"producto", "ciudad", "precio_minimo", "precio_maximo", "precio_medio",
	"tendencia", "categoria", "mercado", "semana_no", "anho",
}

var identRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// SinkConfig selects the driver and target table of the relational sink.
type SinkConfig struct {
	Driver    string // DriverPostgres or DriverSQLite
	DSN       string // lib/pq connection string or SQLite file path
	Table     string
	BatchSize int
}

// Sink appends validated records to the product price table.
type Sink struct {
	db        *sql.DB
	driver    string
	table     string
	batchSize int
	logger    *utils.Logger
}

// OpenSink opens the database, waits for it to accept connections, creates
// the table if needed and returns a ready-to-use Sink.
func OpenSink(ctx context.Context, cfg SinkConfig, logger *utils.Logger) (*Sink, error) {
	driver := strings.ToLower(cfg.Driver)
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("sink: unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer connection; also keeps ":memory:" databases shared.
		db.SetMaxOpenConns(1)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		logger.Warn("[sink] %s not ready (attempt %d/10): %v", driver, i+1, err)
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("%s: ping: %w", driver, ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping failed after retries: %w", driver, err)
	}

	s, err := NewSink(ctx, db, driver, cfg.Table, cfg.BatchSize, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSink wraps an already open database and runs the schema migration.
func NewSink(ctx context.Context, db *sql.DB, driver, table string, batchSize int, logger *utils.Logger) (*Sink, error) {
	if !identRegexp.MatchString(table) {
		return nil, fmt.Errorf("sink: invalid table name %q", table)
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	s := &Sink{db: db, driver: driver, table: table, batchSize: batchSize, logger: logger}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("%s: migrate: %w", driver, err)
	}
	return s, nil
}

func (s *Sink) migrate(ctx context.Context) error {
	priceType := "DOUBLE PRECISION"
	if s.driver == DriverSQLite {
		priceType = "REAL"
	}

	stmts := []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			producto      TEXT    NOT NULL,
			ciudad        TEXT    NOT NULL,
			precio_minimo %[2]s   NOT NULL,
			precio_maximo %[2]s   NOT NULL,
			precio_medio  %[2]s   NOT NULL,
			tendencia     TEXT    NOT NULL,
			categoria     TEXT    NOT NULL,
			mercado       TEXT,
			semana_no     INTEGER NOT NULL,
			anho          INTEGER NOT NULL
		)`, s.table, priceType),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_periodo   ON %[1]s(anho, semana_no)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_categoria ON %[1]s(categoria)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_producto  ON %[1]s(producto)`, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Ingest appends all records of one file inside a single transaction, in
// batches of the configured size. On error nothing from the file is kept.
func (s *Sink) Ingest(ctx context.Context, records []models.ValidatedRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin: %w", s.driver, err)
	}

	total := 0
	for i := 0; i < len(records); i += s.batchSize {
		end := i + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		n, err := s.InsertBatch(ctx, tx, records[i:end])
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", s.driver, err)
	}
	return total, nil
}

// InsertBatch appends one multi-row INSERT within tx and returns the number
// of rows written.
func (s *Sink) InsertBatch(ctx context.Context, tx *sql.Tx, batch []models.ValidatedRecord) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	ncols := len(sinkColumns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*ncols)

	for idx, r := range batch {
		valueStrings = append(valueStrings, s.placeholders(idx*ncols, ncols))

		var market interface{}
		if r.Market != "" {
			market = r.Market
		}
		valueArgs = append(valueArgs,
			r.Product, r.City, r.PriceMin, r.PriceMax, r.PriceAvg,
			r.Trend, r.Category, market, r.Week, r.Year)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES %s`,
		s.table, strings.Join(sinkColumns, ", "), strings.Join(valueStrings, ","))

	res, err := tx.ExecContext(ctx, query, valueArgs...)
	if err != nil {
		return 0, fmt.Errorf("%s: insert batch: %w", s.driver, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(batch), nil
	}
	return int(n), nil
}

func (s *Sink) placeholders(base, n int) string {
	var b strings.Builder
	b.WriteByte('(')
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteByte(',')
		}
		if s.driver == DriverPostgres {
			fmt.Fprintf(&b, "$%d", base+i)
		} else {
			b.WriteByte('?')
		}
	}
	b.WriteByte(')')
	return b.String()
}

// CountByCategory returns the number of stored rows per category.
func (s *Sink) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT categoria, COUNT(*)
		FROM %s
		GROUP BY categoria
		ORDER BY categoria
	`, s.table))
	if err != nil {
		return nil, fmt.Errorf("%s: count by category: %w", s.driver, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", s.driver, err)
		}
		counts[cat] = n
	}
	return counts, rows.Err()
}

func (s *Sink) Close() error {
	return s.db.Close()
}
