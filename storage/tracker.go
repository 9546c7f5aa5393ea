package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sebmatecho/sipsa-tracker/models"
	"github.com/sebmatecho/sipsa-tracker/utils"
)

const trackerDateLayout = "2006-01-02"

var trackerHeader = []string{"file", "link", "date_added", "loaded"}

// Tracker is the durable ledger of which bulletins have been fetched and
// which have been loaded into the sink. It lives as one CSV object in the
// store. Reads are safe for concurrent use; writes are serialized.
type Tracker struct {
	store  ObjectStore
	key    string
	logger *utils.Logger

	mu      sync.RWMutex
	entries []models.TrackerEntry
	index   map[string]int

	now func() time.Time
}

// NewTracker creates an empty tracker bound to key in store. Call Load
// before use to read the persisted state.
func NewTracker(store ObjectStore, key string, logger *utils.Logger) *Tracker {
	return &Tracker{
		store:  store,
		key:    key,
		logger: logger,
		index:  make(map[string]int),
		now:    time.Now,
	}
}

// Load replaces the in-memory table with the persisted one. A missing object
// yields an empty tracker.
func (t *Tracker) Load(ctx context.Context) error {
	data, err := t.store.Get(ctx, t.key)
	if errors.Is(err, ErrNotFound) {
		t.logger.Info("[tracker] %s not found, starting with an empty tracker", t.key)
		t.reset(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("tracker: load: %w", err)
	}

	entries, err := decodeTracker(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("tracker: decode %s: %w", t.key, err)
	}
	t.reset(entries)
	t.logger.Info("[tracker] Loaded %d entries from %s", len(entries), t.key)
	return nil
}

func (t *Tracker) reset(entries []models.TrackerEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = t.entries[:0]
	t.index = make(map[string]int, len(entries))
	for _, e := range entries {
		if i, ok := t.index[e.File]; ok {
			// Duplicate rows: keep the first, but a loaded flag anywhere wins.
			t.entries[i].Loaded = t.entries[i].Loaded || e.Loaded
			continue
		}
		t.index[e.File] = len(t.entries)
		t.entries = append(t.entries, e)
	}
}

// Save writes the whole table back to the store.
func (t *Tracker) Save(ctx context.Context) error {
	t.mu.RLock()
	var buf bytes.Buffer
	err := encodeTracker(&buf, t.entries)
	n := len(t.entries)
	t.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("tracker: encode: %w", err)
	}

	if err := t.store.Put(ctx, t.key, buf.Bytes()); err != nil {
		return fmt.Errorf("tracker: save: %w", err)
	}
	t.logger.Debug("[tracker] Saved %d entries to %s", n, t.key)
	return nil
}

// Add records a newly fetched file. It returns false when an entry with the
// same file name already exists.
func (t *Tracker) Add(file, link string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.index[file]; ok {
		return false
	}
	t.index[file] = len(t.entries)
	t.entries = append(t.entries, models.TrackerEntry{
		File:      file,
		Link:      link,
		DateAdded: t.now(),
	})
	return true
}

// Has reports whether the file has an entry (fetched or loaded).
func (t *Tracker) Has(file string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.index[file]
	return ok
}

// IsLoaded reports whether the file has already been loaded into the sink.
func (t *Tracker) IsLoaded(file string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[file]
	return ok && t.entries[i].Loaded
}

// MarkLoaded flags file as loaded and persists the table immediately. Files
// present in the store without an entry get one with an empty link.
func (t *Tracker) MarkLoaded(ctx context.Context, file string) error {
	t.mu.Lock()
	i, ok := t.index[file]
	if !ok {
		i = len(t.entries)
		t.index[file] = i
		t.entries = append(t.entries, models.TrackerEntry{File: file, DateAdded: t.now()})
	}
	t.entries[i].Loaded = true
	t.mu.Unlock()

	return t.Save(ctx)
}

// Entries returns a copy of the table in insertion order.
func (t *Tracker) Entries() []models.TrackerEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.TrackerEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

func encodeTracker(w io.Writer, entries []models.TrackerEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(trackerHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, e := range entries {
		date := ""
		if !e.DateAdded.IsZero() {
			date = e.DateAdded.Format(trackerDateLayout)
		}
		if err := cw.Write([]string{e.File, e.Link, date, yesNo(e.Loaded)}); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// decodeTracker reads the ledger by header name, so column order does not
// matter and the legacy rds_load column is understood.
func decodeTracker(r io.Reader) ([]models.TrackerEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	fileCol, ok := cols["file"]
	if !ok {
		return nil, errors.New("csv: missing \"file\" column")
	}
	loadedCol, ok := cols["loaded"]
	if !ok {
		loadedCol, ok = cols["rds_load"]
	}
	if !ok {
		loadedCol = -1
	}
	linkCol, hasLink := cols["link"]
	dateCol, hasDate := cols["date_added"]

	field := func(row []string, i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var entries []models.TrackerEntry
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row: %w", err)
		}
		file := field(row, fileCol)
		if file == "" {
			continue
		}

		e := models.TrackerEntry{File: file, Loaded: parseYesNo(field(row, loadedCol))}
		if hasLink {
			e.Link = field(row, linkCol)
		}
		if hasDate {
			if d := field(row, dateCol); d != "" {
				// Older ledgers stored full timestamps; the date part is enough.
				if len(d) > len(trackerDateLayout) {
					d = d[:len(trackerDateLayout)]
				}
				if ts, err := time.Parse(trackerDateLayout, d); err == nil {
					e.DateAdded = ts
				}
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func parseYesNo(s string) bool {
	switch strings.ToLower(s) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}
