// Package pipeline drives a run: collect new bulletins from the site into the
// object store, then parse, validate and ingest every stored bulletin that is
// not loaded yet.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sebmatecho/sipsa-tracker/models"
	"github.com/sebmatecho/sipsa-tracker/parser"
	"github.com/sebmatecho/sipsa-tracker/services"
	"github.com/sebmatecho/sipsa-tracker/storage"
	"github.com/sebmatecho/sipsa-tracker/utils"
)

// ErrIngestionFailed is returned by Run when at least one file could not be
// written to the sink.
var ErrIngestionFailed = errors.New("ingestion failed")

// Catalog lists the bulletins published on the site.
type Catalog interface {
	Catalog(ctx context.Context) ([]models.SourceFile, error)
}

// Downloader fetches one bulletin.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Tracker is the progress ledger.
type Tracker interface {
	Has(file string) bool
	IsLoaded(file string) bool
	Add(file, link string) bool
	Save(ctx context.Context) error
	MarkLoaded(ctx context.Context, file string) error
}

// Sink receives validated records, one file per call.
type Sink interface {
	Ingest(ctx context.Context, records []models.ValidatedRecord) (int, error)
	CountByCategory(ctx context.Context) (map[string]int, error)
}

// Recorder receives per-file metrics. May be nil.
type Recorder interface {
	ObserveOutcome(o models.FileOutcome, took time.Duration)
	IncFetched()
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Catalog    Catalog
	Downloader Downloader
	Store      storage.ObjectStore
	Tracker    Tracker
	Parsers    map[models.Layout]parser.Parser
	Normalizer *services.Normalizer
	Validator  *services.Validator
	Sink       Sink
	Metrics    Recorder
}

// Options tune a run.
type Options struct {
	ReportsPrefix  string
	MaxConcurrency int
	RateLimitMs    int
	SkipCollection bool
}

// Orchestrator runs the collect and process stages.
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *utils.Logger
}

// New creates an Orchestrator.
func New(deps Deps, opts Options, logger *utils.Logger) *Orchestrator {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	if deps.Metrics == nil {
		deps.Metrics = noopRecorder{}
	}
	return &Orchestrator{deps: deps, opts: opts, logger: logger}
}

// Run executes one full pipeline pass and returns its report. The report is
// returned even when the error is non-nil.
func (o *Orchestrator) Run(ctx context.Context) (*models.RunReport, error) {
	report := &models.RunReport{
		RunID:          uuid.NewString(),
		StartedAt:      time.Now(),
		RowsByCategory: map[string]int{},
		RowsByRegion:   map[string]int{},
	}
	o.logger.Info("[pipeline] Run %s starting", report.RunID)

	if o.opts.SkipCollection {
		o.logger.Info("[pipeline] Collection skipped")
	} else if err := o.Collect(ctx, report); err != nil {
		if ctx.Err() != nil {
			report.FinishedAt = time.Now()
			return report, err
		}
		// Whatever is already stored can still be loaded.
		o.logger.Error("[pipeline] Collection failed: %v", err)
	}

	failed, err := o.Process(ctx, report)
	report.FinishedAt = time.Now()
	if err != nil {
		return report, err
	}

	if counts, cerr := o.deps.Sink.CountByCategory(ctx); cerr != nil {
		o.logger.Warn("[pipeline] Could not count rows by category: %v", cerr)
	} else {
		report.RowsByCategory = counts
	}

	if failed > 0 {
		return report, fmt.Errorf("pipeline: %d file(s) not ingested: %w", failed, ErrIngestionFailed)
	}
	return report, nil
}

// Collect downloads every catalogued bulletin that has no tracker entry yet
// and stores it under its storage key. The tracker is saved after each year.
func (o *Orchestrator) Collect(ctx context.Context, report *models.RunReport) error {
	files, err := o.deps.Catalog.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: catalog: %w", err)
	}
	report.Discovered = len(files)
	o.logger.Info("[pipeline] Catalog lists %d bulletins", len(files))

	pool := utils.NewWorkerPool(o.opts.MaxConcurrency, o.opts.RateLimitMs)
	var mu sync.Mutex

	for _, group := range groupByYear(files) {
		for _, f := range group {
			if o.deps.Tracker.Has(f.FileName()) {
				continue
			}
			file := f
			ok := pool.Submit(ctx, func() {
				if err := o.fetch(ctx, file); err != nil {
					o.logger.Error("[pipeline] %s: %v", file.FileName(), err)
					return
				}
				mu.Lock()
				report.Fetched++
				mu.Unlock()
				o.deps.Metrics.IncFetched()
			})
			if !ok {
				break
			}
		}
		pool.Wait()

		// Persist what was fetched even when the run is being cancelled.
		if err := o.deps.Tracker.Save(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("pipeline: save tracker after %s: %w", group[0].YearLabel, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	o.logger.Info("[pipeline] Collected %d new bulletins", report.Fetched)
	return nil
}

func (o *Orchestrator) fetch(ctx context.Context, file models.SourceFile) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	data, err := o.deps.Downloader.Download(ctx, file.Link)
	if err != nil {
		return err
	}
	if err := o.deps.Store.Put(ctx, file.StorageKey, data); err != nil {
		return err
	}
	o.deps.Tracker.Add(file.FileName(), file.Link)
	o.logger.Debug("[pipeline] Stored %s (%d bytes)", file.StorageKey, len(data))
	return nil
}

// groupByYear splits files into runs of the same year label, keeping order.
func groupByYear(files []models.SourceFile) [][]models.SourceFile {
	var groups [][]models.SourceFile
	for _, f := range files {
		n := len(groups)
		if n == 0 || groups[n-1][0].YearLabel != f.YearLabel {
			groups = append(groups, nil)
			n++
		}
		groups[n-1] = append(groups[n-1], f)
	}
	return groups
}

// prepared is the output of the parallel stage for one file.
type prepared struct {
	layout  models.Layout
	records []models.ValidatedRecord
	outcome models.FileOutcome
	err     error
	started time.Time
}

// Process parses and ingests every stored bulletin not yet loaded. It returns
// the number of files whose ingestion failed.
func (o *Orchestrator) Process(ctx context.Context, report *models.RunReport) (int, error) {
	keys, err := o.deps.Store.List(ctx, o.opts.ReportsPrefix)
	if err != nil {
		return 0, fmt.Errorf("pipeline: list %s: %w", o.opts.ReportsPrefix, err)
	}

	var pending []models.SourceFile
	for _, key := range keys {
		if !parser.IsWorkbook(key) {
			continue
		}
		file, err := models.ParseStorageKey(key)
		if err != nil {
			o.logger.Warn("[pipeline] Ignoring %s: %v", key, err)
			continue
		}
		if o.deps.Tracker.IsLoaded(file.FileName()) {
			report.AlreadyLoaded++
			continue
		}
		pending = append(pending, file)
	}
	o.logger.Info("[pipeline] %d bulletins to process, %d already loaded", len(pending), report.AlreadyLoaded)

	results := make(chan prepared, o.opts.MaxConcurrency)
	failed := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range results {
			outcome := o.commit(ctx, res, report)
			if outcome.Status == models.StatusFailed {
				failed++
			}
			report.Outcomes = append(report.Outcomes, outcome)
			o.deps.Metrics.ObserveOutcome(outcome, time.Since(res.started))
		}
	}()

	pool := utils.NewWorkerPool(o.opts.MaxConcurrency, 0)
	for _, f := range pending {
		file := f
		if !pool.Submit(ctx, func() { results <- o.prepare(ctx, file) }) {
			break
		}
	}
	pool.Wait()
	close(results)
	<-done

	slices.SortFunc(report.Outcomes, func(a, b models.FileOutcome) int {
		return strings.Compare(a.File, b.File)
	})
	if err := ctx.Err(); err != nil {
		return failed, err
	}
	return failed, nil
}

// prepare runs get, classify, parse, normalize and validate for one file.
func (o *Orchestrator) prepare(ctx context.Context, file models.SourceFile) prepared {
	res := prepared{started: time.Now()}
	name := file.FileName()
	res.layout = parser.Classify(file.Year, file.Week)
	res.outcome = models.FileOutcome{File: name, Layout: res.layout}

	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}

	data, err := o.deps.Store.Get(ctx, file.StorageKey)
	if err != nil {
		res.err = fmt.Errorf("get: %w", err)
		return res
	}

	p, ok := o.deps.Parsers[res.layout]
	if !ok {
		res.err = fmt.Errorf("no parser for %s", res.layout)
		return res
	}
	raws, err := p.Parse(file, data)
	if err != nil {
		res.err = err
		return res
	}
	res.outcome.Parsed = len(raws)

	recs, nrep := o.deps.Normalizer.Normalize(name, raws)
	res.outcome.Dropped = nrep.Dropped

	valid, vrep := o.deps.Validator.Validate(name, recs)
	res.outcome.Rejected = vrep.Rejected
	res.records = valid
	return res
}

// commit runs on the single ingest goroutine: write the records, then mark
// the file loaded.
func (o *Orchestrator) commit(ctx context.Context, res prepared, report *models.RunReport) models.FileOutcome {
	out := res.outcome
	name := out.File

	switch {
	case res.err != nil:
		out.Status = models.StatusSkipped
		out.Reason = res.err.Error()
		o.logger.Warn("[pipeline] %s: skipped: %v", name, res.err)
		return out
	case ctx.Err() != nil:
		out.Status = models.StatusSkipped
		out.Reason = ctx.Err().Error()
		return out
	}

	n, err := o.deps.Sink.Ingest(ctx, res.records)
	if err != nil {
		out.Status = models.StatusFailed
		out.Reason = err.Error()
		o.logger.Error("[pipeline] %s: ingestion failed: %v", name, err)
		return out
	}
	out.Rows = n

	// The rows are committed; the ledger must learn it even if the run is
	// being cancelled, or the next run ingests the file again.
	if err := o.deps.Tracker.MarkLoaded(context.WithoutCancel(ctx), name); err != nil {
		// Rows are committed but the ledger does not know it.
		out.Status = models.StatusFailed
		out.Reason = err.Error()
		o.logger.Error("[pipeline] %s: %d rows written but tracker not updated: %v", name, n, err)
		return out
	}

	if n == 0 {
		out.Status = models.StatusEmpty
		o.logger.Warn("[pipeline] %s: no records survived (parsed %d, dropped %d, rejected %d)",
			name, out.Parsed, out.Dropped, out.Rejected)
		return out
	}

	out.Status = models.StatusLoaded
	for _, r := range res.records {
		report.RowsByRegion[r.Region]++
	}
	o.logger.Info("[pipeline] %s: loaded %d rows (%s, dropped %d, rejected %d)",
		name, n, out.Layout, out.Dropped, out.Rejected)
	return out
}

type noopRecorder struct{}

func (noopRecorder) ObserveOutcome(models.FileOutcome, time.Duration) {}
func (noopRecorder) IncFetched()                                      {}
