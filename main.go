package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sebmatecho/sipsa-tracker/config"
	"github.com/sebmatecho/sipsa-tracker/metrics"
	"github.com/sebmatecho/sipsa-tracker/models"
	"github.com/sebmatecho/sipsa-tracker/parser"
	"github.com/sebmatecho/sipsa-tracker/pipeline"
	"github.com/sebmatecho/sipsa-tracker/scraper/dane"
	"github.com/sebmatecho/sipsa-tracker/services"
	"github.com/sebmatecho/sipsa-tracker/storage"
	"github.com/sebmatecho/sipsa-tracker/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := utils.NewLogger()
	var logBuf bytes.Buffer
	logger.Capture(&logBuf)

	cfg := config.Load()
	logger.SetDebug(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== SIPSA ingestion starting ===")
	logger.Info("Config: store=%s | sink=%s | fetch=%s | concurrency: %d | rate: %dms",
		cfg.StoreBackend, cfg.SinkDriver, cfg.FetchMode, cfg.MaxConcurrency, cfg.RateLimitMs)

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open object store: %v", err)
		return 1
	}

	tracker := storage.NewTracker(store, cfg.TrackerKey, logger)
	if err := tracker.Load(ctx); err != nil {
		logger.Error("Failed to load tracker: %v", err)
		return 1
	}

	retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second, Logger: logger}
	httpSource := dane.NewHTTPSource(dane.NewHTTPClient(cfg.HTTPTimeout), cfg.UserAgent, cfg.HTTPTimeout, retry, logger)

	var pages dane.PageSource = httpSource
	if cfg.FetchMode == "browser" {
		browser := dane.NewBrowserSource(cfg.ChromeBin, cfg.UserAgent, cfg.HTTPTimeout, retry, logger)
		defer browser.Close()
		pages = browser
	}
	walker := dane.NewWalker(pages, cfg.IndexURL, cfg.ReportsPrefix, logger)

	validator, err := newValidator(cfg, logger)
	if err != nil {
		logger.Error("Invalid validation settings: %v", err)
		return 1
	}

	sink, err := storage.OpenSink(ctx, storage.SinkConfig{
		Driver:    cfg.SinkDriver,
		DSN:       sinkDSN(cfg),
		Table:     cfg.TableName,
		BatchSize: cfg.BatchSize,
	}, logger)
	if err != nil {
		logger.Error("Failed to open %s sink: %v", cfg.SinkDriver, err)
		if cfg.SinkDriver == storage.DriverPostgres {
			logger.Error("Make sure Docker is running: docker compose up -d")
		}
		return 1
	}
	defer sink.Close()

	pm, err := metrics.New()
	if err != nil {
		logger.Error("Failed to set up metrics: %v", err)
		return 1
	}

	orch := pipeline.New(pipeline.Deps{
		Catalog:    walker,
		Downloader: httpSource,
		Store:      store,
		Tracker:    tracker,
		Parsers: map[models.Layout]parser.Parser{
			models.LayoutA: parser.NewLayoutAParser(logger),
			models.LayoutB: parser.NewLayoutBParser(logger),
		},
		Normalizer: services.NewNormalizer(logger),
		Validator:  validator,
		Sink:       sink,
		Metrics:    pm,
	}, pipeline.Options{
		ReportsPrefix:  cfg.ReportsPrefix,
		MaxConcurrency: cfg.MaxConcurrency,
		RateLimitMs:    cfg.RateLimitMs,
		SkipCollection: cfg.SkipCollection,
	}, logger)

	report, runErr := orch.Run(ctx)
	services.NewSummaryService(logger, nil).Print(report)
	pm.MarkRunFinished()

	exitCode := 0
	switch {
	case errors.Is(runErr, pipeline.ErrIngestionFailed):
		logger.Error("%v", runErr)
		exitCode = 1
	case runErr != nil:
		logger.Error("Run aborted: %v", runErr)
		exitCode = 1
	default:
		logger.Info("Run %s finished: %d rows ingested", report.RunID, report.RowsIngested())
	}

	if cfg.MetricsTextfile != "" {
		if err := pm.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Warn("%v", err)
		}
	}

	// The run log is archived even when the run was interrupted.
	logKey := fmt.Sprintf("%ssipsa_process_%s_%s.log",
		cfg.LogPrefix, report.StartedAt.Format("2006-01-02"), report.RunID)
	if err := store.Put(context.WithoutCancel(ctx), logKey, logBuf.Bytes()); err != nil {
		logger.Warn("Failed to upload run log: %v", err)
	} else {
		fmt.Printf("  Done. Run log → %s\n\n", logKey)
	}
	return exitCode
}

func openStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	switch cfg.StoreBackend {
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:       cfg.BucketName,
			Region:       cfg.AWSRegion,
			Profile:      cfg.AWSProfile,
			Endpoint:     cfg.S3Endpoint,
			UsePathStyle: cfg.S3PathStyle,
		})
	case "local":
		return storage.NewLocalStore(cfg.LocalStoreDir)
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

func sinkDSN(cfg *config.Config) string {
	if cfg.SinkDriver == storage.DriverSQLite {
		// modernc.org/sqlite does not create missing parent directories.
		_ = os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
		return cfg.SQLitePath
	}
	return cfg.DSN()
}

func newValidator(cfg *config.Config, logger *utils.Logger) (*services.Validator, error) {
	mode, err := services.ParseVocabularyMode(cfg.VocabularyMode)
	if err != nil {
		return nil, err
	}
	vc := services.ValidatorConfig{Mode: mode}
	if cfg.CityVocabularyFile != "" {
		if vc.ExtraCities, err = services.LoadVocabulary(cfg.CityVocabularyFile); err != nil {
			return nil, err
		}
	}
	if cfg.ProductVocabularyFile != "" {
		if vc.ExtraProducts, err = services.LoadVocabulary(cfg.ProductVocabularyFile); err != nil {
			return nil, err
		}
	}
	return services.NewValidator(vc, logger), nil
}
