// Package metrics exposes Prometheus counters for the ingestion pipeline.
// The process is a batch job, so the registry is written to a node_exporter
// textfile at the end of a run rather than served over HTTP.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sebmatecho/sipsa-tracker/models"
)

// PipelineMetrics contains all Prometheus metrics related to a pipeline run.
type PipelineMetrics struct {
	FilesProcessed   *prometheus.CounterVec
	RowsIngested     prometheus.Counter
	RecordsDropped   prometheus.Counter
	RecordsRejected  prometheus.Counter
	BulletinsFetched prometheus.Counter
	FileDuration     prometheus.Histogram
	LastRunTime      prometheus.Gauge
	registry         *prometheus.Registry
}

// New creates the pipeline metrics on a dedicated registry.
func New() (*PipelineMetrics, error) {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the pipeline metrics on registry.
func NewWithRegistry(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.FilesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sipsa_files_processed_total",
		Help: "Bulletins processed, by outcome status",
	}, []string{"status"})

	m.RowsIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sipsa_rows_ingested_total",
		Help: "Price rows appended to the sink",
	})

	m.RecordsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sipsa_records_dropped_total",
		Help: "Records dropped during price normalization",
	})

	m.RecordsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sipsa_records_rejected_total",
		Help: "Records rejected by validation",
	})

	m.BulletinsFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sipsa_bulletins_fetched_total",
		Help: "New bulletins downloaded into the object store",
	})

	m.FileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sipsa_file_duration_seconds",
		Help:    "Time spent processing one bulletin",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	m.LastRunTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sipsa_last_run_timestamp_seconds",
		Help: "Timestamp of the last completed run",
	})
}

// Describe implements prometheus.Collector.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.FilesProcessed.Describe(ch)
	m.RowsIngested.Describe(ch)
	m.RecordsDropped.Describe(ch)
	m.RecordsRejected.Describe(ch)
	m.BulletinsFetched.Describe(ch)
	m.FileDuration.Describe(ch)
	m.LastRunTime.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.FilesProcessed.Collect(ch)
	m.RowsIngested.Collect(ch)
	m.RecordsDropped.Collect(ch)
	m.RecordsRejected.Collect(ch)
	m.BulletinsFetched.Collect(ch)
	m.FileDuration.Collect(ch)
	m.LastRunTime.Collect(ch)
}

// ObserveOutcome records the result of one file.
func (m *PipelineMetrics) ObserveOutcome(o models.FileOutcome, took time.Duration) {
	m.FilesProcessed.WithLabelValues(string(o.Status)).Inc()
	m.RowsIngested.Add(float64(o.Rows))
	m.RecordsDropped.Add(float64(o.Dropped))
	m.RecordsRejected.Add(float64(o.Rejected))
	m.FileDuration.Observe(took.Seconds())
}

// IncFetched counts one newly stored bulletin.
func (m *PipelineMetrics) IncFetched() {
	m.BulletinsFetched.Inc()
}

// MarkRunFinished stamps the last-run gauge.
func (m *PipelineMetrics) MarkRunFinished() {
	m.LastRunTime.SetToCurrentTime()
}

// WriteTextfile writes the registry in the text exposition format to path.
func (m *PipelineMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}
