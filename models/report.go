package models

import "time"

// FileStatus is the outcome of processing one bulletin in a run.
type FileStatus string

const (
	StatusLoaded  FileStatus = "loaded"  // records ingested, tracker updated
	StatusEmpty   FileStatus = "empty"   // parsed fine but nothing survived; tracker updated
	StatusSkipped FileStatus = "skipped" // parse failure or unsupported file; eligible for retry
	StatusFailed  FileStatus = "failed"  // ingestion failure; eligible for retry
)

// FileOutcome records what happened to one file.
type FileOutcome struct {
	File     string
	Layout   Layout
	Status   FileStatus
	Parsed   int // raw records produced by the parser
	Dropped  int // dropped by the normalizer (price coercion)
	Rejected int // rejected by the validator
	Rows     int // rows ingested
	Reason   string
}

// RunReport aggregates the outcomes of one orchestrator run.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Discovered    int // catalog entries seen by the walker
	Fetched       int // new files downloaded into the store
	AlreadyLoaded int

	Outcomes []FileOutcome

	RowsByCategory map[string]int
	RowsByRegion   map[string]int
}

// Count returns the number of outcomes with the given status.
func (r *RunReport) Count(status FileStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// RowsIngested returns the total rows appended to the sink during the run.
func (r *RunReport) RowsIngested() int {
	total := 0
	for _, o := range r.Outcomes {
		total += o.Rows
	}
	return total
}
