package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sebmatecho/sipsa-tracker/models"
	"github.com/sebmatecho/sipsa-tracker/utils"
)

const maxBarWidth = 30

// SummaryService prints the end-of-run report.
type SummaryService struct {
	logger *utils.Logger
	out    io.Writer
}

// NewSummaryService writes to out, or stdout when out is nil.
func NewSummaryService(logger *utils.Logger, out io.Writer) *SummaryService {
	if out == nil {
		out = os.Stdout
	}
	return &SummaryService{logger: logger, out: out}
}

func (s *SummaryService) Print(r *models.RunReport) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  SIPSA INGESTION SUMMARY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Run id                 : %s\n", r.RunID)
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(w, "  Duration               : %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(w, "  Bulletins discovered   : \033[1m%d\033[0m\n", r.Discovered)
	fmt.Fprintf(w, "  Bulletins fetched      : \033[1m%d\033[0m\n", r.Fetched)
	fmt.Fprintf(w, "  Already loaded         : \033[1m%d\033[0m\n", r.AlreadyLoaded)
	fmt.Fprintln(w)

	// Files
	dropped, rejected := 0, 0
	for _, o := range r.Outcomes {
		dropped += o.Dropped
		rejected += o.Rejected
	}
	fmt.Fprintf(w, "\033[1;33m  Files processed\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Loaded   : \033[1;32m%d\033[0m\n", r.Count(models.StatusLoaded))
	fmt.Fprintf(w, "  Empty    : %d\n", r.Count(models.StatusEmpty))
	fmt.Fprintf(w, "  Skipped  : \033[1;33m%d\033[0m\n", r.Count(models.StatusSkipped))
	fmt.Fprintf(w, "  Failed   : \033[1;31m%d\033[0m\n", r.Count(models.StatusFailed))
	fmt.Fprintf(w, "  Rows ingested : \033[1m%d\033[0m (dropped %d, rejected %d)\n",
		r.RowsIngested(), dropped, rejected)
	fmt.Fprintln(w)

	var problems []models.FileOutcome
	for _, o := range r.Outcomes {
		if o.Status == models.StatusSkipped || o.Status == models.StatusFailed {
			problems = append(problems, o)
		}
	}
	if len(problems) > 0 {
		fmt.Fprintf(w, "\033[1;33m  Files needing attention\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		for _, o := range problems {
			fmt.Fprintf(w, "  %-7s %-40s %s\n", o.Status, truncate(o.File, 40), truncate(o.Reason, 60))
		}
		fmt.Fprintln(w)
	}

	s.printCounts(w, "Stored rows by category", r.RowsByCategory, thin)
	s.printCounts(w, "Rows ingested by region", r.RowsByRegion, thin)

	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)
}

func (s *SummaryService) printCounts(w io.Writer, title string, counts map[string]int, thin string) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(counts) == 0 {
		fmt.Fprintf(w, "  No data\n\n")
		return
	}

	type keyCount struct {
		key   string
		count int
	}
	var kcs []keyCount
	top := 0
	for k, n := range counts {
		if k == "" {
			k = "(unmapped)"
		}
		kcs = append(kcs, keyCount{k, n})
		if n > top {
			top = n
		}
	}
	sort.Slice(kcs, func(i, j int) bool {
		if kcs[i].count != kcs[j].count {
			return kcs[i].count > kcs[j].count
		}
		return kcs[i].key < kcs[j].key
	})
	for _, kc := range kcs {
		width := 1
		if top > 0 {
			width = kc.count * maxBarWidth / top
		}
		if width < 1 {
			width = 1
		}
		fmt.Fprintf(w, "  %-28s %s (%d)\n", truncate(kc.key, 28), strings.Repeat("█", width), kc.count)
	}
	fmt.Fprintln(w)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
