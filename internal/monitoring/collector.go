package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/microclimate-qa/internal/model"
	"github.com/sells-group/microclimate-qa/internal/store"
)

// MetricsSnapshot holds a point-in-time view of recent QA runs.
type MetricsSnapshot struct {
	// Run counts within the lookback window.
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsQueued   int     `json:"runs_queued"`
	RunsRunning  int     `json:"runs_running"`
	FailRate     float64 `json:"fail_rate"`

	// Averages over completed runs.
	AvgRangeViolations float64 `json:"avg_range_violations"`
	AvgJumpViolations  float64 `json:"avg_jump_violations"`
	AvgGapsFilled      float64 `json:"avg_gaps_filled"`
	LargeGaps          int     `json:"large_gaps"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the slice of the store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers run metrics from the store.
type Collector struct {
	store RunLister
}

// NewCollector creates a new metrics collector.
func NewCollector(st RunLister) *Collector {
	return &Collector{store: st}
}

const snapshotLimit = 10000

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)
	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: cutoff,
		Limit:        snapshotLimit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var rangeTotal, jumpTotal, filledTotal, reported int
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusQueued:
			snap.RunsQueued++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
		if r.Report != nil {
			reported++
			rangeTotal += r.Report.RangeViolations
			jumpTotal += r.Report.JumpViolations
			filledTotal += r.Report.GapsFilled
			snap.LargeGaps += r.Report.LargeGapCount()
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if reported > 0 {
		snap.AvgRangeViolations = float64(rangeTotal) / float64(reported)
		snap.AvgJumpViolations = float64(jumpTotal) / float64(reported)
		snap.AvgGapsFilled = float64(filledTotal) / float64(reported)
	}
	return snap, nil
}
