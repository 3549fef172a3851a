package model

import "time"

// LargeGap is a span of the original series whose spacing exceeded the
// reportable number of missed sampling steps.
type LargeGap struct {
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	MissingIntervals int       `json:"missing_intervals"`
}

// QAReport aggregates the counters of one pipeline run. It is built once when
// the run completes and passed by value afterwards.
type QAReport struct {
	FileID                    string      `json:"file_id"`
	LoggerType                LoggerType  `json:"logger_type"`
	Rows                      int         `json:"rows"`
	ParseErrors               int         `json:"parse_errors"`
	DuplicateRemoved          int         `json:"duplicate_removed"`
	DuplicatedTimestamps      []time.Time `json:"duplicated_timestamps,omitempty"`
	MissingTimestampsInserted int         `json:"missing_timestamps_inserted"`
	LargeGaps                 []LargeGap  `json:"large_gaps"`
	NonGridRemoved            int         `json:"non_grid_removed"`
	RangeViolations           int         `json:"range_violations"`
	JumpViolations            int         `json:"jump_violations"`
	FaultRows                 int         `json:"fault_rows"`
	IncompleteRows            int         `json:"incomplete_rows"`
	GapsFilled                int         `json:"gaps_filled"`
}

// LargeGapCount returns the number of reportable gaps.
func (r QAReport) LargeGapCount() int { return len(r.LargeGaps) }
