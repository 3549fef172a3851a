package qa

import (
	"math"

	"github.com/sells-group/microclimate-qa/internal/model"
)

// JumpDetector flags single-sample glitches with a Hampel-style filter on
// first differences plus a reversal confirmation.
//
// A difference is a candidate when it exceeds max(n_sigma*1.4826*MAD,
// min_abs_jump) of its centered window. It is confirmed only when the
// difference ReversalSteps rows later has the opposite sign and also exceeds
// the threshold computed at that later row. Sustained steps never reverse and
// are left alone.
type JumpDetector struct {
	settings JumpSettings
}

// NewJumpDetector creates a detector.
func NewJumpDetector(settings JumpSettings) *JumpDetector {
	return &JumpDetector{settings: settings}
}

// Detect returns per-channel jump flags for every configured channel present
// in the series.
func (j *JumpDetector) Detect(s *model.Series) map[model.Channel][]bool {
	out := make(map[model.Channel][]bool, len(j.settings.Channels))
	for _, c := range j.settings.Channels {
		col, ok := s.Columns[c]
		if !ok {
			continue
		}
		out[c] = j.detect(col)
	}
	return out
}

func (j *JumpDetector) detect(values []float64) []bool {
	n := len(values)
	flags := make([]bool, n)
	if n < 2 {
		return flags
	}

	d := diff(values)
	_, mad := rollingMedianMAD(d, j.settings.Window, j.settings.MinPeriods)

	limit := make([]float64, n)
	for i := range limit {
		tau := j.settings.NSigma * madScale * mad[i]
		if math.IsNaN(tau) {
			limit[i] = math.NaN()
			continue
		}
		limit[i] = math.Max(tau, j.settings.MinAbsJump)
	}

	k := j.settings.ReversalSteps
	// i starts at 1: the first row has no previous difference.
	for i := 1; i < n; i++ {
		if !exceeds(d[i], limit[i]) {
			continue
		}
		r := i + k
		if r >= n || !exceeds(d[r], limit[r]) {
			continue
		}
		flags[i] = d[i]*d[r] < 0
	}
	return flags
}

// exceeds is false whenever either side is undefined.
func exceeds(d, limit float64) bool {
	if math.IsNaN(d) || math.IsNaN(limit) {
		return false
	}
	return math.Abs(d) > limit
}
