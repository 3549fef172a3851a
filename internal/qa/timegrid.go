package qa

import (
	"time"

	"github.com/sells-group/microclimate-qa/internal/model"
)

// GridResult reports the changes Regularize made.
type GridResult struct {
	Inserted  int
	LargeGaps []model.LargeGap
}

// OnGrid reports whether t falls exactly on the sampling grid.
func OnGrid(t time.Time, freq time.Duration) bool {
	return t.Truncate(freq).Equal(t)
}

// Regularize inserts every missing grid point between the first and last
// timestamp of a sorted, deduplicated series. Inserted rows have no values.
// Samples that are off the grid are carried through untouched for
// EnforceGrid to remove. Large gaps are measured on the input spacing.
func Regularize(s *model.Series, freq time.Duration, largeGapSteps int) (*model.Series, GridResult) {
	res := GridResult{LargeGaps: FindLargeGaps(s.Times, freq, largeGapSteps)}
	if s.Len() == 0 {
		return s.Clone(), res
	}

	first, last := s.Span()
	// First grid point at or after the earliest sample.
	start := first.Truncate(freq)
	if start.Before(first) {
		start = start.Add(freq)
	}

	out := model.Empty(s.ID, s.Channels()...)
	if s.OutOfSoil != nil {
		out.OutOfSoil = []bool{}
	}
	appendRow := func(i int) {
		out.Times = append(out.Times, s.Times[i])
		for c, col := range s.Columns {
			out.Columns[c] = append(out.Columns[c], col[i])
		}
		if s.OutOfSoil != nil {
			out.OutOfSoil = append(out.OutOfSoil, s.OutOfSoil[i])
		}
	}
	appendMissing := func(t time.Time) {
		out.Times = append(out.Times, t)
		for c := range out.Columns {
			out.Columns[c] = append(out.Columns[c], model.Missing)
		}
		if s.OutOfSoil != nil {
			out.OutOfSoil = append(out.OutOfSoil, false)
		}
		res.Inserted++
	}

	j := 0
	for g := start; !g.After(last); g = g.Add(freq) {
		for j < s.Len() && s.Times[j].Before(g) {
			appendRow(j)
			j++
		}
		if j < s.Len() && s.Times[j].Equal(g) {
			appendRow(j)
			j++
			continue
		}
		appendMissing(g)
	}
	for ; j < s.Len(); j++ {
		appendRow(j)
	}
	return out, res
}

// FindLargeGaps returns the spans of times whose spacing skips more than
// steps grid points. MissingIntervals counts the skipped grid points.
func FindLargeGaps(times []time.Time, freq time.Duration, steps int) []model.LargeGap {
	var gaps []model.LargeGap
	for i := 1; i < len(times); i++ {
		diff := times[i].Sub(times[i-1])
		if diff <= freq {
			continue
		}
		missed := int(diff/freq) - 1
		if missed > steps {
			gaps = append(gaps, model.LargeGap{
				Start:            times[i-1],
				End:              times[i],
				MissingIntervals: missed,
			})
		}
	}
	return gaps
}

// EnforceGrid drops every sample whose timestamp is not on the grid and
// returns how many were removed.
func EnforceGrid(s *model.Series, freq time.Duration) (*model.Series, int) {
	out := s.Filter(func(i int) bool { return OnGrid(s.Times[i], freq) })
	return out, s.Len() - out.Len()
}
