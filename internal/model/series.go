package model

import (
	"math"
	"sort"
	"time"
)

// Missing marks an absent channel value.
var Missing = math.NaN()

// IsMissing reports whether v is an absent value.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Sample is a single timestamped row. Channels without a value are either
// omitted from Values or set to Missing.
type Sample struct {
	Time   time.Time           `json:"time"`
	Values map[Channel]float64 `json:"values"`
}

// Series is a column-oriented time series. Times and every column share the
// same length. Stages never mutate a Series they receive; they Clone it.
type Series struct {
	ID      string
	Times   []time.Time
	Columns map[Channel][]float64
	// OutOfSoil marks rows where a soil sensor was known to be out of the
	// ground. Nil when no span was ever flagged.
	OutOfSoil []bool
}

// NewSeries builds a series from samples in the order given. Every channel
// that appears in at least one sample becomes a column.
func NewSeries(id string, samples []Sample) *Series {
	s := &Series{
		ID:      id,
		Times:   make([]time.Time, len(samples)),
		Columns: make(map[Channel][]float64),
	}
	for _, smp := range samples {
		for c := range smp.Values {
			if _, ok := s.Columns[c]; !ok {
				s.Columns[c] = newMissingColumn(len(samples))
			}
		}
	}
	for i, smp := range samples {
		s.Times[i] = smp.Time.UTC()
		for c, v := range smp.Values {
			s.Columns[c][i] = v
		}
	}
	return s
}

// Empty returns a series with the given channels and no rows.
func Empty(id string, channels ...Channel) *Series {
	s := &Series{ID: id, Columns: make(map[Channel][]float64, len(channels))}
	for _, c := range channels {
		s.Columns[c] = []float64{}
	}
	return s
}

func newMissingColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = Missing
	}
	return col
}

// Len returns the number of rows.
func (s *Series) Len() int { return len(s.Times) }

// Has reports whether the channel exists as a column.
func (s *Series) Has(c Channel) bool {
	_, ok := s.Columns[c]
	return ok
}

// HasData reports whether the channel exists and holds at least one value.
func (s *Series) HasData(c Channel) bool {
	for _, v := range s.Columns[c] {
		if !IsMissing(v) {
			return true
		}
	}
	return false
}

// Channels returns the present channels, known channels first.
func (s *Series) Channels() []Channel {
	out := make([]Channel, 0, len(s.Columns))
	for _, c := range Channels {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	var extra []Channel
	for c := range s.Columns {
		if _, known := ParseChannel(string(c)); !known {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// Value returns the value of channel c at row i and whether it is present.
func (s *Series) Value(c Channel, i int) (float64, bool) {
	col, ok := s.Columns[c]
	if !ok || i < 0 || i >= len(col) || IsMissing(col[i]) {
		return Missing, false
	}
	return col[i], true
}

// Clone returns a deep copy.
func (s *Series) Clone() *Series {
	out := &Series{
		ID:      s.ID,
		Times:   append([]time.Time(nil), s.Times...),
		Columns: make(map[Channel][]float64, len(s.Columns)),
	}
	for c, col := range s.Columns {
		out.Columns[c] = append([]float64(nil), col...)
	}
	if s.OutOfSoil != nil {
		out.OutOfSoil = append([]bool(nil), s.OutOfSoil...)
	}
	return out
}

// Select returns a new series holding the rows at the given indices, in order.
func (s *Series) Select(idx []int) *Series {
	out := &Series{
		ID:      s.ID,
		Times:   make([]time.Time, len(idx)),
		Columns: make(map[Channel][]float64, len(s.Columns)),
	}
	for c := range s.Columns {
		out.Columns[c] = make([]float64, len(idx))
	}
	if s.OutOfSoil != nil {
		out.OutOfSoil = make([]bool, len(idx))
	}
	for j, i := range idx {
		out.Times[j] = s.Times[i]
		for c, col := range s.Columns {
			out.Columns[c][j] = col[i]
		}
		if s.OutOfSoil != nil {
			out.OutOfSoil[j] = s.OutOfSoil[i]
		}
	}
	return out
}

// Filter returns the rows for which keep returns true.
func (s *Series) Filter(keep func(i int) bool) *Series {
	idx := make([]int, 0, s.Len())
	for i := range s.Times {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return s.Select(idx)
}

// MarkOutOfSoil returns the out-of-soil mask, allocating it on first use.
func (s *Series) MarkOutOfSoil() []bool {
	if s.OutOfSoil == nil {
		s.OutOfSoil = make([]bool, s.Len())
	}
	return s.OutOfSoil
}

// Span returns the first and last timestamps. Both are zero for an empty series.
func (s *Series) Span() (time.Time, time.Time) {
	if len(s.Times) == 0 {
		return time.Time{}, time.Time{}
	}
	return s.Times[0], s.Times[len(s.Times)-1]
}
