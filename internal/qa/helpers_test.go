package qa

import (
	"time"

	"github.com/sells-group/microclimate-qa/internal/model"
)

var t0 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

const step = 15 * time.Minute

// regular builds a 15-minute series with the given columns.
func regular(cols map[model.Channel][]float64) *model.Series {
	n := 0
	for _, col := range cols {
		n = len(col)
		break
	}
	s := &model.Series{ID: "test", Times: make([]time.Time, n), Columns: map[model.Channel][]float64{}}
	for i := range s.Times {
		s.Times[i] = t0.Add(time.Duration(i) * step)
	}
	for c, col := range cols {
		s.Columns[c] = append([]float64(nil), col...)
	}
	return s
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func missingCount(col []float64) int {
	n := 0
	for _, v := range col {
		if model.IsMissing(v) {
			n++
		}
	}
	return n
}

func flagIndexes(flags []bool) []int {
	var idx []int
	for i, f := range flags {
		if f {
			idx = append(idx, i)
		}
	}
	return idx
}
