package qa

import "github.com/sells-group/microclimate-qa/internal/model"

// FillGaps linearly interpolates runs of missing values no longer than limit.
// Longer runs stay entirely missing. A run touching the start or end of the
// series is filled with the nearest value when it is within the limit; a
// channel with no values at all is left untouched. It returns the number of
// values filled over all channels.
func FillGaps(s *model.Series, limit int) (*model.Series, int) {
	out := s.Clone()
	filled := 0
	for _, col := range out.Columns {
		filled += fillColumn(col, limit)
	}
	return out, filled
}

func fillColumn(col []float64, limit int) int {
	n := len(col)
	filled := 0
	for a := 0; a < n; {
		if !model.IsMissing(col[a]) {
			a++
			continue
		}
		b := a
		for b < n && model.IsMissing(col[b]) {
			b++
		}
		// col[a:b] is a maximal missing run.
		run := b - a
		hasLeft, hasRight := a > 0, b < n
		if run <= limit && (hasLeft || hasRight) {
			for i := a; i < b; i++ {
				switch {
				case hasLeft && hasRight:
					left, right := col[a-1], col[b]
					frac := float64(i-a+1) / float64(run+1)
					col[i] = left + (right-left)*frac
				case hasLeft:
					col[i] = col[a-1]
				default:
					col[i] = col[b]
				}
			}
			filled += run
		}
		a = b
	}
	return filled
}
