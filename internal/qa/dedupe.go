package qa

import (
	"sort"
	"time"

	"github.com/sells-group/microclimate-qa/internal/model"
)

// DedupeResult reports what Dedupe removed.
type DedupeResult struct {
	Removed  int
	Repeated []time.Time // distinct timestamps that occurred more than once
}

// Dedupe sorts the series by time and keeps the first occurrence of every
// timestamp. Ties keep their original relative order.
func Dedupe(s *model.Series) (*model.Series, DedupeResult) {
	idx := make([]int, s.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.Times[idx[a]].Before(s.Times[idx[b]])
	})

	var res DedupeResult
	keep := make([]int, 0, len(idx))
	for k, i := range idx {
		if k > 0 && s.Times[i].Equal(s.Times[idx[k-1]]) {
			res.Removed++
			if n := len(res.Repeated); n == 0 || !res.Repeated[n-1].Equal(s.Times[i]) {
				res.Repeated = append(res.Repeated, s.Times[i])
			}
			continue
		}
		keep = append(keep, i)
	}
	return s.Select(keep), res
}
