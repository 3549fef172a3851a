package qa

import "github.com/sells-group/microclimate-qa/internal/model"

// RangeValidator flags physically implausible values.
type RangeValidator struct {
	bounds map[model.Channel]Bounds
}

// NewRangeValidator copies the given bounds.
func NewRangeValidator(bounds map[model.Channel]Bounds) *RangeValidator {
	b := make(map[model.Channel]Bounds, len(bounds))
	for c, r := range bounds {
		b[c] = r
	}
	return &RangeValidator{bounds: b}
}

// Check returns per-channel flags for every configured channel present in
// the series. A value equal to either bound passes; missing values never flag.
func (v *RangeValidator) Check(s *model.Series) map[model.Channel][]bool {
	out := make(map[model.Channel][]bool, len(v.bounds))
	for c, b := range v.bounds {
		col, ok := s.Columns[c]
		if !ok {
			continue
		}
		flags := make([]bool, len(col))
		for i, x := range col {
			if model.IsMissing(x) {
				continue
			}
			flags[i] = x < b.Min || x > b.Max
		}
		out[c] = flags
	}
	return out
}
