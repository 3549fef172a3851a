package qa

import "github.com/sells-group/microclimate-qa/internal/model"

// Reconcile combines range and jump flags into a FlagSet. A jump flag at row
// i is dropped when row i-1 carries a range flag on any channel, because the
// difference at i was computed from that bad value. Inputs are not modified.
func Reconcile(rangeFlags, jumpFlags map[model.Channel][]bool, n int) *model.FlagSet {
	fs := model.NewFlagSet(n)
	for c, flags := range rangeFlags {
		fs.Range[c] = append([]bool(nil), flags...)
	}
	for c, flags := range jumpFlags {
		adj := make([]bool, len(flags))
		for i, f := range flags {
			adj[i] = f && !(i > 0 && fs.AnyRange(i-1))
		}
		fs.Jump[c] = adj
	}

	for i := 0; i < n; i++ {
		for _, m := range []map[model.Channel][]bool{fs.Range, fs.Jump} {
			for _, flags := range m {
				if i < len(flags) && flags[i] {
					fs.Fault[i] = true
				}
			}
		}
	}
	return fs
}

// ApplyFlags returns a copy of s with range-flagged values removed, and
// jump-flagged values removed as well when nullJumps is set.
func ApplyFlags(s *model.Series, fs *model.FlagSet, nullJumps bool) *model.Series {
	out := s.Clone()
	for c, col := range out.Columns {
		for i := range col {
			if at(fs.Range[c], i) || (nullJumps && at(fs.Jump[c], i)) {
				col[i] = model.Missing
			}
		}
	}
	return out
}

func at(flags []bool, i int) bool {
	return i < len(flags) && flags[i]
}
