package model

// FlagSet holds per-channel check results for every row of a series.
type FlagSet struct {
	Range map[Channel][]bool `json:"range"`
	Jump  map[Channel][]bool `json:"jump"`
	Fault []bool             `json:"fault"`
}

// NewFlagSet allocates an all-false flag set for n rows.
func NewFlagSet(n int) *FlagSet {
	return &FlagSet{
		Range: make(map[Channel][]bool),
		Jump:  make(map[Channel][]bool),
		Fault: make([]bool, n),
	}
}

// Len returns the number of rows covered.
func (f *FlagSet) Len() int { return len(f.Fault) }

// AnyRange reports whether any channel carries a range flag at row i.
func (f *FlagSet) AnyRange(i int) bool {
	for _, flags := range f.Range {
		if at(flags, i) {
			return true
		}
	}
	return false
}

// RangeCount returns the number of range flags over all channels.
func (f *FlagSet) RangeCount() int { return countAll(f.Range) }

// JumpCount returns the number of jump flags over all channels.
func (f *FlagSet) JumpCount() int { return countAll(f.Jump) }

// FaultCount returns the number of rows with a fault flag.
func (f *FlagSet) FaultCount() int { return count(f.Fault) }

// Consistent reports whether Fault equals the row-wise OR of every range and
// jump flag.
func (f *FlagSet) Consistent() bool {
	for i := range f.Fault {
		want := false
		for _, m := range []map[Channel][]bool{f.Range, f.Jump} {
			for _, flags := range m {
				if at(flags, i) {
					want = true
				}
			}
		}
		if f.Fault[i] != want {
			return false
		}
	}
	return true
}

func at(flags []bool, i int) bool {
	return i >= 0 && i < len(flags) && flags[i]
}

func count(flags []bool) int {
	n := 0
	for _, b := range flags {
		if b {
			n++
		}
	}
	return n
}

func countAll(m map[Channel][]bool) int {
	n := 0
	for _, flags := range m {
		n += count(flags)
	}
	return n
}
