package deploy

import (
	"time"

	"github.com/sells-group/microclimate-qa/internal/model"
)

// SliceMode chooses whether the cutoff day itself is kept.
type SliceMode int

const (
	// SliceFrom keeps the cutoff day.
	SliceFrom SliceMode = iota
	// SliceAfter drops the cutoff day.
	SliceAfter
)

// Slice returns the part of s inside the deployment. For a start window
// that is everything from (or after) the cutoff day; for an end window it is
// everything up to (or before) it.
func Slice(s *model.Series, w *model.DeploymentWindow, mode SliceMode) *model.Series {
	dayStart := w.CutoffDay
	dayEnd := w.CutoffDay.Add(day)

	var keep func(t time.Time) bool
	switch {
	case w.Direction == model.DirectionEnd && mode == SliceAfter:
		keep = func(t time.Time) bool { return t.Before(dayStart) }
	case w.Direction == model.DirectionEnd:
		keep = func(t time.Time) bool { return t.Before(dayEnd) }
	case mode == SliceAfter:
		keep = func(t time.Time) bool { return !t.Before(dayEnd) }
	default:
		keep = func(t time.Time) bool { return !t.Before(dayStart) }
	}
	return s.Filter(func(i int) bool { return keep(s.Times[i]) })
}

// ParseSliceMode maps "from" and "after" to a SliceMode.
func ParseSliceMode(name string) (SliceMode, bool) {
	switch name {
	case "", "from":
		return SliceFrom, true
	case "after":
		return SliceAfter, true
	}
	return SliceFrom, false
}

// ParseDirection maps "start" and "end" to a Direction. An empty name means
// start.
func ParseDirection(name string) (model.Direction, bool) {
	switch model.Direction(name) {
	case "", model.DirectionStart:
		return model.DirectionStart, true
	case model.DirectionEnd:
		return model.DirectionEnd, true
	}
	return "", false
}
