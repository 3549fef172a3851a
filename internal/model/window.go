package model

import "time"

// Direction selects which deployment boundary a detector looks for.
type Direction string

const (
	// DirectionStart finds the move from indoor storage into the field.
	DirectionStart Direction = "start"
	// DirectionEnd finds the move from the field back indoors at teardown.
	DirectionEnd Direction = "end"
)

// DeploymentWindow is the outcome of a successful deployment detection. It is
// derived from a series and never written back into it.
type DeploymentWindow struct {
	Direction   Direction `json:"direction"`
	StreakStart time.Time `json:"streak_start"`
	StreakEnd   time.Time `json:"streak_end"`
	CutoffDay   time.Time `json:"cutoff_day"`
	// Confirmed is true when the soil channel agreed with the air signal.
	// Air-only detections stand unconfirmed.
	Confirmed          bool     `json:"confirmed"`
	SoilStreakMedian   *float64 `json:"soil_streak_median,omitempty"`
	SoilBaselineMedian *float64 `json:"soil_baseline_median,omitempty"`
}
