// Package qa implements the time-series quality-assurance engine: timestamp
// regularization, duplicate resolution, range and jump checks, flag
// reconciliation and bounded gap filling.
package qa

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/microclimate-qa/internal/config"
	"github.com/sells-group/microclimate-qa/internal/model"
)

// Bounds is an inclusive plausible range.
type Bounds struct {
	Min float64
	Max float64
}

// JumpSettings configures the rolling median/MAD jump detector.
type JumpSettings struct {
	Window        int
	NSigma        float64
	MinAbsJump    float64
	ReversalSteps int
	MinPeriods    int
	Channels      []model.Channel
}

// Settings is the immutable configuration of a pipeline.
type Settings struct {
	Frequency     time.Duration
	LargeGapSteps int
	GapFillLimit  int
	NullJumps     bool
	Ranges        map[model.Channel]Bounds
	Jump          JumpSettings
}

// DefaultSettings returns the settings used for 15-minute field loggers.
func DefaultSettings() Settings {
	return Settings{
		Frequency:     15 * time.Minute,
		LargeGapSteps: 20,
		GapFillLimit:  20,
		NullJumps:     true,
		Ranges: map[model.Channel]Bounds{
			model.ChannelSoil:    {Min: -20, Max: 30},
			model.ChannelSurface: {Min: -35, Max: 45},
			model.ChannelAir:     {Min: -35, Max: 40},
		},
		Jump: JumpSettings{
			Window:        24,
			NSigma:        5,
			MinAbsJump:    5,
			ReversalSteps: 5,
			MinPeriods:    6,
			Channels:      []model.Channel{model.ChannelSoil, model.ChannelSurface, model.ChannelAir},
		},
	}
}

// SettingsFromConfig converts the loaded configuration section.
func SettingsFromConfig(cfg config.QAConfig) (Settings, error) {
	s := Settings{
		Frequency:     cfg.Frequency,
		LargeGapSteps: cfg.LargeGapSteps,
		GapFillLimit:  cfg.GapFillLimit,
		NullJumps:     cfg.NullJumps,
		Ranges:        make(map[model.Channel]Bounds, len(cfg.Ranges)),
		Jump: JumpSettings{
			Window:        cfg.Jump.Window,
			NSigma:        cfg.Jump.NSigma,
			MinAbsJump:    cfg.Jump.MinAbsJump,
			ReversalSteps: cfg.Jump.ReversalSteps,
			MinPeriods:    cfg.Jump.MinPeriods,
		},
	}
	for name, r := range cfg.Ranges {
		c, ok := model.ParseChannel(name)
		if !ok {
			return Settings{}, eris.Errorf("qa: unknown channel %q in ranges", name)
		}
		s.Ranges[c] = Bounds{Min: r.Min, Max: r.Max}
	}
	for _, name := range cfg.Jump.Channels {
		c, ok := model.ParseChannel(name)
		if !ok {
			return Settings{}, eris.Errorf("qa: unknown channel %q in jump.channels", name)
		}
		s.Jump.Channels = append(s.Jump.Channels, c)
	}
	if s.Frequency <= 0 {
		return Settings{}, eris.New("qa: frequency must be positive")
	}
	return s, nil
}
