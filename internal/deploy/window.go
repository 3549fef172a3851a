// Package deploy detects when a logger moved between indoor storage and its
// field location, using the nightly air temperature swing and an optional
// soil temperature confirmation.
package deploy

import (
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/microclimate-qa/internal/config"
	"github.com/sells-group/microclimate-qa/internal/model"
)

const day = 24 * time.Hour

var (
	// ErrInsufficientData means no qualifying streak or baseline exists.
	ErrInsufficientData = eris.New("deploy: insufficient data")
	// ErrNotConfirmed means the soil channel contradicted the air signal.
	ErrNotConfirmed = eris.New("deploy: soil check not confirmed")
)

// Unresolved reports whether err is a null detection result rather than a
// failure. Callers must not read it as "deployed from the first sample".
func Unresolved(err error) bool {
	return eris.Is(err, ErrInsufficientData) || eris.Is(err, ErrNotConfirmed)
}

// Settings configures a Detector. DayInStreak has no default.
type Settings struct {
	DropThreshold     float64
	ConsecutiveNights int           `validate:"gte=1"`
	DayInStreak       int           `validate:"gte=1,ltefield=ConsecutiveNights"`
	BufferDays        int           `validate:"gte=0"`
	AirChannel        model.Channel `validate:"required"`
	SoilChannel       model.Channel
}

// SettingsFromConfig converts and validates the deploy configuration.
func SettingsFromConfig(cfg config.DeployConfig) (Settings, error) {
	air, ok := model.ParseChannel(cfg.AirChannel)
	if !ok {
		return Settings{}, eris.Errorf("deploy: unknown air channel %q", cfg.AirChannel)
	}
	s := Settings{
		DropThreshold:     cfg.DropThreshold,
		ConsecutiveNights: cfg.ConsecutiveNights,
		DayInStreak:       cfg.DayInStreak,
		BufferDays:        cfg.BufferDays,
		AirChannel:        air,
	}
	if cfg.SoilChannel != "" {
		soil, ok := model.ParseChannel(cfg.SoilChannel)
		if !ok {
			return Settings{}, eris.Errorf("deploy: unknown soil channel %q", cfg.SoilChannel)
		}
		s.SoilChannel = soil
	}
	return s, s.Validate()
}

// Validate checks the settings constraints.
func (s Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return eris.Wrap(err, "deploy: invalid settings")
	}
	return nil
}

// Detector finds deployment boundaries in a series.
type Detector struct {
	settings Settings
}

// NewDetector creates a detector after validating settings.
func NewDetector(settings Settings) (*Detector, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Detector{settings: settings}, nil
}

// Detect returns the deployment window for the given direction. A nil window
// comes with an error for which Unresolved is true when the data simply does
// not support a decision.
//
// DirectionStart uses the earliest run of outdoor-like days and counts the
// cutoff forward from its first day. DirectionEnd uses the latest run and
// counts back from its last day.
func (d *Detector) Detect(s *model.Series, dir model.Direction) (*model.DeploymentWindow, error) {
	if dir != model.DirectionStart && dir != model.DirectionEnd {
		return nil, eris.Errorf("deploy: unknown direction %q", dir)
	}
	log := zap.L().With(zap.String("file", s.ID), zap.String("direction", string(dir)))
	if !s.HasData(d.settings.AirChannel) {
		return nil, eris.Wrapf(ErrInsufficientData, "deploy: no %s values", d.settings.AirChannel)
	}

	first, outdoor := d.outdoorDays(s)
	lo, hi, ok := findStreak(outdoor, d.settings.ConsecutiveNights, dir == model.DirectionEnd)
	if !ok {
		log.Debug("deploy: no streak found", zap.Int("days", len(outdoor)))
		return nil, eris.Wrapf(ErrInsufficientData, "deploy: no run of %d outdoor-like days", d.settings.ConsecutiveNights)
	}

	cutoff := lo + d.settings.DayInStreak - 1
	if dir == model.DirectionEnd {
		cutoff = hi - (d.settings.DayInStreak - 1)
	}
	w := &model.DeploymentWindow{
		Direction:   dir,
		StreakStart: first.Add(time.Duration(lo) * day),
		StreakEnd:   first.Add(time.Duration(hi) * day),
		CutoffDay:   first.Add(time.Duration(cutoff) * day),
	}

	if d.settings.SoilChannel == "" || !s.HasData(d.settings.SoilChannel) {
		log.Info("deploy: cutoff from air only", zap.Time("cutoff", w.CutoffDay))
		return w, nil
	}

	soil := d.soilMedians(s, first, len(outdoor))
	var baseline []float64
	if dir == model.DirectionStart {
		baseline = present(soil, 0, cutoff-d.settings.BufferDays)
	} else {
		baseline = present(soil, cutoff+d.settings.BufferDays, len(soil)-1)
	}
	if len(baseline) == 0 {
		return nil, eris.Wrap(ErrInsufficientData, "deploy: empty soil baseline")
	}
	streak := present(soil, lo, hi)
	if len(streak) == 0 {
		return nil, eris.Wrap(ErrInsufficientData, "deploy: no soil values during streak")
	}

	streakMed, baseMed := median(streak), median(baseline)
	w.SoilStreakMedian, w.SoilBaselineMedian = &streakMed, &baseMed
	if !(streakMed < baseMed) {
		log.Info("deploy: soil check failed",
			zap.Float64("streak_median", streakMed),
			zap.Float64("baseline_median", baseMed),
		)
		return nil, eris.Wrapf(ErrNotConfirmed, "deploy: streak median %.2f not below baseline %.2f", streakMed, baseMed)
	}
	w.Confirmed = true
	log.Info("deploy: cutoff confirmed",
		zap.Time("cutoff", w.CutoffDay),
		zap.Float64("streak_median", streakMed),
		zap.Float64("baseline_median", baseMed),
	)
	return w, nil
}

// outdoorDays bins the air channel into UTC days and marks each day whose
// min minus max is at or below the drop threshold. Days without values are
// never outdoor-like.
func (d *Detector) outdoorDays(s *model.Series) (time.Time, []bool) {
	first, last := s.Times[0], s.Times[0]
	for _, t := range s.Times {
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	first, last = first.Truncate(day), last.Truncate(day)
	n := int(last.Sub(first)/day) + 1

	lo := make([]float64, n)
	hi := make([]float64, n)
	seen := make([]bool, n)
	for i, t := range s.Times {
		v, ok := s.Value(d.settings.AirChannel, i)
		if !ok {
			continue
		}
		k := int(t.Sub(first) / day)
		if !seen[k] {
			lo[k], hi[k], seen[k] = v, v, true
			continue
		}
		lo[k] = math.Min(lo[k], v)
		hi[k] = math.Max(hi[k], v)
	}

	outdoor := make([]bool, n)
	for k := range outdoor {
		outdoor[k] = seen[k] && lo[k]-hi[k] <= d.settings.DropThreshold
	}
	return first, outdoor
}

// soilMedians returns the daily soil median per day index, NaN for empty days.
func (d *Detector) soilMedians(s *model.Series, first time.Time, n int) []float64 {
	byDay := make([][]float64, n)
	for i, t := range s.Times {
		if v, ok := s.Value(d.settings.SoilChannel, i); ok {
			k := int(t.Sub(first) / day)
			byDay[k] = append(byDay[k], v)
		}
	}
	out := make([]float64, n)
	for k, vals := range byDay {
		if len(vals) == 0 {
			out[k] = model.Missing
			continue
		}
		out[k] = median(vals)
	}
	return out
}

// findStreak returns the inclusive day range of the earliest (or latest) run
// of n consecutive true values.
func findStreak(days []bool, n int, latest bool) (int, int, bool) {
	run := 0
	if latest {
		for k := len(days) - 1; k >= 0; k-- {
			if !days[k] {
				run = 0
				continue
			}
			if run++; run == n {
				return k, k + n - 1, true
			}
		}
		return 0, 0, false
	}
	for k, ok := range days {
		if !ok {
			run = 0
			continue
		}
		if run++; run == n {
			return k - n + 1, k, true
		}
	}
	return 0, 0, false
}

// present collects non-missing values with day index in [from, to].
func present(vals []float64, from, to int) []float64 {
	var out []float64
	for k := max(from, 0); k <= to && k < len(vals); k++ {
		if !model.IsMissing(vals[k]) {
			out = append(out, vals[k])
		}
	}
	return out
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
