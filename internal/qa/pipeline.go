package qa

import (
	"go.uber.org/zap"

	"github.com/sells-group/microclimate-qa/internal/model"
)

// Result is the outcome of one pipeline run.
type Result struct {
	Series *model.Series
	Flags  *model.FlagSet
	Report model.QAReport
}

// RunOption adjusts counters that originate outside the pipeline.
type RunOption func(*model.QAReport)

// WithParseErrors records how many input cells or rows were coerced while
// loading the series.
func WithParseErrors(n int) RunOption {
	return func(r *model.QAReport) { r.ParseErrors = n }
}

// Pipeline runs the cleaning stages in a fixed order:
// dedupe, regularize, enforce grid, range check, jump check, reconcile,
// null flagged values, count incomplete rows, fill gaps.
type Pipeline struct {
	settings Settings
	ranges   *RangeValidator
	jumps    *JumpDetector
}

// New creates a pipeline from settings.
func New(settings Settings) *Pipeline {
	return &Pipeline{
		settings: settings,
		ranges:   NewRangeValidator(settings.Ranges),
		jumps:    NewJumpDetector(settings.Jump),
	}
}

// Settings returns the pipeline configuration.
func (p *Pipeline) Settings() Settings { return p.settings }

// Run cleans one series. The input is not modified. Stage anomalies are
// recorded as flags and counters, never as errors.
func (p *Pipeline) Run(raw *model.Series, opts ...RunOption) Result {
	log := zap.L().With(zap.String("file", raw.ID))
	report := model.QAReport{
		FileID:     raw.ID,
		LoggerType: model.ClassifyLogger(raw),
	}
	for _, opt := range opts {
		opt(&report)
	}

	s, dup := Dedupe(raw)
	report.DuplicateRemoved = dup.Removed
	report.DuplicatedTimestamps = dup.Repeated

	s, grid := Regularize(s, p.settings.Frequency, p.settings.LargeGapSteps)
	report.MissingTimestampsInserted = grid.Inserted
	report.LargeGaps = grid.LargeGaps

	s, removed := EnforceGrid(s, p.settings.Frequency)
	report.NonGridRemoved = removed
	if removed > 0 {
		log.Warn("qa: removed off-grid timestamps", zap.Int("removed", removed))
	}

	rangeFlags := p.ranges.Check(s)
	jumpFlags := p.jumps.Detect(s)
	flags := Reconcile(rangeFlags, jumpFlags, s.Len())
	report.RangeViolations = flags.RangeCount()
	report.JumpViolations = flags.JumpCount()
	report.FaultRows = flags.FaultCount()

	s = ApplyFlags(s, flags, p.settings.NullJumps)
	report.IncompleteRows = CountIncomplete(s, report.LoggerType)

	s, filled := FillGaps(s, p.settings.GapFillLimit)
	report.GapsFilled = filled
	report.Rows = s.Len()

	log.Debug("qa: series cleaned",
		zap.String("logger_type", string(report.LoggerType)),
		zap.Int("rows", report.Rows),
		zap.Int("duplicates", report.DuplicateRemoved),
		zap.Int("inserted", report.MissingTimestampsInserted),
		zap.Int("large_gaps", report.LargeGapCount()),
		zap.Int("range_violations", report.RangeViolations),
		zap.Int("jump_violations", report.JumpViolations),
		zap.Int("gaps_filled", report.GapsFilled),
	)

	return Result{Series: s, Flags: flags, Report: report}
}

// CountIncomplete counts rows missing a temperature channel the logger type
// is expected to record. Channels absent from the series count as missing.
func CountIncomplete(s *model.Series, lt model.LoggerType) int {
	n := 0
	for i := 0; i < s.Len(); i++ {
		for _, c := range lt.TemperatureChannels() {
			if _, ok := s.Value(c, i); !ok {
				n++
				break
			}
		}
	}
	return n
}
