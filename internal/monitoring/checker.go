package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/microclimate-qa/internal/config"
)

const defaultCheckInterval = 5 * time.Minute

// Checker periodically summarizes recent QA runs and posts an alert when a
// threshold starts being breached. An alert that keeps firing is not
// re-sent until it has cleared once.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig

	firing map[AlertType]bool
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		firing:    make(map[AlertType]bool),
	}
}

// Run checks once immediately and then every check interval until ctx is
// cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCheckInterval
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("monitoring: checking QA runs",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
		zap.Float64("failure_rate_threshold", c.cfg.FailureRateThreshold),
		zap.Float64("violation_threshold", c.cfg.ViolationThreshold),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		c.check(ctx, log)
		select {
		case <-ctx.Done():
			log.Info("monitoring: checker stopped")
			return
		case <-ticker.C:
		}
	}
}

// check runs one collect, evaluate and send cycle and returns the number of
// alerts delivered.
func (c *Checker) check(ctx context.Context, log *zap.Logger) int {
	if ctx.Err() != nil {
		return 0
	}
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: failed to collect run snapshot", zap.Error(err))
		return 0
	}
	log.Debug("monitoring: run snapshot",
		zap.Int("runs_total", snap.RunsTotal),
		zap.Int("runs_failed", snap.RunsFailed),
		zap.Float64("fail_rate", snap.FailRate),
		zap.Float64("avg_range_violations", snap.AvgRangeViolations),
		zap.Float64("avg_jump_violations", snap.AvgJumpViolations),
		zap.Int("large_gaps", snap.LargeGaps),
	)
	if snap.RunsTotal == 0 {
		return 0
	}

	active := make(map[AlertType]bool)
	var fresh []Alert
	for _, a := range c.alerter.Evaluate(snap) {
		active[a.Type] = true
		if !c.firing[a.Type] {
			fresh = append(fresh, a)
		}
	}
	for t := range c.firing {
		if !active[t] {
			log.Info("monitoring: alert cleared", zap.String("type", string(t)))
		}
	}
	c.firing = active

	if len(fresh) == 0 {
		return 0
	}
	sent := 0
	for _, a := range fresh {
		if c.alerter.SendAlerts(ctx, []Alert{a}) == 1 {
			sent++
			continue
		}
		// Retried on the next check.
		delete(c.firing, a.Type)
	}
	log.Info("monitoring: alerts sent",
		zap.Int("alerts_triggered", len(fresh)),
		zap.Int("alerts_sent", sent),
	)
	return sent
}
