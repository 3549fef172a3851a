package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/microclimate-qa/internal/model"
)

// Series outcome labels for mcqa_series_total.
const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Check labels for mcqa_flagged_values_total.
const (
	CheckRange = "range"
	CheckJump  = "jump"
)

// Metrics holds the Prometheus collectors for series processing. Each
// instance owns its registry so tests and servers do not collide on the
// default one.
type Metrics struct {
	registry   *prometheus.Registry
	series     *prometheus.CounterVec
	flagged    *prometheus.CounterVec
	gapsFilled prometheus.Counter
	largeGaps  prometheus.Counter
	duration   prometheus.Histogram
}

// NewMetrics creates and registers the series metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		series: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcqa_series_total",
			Help: "Series processed, by outcome.",
		}, []string{"status"}),
		flagged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcqa_flagged_values_total",
			Help: "Values flagged by the range and jump checks.",
		}, []string{"check"}),
		gapsFilled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcqa_gaps_filled_total",
			Help: "Missing values repaired by interpolation.",
		}),
		largeGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcqa_large_gaps_total",
			Help: "Reportable logging gaps found on the time grid.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mcqa_series_duration_seconds",
			Help:    "Wall time spent reading and cleaning one series.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
	m.registry.MustRegister(m.series, m.flagged, m.gapsFilled, m.largeGaps, m.duration)
	return m
}

// ObserveReport records a successfully processed series.
func (m *Metrics) ObserveReport(r *model.QAReport, elapsed time.Duration) {
	if m == nil || r == nil {
		return
	}
	m.series.WithLabelValues(StatusComplete).Inc()
	m.flagged.WithLabelValues(CheckRange).Add(float64(r.RangeViolations))
	m.flagged.WithLabelValues(CheckJump).Add(float64(r.JumpViolations))
	m.gapsFilled.Add(float64(r.GapsFilled))
	m.largeGaps.Add(float64(r.LargeGapCount()))
	m.duration.Observe(elapsed.Seconds())
}

// ObserveFailure records a series that could not be processed.
func (m *Metrics) ObserveFailure(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.series.WithLabelValues(StatusFailed).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
