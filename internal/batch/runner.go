// Package batch runs the QA pipeline over many series with bounded
// concurrency. A failing series is recorded and never stops the batch.
package batch

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/microclimate-qa/internal/clf"
	"github.com/sells-group/microclimate-qa/internal/model"
	"github.com/sells-group/microclimate-qa/internal/monitoring"
	"github.com/sells-group/microclimate-qa/internal/qa"
	"github.com/sells-group/microclimate-qa/internal/store"
)

const defaultConcurrency = 4

// Job is one series to clean. Either Path or Series is set; a preloaded
// Series wins.
type Job struct {
	Path        string
	Series      *model.Series
	ParseErrors int
}

// ID returns the series identifier of the job.
func (j Job) ID() string {
	if j.Series != nil {
		return j.Series.ID
	}
	return clf.FileID(j.Path)
}

// Output is handed to the sink for every cleaned series.
type Output struct {
	Job    Job
	RunID  string
	Result qa.Result
}

// Sink receives cleaned series, e.g. to write them to disk. An error fails
// the job.
type Sink func(ctx context.Context, out Output) error

// Failure describes a job that did not produce a report.
type Failure struct {
	FileID string `json:"file_id"`
	Path   string `json:"path,omitempty"`
	RunID  string `json:"run_id,omitempty"`
	Error  string `json:"error"`
}

// Summary aggregates a batch. Reports follow job order.
type Summary struct {
	Reports   []model.QAReport `json:"reports"`
	Failures  []Failure        `json:"failures,omitempty"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Duration  time.Duration    `json:"duration"`
}

// Runner fans jobs out over the QA pipeline.
type Runner struct {
	pipeline    *qa.Pipeline
	read        clf.Options
	concurrency int
	store       store.Store
	metrics     *monitoring.Metrics
	sink        Sink
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency bounds the number of series processed at once.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithReadOptions sets how job files are decoded.
func WithReadOptions(opts clf.Options) Option {
	return func(r *Runner) { r.read = opts }
}

// WithStore records every job as a run.
func WithStore(st store.Store) Option {
	return func(r *Runner) { r.store = st }
}

// WithMetrics records Prometheus metrics per job.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithSink passes every cleaned series to fn.
func WithSink(fn Sink) Option {
	return func(r *Runner) { r.sink = fn }
}

// New creates a Runner around a pipeline.
func New(p *qa.Pipeline, opts ...Option) *Runner {
	r := &Runner{pipeline: p, concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type slot struct {
	outcome *Outcome
	failure *Failure
}

// Run processes all jobs and returns once every job has finished.
func (r *Runner) Run(ctx context.Context, jobs []Job) Summary {
	start := time.Now()
	slots := make([]slot, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			out, err := r.Process(ctx, job)
			if err != nil {
				f := &Failure{FileID: job.ID(), Path: job.Path, Error: err.Error()}
				if out != nil {
					f.RunID = out.RunID
				}
				slots[i].failure = f
				return nil
			}
			slots[i].outcome = out
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{Duration: time.Since(start)}
	for _, s := range slots {
		if s.failure != nil {
			sum.Failures = append(sum.Failures, *s.failure)
			continue
		}
		sum.Reports = append(sum.Reports, s.outcome.Result.Report)
	}
	sum.Succeeded = len(sum.Reports)
	sum.Failed = len(sum.Failures)

	zap.L().Info("batch: complete",
		zap.Int("jobs", len(jobs)),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Duration("duration", sum.Duration),
	)
	return sum
}

// Outcome is the result of one processed job.
type Outcome struct {
	RunID  string
	Result qa.Result
}

// Process cleans a single job. When a store is configured the job is
// recorded as a run; the returned Outcome carries the run ID even when the
// job fails.
func (r *Runner) Process(ctx context.Context, job Job) (*Outcome, error) {
	id := job.ID()
	log := zap.L().With(zap.String("file", id))
	start := time.Now()
	out := &Outcome{}

	if r.store != nil {
		run, err := r.store.CreateRun(ctx, id)
		if err != nil {
			log.Warn("batch: run not recorded", zap.Error(err))
		} else {
			out.RunID = run.ID
			if err := r.store.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
				log.Warn("batch: update run status", zap.Error(err))
			}
		}
	}

	res, err := r.clean(ctx, job, out.RunID)
	if err != nil {
		r.metrics.ObserveFailure(time.Since(start))
		log.Error("batch: series failed", zap.Error(err))
		if out.RunID != "" {
			if ferr := r.store.FailRun(ctx, out.RunID, err.Error()); ferr != nil {
				log.Warn("batch: record failure", zap.Error(ferr))
			}
		}
		return out, err
	}
	out.Result = *res

	if out.RunID != "" {
		if err := r.store.CompleteRun(ctx, out.RunID, &res.Report); err != nil {
			log.Warn("batch: record report", zap.Error(err))
		}
	}
	r.metrics.ObserveReport(&res.Report, time.Since(start))
	log.Info("batch: series cleaned",
		zap.Int("rows", res.Report.Rows),
		zap.Int("range_violations", res.Report.RangeViolations),
		zap.Int("jump_violations", res.Report.JumpViolations),
		zap.Int("gaps_filled", res.Report.GapsFilled),
	)
	return out, nil
}

func (r *Runner) clean(ctx context.Context, job Job, runID string) (*qa.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "batch: cancelled")
	}

	series, parseErrors := job.Series, job.ParseErrors
	if series == nil {
		if job.Path == "" {
			return nil, eris.New("batch: job has neither path nor series")
		}
		tbl, err := clf.Load(ctx, job.Path, r.read)
		if err != nil {
			return nil, err
		}
		series, parseErrors = tbl.Series, tbl.ParseErrors
	}

	res := r.pipeline.Run(series, qa.WithParseErrors(parseErrors))

	if r.sink != nil {
		if err := r.sink(ctx, Output{Job: job, RunID: runID, Result: res}); err != nil {
			return nil, eris.Wrapf(err, "batch: sink %s", job.ID())
		}
	}
	return &res, nil
}
