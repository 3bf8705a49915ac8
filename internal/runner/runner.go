// Package runner drives whole evaluation runs over a log corpus or a flow dataset.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-bfeval/internal/backend"
	"github.com/miradorstack/mirador-bfeval/internal/corpus"
	"github.com/miradorstack/mirador-bfeval/internal/dataset"
	"github.com/miradorstack/mirador-bfeval/internal/engine"
	"github.com/miradorstack/mirador-bfeval/internal/evaluation"
	"github.com/miradorstack/mirador-bfeval/internal/metrics"
	"github.com/miradorstack/mirador-bfeval/internal/models"
	"github.com/miradorstack/mirador-bfeval/internal/retry"
	"github.com/miradorstack/mirador-bfeval/internal/services"
	"github.com/miradorstack/mirador-bfeval/internal/sink"
)

// BackendFactory constructs the inference back-end of a run. It is retried by the runner.
type BackendFactory func(ctx context.Context, mode models.Mode) (backend.Backend, error)

// CorpusProvider enumerates log files and reads their text.
type CorpusProvider interface {
	Units() ([]corpus.Unit, error)
	Read(u corpus.Unit) string
}

// Observer follows the progress of runs, e.g. for status endpoints.
type Observer interface {
	RunStarted(runID string, mode models.Mode, backend string, total int)
	UnitDone(runID string, progress Progress)
	RunFinished(report evaluation.Report)
}

// Progress counts handled units of a run in flight.
type Progress struct {
	Ordinal   int
	Total     int
	Evaluated int
	Skipped   int
	Failed    int
	State     models.AnalysisState
}

// Runner owns the per-run lifecycle: run id, scoped logger, back-end and report.
type Runner struct {
	logger    *slog.Logger
	policy    retry.Policy
	factory   BackendFactory
	sink      sink.Sink
	observer  Observer
	reportDir string
	now       func() time.Time
}

// Option customises a Runner.
type Option func(*Runner)

// WithSink publishes one event per evaluated unit.
func WithSink(s sink.Sink) Option {
	return func(r *Runner) {
		if s != nil {
			r.sink = s
		}
	}
}

// WithObserver reports progress to o.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithReportDir writes report-<run id>.json into dir after each run.
func WithReportDir(dir string) Option {
	return func(r *Runner) { r.reportDir = dir }
}

// New constructs a Runner.
func New(logger *slog.Logger, policy retry.Policy, factory BackendFactory, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		logger:  logger,
		policy:  policy,
		factory: factory,
		sink:    sink.Noop{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// unit is one item of work. Input is evaluated lazily so that its failures count
// against the unit rather than the run.
type unit struct {
	ID          string
	GroundTruth bool
	Known       bool
	Input       func() (string, error)
}

// RunLogs evaluates every log file of the corpus with the three-stage pipeline.
func (r *Runner) RunLogs(ctx context.Context, provider CorpusProvider) (evaluation.Report, error) {
	files, err := provider.Units()
	if err != nil {
		return evaluation.Report{}, err
	}

	units := make([]unit, 0, len(files))
	for _, f := range files {
		malicious, ok := corpus.LabelFromName(f.Name)
		units = append(units, unit{
			ID:          f.Name,
			GroundTruth: malicious,
			Known:       ok,
			Input:       func() (string, error) { return provider.Read(f), nil },
		})
	}
	return r.run(ctx, models.ModeLogs, units)
}

// RunFlows evaluates the dataset one row at a time with the flow pipeline.
func (r *Runner) RunFlows(ctx context.Context, provider dataset.Provider) (evaluation.Report, error) {
	table, err := provider.Load(ctx)
	if err != nil {
		return evaluation.Report{}, err
	}
	segments, err := dataset.Split(table, 1)
	if err != nil {
		return evaluation.Report{}, err
	}

	units := make([]unit, 0, len(segments))
	for _, seg := range segments {
		if seg.Len() == 0 {
			continue
		}
		row := seg.Rows[0]
		malicious, ok := dataset.GroundTruth(row)
		units = append(units, unit{
			ID:          fmt.Sprintf("row %d", row.Index),
			GroundTruth: malicious,
			Known:       ok,
			Input:       func() (string, error) { return dataset.Serialize(dataset.Unlabel(seg)), nil },
		})
	}
	return r.run(ctx, models.ModeFlows, units)
}

func (r *Runner) run(ctx context.Context, mode models.Mode, units []unit) (evaluation.Report, error) {
	runID := uuid.NewString()
	logger := r.logger.With(slog.String("run_id", runID), slog.String("mode", string(mode)))
	started := r.now()

	b, err := retry.Do(ctx, logger, r.policy, "backend.construct", func() (backend.Backend, error) {
		return r.factory(ctx, mode)
	})
	if err != nil {
		logger.Error("inference back-end unavailable, aborting run", slog.Any("error", err))
		return evaluation.Report{}, err
	}

	pipeline, err := engine.Build(mode, b, r.policy, logger)
	if err != nil {
		return evaluation.Report{}, err
	}
	svc := services.NewEvaluationService(logger, pipeline)

	report := evaluation.Report{
		RunID:     runID,
		Mode:      string(mode),
		Backend:   b.Name(),
		StartedAt: started.UTC(),
		Total:     len(units),
	}
	if r.observer != nil {
		r.observer.RunStarted(runID, mode, b.Name(), len(units))
	}
	logger.Info("evaluation run started", slog.String("backend", b.Name()), slog.Int("units", len(units)))

	state := models.AnalysisState{}
	metrics.SetRunState(string(mode), state)

	for i, u := range units {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled", slog.Int("remaining", len(units)-i), slog.Any("error", err))
			break
		}
		ordinal := i + 1
		logger.Info(fmt.Sprintf("[%d/%d] %s", ordinal, len(units), u.ID))

		if !u.Known {
			report.Skipped++
			metrics.ObserveUnit(string(mode), metrics.OutcomeSkipped, 0)
			logger.Warn("ground truth undeterminable, skipping unit", slog.String("unit", u.ID))
			r.observe(runID, ordinal, report, state)
			continue
		}

		verdict, duration, err := evaluate(ctx, svc, u)
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Warn("run cancelled, discarding unit in flight",
				slog.String("unit", u.ID),
				slog.Int("remaining", len(units)-i),
				slog.Any("error", ctxErr),
			)
			break
		}
		if err != nil {
			report.Failed++
			metrics.ObserveUnit(string(mode), metrics.OutcomeFailed, duration)
			logger.Error("unit processing failed, skipping", slog.String("unit", u.ID), slog.Any("error", err))
			r.observe(runID, ordinal, report, state)
			continue
		}

		state = evaluation.Absorb(u.GroundTruth, verdict.Positive(), state)
		report.Evaluated++
		metrics.ObserveUnit(string(mode), metrics.OutcomeEvaluated, duration)
		metrics.SetRunState(string(mode), state)
		logger.Info(evaluation.Snapshot(state), slog.String("unit", u.ID))
		r.observe(runID, ordinal, report, state)

		ev := sink.Event{
			RunID:       runID,
			Mode:        mode,
			Backend:     b.Name(),
			Unit:        u.ID,
			Ordinal:     ordinal,
			GroundTruth: u.GroundTruth,
			Predicted:   verdict.Positive(),
			Reason:      verdict.Explanation(),
			DurationMS:  float64(duration) / float64(time.Millisecond),
			State:       state,
			Timestamp:   r.now().UTC(),
		}
		if err := r.sink.Publish(ctx, ev); err != nil {
			logger.Warn("failed to publish unit event", slog.String("unit", u.ID), slog.Any("error", err))
		}
	}

	report.State = state
	report.Elapsed = r.now().Sub(started)
	logger.Info("evaluation run finished",
		slog.Int("evaluated", report.Evaluated),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Duration("elapsed", report.Elapsed),
		slog.Duration("p95", svc.LatencyP95()),
		slog.Duration("mean", svc.LatencyMean()),
	)
	if r.reportDir != "" {
		path, err := evaluation.WriteJSON(r.reportDir, report)
		if err != nil {
			logger.Warn("failed to write report", slog.Any("error", err))
		} else {
			logger.Info("report written", slog.String("path", path))
		}
	}
	if r.observer != nil {
		r.observer.RunFinished(report)
	}
	return report, nil
}

// evaluate classifies one unit, turning panics into errors so the run can go on.
func evaluate(ctx context.Context, svc *services.EvaluationService, u unit) (verdict models.Verdict, duration time.Duration, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while processing %s: %v", u.ID, rec)
		}
	}()

	input, err := u.Input()
	if err != nil {
		return nil, 0, fmt.Errorf("prepare input: %w", err)
	}
	return svc.Classify(ctx, u.ID, input)
}

func (r *Runner) observe(runID string, ordinal int, report evaluation.Report, state models.AnalysisState) {
	if r.observer == nil {
		return
	}
	r.observer.UnitDone(runID, Progress{
		Ordinal:   ordinal,
		Total:     report.Total,
		Evaluated: report.Evaluated,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
		State:     state,
	})
}
