package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-bfeval/internal/engine"
	"github.com/miradorstack/mirador-bfeval/internal/models"
	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

// EvaluationService fronts a classification pipeline and tracks per-unit latency.
type EvaluationService struct {
	logger    *slog.Logger
	pipeline  engine.Pipeline
	latencies *utils.LatencyTracker
}

// NewEvaluationService constructs the service facade.
func NewEvaluationService(logger *slog.Logger, pipeline engine.Pipeline) *EvaluationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvaluationService{
		logger:    logger,
		pipeline:  pipeline,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Mode reports the pipeline variant.
func (s *EvaluationService) Mode() models.Mode {
	if s.pipeline == nil {
		return ""
	}
	return s.pipeline.Mode()
}

// Classify runs the pipeline on one serialized unit and returns the verdict with its duration.
func (s *EvaluationService) Classify(ctx context.Context, unit, input string) (models.Verdict, time.Duration, error) {
	if s.pipeline == nil {
		return nil, 0, fmt.Errorf("pipeline not configured")
	}

	s.logger.Debug("Classify called", slog.String("unit", unit), slog.Int("input_bytes", len(input)))

	start := time.Now()
	verdict := s.pipeline.Classify(ctx, input)
	duration := time.Since(start)

	s.latencies.Observe(duration)
	if total := s.latencies.Total(); total%20 == 0 {
		s.logger.Info("classification latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Duration("mean", s.latencies.Mean()),
			slog.Int("window", s.latencies.Count()),
			slog.Int("units", total),
		)
	}
	return verdict, duration, nil
}

// LatencyP95 returns the current p95 classification latency.
func (s *EvaluationService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

// LatencyMean returns the mean classification latency of the recent window.
func (s *EvaluationService) LatencyMean() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Mean()
}
