// Package sink publishes one event per evaluated unit.
package sink

import (
	"context"
	"errors"
	"time"

	"github.com/miradorstack/mirador-bfeval/internal/models"
)

// Event describes the outcome of one unit.
type Event struct {
	RunID       string               `json:"run_id"`
	Mode        models.Mode          `json:"mode"`
	Backend     string               `json:"backend"`
	Unit        string               `json:"unit"`
	Ordinal     int                  `json:"ordinal"`
	GroundTruth bool                 `json:"ground_truth"`
	Predicted   bool                 `json:"predicted"`
	Reason      string               `json:"reason,omitempty"`
	DurationMS  float64              `json:"duration_ms"`
	State       models.AnalysisState `json:"state"`
	Timestamp   time.Time            `json:"timestamp"`
}

// Sink receives unit events. Publish failures never abort a run.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop discards events.
type Noop struct{}

// Publish implements Sink.
func (Noop) Publish(context.Context, Event) error { return nil }

// Close implements Sink.
func (Noop) Close() error { return nil }

// Multi fans an event out to several sinks and joins their errors.
type Multi []Sink

// Publish implements Sink.
func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Sink.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
