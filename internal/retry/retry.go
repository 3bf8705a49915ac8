// Package retry runs fallible operations a bounded number of times with a constant pause.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-bfeval/internal/metrics"
)

const (
	DefaultMaxRetries = 2
	DefaultDelay      = 2 * time.Second
)

// Policy bounds an operation to MaxRetries+1 attempts separated by Delay.
type Policy struct {
	MaxRetries int           `yaml:"maxRetries"`
	Delay      time.Duration `yaml:"delay"`
}

// DefaultPolicy returns two retries two seconds apart.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: DefaultMaxRetries, Delay: DefaultDelay}
}

// Attempts is the total number of tries the policy allows.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// ExhaustedError reports that every attempt of an operation failed.
type ExhaustedError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: all %d attempts failed: %v", e.Operation, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// sleep blocks the caller; swapped out by tests.
var sleep = time.Sleep

// Do calls fn until it succeeds or the policy runs out of attempts. The pause between
// attempts is not interruptible. On exhaustion the last error is wrapped in *ExhaustedError.
// Once ctx is done no further attempt is made and the context error is returned instead.
func Do[T any](ctx context.Context, logger *slog.Logger, policy Policy, operation string, fn func() (T, error)) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}
	attempts := policy.Attempts()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s: %w", operation, err)
		}
		result, err := fn()
		if err == nil {
			metrics.ObserveRetry(operation, metrics.RetrySuccess)
			return result, nil
		}
		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Warn("operation cancelled",
				slog.String("operation", operation),
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
			return zero, fmt.Errorf("%s: %w", operation, ctxErr)
		}

		if attempt < attempts {
			metrics.ObserveRetry(operation, metrics.RetryAgain)
			logger.Warn("attempt failed, retrying",
				slog.String("operation", operation),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", attempts),
				slog.Duration("delay", policy.Delay),
				slog.Any("error", err),
			)
			if policy.Delay > 0 {
				sleep(policy.Delay)
			}
			continue
		}

		metrics.ObserveRetry(operation, metrics.RetryExhausted)
		logger.Error("all attempts failed",
			slog.String("operation", operation),
			slog.Int("attempts", attempts),
			slog.Any("error", err),
		)
	}

	return zero, &ExhaustedError{Operation: operation, Attempts: attempts, Err: lastErr}
}
