package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	original := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { sleep = original })
	return &slept
}

func TestDoReturnsFirstSuccess(t *testing.T) {
	slept := stubSleep(t)
	calls := 0
	got, err := Do(context.Background(), utils.DiscardLogger(), DefaultPolicy(), "test.success", func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 1 {
		t.Fatalf("expected one call returning ok, got %q after %d calls", got, calls)
	}
	if len(*slept) != 0 {
		t.Fatalf("expected no sleeps, got %v", *slept)
	}
}

func TestDoRecoversAfterTransientFailures(t *testing.T) {
	slept := stubSleep(t)
	calls := 0
	got, err := Do(context.Background(), utils.DiscardLogger(), Policy{MaxRetries: 2, Delay: 2 * time.Second}, "test.transient", func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("boom")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 || calls != 3 {
		t.Fatalf("expected 42 on third call, got %d after %d calls", got, calls)
	}
	if len(*slept) != 2 || (*slept)[0] != 2*time.Second || (*slept)[1] != 2*time.Second {
		t.Fatalf("expected two constant 2s sleeps, got %v", *slept)
	}
}

func TestDoExhausts(t *testing.T) {
	slept := stubSleep(t)
	cause := errors.New("unreachable")
	calls := 0
	_, err := Do(context.Background(), utils.DiscardLogger(), Policy{MaxRetries: 2, Delay: time.Second}, "backend.construct", func() (struct{}, error) {
		calls++
		return struct{}{}, cause
	})
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 || exhausted.Operation != "backend.construct" {
		t.Fatalf("unexpected exhausted error: %+v", exhausted)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected last error to be wrapped")
	}
	if len(*slept) != 2 {
		t.Fatalf("expected no sleep after the final attempt, got %d sleeps", len(*slept))
	}
}

func TestNegativeRetriesMeansSingleAttempt(t *testing.T) {
	stubSleep(t)
	calls := 0
	_, err := Do(context.Background(), nil, Policy{MaxRetries: -1}, "test.single", func() (int, error) {
		calls++
		return 0, errors.New("nope")
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected one failing attempt, got %d calls err=%v", calls, err)
	}
}

func TestDoStopsOnceContextIsCancelled(t *testing.T) {
	slept := stubSleep(t)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, utils.DiscardLogger(), Policy{MaxRetries: 2, Delay: time.Second}, "logs_verdict", func() (int, error) {
		calls++
		cancel()
		return 0, errors.New("connection reset")
	})
	if calls != 1 {
		t.Fatalf("expected a single attempt after cancellation, got %d", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		t.Fatalf("cancellation must not be reported as exhaustion")
	}
	if len(*slept) != 0 {
		t.Fatalf("expected no sleep after cancellation, got %v", *slept)
	}
}

func TestDoSkipsWorkOnDoneContext(t *testing.T) {
	stubSleep(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Do(ctx, nil, DefaultPolicy(), "flow_verdict", func() (int, error) {
		calls++
		return 1, nil
	})
	if calls != 0 || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected no attempt and context.Canceled, got %d calls err=%v", calls, err)
	}
}
