package sink

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/miradorstack/mirador-bfeval/internal/models"
)

func TestFileSinkRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		path := filepath.Join(t.TempDir(), "events", "run.jsonl")
		s, err := NewFileSink(path, compress)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ts := time.Date(2024, 3, 10, 13, 45, 0, 0, time.UTC)
		for i := 1; i <= 3; i++ {
			ev := Event{RunID: "run-1", Mode: models.ModeFlows, Unit: "row", Ordinal: i, GroundTruth: i%2 == 0, Predicted: true, Timestamp: ts}
			if err := s.Publish(context.Background(), ev); err != nil {
				t.Fatalf("publish: %v", err)
			}
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		if err := s.Publish(context.Background(), Event{}); err == nil {
			t.Fatalf("expected publish after close to fail")
		}

		events, err := ReadEvents(path, compress)
		if err != nil {
			t.Fatalf("read events (compress=%v): %v", compress, err)
		}
		if len(events) != 3 || events[2].Ordinal != 3 || !events[1].GroundTruth {
			t.Fatalf("unexpected events (compress=%v): %+v", compress, events)
		}
	}
}

type failingSink struct{ closed bool }

func (f *failingSink) Publish(context.Context, Event) error { return errors.New("broker down") }
func (f *failingSink) Close() error                         { f.closed = true; return nil }

func TestMultiJoinsErrors(t *testing.T) {
	bad := &failingSink{}
	m := Multi{Noop{}, bad}
	if err := m.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error from failing sink")
	}
	if err := m.Close(); err != nil || !bad.closed {
		t.Fatalf("expected every sink to be closed, err=%v", err)
	}
}
