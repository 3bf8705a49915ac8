package sink

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	natsserver "github.com/nats-io/nats-server/v2/test"

	"github.com/miradorstack/mirador-bfeval/internal/models"
)

func TestNATSSinkPublishesEvents(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	srv := natsserver.RunServer(&opts)
	defer srv.Shutdown()

	sub, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect subscriber: %v", err)
	}
	defer sub.Close()
	msgs := make(chan *nats.Msg, 4)
	if _, err := sub.ChanSubscribe("bfeval.units", msgs); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	s, err := NewNATSSink(srv.ClientURL(), "bfeval.units")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := Event{RunID: "run-1", Mode: models.ModeLogs, Unit: "MALICIOUS_ssh.txt", Ordinal: 1, GroundTruth: true, Predicted: true}
	if err := s.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case msg := <-msgs:
		var got Event
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if got.RunID != "run-1" || got.Unit != "MALICIOUS_ssh.txt" || !got.Predicted {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("expected an event on bfeval.units")
	}
}

func TestNewNATSSinkUnreachable(t *testing.T) {
	if _, err := NewNATSSink("nats://127.0.0.1:1", "bfeval.units"); err == nil {
		t.Fatalf("expected connection error")
	}
}
