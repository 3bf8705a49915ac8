package backend

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/miradorstack/mirador-bfeval/internal/cache"
	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

type countingBackend struct {
	calls  int
	answer string
}

func (c *countingBackend) Name() string { return "counting" }

func (c *countingBackend) Generate(context.Context, Request) (json.RawMessage, error) {
	c.calls++
	return json.RawMessage(c.answer), nil
}

func TestCachingBackendReusesValidAnswers(t *testing.T) {
	mem, err := cache.NewMemoryProvider(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	next := &countingBackend{answer: `{"bruteforce":true,"reason":"r"}`}
	b := NewCachingBackend(next, mem, time.Minute, utils.DiscardLogger())
	req := Request{Task: TaskFlowVerdict, Inputs: map[string]string{InputFlowData: "Row 0: a: 1"}}

	for i := 0; i < 3; i++ {
		if _, err := b.Generate(context.Background(), req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", next.calls)
	}

	other := Request{Task: TaskFlowVerdict, Inputs: map[string]string{InputFlowData: "Row 1: a: 2"}}
	_, _ = b.Generate(context.Background(), other)
	if next.calls != 2 {
		t.Fatalf("expected distinct inputs to miss, got %d calls", next.calls)
	}
}

func TestCachingBackendSkipsInvalidAnswers(t *testing.T) {
	mem, _ := cache.NewMemoryProvider(16)
	next := &countingBackend{answer: `{"verdict":"maybe"}`}
	b := NewCachingBackend(next, mem, time.Minute, utils.DiscardLogger())
	req := Request{Task: TaskFlowVerdict, Inputs: map[string]string{InputFlowData: "x"}}

	_, _ = b.Generate(context.Background(), req)
	_, _ = b.Generate(context.Background(), req)
	if next.calls != 2 {
		t.Fatalf("expected invalid answers to bypass the cache, got %d calls", next.calls)
	}
}

func TestCachingBackendEvictsStaleEntries(t *testing.T) {
	mem, _ := cache.NewMemoryProvider(16)
	next := &countingBackend{answer: `{"bruteforce":false,"reason":"benign"}`}
	b := NewCachingBackend(next, mem, time.Minute, utils.DiscardLogger())
	req := Request{Task: TaskFlowVerdict, Inputs: map[string]string{InputFlowData: "Row 3: a: 1"}}
	if err := mem.Set(context.Background(), b.key(req), []byte(`{"bruteforce":"yes"}`), time.Minute); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	out, err := b.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != next.answer || next.calls != 1 {
		t.Fatalf("expected a fresh upstream answer, got %s after %d calls", out, next.calls)
	}
	stored, err := mem.Get(context.Background(), b.key(req))
	if err != nil || string(stored) != next.answer {
		t.Fatalf("expected the stale entry to be replaced, got %s (%v)", stored, err)
	}
}

// racingProvider lets another writer store an answer between Get and SetNX.
type racingProvider struct {
	*cache.MemoryProvider
	winner []byte
}

func (r *racingProvider) SetNX(ctx context.Context, key string, _ []byte, ttl time.Duration) (bool, error) {
	if err := r.MemoryProvider.Set(ctx, key, r.winner, ttl); err != nil {
		return false, err
	}
	return false, nil
}

func TestCachingBackendFirstStoredAnswerWins(t *testing.T) {
	mem, _ := cache.NewMemoryProvider(16)
	winner := `{"bruteforce":true,"reason":"stored by another run"}`
	provider := &racingProvider{MemoryProvider: mem, winner: []byte(winner)}
	next := &countingBackend{answer: `{"bruteforce":false,"reason":"late"}`}
	b := NewCachingBackend(next, provider, time.Minute, utils.DiscardLogger())
	req := Request{Task: TaskFlowVerdict, Inputs: map[string]string{InputFlowData: "Row 4: a: 1"}}

	out, err := b.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != winner {
		t.Fatalf("expected the first stored answer, got %s", out)
	}
}
