package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisProvider) {
	t.Helper()
	srv := miniredis.RunT(t)
	p, err := NewRedisProvider(context.Background(), RedisConfig{Addr: srv.Addr()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return srv, p
}

func TestRedisProviderGetSetDel(t *testing.T) {
	_, p := newTestRedis(t)
	ctx := context.Background()

	if _, err := p.Get(ctx, "bfeval:answer:a"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
	if err := p.Set(ctx, "bfeval:answer:a", []byte(`{"bruteforce":true}`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := p.Get(ctx, "bfeval:answer:a")
	if err != nil || string(got) != `{"bruteforce":true}` {
		t.Fatalf("expected stored answer, got %q (%v)", got, err)
	}
	if err := p.Del(ctx, "bfeval:answer:a"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := p.Get(ctx, "bfeval:answer:a"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss after del, got %v", err)
	}
}

func TestRedisProviderSetNXAndExpiry(t *testing.T) {
	srv, p := newTestRedis(t)
	ctx := context.Background()

	ok, err := p.SetNX(ctx, "k", []byte("first"), time.Second)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to store, got %v (%v)", ok, err)
	}
	ok, err = p.SetNX(ctx, "k", []byte("second"), time.Second)
	if err != nil || ok {
		t.Fatalf("expected second SetNX to be rejected, got %v (%v)", ok, err)
	}
	if got, _ := p.Get(ctx, "k"); string(got) != "first" {
		t.Fatalf("expected first writer to win, got %q", got)
	}

	srv.FastForward(2 * time.Second)
	if _, err := p.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss after ttl, got %v", err)
	}
}

func TestNewRedisProviderFailsFast(t *testing.T) {
	if _, err := NewRedisProvider(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty address")
	}

	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()
	if _, err := NewRedisProvider(context.Background(), RedisConfig{Addr: addr, DialTimeout: 200 * time.Millisecond}); err == nil {
		t.Fatalf("expected ping failure against a stopped server")
	}
}
