package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-bfeval/internal/cache"
)

// CachingBackend memoises answers of another Backend. Only schema-valid answers are stored.
type CachingBackend struct {
	next   Backend
	cache  cache.Provider
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachingBackend wraps next. A nil provider disables caching.
func NewCachingBackend(next Backend, provider cache.Provider, ttl time.Duration, logger *slog.Logger) *CachingBackend {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingBackend{next: next, cache: provider, ttl: ttl, logger: logger}
}

// Name implements Backend.
func (c *CachingBackend) Name() string { return c.next.Name() }

// Generate implements Backend. Stored answers that no longer validate are evicted. When
// several runs share the cache the first stored answer wins, so they all score the same verdict.
func (c *CachingBackend) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	key := c.key(req)
	if data, ok := c.lookup(ctx, key, req.Task); ok {
		return data, nil
	}

	out, err := c.next.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if Validate(req.Task, out) != nil {
		return out, nil
	}
	stored, err := c.cache.SetNX(ctx, key, out, c.ttl)
	switch {
	case err != nil:
		c.logger.Warn("answer cache write failed", slog.String("task", string(req.Task)), slog.Any("error", err))
	case !stored:
		if data, ok := c.lookup(ctx, key, req.Task); ok {
			return data, nil
		}
	}
	return out, nil
}

func (c *CachingBackend) lookup(ctx context.Context, key string, task Task) (json.RawMessage, bool) {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn("answer cache read failed", slog.String("task", string(task)), slog.Any("error", err))
		}
		return nil, false
	}
	if err := Validate(task, data); err != nil {
		c.logger.Warn("evicting cached answer that fails validation", slog.String("task", string(task)), slog.Any("error", err))
		if err := c.cache.Del(ctx, key); err != nil {
			c.logger.Warn("answer cache evict failed", slog.String("task", string(task)), slog.Any("error", err))
		}
		return nil, false
	}
	return json.RawMessage(data), true
}

func (c *CachingBackend) key(req Request) string {
	sum := sha256.Sum256([]byte(c.next.Name() + "\x00" + req.Fingerprint()))
	return "bfeval:answer:" + hex.EncodeToString(sum[:])
}
