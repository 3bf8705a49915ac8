package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemorySize bounds the in-process cache when no size is configured.
const DefaultMemorySize = 4096

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryProvider is a size-bounded in-process Provider with per-entry TTL.
type MemoryProvider struct {
	mu    sync.Mutex
	items *lru.Cache[string, memoryItem]
	now   func() time.Time
}

// NewMemoryProvider creates an LRU cache holding at most size entries.
func NewMemoryProvider(size int) (*MemoryProvider, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	items, err := lru.New[string, memoryItem](size)
	if err != nil {
		return nil, err
	}
	return &MemoryProvider{items: items, now: time.Now}, nil
}

// Get returns ErrCacheMiss for absent or expired keys.
func (p *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	it, ok := p.items.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	if p.expired(it) {
		p.items.Remove(key)
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), it.value...), nil
}

// Set stores a copy of value; ttl <= 0 keeps it until evicted.
func (p *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items.Add(key, p.item(value, ttl))
	return nil
}

// SetNX stores value only when key is absent or expired.
func (p *MemoryProvider) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if it, ok := p.items.Peek(key); ok && !p.expired(it) {
		return false, nil
	}
	p.items.Add(key, p.item(value, ttl))
	return true, nil
}

// Del removes key.
func (p *MemoryProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items.Remove(key)
	return nil
}

// Close drops every entry.
func (p *MemoryProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items.Purge()
	return nil
}

func (p *MemoryProvider) item(value []byte, ttl time.Duration) memoryItem {
	it := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		it.expiresAt = p.now().Add(ttl)
	}
	return it
}

func (p *MemoryProvider) expired(it memoryItem) bool {
	return !it.expiresAt.IsZero() && !p.now().Before(it.expiresAt)
}
