package cache

import (
	"sync"
	"time"

	"github.com/smallbiznis/medicore/internal/clock"
)

// Cache is a concurrency safe key value store with per entry expiry.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Len() int
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type ttlCache[K comparable, V any] struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[K]entry[V]
}

type Option func(*options)

type options struct {
	clock clock.Clock
}

func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// NewTTLCache returns an in-memory cache. Expired entries are dropped lazily
// on access and on Set.
func NewTTLCache[K comparable, V any](opts ...Option) Cache[K, V] {
	o := options{clock: clock.SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &ttlCache[K, V]{
		clock:   o.clock,
		entries: map[K]entry[V]{},
	}
}

func (c *ttlCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *ttlCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.evictLocked(now)
	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
}

func (c *ttlCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *ttlCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked(c.clock.Now())
	return len(c.entries)
}

func (c *ttlCache[K, V]) evictLocked(now time.Time) {
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
