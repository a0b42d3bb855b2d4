// Package cache provides a bounded TTL cache for read-heavy lookups such as
// character snapshots and reward claim responses.
//
// The cache is an explicit component passed by reference, never a
// module-level singleton. Entries expire after a fixed TTL or on explicit
// eviction; when capacity is reached the entry closest to expiry is dropped.
package cache

import (
	"sync"
	"time"
)

// Cache is a bounded in-memory cache with per-entry expiry.
type Cache[V any] struct {
	mu       sync.Mutex
	entries  map[string]entry[V]
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Option configures cache construction.
type Option[V any] func(*Cache[V])

// WithClock overrides the cache clock, primarily for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		c.now = now
	}
}

// New creates a cache holding at most capacity entries for ttl each.
// A non-positive capacity defaults to 128; a non-positive ttl defaults to
// one minute.
func New[V any](capacity int, ttl time.Duration, opts ...Option[V]) *Cache[V] {
	if capacity <= 0 {
		capacity = 128
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	c := &Cache[V]{
		entries:  make(map[string]entry[V], capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.now().Before(cached.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	return cached.value, true
}

// Put stores a value under key, evicting the entry closest to expiry when
// the cache is full.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.pruneLocked(now)

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictSoonestLocked()
	}
	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
}

// Evict removes a key immediately.
func (c *Cache[V]) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of unexpired entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(c.now())
	return len(c.entries)
}

func (c *Cache[V]) pruneLocked(now time.Time) {
	for key, cached := range c.entries {
		if !now.Before(cached.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *Cache[V]) evictSoonestLocked() {
	var victim string
	var victimExpiry time.Time
	first := true
	for key, cached := range c.entries {
		if first || cached.expiresAt.Before(victimExpiry) {
			victim = key
			victimExpiry = cached.expiresAt
			first = false
		}
	}
	if !first {
		delete(c.entries, victim)
	}
}
