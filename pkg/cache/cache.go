// Package cache provides an in-memory map whose entries expire a fixed
// duration after they are stored.
package cache

import (
	"context"
	"sync"
	"time"
)

// Option configures a Cache.
type Option func(*config)

type config struct {
	now func() time.Time
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL keyed store. It has no capacity bound. It is safe for
// concurrent use; concurrent writes to the same key resolve as last write
// wins.
type Cache[V any] struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]entry[V]
}

// New returns an empty cache whose entries live for ttl.
func New[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache[V]{
		ttl:     ttl,
		now:     cfg.now,
		entries: make(map[string]entry[V]),
	}
}

// TTL returns the lifetime given to new entries.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the value stored under key if it has not expired. An expired
// entry is removed and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}
	if now.Before(e.expiresAt) {
		return e.value, true
	}

	c.mu.Lock()
	// Re-check: a Put may have refreshed the entry since the read lock.
	if cur, ok := c.entries[key]; ok && !now.Before(cur.expiresAt) {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	var zero V
	return zero, false
}

// Put stores value under key with a fresh expiry, replacing any existing
// entry.
func (c *Cache[V]) Put(key string, value V) {
	e := entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet
// purged.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge removes every expired entry and returns how many were removed.
func (c *Cache[V]) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Run purges expired entries every interval until ctx is cancelled. It is
// meant to be started in its own goroutine. onPurge, if non-nil, is called
// after each sweep that removed entries.
func (c *Cache[V]) Run(ctx context.Context, interval time.Duration, onPurge func(removed int)) {
	if interval <= 0 {
		interval = c.ttl
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Purge(); n > 0 && onPurge != nil {
				onPurge(n)
			}
		}
	}
}
