// Package cache implements the bounded TTL cache used for idempotent
// response lookup (dedup short-circuit, spec.md section 4.3). The shape is
// grounded on worker_server/pkg/ratelimit's L1Cache: a map plus an
// insertion-order slice, one mutex, lazy expiry on read.
package cache

import (
	"sync"
	"time"

	"github.com/bridgify/batchdispatch/internal/clock"
	"github.com/bridgify/batchdispatch/internal/domain"
)

type entry struct {
	value     domain.Response
	createdAt time.Time
	expiresAt time.Time
}

// Cache is a single bounded TTL map, safe for concurrent use. One
// Cache instance backs the response cache; no bundle-level cache
// instance is constructed anywhere in this repository.
type Cache struct {
	mu      sync.Mutex
	items   map[string]*entry
	order   []string // insertion order, for oldest-first eviction
	maxSize int
	ttl     time.Duration
	clock   clock.Clock
}

// New creates a Cache bounded at maxSize entries with the given
// default TTL. clk may be nil, in which case the real wall clock is
// used.
func New(maxSize int, ttl time.Duration, clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Cache{
		items:   make(map[string]*entry),
		maxSize: maxSize,
		ttl:     ttl,
		clock:   clk,
	}
}

// Get returns the cached value for key, or (zero, false) if absent or
// expired. An expired entry is evicted before returning a miss, so the
// cache never hands back a stale read on a later call either.
func (c *Cache) Get(key string) (domain.Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return domain.Response{}, false
	}
	if c.clock.Now().After(e.expiresAt) {
		delete(c.items, key)
		return domain.Response{}, false
	}
	return e.value, true
}

// Put stores value under key with ttl (or the cache's default TTL if
// ttl <= 0). If inserting would exceed maxSize, the oldest entry by
// insertion order is evicted first.
func (c *Cache) Put(key string, value domain.Response, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if _, exists := c.items[key]; !exists && c.maxSize > 0 && len(c.items) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.items[key] = &entry{value: value, createdAt: now, expiresAt: now.Add(ttl)}
	c.order = append(c.order, key)
}

// evictOldestLocked removes the single oldest still-present entry.
// Called with c.mu held.
func (c *Cache) evictOldestLocked() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.items[oldest]; ok {
			delete(c.items, oldest)
			return
		}
	}
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry)
	c.order = nil
}

// Len reports the current number of stored entries, including expired
// ones not yet evicted by a read, a derived gauge for Metrics snapshots.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
