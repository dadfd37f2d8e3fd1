package cache

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/bridgify/batchdispatch/internal/domain"
)

// RedisMirror wraps a Cache with an optional Redis-backed L2, exactly
// the two-level shape of worker_server/pkg/ratelimit's EmailListCache:
// L1 (local, fast) is checked first, L2 (Redis, shared across
// processes) backstops it and repopulates L1 on a hit. A nil client
// degrades transparently to L1-only behavior.
type RedisMirror struct {
	l1     *Cache
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisMirror wraps l1 with an optional redis client. client may be
// nil.
func NewRedisMirror(l1 *Cache, client *redis.Client, keyPrefix string, ttl time.Duration) *RedisMirror {
	return &RedisMirror{l1: l1, redis: client, prefix: keyPrefix, ttl: ttl}
}

// GetCtx checks L1 then L2, repopulating L1 on an L2 hit.
func (m *RedisMirror) GetCtx(ctx context.Context, key string) (domain.Response, bool) {
	if v, ok := m.l1.Get(key); ok {
		return v, true
	}
	if m.redis == nil {
		return domain.Response{}, false
	}

	data, err := m.redis.Get(ctx, m.prefix+key).Bytes()
	if err != nil {
		return domain.Response{}, false
	}
	var v domain.Response
	if err := json.Unmarshal(data, &v); err != nil {
		return domain.Response{}, false
	}
	m.l1.Put(key, v, m.ttl)
	return v, true
}

// PutCtx writes through to both L1 and, if configured, L2.
func (m *RedisMirror) PutCtx(ctx context.Context, key string, value domain.Response, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.ttl
	}
	m.l1.Put(key, value, ttl)
	if m.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	m.redis.Set(ctx, m.prefix+key, data, ttl)
}

// Get satisfies the ctx-less cache contract batchworker and processor
// depend on, using a background context for the L2 round trip — the
// Redis call is a best-effort backstop, not on any caller's deadline.
func (m *RedisMirror) Get(key string) (domain.Response, bool) {
	return m.GetCtx(context.Background(), key)
}

// Put satisfies the ctx-less cache contract, see Get.
func (m *RedisMirror) Put(key string, value domain.Response, ttl time.Duration) {
	m.PutCtx(context.Background(), key, value, ttl)
}

// Clear resets L1 only; L2 entries expire on their own TTL, matching
// spec.md's clear_caches contract ("does not reset metrics") — cache
// clearing is a local, fast operation, not a distributed invalidation.
func (m *RedisMirror) Clear() {
	m.l1.Clear()
}

// Len reports the L1 entry count.
func (m *RedisMirror) Len() int {
	return m.l1.Len()
}
