package ratelimit

import "context"

// RateLimiter is satisfied by both the in-memory Limiter and the
// Redis-backed RedisWindow, so BatchWorker can depend on the interface
// without caring which backend a deployment chose.
type RateLimiter interface {
	Acquire(ctx context.Context) error
}
