package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindow enforces a sliding-window cap shared across processes
// using a Redis sorted set, exactly the ZREMRANGEBYSCORE / ZCARD /
// ZADD pipeline in DercyCheng-go-aigateway's RedisRateLimiter.checkLimit,
// generalized from one window to the pair this dispatcher needs.
// It implements the same Acquire contract as Limiter so the two are
// interchangeable behind RateLimiter's interface.
type RedisWindow struct {
	client       *redis.Client
	minuteKey    string
	hourKey      string
	perMinuteCap int
	perHourCap   int
}

// NewRedisWindow creates a distributed limiter under the given key
// namespace.
func NewRedisWindow(client *redis.Client, namespace string, perMinuteCap, perHourCap int) *RedisWindow {
	return &RedisWindow{
		client:       client,
		minuteKey:    "ratelimit:" + namespace + ":minute",
		hourKey:      "ratelimit:" + namespace + ":hour",
		perMinuteCap: perMinuteCap,
		perHourCap:   perHourCap,
	}
}

// Acquire blocks until both windows admit the call, polling at a
// fixed interval between attempts since Redis offers no blocking
// primitive over a sorted-set window.
func (w *RedisWindow) Acquire(ctx context.Context) error {
	for {
		ok, err := w.tryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(200 * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (w *RedisWindow) tryAcquire(ctx context.Context) (bool, error) {
	now := time.Now()

	minuteOK, err := w.checkAndRecord(ctx, w.minuteKey, now, time.Minute, w.perMinuteCap)
	if err != nil {
		return false, err
	}
	if !minuteOK {
		return false, nil
	}

	hourOK, err := w.checkAndRecord(ctx, w.hourKey, now, time.Hour, w.perHourCap)
	if err != nil {
		return false, err
	}
	if !hourOK {
		// undo the minute-window record since the call is refused overall
		w.client.ZRem(ctx, w.minuteKey, member(now))
		return false, nil
	}

	return true, nil
}

// checkAndRecord atomically evicts stale members, counts the
// remainder, and adds the current call; if the count was already at
// cap, the added call is removed again and the call is refused.
func (w *RedisWindow) checkAndRecord(ctx context.Context, key string, now time.Time, window time.Duration, cap int) (bool, error) {
	if cap <= 0 {
		return true, nil
	}

	windowStart := now.Add(-window)

	pipe := w.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member(now)})
	pipe.Expire(ctx, key, window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if int(countCmd.Val()) >= cap {
		w.client.ZRem(ctx, key, member(now))
		return false, nil
	}
	return true, nil
}

func member(now time.Time) string {
	return fmt.Sprintf("%d", now.UnixNano())
}
