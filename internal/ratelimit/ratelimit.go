// Package ratelimit enforces the sliding-window requests-per-minute
// and requests-per-hour caps of spec.md section 4.2. The in-memory
// implementation keeps one ordered slice of call timestamps per
// window, bounded by the longer window, and evicts stale entries on
// every access — the same shape as worker_server's
// AdvancedRateLimiter, generalized from per-IP/per-user HTTP buckets
// to the two fixed windows the dispatcher itself calls under.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/bridgify/batchdispatch/internal/clock"
)

// Limiter blocks Acquire callers until both windows have headroom.
type Limiter struct {
	mu sync.Mutex

	perMinuteCap int
	perHourCap   int

	minuteCalls []time.Time
	hourCalls   []time.Time

	clock clock.Clock
}

// New creates a Limiter enforcing perMinuteCap and perHourCap. A cap
// of 0 means unlimited for that window.
func New(perMinuteCap, perHourCap int, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Limiter{perMinuteCap: perMinuteCap, perHourCap: perHourCap, clock: clk}
}

// Acquire blocks until admission is possible under both windows, then
// records the call. It returns early with ctx.Err() if ctx is
// cancelled first (spec.md: "cancellation wakes and returns a
// cancellation signal").
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		wait, ok := l.tryAcquire()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// loop and re-check
		}
	}
}

// tryAcquire reports whether admission succeeds right now; if not, it
// returns the minimum duration until some entry will expire and
// headroom might reopen.
func (l *Limiter) tryAcquire() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.evictLocked(now)

	minuteOK := l.perMinuteCap <= 0 || len(l.minuteCalls) < l.perMinuteCap
	hourOK := l.perHourCap <= 0 || len(l.hourCalls) < l.perHourCap

	if minuteOK && hourOK {
		l.minuteCalls = append(l.minuteCalls, now)
		l.hourCalls = append(l.hourCalls, now)
		return 0, true
	}

	return l.minWaitLocked(now, minuteOK, hourOK), false
}

// evictLocked drops timestamps that have fallen out of their window.
// Called with l.mu held.
func (l *Limiter) evictLocked(now time.Time) {
	l.minuteCalls = evictBefore(l.minuteCalls, now.Add(-time.Minute))
	l.hourCalls = evictBefore(l.hourCalls, now.Add(-time.Hour))
}

func evictBefore(calls []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(calls) && calls[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return calls
	}
	return append([]time.Time{}, calls[i:]...)
}

// minWaitLocked computes how long until the saturated window(s) next
// have headroom: the time until their oldest entry ages out.
func (l *Limiter) minWaitLocked(now time.Time, minuteOK, hourOK bool) time.Duration {
	wait := time.Second // fallback poll interval
	have := false

	consider := func(until time.Duration) {
		if until <= 0 {
			return
		}
		if !have || until < wait {
			wait = until
			have = true
		}
	}

	if !minuteOK && len(l.minuteCalls) > 0 {
		consider(l.minuteCalls[0].Add(time.Minute).Sub(now))
	}
	if !hourOK && len(l.hourCalls) > 0 {
		consider(l.hourCalls[0].Add(time.Hour).Sub(now))
	}
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait
}

// Snapshot reports the current call counts in each window, a derived
// gauge usable by Metrics.
type Snapshot struct {
	MinuteCalls int
	HourCalls   int
}

func (l *Limiter) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	l.evictLocked(now)
	return Snapshot{MinuteCalls: len(l.minuteCalls), HourCalls: len(l.hourCalls)}
}
