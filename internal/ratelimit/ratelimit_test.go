package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/bridgify/batchdispatch/internal/clock"
)

func TestLimiterAllowsUnderCap(t *testing.T) {
	clk := clock.NewFrozen(time.Unix(0, 0))
	l := New(2, 0, clk)

	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := l.Snapshot()
	if snap.MinuteCalls != 2 {
		t.Errorf("expected 2 recorded minute calls, got %d", snap.MinuteCalls)
	}
}

func TestLimiterBlockedAcquireReturnsOnCancel(t *testing.T) {
	clk := clock.NewFrozen(time.Unix(0, 0))
	l := New(1, 0, clk)

	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("unexpected error on first acquire: %v", err)
	}

	// Third-party caller cancels instead of waiting out the window.
	cancelCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- l.Acquire(cancelCtx) }()

	cancel()
	if err := <-done; err == nil {
		t.Fatal("expected cancellation to unblock Acquire with an error")
	}
}

func TestLimiterEvictsStaleEntries(t *testing.T) {
	clk := clock.NewFrozen(time.Unix(0, 0))
	l := New(1, 0, clk)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clk.Advance(time.Minute + time.Second)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("expected window to have freed up after advancing past a minute: %v", err)
	}
}

func TestLimiterUnlimitedWhenCapZero(t *testing.T) {
	clk := clock.NewFrozen(time.Unix(0, 0))
	l := New(0, 0, clk)

	for i := 0; i < 1000; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("unexpected error on call %d: %v", i, err)
		}
	}
}
