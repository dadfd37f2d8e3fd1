package batchworker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bridgify/batchdispatch/internal/clock"
	"github.com/bridgify/batchdispatch/internal/compose"
	"github.com/bridgify/batchdispatch/internal/domain"
	"github.com/bridgify/batchdispatch/internal/endpoint"
	"github.com/bridgify/batchdispatch/internal/metrics"
	"github.com/bridgify/batchdispatch/internal/ratelimit"
)

type fakeInvoker struct {
	result endpoint.Result
	kind   domain.ErrorKind
	calls  int
}

func (f *fakeInvoker) Invoke(ctx context.Context, call compose.Call) (endpoint.Result, domain.ErrorKind) {
	f.calls++
	return f.result, f.kind
}

type fakeCache struct {
	puts map[string]domain.Response
}

func newFakeCache() *fakeCache { return &fakeCache{puts: make(map[string]domain.Response)} }

func (c *fakeCache) Get(key string) (domain.Response, bool) {
	v, ok := c.puts[key]
	return v, ok
}

func (c *fakeCache) Put(key string, value domain.Response, ttl time.Duration) {
	c.puts[key] = value
}

func unlimitedLimiter() ratelimit.RateLimiter {
	return ratelimit.New(0, 0, clock.NewFrozen(time.Unix(0, 0)))
}

func TestRunDeliversSuccessAndCachesByDedupKey(t *testing.T) {
	invoker := &fakeInvoker{
		result: endpoint.Result{
			Text:  `{"classifications":[{"index":0,"category":"work"}]}`,
			Usage: compose.Usage{TotalTokens: 10, CostEstimate: 0.01},
		},
	}
	respCache := newFakeCache()
	m := metrics.New()
	w := New(unlimitedLimiter(), invoker, respCache, time.Minute, m, zerolog.Nop())

	var got domain.Response
	req := &domain.Request{
		ID: "r1", Type: domain.TypeClassification, DedupKey: "dk-1",
		Callback: func(r domain.Response) { got = r },
	}
	batch := &domain.Batch{Type: domain.TypeClassification, Requests: []*domain.Request{req}}

	w.Run(context.Background(), batch)

	if !got.Success {
		t.Fatalf("expected successful response, got %+v", got)
	}
	if _, ok := respCache.Get("dk-1"); !ok {
		t.Error("expected successful response to be cached under its dedup key")
	}
	snap := m.Snapshot(0, 0, 0)
	if snap.TotalBatches != 1 {
		t.Errorf("expected one recorded batch, got %d", snap.TotalBatches)
	}
}

func TestRunDeliversFailureToEveryRequestOnEndpointError(t *testing.T) {
	invoker := &fakeInvoker{kind: domain.ErrServerError}
	m := metrics.New()
	w := New(unlimitedLimiter(), invoker, newFakeCache(), time.Minute, m, zerolog.Nop())

	var responses []domain.Response
	requests := []*domain.Request{
		{ID: "a", Type: domain.TypeDraftGeneration, Callback: func(r domain.Response) { responses = append(responses, r) }},
		{ID: "b", Type: domain.TypeDraftGeneration, Callback: func(r domain.Response) { responses = append(responses, r) }},
	}
	batch := &domain.Batch{Type: domain.TypeDraftGeneration, Requests: requests}

	w.Run(context.Background(), batch)

	if len(responses) != 2 {
		t.Fatalf("expected 2 responses (one call per draft request), got %d", len(responses))
	}
	for _, r := range responses {
		if r.Success || r.Error != domain.ErrServerError {
			t.Errorf("expected server_error failure, got %+v", r)
		}
	}
	snap := m.Snapshot(0, 0, 0)
	if snap.Errors != 2 {
		t.Errorf("expected 2 errors recorded, got %d", snap.Errors)
	}
}

func TestRunPartitionsMixedTypeBatch(t *testing.T) {
	invoker := &fakeInvoker{
		result: endpoint.Result{Text: "a reply", Usage: compose.Usage{TotalTokens: 1}},
	}
	w := New(unlimitedLimiter(), invoker, newFakeCache(), time.Minute, metrics.New(), zerolog.Nop())

	delivered := 0
	cb := func(domain.Response) { delivered++ }
	batch := &domain.Batch{Requests: []*domain.Request{
		{ID: "1", Type: domain.TypeGeneric, Callback: cb},
		{ID: "2", Type: domain.TypeDraftGeneration, Callback: cb},
	}}

	w.Run(context.Background(), batch)

	if delivered != 2 {
		t.Errorf("expected both mixed-type requests delivered, got %d", delivered)
	}
	if invoker.calls != 2 {
		t.Errorf("expected one endpoint call per partitioned sub-batch, got %d", invoker.calls)
	}
}
