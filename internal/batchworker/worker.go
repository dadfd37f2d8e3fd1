// Package batchworker implements the BatchWorker of spec.md section
// 4.9: the per-batch orchestration pipeline that turns one assembled
// Batch into delivered Responses. Grounded on
// worker_server/adapter/in/worker/worker_pool.go's processJob (timeout
// wrapping, structured failure logging) generalized from one job to
// one batch with a partition/compose/call/decompose/deliver pipeline.
package batchworker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bridgify/batchdispatch/internal/compose"
	"github.com/bridgify/batchdispatch/internal/domain"
	"github.com/bridgify/batchdispatch/internal/endpoint"
	"github.com/bridgify/batchdispatch/internal/metrics"
	"github.com/bridgify/batchdispatch/internal/ratelimit"
)

// Invoker is the subset of endpoint.Client the worker depends on,
// narrowed for testability.
type Invoker interface {
	Invoke(ctx context.Context, call compose.Call) (endpoint.Result, domain.ErrorKind)
}

// ResponseCache is the subset of cache.Cache the worker depends on.
type ResponseCache interface {
	Get(key string) (domain.Response, bool)
	Put(key string, value domain.Response, ttl time.Duration)
}

// Worker drives one Batch through partition, compose, rate-limited
// invocation, decompose and delivery.
type Worker struct {
	limiter  ratelimit.RateLimiter
	endpoint Invoker
	cache    ResponseCache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// New builds a Worker from its collaborators.
func New(limiter ratelimit.RateLimiter, ep Invoker, respCache ResponseCache, cacheTTL time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Worker {
	return &Worker{
		limiter:  limiter,
		endpoint: ep,
		cache:    respCache,
		cacheTTL: cacheTTL,
		metrics:  m,
		log:      logger.With().Str("component", "batch_worker").Logger(),
	}
}

// Run executes one Batch to completion, delivering exactly one
// Response per contained Request via its Callback, then returns. It
// never panics on a single request's failure: errors are isolated to
// the sub-batch (or single call, for non-bundled types) that produced
// them.
func (w *Worker) Run(ctx context.Context, batch *domain.Batch) {
	start := time.Now()
	batchID := uuid.NewString()
	log := w.log.With().Str("batch_id", batchID).Logger()

	for _, sub := range batch.Partition() {
		w.runSubBatch(ctx, log, sub)
	}

	w.metrics.RecordBatch(batch.Len(), float64(time.Since(start).Milliseconds()))
}

func (w *Worker) runSubBatch(ctx context.Context, log zerolog.Logger, sub *domain.Batch) {
	composer := compose.ForType(sub.Type)
	calls := composer.Compose(sub.Requests)

	for _, call := range calls {
		w.runCall(ctx, log, composer, call)
	}
}

func (w *Worker) runCall(ctx context.Context, log zerolog.Logger, composer compose.Composer, call compose.Call) {
	if err := w.limiter.Acquire(ctx); err != nil {
		w.deliverAll(call.Requests, domain.NewFailure("", domain.ErrCancelled, 0))
		return
	}

	callStart := time.Now()
	result, kind := w.endpoint.Invoke(ctx, call)
	elapsed := float64(time.Since(callStart).Milliseconds())

	if kind != "" {
		log.Warn().Str("kind", string(kind)).Int("requests", len(call.Requests)).Msg("batch call failed")
		w.deliverAll(call.Requests, domain.NewFailure("", kind, elapsed))
		return
	}

	responses := composer.Decompose(call, result.Text, result.Usage)
	for i, resp := range responses {
		if i < len(call.Requests) {
			resp.ProcessingTimeMs = elapsed
			w.deliver(call.Requests[i], resp)
		}
	}
}

// deliverAll stamps every request in a failed call with the same
// ErrorKind (the request ID is filled in per-request since the
// template carries an empty one). deliver is the single point that
// records the terminal metrics update per request, so deliverAll does
// not record errors itself — doing so too would double-count each
// failed request.
func (w *Worker) deliverAll(requests []*domain.Request, template domain.Response) {
	for _, r := range requests {
		resp := template
		resp.RequestID = r.ID
		w.deliver(r, resp)
	}
}

func (w *Worker) deliver(r *domain.Request, resp domain.Response) {
	if resp.Success {
		w.metrics.AddTokensAndCost(resp.TokensUsed, resp.CostEstimate)
		if r.DedupKey != "" {
			w.cache.Put(r.DedupKey, resp, w.cacheTTL)
		}
	} else {
		w.metrics.IncErrors(1)
	}

	if r.Callback != nil {
		r.Callback(resp)
	}
}
