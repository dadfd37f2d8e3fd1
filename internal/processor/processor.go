// Package processor implements the Processor of spec.md section 4.10:
// the lifecycle owner that ties the Queue, BatchAssembler, BatchWorker
// pool, Cache and Metrics together. Grounded on
// worker_server/adapter/in/worker/worker_pool.go's Start/Stop/Submit
// shape, rebuilt on go-pkgz/pool's bounded WorkerGroup instead of the
// teacher's own channel-plus-goroutine pool so max_concurrent_batches
// is enforced the same way DercyCheng-go-aigateway bounds its own
// dispatch fan-out.
package processor

import (
	"context"
	"sync"
	"time"

	"github.com/go-pkgz/pool"
	"github.com/rs/zerolog"

	"github.com/bridgify/batchdispatch/config"
	"github.com/bridgify/batchdispatch/internal/assembler"
	"github.com/bridgify/batchdispatch/internal/batchworker"
	"github.com/bridgify/batchdispatch/internal/cache"
	"github.com/bridgify/batchdispatch/internal/clock"
	"github.com/bridgify/batchdispatch/internal/domain"
	"github.com/bridgify/batchdispatch/internal/idgen"
	"github.com/bridgify/batchdispatch/internal/metrics"
	"github.com/bridgify/batchdispatch/internal/queue"
)

const idlePollInterval = 100 * time.Millisecond

// Processor is the single entry point embedders use: Submit admits
// work, the background scan loop assembles and dispatches batches, and
// GetMetrics/ClearCaches expose operational state.
type Processor struct {
	cfg       *config.Config
	q         *queue.Queue
	asm       *assembler.Assembler
	respCache cache.Store
	metrics   *metrics.Metrics
	clk       clock.Clock
	log       zerolog.Logger

	worker *batchworker.Worker
	pool   *pool.WorkerGroup[*domain.Batch]

	wakeCh chan struct{}

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type batchJob struct {
	p *Processor
}

// Do implements pool.Worker for one dispatched batch.
func (j *batchJob) Do(ctx context.Context, batch *domain.Batch) error {
	j.p.worker.Run(ctx, batch)
	return nil
}

// New wires a Processor from its configuration and collaborators.
// worker must already be bound to the same respCache the Processor
// holds, so dedup hits and worker-written cache entries share state.
func New(cfg *config.Config, worker *batchworker.Worker, respCache cache.Store, m *metrics.Metrics, clk clock.Clock, logger zerolog.Logger) *Processor {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Processor{
		cfg:       cfg,
		q:         queue.New(),
		asm:       assembler.New(cfg.Strategy, cfg.BatchSize, cfg.BatchTimeout, clk),
		respCache: respCache,
		metrics:   m,
		clk:       clk,
		log:       logger.With().Str("component", "processor").Logger(),
		worker:    worker,
		wakeCh:    make(chan struct{}, 1),
	}
}

// Start spins up the bounded worker pool and the background scan loop.
// Calling Start twice is a no-op.
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.pool = pool.New[*domain.Batch](p.cfg.MaxConcurrentBatches, &batchJob{p: p})
	if err := p.pool.Go(ctx); err != nil {
		p.log.Error().Err(err).Msg("failed to start batch worker pool")
		return
	}

	p.started = true

	p.wg.Add(1)
	go p.scanLoop(ctx)

	p.log.Info().
		Int("max_concurrent_batches", p.cfg.MaxConcurrentBatches).
		Str("strategy", string(p.cfg.Strategy)).
		Msg("processor started")
}

// Stop drains the scan loop and closes the worker pool, waiting up to
// the endpoint timeout for in-flight batches to finish.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer closeCancel()
	if err := p.pool.Close(closeCtx); err != nil {
		p.log.Warn().Err(err).Msg("error closing batch worker pool")
	}

	p.log.Info().Msg("processor stopped")
}

// Submit admits one request. If an identical, still-cached response
// already exists (matched by DedupKey), the callback fires immediately
// with the cached Response and the request never reaches the queue —
// spec.md's dedup short-circuit.
func (p *Processor) Submit(reqType domain.RequestType, payload domain.Payload, priority int, callback domain.Callback) string {
	now := p.clk.Now()
	id := idgen.RequestID(string(reqType), payload, now)
	dedupKey := idgen.DedupKey(string(reqType), payload)

	p.metrics.IncRequests()

	if cached, ok := p.respCache.Get(dedupKey); ok {
		p.metrics.IncDedupHit()
		p.metrics.IncCacheHit()
		if callback != nil {
			cached.RequestID = id
			callback(cached)
		}
		return id
	}

	req := &domain.Request{
		ID:          id,
		Type:        reqType,
		Payload:     payload,
		Priority:    domain.ClampPriority(priority),
		SubmittedAt: now,
		Callback:    callback,
		DedupKey:    dedupKey,
	}

	if p.cfg.MaxQueueSize > 0 && p.q.Depth() >= p.cfg.MaxQueueSize {
		if callback != nil {
			callback(domain.NewFailure(id, domain.ErrQueueFull, 0))
		}
		return id
	}

	p.q.Enqueue(req)
	p.signalScan()
	return id
}

// SubmitBulk admits a sequential fold of requests, mirroring
// original_source's batch submission helper: each request goes through
// the same dedup/queue path as Submit, in order.
func (p *Processor) SubmitBulk(reqType domain.RequestType, payloads []domain.Payload, priority int, callback domain.Callback) []string {
	ids := make([]string, len(payloads))
	for i, payload := range payloads {
		ids[i] = p.Submit(reqType, payload, priority, callback)
	}
	return ids
}

// GetMetrics returns a point-in-time snapshot including derived gauges.
func (p *Processor) GetMetrics() metrics.Snapshot {
	return p.metrics.Snapshot(p.q.Depth(), p.respCache.Len(), p.respCache.Len())
}

// ClearCaches empties the response/dedup cache without resetting any
// accumulated counter.
func (p *Processor) ClearCaches() {
	p.respCache.Clear()
}

func (p *Processor) signalScan() {
	select {
	case p.wakeCh <- struct{}{}:
		p.log.Debug().Msg("submit woke scan loop")
	default:
	}
}

// scanLoop wakes on every Submit (coalesced) and on an idle poll
// interval, so a time_based/hybrid batch still flushes even with no
// further admissions.
func (p *Processor) scanLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wakeCh:
			p.scanOnce()
		case <-ticker.C:
			p.scanOnce()
		}
	}
}

func (p *Processor) scanOnce() {
	for _, t := range p.q.Types() {
		for _, batch := range p.asm.Collect(p.q, t) {
			p.pool.Submit(batch)
		}
	}
}
