// Package assembler implements the BatchAssembler of spec.md section
// 4.8: pure strategy functions that decide which queued requests are
// ready to ship as a batch. Grounded on original_source's
// ai_batch_processor.py _collect_size_based_batches /
// _collect_time_based_batches / _collect_hybrid_batches /
// _collect_priority_batches, translated from its per-priority-list
// pending_requests map into Queue.Snapshot/Release calls.
package assembler

import (
	"time"

	"github.com/bridgify/batchdispatch/config"
	"github.com/bridgify/batchdispatch/internal/clock"
	"github.com/bridgify/batchdispatch/internal/domain"
	"github.com/bridgify/batchdispatch/internal/queue"
)

// Assembler decides, per scan pass, which requests of one type are
// released into a Batch. It holds no state of its own; all state
// lives in the Queue it reads from.
type Assembler struct {
	strategy     config.Strategy
	batchSize    int
	batchTimeout time.Duration
	clk          clock.Clock
}

// New builds an Assembler bound to one release strategy.
func New(strategy config.Strategy, batchSize int, batchTimeout time.Duration, clk clock.Clock) *Assembler {
	return &Assembler{strategy: strategy, batchSize: batchSize, batchTimeout: batchTimeout, clk: clk}
}

// Collect scans q for one request type and releases every batch the
// configured strategy judges ready, in priority-descending order. It
// returns the released batches (each already removed from q).
func (a *Assembler) Collect(q *queue.Queue, t domain.RequestType) []*domain.Batch {
	switch a.strategy {
	case config.StrategySizeBased:
		return a.collectSizeBased(q, t)
	case config.StrategyTimeBased:
		return a.collectTimeBased(q, t)
	case config.StrategyHybrid:
		return a.collectHybrid(q, t)
	case config.StrategyPriority:
		return a.collectPriority(q, t)
	default:
		return nil
	}
}

// collectSizeBased releases every full batch_size group repeatedly,
// across every priority bucket, ignoring age entirely.
func (a *Assembler) collectSizeBased(q *queue.Queue, t domain.RequestType) []*domain.Batch {
	var batches []*domain.Batch
	for _, bucket := range bucketsByPriority(q.Snapshot(t)) {
		requests := bucket
		for len(requests) >= a.batchSize {
			released := requests[:a.batchSize]
			requests = requests[a.batchSize:]
			q.Release(t, released)
			batches = append(batches, newBatch(t, released))
		}
	}
	return batches
}

// collectTimeBased releases one batch per bucket (capped at
// batch_size) once the oldest request in that bucket has aged past
// batch_timeout, regardless of whether the bucket is full.
func (a *Assembler) collectTimeBased(q *queue.Queue, t domain.RequestType) []*domain.Batch {
	var batches []*domain.Batch
	now := a.clk.Now()
	for _, bucket := range bucketsByPriority(q.Snapshot(t)) {
		if len(bucket) == 0 {
			continue
		}
		if now.Sub(bucket[0].SubmittedAt) < a.batchTimeout {
			continue
		}
		n := a.batchSize
		if n > len(bucket) {
			n = len(bucket)
		}
		released := bucket[:n]
		q.Release(t, released)
		batches = append(batches, newBatch(t, released))
	}
	return batches
}

// collectHybrid releases a full batch on size, else a partial batch
// once the oldest request has aged past batch_timeout.
func (a *Assembler) collectHybrid(q *queue.Queue, t domain.RequestType) []*domain.Batch {
	var batches []*domain.Batch
	now := a.clk.Now()
	for _, bucket := range bucketsByPriority(q.Snapshot(t)) {
		if len(bucket) == 0 {
			continue
		}
		if len(bucket) >= a.batchSize {
			released := bucket[:a.batchSize]
			q.Release(t, released)
			batches = append(batches, newBatch(t, released))
			continue
		}
		if now.Sub(bucket[0].SubmittedAt) >= a.batchTimeout {
			q.Release(t, bucket)
			batches = append(batches, newBatch(t, bucket))
		}
	}
	return batches
}

// collectPriority gives high-priority requests (>=8) immediate,
// repeated release regardless of fill level; medium priority (5..7)
// releases a full batch once the bucket reaches half batch_size; low
// priority (<5) only ever releases full batches.
func (a *Assembler) collectPriority(q *queue.Queue, t domain.RequestType) []*domain.Batch {
	var batches []*domain.Batch
	for priority := 10; priority >= 1; priority-- {
		bucket := priorityBucket(q.Snapshot(t), priority)
		if len(bucket) == 0 {
			continue
		}

		switch {
		case priority >= 8:
			requests := bucket
			for len(requests) > 0 {
				n := a.batchSize
				if n > len(requests) {
					n = len(requests)
				}
				released := requests[:n]
				requests = requests[n:]
				q.Release(t, released)
				batches = append(batches, newBatch(t, released))
			}
		case priority >= 5:
			if len(bucket) >= a.batchSize/2 {
				n := a.batchSize
				if n > len(bucket) {
					n = len(bucket)
				}
				released := bucket[:n]
				q.Release(t, released)
				batches = append(batches, newBatch(t, released))
			}
		default:
			if len(bucket) >= a.batchSize {
				released := bucket[:a.batchSize]
				q.Release(t, released)
				batches = append(batches, newBatch(t, released))
			}
		}
	}
	return batches
}

func newBatch(t domain.RequestType, requests []*domain.Request) *domain.Batch {
	return &domain.Batch{Type: t, Requests: append([]*domain.Request(nil), requests...)}
}

// bucketsByPriority groups an already priority-ordered snapshot back
// into per-priority runs, preserving descending-priority order.
func bucketsByPriority(snapshot []*domain.Request) [][]*domain.Request {
	var groups [][]*domain.Request
	var current []*domain.Request
	currentPriority := 0
	for _, r := range snapshot {
		if current == nil || r.Priority != currentPriority {
			if current != nil {
				groups = append(groups, current)
			}
			current = nil
			currentPriority = r.Priority
		}
		current = append(current, r)
	}
	if current != nil {
		groups = append(groups, current)
	}
	return groups
}

func priorityBucket(snapshot []*domain.Request, priority int) []*domain.Request {
	var out []*domain.Request
	for _, r := range snapshot {
		if r.Priority == priority {
			out = append(out, r)
		}
	}
	return out
}
