// Package queue implements the priority-bucketed admission queue of
// spec.md section 4.7: requests are held in FIFO order within ten
// priority buckets (1..10) and released to the BatchAssembler in
// descending-priority, oldest-first order. Grounded on
// worker_server/adapter/in/worker/worker_pool.go's separate
// priority-channel handling, generalized here into explicit per-type,
// per-priority buckets so a single BatchAssembler pass can see the
// full admitted set.
package queue

import (
	"sync"

	"github.com/bridgify/batchdispatch/internal/domain"
)

// Queue holds all admitted, not-yet-assembled requests.
type Queue struct {
	mu      sync.Mutex
	buckets map[domain.RequestType]map[int][]*domain.Request
}

// New builds an empty Queue.
func New() *Queue {
	return &Queue{buckets: make(map[domain.RequestType]map[int][]*domain.Request)}
}

// Enqueue admits a request into its type/priority bucket, preserving
// arrival order within the bucket.
func (q *Queue) Enqueue(r *domain.Request) {
	q.mu.Lock()
	defer q.mu.Unlock()

	byPriority, ok := q.buckets[r.Type]
	if !ok {
		byPriority = make(map[int][]*domain.Request)
		q.buckets[r.Type] = byPriority
	}
	byPriority[r.Priority] = append(byPriority[r.Priority], r)
}

// Depth returns the total number of requests currently queued across
// every type and priority bucket.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, byPriority := range q.buckets {
		for _, bucket := range byPriority {
			n += len(bucket)
		}
	}
	return n
}

// Types returns the set of request types currently holding at least
// one queued request.
func (q *Queue) Types() []domain.RequestType {
	q.mu.Lock()
	defer q.mu.Unlock()

	types := make([]domain.RequestType, 0, len(q.buckets))
	for t, byPriority := range q.buckets {
		if bucketsNonEmpty(byPriority) {
			types = append(types, t)
		}
	}
	return types
}

func bucketsNonEmpty(byPriority map[int][]*domain.Request) bool {
	for _, bucket := range byPriority {
		if len(bucket) > 0 {
			return true
		}
	}
	return false
}

// Snapshot returns, for one request type, the queued requests ordered
// by descending priority and then by ascending submission order
// within each priority — the view the BatchAssembler strategies
// operate on. The returned slice is a copy; callers mutate the queue
// itself only through Release.
func (q *Queue) Snapshot(t domain.RequestType) []*domain.Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	byPriority, ok := q.buckets[t]
	if !ok {
		return nil
	}

	out := make([]*domain.Request, 0)
	for p := 10; p >= 1; p-- {
		out = append(out, byPriority[p]...)
	}
	return out
}

// Release removes exactly the given requests from their buckets,
// identified by ID. It is the only mutating counterpart to Snapshot:
// BatchAssembler strategies decide what to release by reading a
// Snapshot, then call Release with that decision.
func (q *Queue) Release(t domain.RequestType, released []*domain.Request) {
	if len(released) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	byPriority, ok := q.buckets[t]
	if !ok {
		return
	}

	remove := make(map[string]bool, len(released))
	for _, r := range released {
		remove[r.ID] = true
	}

	for p, bucket := range byPriority {
		kept := bucket[:0:0]
		for _, r := range bucket {
			if !remove[r.ID] {
				kept = append(kept, r)
			}
		}
		byPriority[p] = kept
	}
}
