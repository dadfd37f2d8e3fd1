// Package metrics implements the thread-safe counters, moving
// averages, and status snapshots of spec.md section 4.4. Counters are
// monotonic and mutated under one mutex, matching the shape (not the
// libraries) of DercyCheng-go-aigateway's MonitoringSystem, plus the
// incremental-mean formula spec.md specifies for batch-level averages.
package metrics

import "sync"

// Snapshot is a point-in-time copy of every counter, average, and
// derived gauge.
type Snapshot struct {
	TotalRequests int64
	TotalBatches  int64
	TotalTokens   int64
	TotalCost     float64
	CacheHits     int64
	DedupHits     int64
	Errors        int64

	AvgBatchSize  float64
	AvgLatencyMs  float64

	PendingRequests int
	CacheSize       int
	DedupCacheSize  int
}

// Metrics accumulates counters for one Processor instance.
type Metrics struct {
	mu sync.Mutex

	totalRequests int64
	totalBatches  int64
	totalTokens   int64
	totalCost     float64
	cacheHits     int64
	dedupHits     int64
	errors        int64

	avgBatchSize float64
	avgLatencyMs float64
}

// New creates an empty Metrics accumulator.
func New() *Metrics {
	return &Metrics{}
}

// IncRequests records one newly admitted request.
func (m *Metrics) IncRequests() {
	m.mu.Lock()
	m.totalRequests++
	m.mu.Unlock()
}

// IncCacheHit records one dedup-cache (response cache) short-circuit.
func (m *Metrics) IncCacheHit() {
	m.mu.Lock()
	m.cacheHits++
	m.mu.Unlock()
}

// IncDedupHit records one dedup short-circuit fired from Processor.Submit.
func (m *Metrics) IncDedupHit() {
	m.mu.Lock()
	m.dedupHits++
	m.mu.Unlock()
}

// IncErrors records one terminal failure.
func (m *Metrics) IncErrors(n int64) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.errors += n
	m.mu.Unlock()
}

// AddTokensAndCost records usage emitted by one successful endpoint call.
func (m *Metrics) AddTokensAndCost(tokens int, cost float64) {
	m.mu.Lock()
	m.totalTokens += int64(tokens)
	m.totalCost += cost
	m.mu.Unlock()
}

// RecordBatch updates total_batches and both moving averages using the
// incremental-mean formula of spec.md section 4.4:
// avg_new = avg_old + (sample - avg_old) / n.
func (m *Metrics) RecordBatch(size int, latencyMs float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalBatches++
	n := float64(m.totalBatches)
	m.avgBatchSize += (float64(size) - m.avgBatchSize) / n
	m.avgLatencyMs += (latencyMs - m.avgLatencyMs) / n
}

// Snapshot returns a point-in-time copy of the accumulated counters
// plus the supplied derived gauges.
func (m *Metrics) Snapshot(pending, cacheSize, dedupCacheSize int) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		TotalRequests:   m.totalRequests,
		TotalBatches:    m.totalBatches,
		TotalTokens:     m.totalTokens,
		TotalCost:       m.totalCost,
		CacheHits:       m.cacheHits,
		DedupHits:       m.dedupHits,
		Errors:          m.errors,
		AvgBatchSize:    m.avgBatchSize,
		AvgLatencyMs:    m.avgLatencyMs,
		PendingRequests: pending,
		CacheSize:       cacheSize,
		DedupCacheSize:  dedupCacheSize,
	}
}
