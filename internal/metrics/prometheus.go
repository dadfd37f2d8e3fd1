package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollectors exposes the same counters as Snapshot through
// the Prometheus client, the way DercyCheng-go-aigateway's
// MonitoringSystem registers a Counter/Histogram/Gauge set alongside
// its plain-struct metrics. Registration is opt-in (NewPrometheusCollectors
// takes the registerer) so tests and embedders that don't want a
// global registry side effect can pass prometheus.NewRegistry().
type PrometheusCollectors struct {
	requestsTotal prometheus.Counter
	batchesTotal  prometheus.Counter
	tokensTotal   prometheus.Counter
	costTotal     prometheus.Counter
	cacheHits     prometheus.Counter
	dedupHits     prometheus.Counter
	errorsTotal   prometheus.Counter

	batchLatency prometheus.Histogram
	batchSize    prometheus.Histogram

	pendingRequests prometheus.Gauge
	cacheSize       prometheus.Gauge
	dedupCacheSize  prometheus.Gauge
}

// NewPrometheusCollectors builds and registers the collector set on reg.
func NewPrometheusCollectors(reg prometheus.Registerer, namespace string) *PrometheusCollectors {
	c := &PrometheusCollectors{
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "requests_total", Help: "Total admitted requests.",
		}),
		batchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "batches_total", Help: "Total dispatched batches.",
		}),
		tokensTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tokens_total", Help: "Total tokens consumed.",
		}),
		costTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cost_usd_total", Help: "Total estimated cost in USD.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_hits_total", Help: "Total response-cache hits.",
		}),
		dedupHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "dedup_hits_total", Help: "Total dedup short-circuits.",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "errors_total", Help: "Total terminal request failures.",
		}),
		batchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "batch_latency_ms", Help: "Per-batch end-to-end latency in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "batch_size", Help: "Number of requests per dispatched batch.",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		}),
		pendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "pending_requests", Help: "Requests currently queued or in flight.",
		}),
		cacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "cache_size", Help: "Current response cache entry count.",
		}),
		dedupCacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "dedup_cache_size", Help: "Current dedup cache entry count.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			c.requestsTotal, c.batchesTotal, c.tokensTotal, c.costTotal,
			c.cacheHits, c.dedupHits, c.errorsTotal,
			c.batchLatency, c.batchSize,
			c.pendingRequests, c.cacheSize, c.dedupCacheSize,
		)
	}

	return c
}

// ObserveBatch records one dispatched batch's size and latency.
func (c *PrometheusCollectors) ObserveBatch(size int, latencyMs float64) {
	c.batchesTotal.Inc()
	c.batchSize.Observe(float64(size))
	c.batchLatency.Observe(latencyMs)
}

// IncRequests increments the admitted-request counter.
func (c *PrometheusCollectors) IncRequests() { c.requestsTotal.Inc() }

// IncCacheHit increments the response-cache hit counter.
func (c *PrometheusCollectors) IncCacheHit() { c.cacheHits.Inc() }

// IncDedupHit increments the dedup hit counter.
func (c *PrometheusCollectors) IncDedupHit() { c.dedupHits.Inc() }

// IncErrors adds n terminal failures.
func (c *PrometheusCollectors) IncErrors(n int) {
	if n > 0 {
		c.errorsTotal.Add(float64(n))
	}
}

// AddUsage adds token and cost usage from one successful endpoint call.
func (c *PrometheusCollectors) AddUsage(tokens int, cost float64) {
	c.tokensTotal.Add(float64(tokens))
	c.costTotal.Add(cost)
}

// SetGauges updates the three derived gauges from a fresh Snapshot.
func (c *PrometheusCollectors) SetGauges(pending, cacheSize, dedupCacheSize int) {
	c.pendingRequests.Set(float64(pending))
	c.cacheSize.Set(float64(cacheSize))
	c.dedupCacheSize.Set(float64(dedupCacheSize))
}
