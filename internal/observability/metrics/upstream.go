package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics contains Prometheus metrics for eBird API traffic and the response cache
type UpstreamMetrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

// NewUpstreamMetrics creates and registers new upstream metrics
func NewUpstreamMetrics(registry *prometheus.Registry) (*UpstreamMetrics, error) {
	m := &UpstreamMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *UpstreamMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ebird_requests_total",
			Help: "Total number of eBird API requests",
		},
		[]string{"endpoint", "outcome"}, // outcome: 2xx, 4xx, 5xx, error
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ebird_request_duration_seconds",
			Help: "Time taken by eBird API requests",
			// 10ms to ~5s, the API normally answers in a few hundred milliseconds
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount10),
		},
		[]string{"endpoint"},
	)

	m.retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ebird_request_retries_total",
			Help: "Total number of retried eBird API requests",
		},
		[]string{"endpoint"},
	)

	m.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ebird_cache_lookups_total",
			Help: "Total number of eBird response cache lookups",
		},
		[]string{"kind", "result"}, // kind: hotspots, observations, taxonomy
	)
}

// Describe implements the Collector interface
func (m *UpstreamMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	m.retriesTotal.Describe(ch)
	m.cacheLookups.Describe(ch)
}

// Collect implements the Collector interface
func (m *UpstreamMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	m.retriesTotal.Collect(ch)
	m.cacheLookups.Collect(ch)
}

// RecordUpstreamRequest records one completed eBird request attempt
func (m *UpstreamMetrics) RecordUpstreamRequest(endpoint, outcome string, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordRetry records a retried request
func (m *UpstreamMetrics) RecordRetry(endpoint string) {
	m.retriesTotal.WithLabelValues(endpoint).Inc()
}

// RecordCacheLookup records a cache hit or miss
func (m *UpstreamMetrics) RecordCacheLookup(kind string, hit bool) {
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}
