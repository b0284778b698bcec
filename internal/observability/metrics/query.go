package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QueryMetrics contains Prometheus metrics for ranking queries
type QueryMetrics struct {
	registry *prometheus.Registry

	queriesTotal      *prometheus.CounterVec
	queryDuration     *prometheus.HistogramVec
	batchesTotal      *prometheus.CounterVec
	recordsMerged     *prometheus.HistogramVec
	duplicatesDropped *prometheus.CounterVec
}

// NewQueryMetrics creates and registers new query metrics
func NewQueryMetrics(registry *prometheus.Registry) (*QueryMetrics, error) {
	m := &QueryMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *QueryMetrics) initMetrics() {
	m.queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_queries_total",
			Help: "Total number of ranking queries by result status",
		},
		[]string{"query", "status"}, // query: locations, species
	)

	m.queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "explorer_query_duration_seconds",
			Help: "Wall-clock time of ranking queries including upstream fan-out",
			// 100ms to ~100s, a cold query fans out to dozens of hotspots
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
		},
		[]string{"query"},
	)

	m.batchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_batches_total",
			Help: "Total number of upstream batches fetched by queries",
		},
		[]string{"source", "result"}, // source: region_hotspots, radius_hotspots, location, radius, notable, species
	)

	m.recordsMerged = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "explorer_merged_records",
			Help:    "Number of observation records left after merging a query's batches",
			Buckets: prometheus.ExponentialBuckets(BucketStart1, BucketFactor4, BucketCount10),
		},
		[]string{"query"},
	)

	m.duplicatesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_duplicates_dropped_total",
			Help: "Total number of duplicate observation records dropped while merging",
		},
		[]string{"query"},
	)
}

// Describe implements the Collector interface
func (m *QueryMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.queriesTotal.Describe(ch)
	m.queryDuration.Describe(ch)
	m.batchesTotal.Describe(ch)
	m.recordsMerged.Describe(ch)
	m.duplicatesDropped.Describe(ch)
}

// Collect implements the Collector interface
func (m *QueryMetrics) Collect(ch chan<- prometheus.Metric) {
	m.queriesTotal.Collect(ch)
	m.queryDuration.Collect(ch)
	m.batchesTotal.Collect(ch)
	m.recordsMerged.Collect(ch)
	m.duplicatesDropped.Collect(ch)
}

// RecordQuery records a finished query
func (m *QueryMetrics) RecordQuery(query, status string, elapsed time.Duration) {
	m.queriesTotal.WithLabelValues(query, status).Inc()
	m.queryDuration.WithLabelValues(query).Observe(elapsed.Seconds())
}

// RecordBatch records one upstream batch fetched on behalf of a query
func (m *QueryMetrics) RecordBatch(source string, ok bool) {
	result := ResultFailure
	if ok {
		result = ResultSuccess
	}
	m.batchesTotal.WithLabelValues(source, result).Inc()
}

// RecordMerge records merge input and output sizes
func (m *QueryMetrics) RecordMerge(query string, raw, merged int) {
	m.recordsMerged.WithLabelValues(query).Observe(float64(merged))
	if raw > merged {
		m.duplicatesDropped.WithLabelValues(query).Add(float64(raw - merged))
	}
}
