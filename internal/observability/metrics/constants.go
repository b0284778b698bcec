// Package metrics provides the Prometheus collectors for upstream calls,
// query execution and the HTTP API.
package metrics

// Query status label values, mirroring explorer result statuses.
const (
	StatusOK          = "ok"
	StatusNoMatches   = "no_matches"
	StatusNoData      = "no_data"
	StatusUnreachable = "unreachable"
	StatusInvalid     = "invalid"
)

// Batch and cache result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultHit     = "hit"
	ResultMiss    = "miss"
)

// Histogram bucket parameters.
const (
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart100ms is the starting bucket for 100ms histograms (100ms to ~100s range).
	BucketStart100ms = 0.1
	// BucketStart1 is the starting bucket for record count histograms.
	BucketStart1 = 1.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketFactor4 grows count buckets quickly (1 to ~260k).
	BucketFactor4 = 4

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)
