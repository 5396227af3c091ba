// Package metrics provides constants used across metric definitions.
package metrics

// Histogram bucket parameters.
const (
	// BucketStart1ms is the first bucket of exponential latency histograms.
	BucketStart1ms = 0.001
	// BucketStart10ms suits calls that include network round trips.
	BucketStart10ms = 0.01
	// BucketFactor2 doubles each bucket.
	BucketFactor2 = 2
	// BucketCount12 covers 1ms to ~2s or 10ms to ~20s.
	BucketCount12 = 12
	// BucketCount15 covers 1ms to ~16s.
	BucketCount15 = 15
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
