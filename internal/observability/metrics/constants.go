// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Operation names recorded through Recorder.
const (
	// OpEstimate is a full estimation run over a detection batch.
	OpEstimate = "estimate"
	// OpSpecies is the census of a single species.
	OpSpecies = "species"
	// OpWindow is the census of a single window.
	OpWindow = "window"
	// OpAlternate is the alternation of a window subgraph.
	OpAlternate = "alternate"
	// OpCover is the clique cover of an alternated subgraph.
	OpCover = "cover"
	// OpDbInsert represents database insert operations.
	OpDbInsert = "db_insert"
	// OpDbQuery represents database query operations.
	OpDbQuery = "db_query"
	// OpDbDelete represents database delete operations.
	OpDbDelete = "db_delete"
	// OpPublish represents MQTT publish operations.
	OpPublish = "publish"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Histogram bucket configuration constants.
const (
	// BucketStart100us is the starting bucket for 0.1ms histograms (0.1ms to ~400ms range).
	BucketStart100us = 0.0001
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart64B is the starting bucket for 64 byte histograms.
	BucketStart64B = 64.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)

// ShutdownTimeout is the timeout for graceful shutdown of the metrics endpoint.
const ShutdownTimeout = 5 * time.Second
