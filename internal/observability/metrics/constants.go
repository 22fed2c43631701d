// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Operation names recorded by the datastore.
const (
	OpDbQuery     = "db_query"
	OpDbInsert    = "db_insert"
	OpDbUpsert    = "db_upsert"
	OpDbUpdate    = "db_update"
	OpTransaction = "transaction"
	OpCacheGet    = "cache_get"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusHit     = "hit"
	StatusMiss    = "miss"
)

// Histogram bucket layout.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketFactor2 is the common exponential growth factor.
	BucketFactor2 = 2
	// BucketCount15 defines 15 exponential buckets (1ms to ~16s).
	BucketCount15 = 15
)

// ShutdownTimeout bounds the graceful shutdown of the metrics server.
const ShutdownTimeout = 5 * time.Second
