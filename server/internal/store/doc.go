// Package store holds the latest snapshot per target in memory with TTL
// eviction, and optionally archives every ingested snapshot to SQLite for
// the history endpoint.
package store
