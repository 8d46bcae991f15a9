// Package shipper posts TargetSnapshots to sitestatus-server
// (POST /api/v1/ingest, JSON array body).
//
// Shipper.Ship() is non-blocking: snapshots are placed in an in-memory
// channel (default capacity 1000). When the buffer is full the oldest entry
// is evicted so the latest status is always preserved.
//
// Shipper.Run() drains the buffer every ship_interval, retrying a failed
// batch with truncated exponential backoff (1s→60s, ±25% jitter). Replies of
// 400, 401, 403, 413 or 422 discard the batch instead of retrying.
//
// Auth: API key header or HTTP basic auth, per agent.server_auth.
package shipper
