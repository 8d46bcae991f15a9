// Package api implements the HTTP REST API for sitestatus-server.
//
// New(store, opts) returns a Handler that serves:
//
//	GET /api/v1/health                   overall state and per-status counts
//	GET /api/v1/targets                  all live targets as status cards
//	GET /api/v1/targets/{id}             single card; 404 if unknown or stale
//	GET /api/v1/targets/{id}/strip.png   7-day dot strip as a PNG bar chart
//	GET /api/v1/targets/{id}/history     archived snapshots (?limit=N)
//	GET /api/v1/banner                   game-server banner
//	GET /api/v1/legend                   dot band legend
//	GET /api/v1/alerts                   firing and recently resolved alerts
//	GET /api/v1/certs                    feed certificate status
//	GET /api/v1/snapshot                 everything above in one payload
//
// All endpoints return 405 for methods other than GET and HEAD, and are
// gzip-compressed when the client accepts it. NewMetrics serves the same
// state in the Prometheus text format.
package api
