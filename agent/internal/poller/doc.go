// Package poller keeps the agent's view of the upstream feeds fresh and turns
// it into per-target snapshots.
//
// The latest feed is refreshed every latest_refresh (60s by default) and the
// history feed every history_refresh (5m), on robfig/cron schedules. A failed
// refresh keeps the last good data and records the error, which surfaces as
// the snapshot's fetch_error. After every refresh all targets are evaluated
// with compute.Summarize against a fresh reference instant and handed to the
// sink.
package poller
