// Package compute is the status aggregation engine.
//
// It turns raw, irregularly timestamped status samples into per-minute
// availability, the 168 hourly dots of the 7-day strip, rolling uptime
// percentages and a reconciled current status.
//
// Every function is pure: the reference instant and the treatment of
// INVALID readings (InvalidPolicy) are always passed in, nothing is cached
// between calls, and no function performs I/O or reads the wall clock.
//
// Band thresholds: up ≥97, mostly ≥85, partial ≥50, down otherwise.
package compute
