// Package format renders engine output for people: percentages, relative and
// exact times, and the time range covered by a strip dot.
//
// All functions take the reference instant and location explicitly. None of
// them read the wall clock.
package format
