package compute

import (
	"fmt"
	"strings"
)

// InvalidPolicy decides what an INVALID reading means.
type InvalidPolicy int

const (
	// TreatInvalidAsDown counts an INVALID reading as down.
	TreatInvalidAsDown InvalidPolicy = iota
	// TreatInvalidAsUp counts an INVALID reading as up.
	TreatInvalidAsUp
	// FallbackToHistory replaces an INVALID reading with the nearest older
	// reading of the same target that is not INVALID, or down if none exists.
	FallbackToHistory
)

// String returns the config spelling of p.
func (p InvalidPolicy) String() string {
	switch p {
	case TreatInvalidAsUp:
		return "up"
	case FallbackToHistory:
		return "fallback"
	default:
		return "down"
	}
}

// ParsePolicy parses "down", "up" or "fallback". The empty string is down.
func ParsePolicy(s string) (InvalidPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "down":
		return TreatInvalidAsDown, nil
	case "up":
		return TreatInvalidAsUp, nil
	case "fallback", "fallback_to_history":
		return FallbackToHistory, nil
	}
	return TreatInvalidAsDown, fmt.Errorf("compute: unknown invalid policy %q", s)
}

func isUp(status string) bool      { return strings.EqualFold(status, "UP") }
func isInvalid(status string) bool { return strings.EqualFold(status, "INVALID") }
