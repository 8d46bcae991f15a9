package compute

// Dot states, best to worst.
const (
	StateUp      = "up"
	StateMostly  = "mostly"
	StatePartial = "partial"
	StateDown    = "down"
)

// Lower bounds (inclusive) of each band, in percent up.
const (
	ThresholdUp      = 97.0
	ThresholdMostly  = 85.0
	ThresholdPartial = 50.0
)

// Classify maps the percentage of up minutes in a bucket to a dot state.
func Classify(upPct float64) string {
	switch {
	case upPct >= ThresholdUp:
		return StateUp
	case upPct >= ThresholdMostly:
		return StateMostly
	case upPct >= ThresholdPartial:
		return StatePartial
	default:
		return StateDown
	}
}
