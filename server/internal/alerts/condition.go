package alerts

import (
	"strconv"
	"strings"

	"github.com/chickenjockey/sitestatus/pkg/types"
)

// dayDots is the number of hourly dots covering the last 24 hours.
const dayDots = 24

// evalCondition evaluates a rule condition string against a TargetSnapshot.
//
// Supported expressions (field operator value):
//
//	status == offline        online | offline | loading
//	trouble == true          a feed fetch failed
//	uptime_24h < 97
//	uptime_7d < 99
//	latency_ms > 500
//	players_online >= 1
//	players_max == 0
//	down_hours_24h > 2       "down" dots among the newest 24
//	cert_days_left < 14
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed, the field is
// unknown, or the snapshot does not carry the field.
func evalCondition(cond string, snap types.TargetSnapshot) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	switch field {
	case "status":
		return compareString(statusOf(snap), op, rhs), 0

	case "trouble":
		return compareString(strconv.FormatBool(snap.FetchError != ""), op, rhs), 0

	case "cert_days_left":
		threshold, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return false, 0
		}
		for _, c := range snap.Certs {
			v := float64(c.DaysLeft)
			if compareFloat(v, op, threshold) {
				return true, v
			}
		}
		return false, 0

	default:
		v, ok := numericField(field, snap)
		if !ok {
			return false, 0
		}
		threshold, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return false, 0
		}
		return compareFloat(v, op, threshold), v
	}
}

func statusOf(snap types.TargetSnapshot) string {
	switch {
	case snap.Latest == nil:
		return "loading"
	case snap.Latest.Up:
		return "online"
	default:
		return "offline"
	}
}

// numericField maps a field name to its value in the snapshot. ok is false
// when the field is unknown or absent.
func numericField(field string, snap types.TargetSnapshot) (float64, bool) {
	switch field {
	case "uptime_24h":
		return floatPtr(snap.Uptime24h)
	case "uptime_7d":
		return floatPtr(snap.Uptime7d)
	case "down_hours_24h":
		if snap.Dots == nil {
			return 0, false
		}
		recent := snap.Dots
		if len(recent) > dayDots {
			recent = recent[len(recent)-dayDots:]
		}
		n := 0
		for _, d := range recent {
			if d.State == "down" {
				n++
			}
		}
		return float64(n), true
	}

	if snap.Latest == nil {
		return 0, false
	}
	switch field {
	case "latency_ms":
		return floatPtr(snap.Latest.LatencyMs)
	case "players_online":
		return intPtr(snap.Latest.PlayersOnline)
	case "players_max":
		return intPtr(snap.Latest.PlayersMax)
	default:
		return 0, false
	}
}

func floatPtr(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func intPtr(p *int) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return float64(*p), true
}

func compareString(v, op, want string) bool {
	switch op {
	case "==":
		return strings.EqualFold(v, want)
	case "!=":
		return !strings.EqualFold(v, want)
	default:
		return false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
