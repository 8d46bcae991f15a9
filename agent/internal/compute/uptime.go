package compute

import (
	"time"

	"github.com/chickenjockey/sitestatus/pkg/types"
)

// UptimePercent returns the percentage of up minutes among the windowMinutes
// ending with the minute containing now. Minutes without a sample count as
// down. A non-positive window yields 0.
func UptimePercent(samples []types.Sample, targetID string, windowMinutes int, now time.Time, policy InvalidPolicy) float64 {
	m := BuildMinuteStatusMap(samples, targetID, policy)
	return uptimeOf(m, MinuteKeyOf(now), windowMinutes)
}

func uptimeOf(m *MinuteStatusMap, end MinuteKey, windowMinutes int) float64 {
	if windowMinutes <= 0 {
		return 0
	}
	start := end - MinuteKey(windowMinutes) + 1
	up := m.countUp(start, end)
	return float64(up) / float64(windowMinutes) * 100
}
