package compute

import (
	"time"

	"github.com/chickenjockey/sitestatus/pkg/types"
)

// HourlyDot is one bucket of the availability strip.
type HourlyDot = types.HourlyDot

// Strip geometry and the standard uptime windows, in minutes.
const (
	MinutesPerDot = 60
	DotsPerStrip  = 168
	StripMinutes  = DotsPerStrip * MinutesPerDot

	Minutes24h = 24 * 60
	Minutes7d  = 7 * 24 * 60
)

// HourlyDots returns the 168 one-hour dots covering the 7 days that end with
// the minute containing now, oldest first. Minutes without a sample count as
// down, so an empty history yields 168 down dots.
func HourlyDots(samples []types.Sample, targetID string, now time.Time, policy InvalidPolicy) []HourlyDot {
	return Buckets(samples, targetID, now, StripMinutes, MinutesPerDot, policy)
}

// Buckets splits the totalMinutes ending with the minute containing now into
// consecutive buckets of intervalMinutes, oldest first.
func Buckets(samples []types.Sample, targetID string, now time.Time, totalMinutes, intervalMinutes int, policy InvalidPolicy) []HourlyDot {
	m := BuildMinuteStatusMap(samples, targetID, policy)
	return bucketize(m, MinuteKeyOf(now), totalMinutes, intervalMinutes)
}

func bucketize(m *MinuteStatusMap, end MinuteKey, totalMinutes, intervalMinutes int) []HourlyDot {
	if totalMinutes <= 0 || intervalMinutes <= 0 {
		return nil
	}
	start := end - MinuteKey(totalMinutes) + 1

	dots := make([]HourlyDot, 0, (totalMinutes+intervalMinutes-1)/intervalMinutes)
	for k := start; k <= end; k += MinuteKey(intervalMinutes) {
		last := k + MinuteKey(intervalMinutes) - 1
		up := m.countUp(k, last)
		down := intervalMinutes - up
		upPct := float64(up) / float64(intervalMinutes) * 100

		dots = append(dots, HourlyDot{
			State:       Classify(upPct),
			StartMinute: int64(k),
			EndMinute:   int64(last),
			UpMinutes:   up,
			DownMinutes: down,
			UpPct:       upPct,
		})
	}
	return dots
}
