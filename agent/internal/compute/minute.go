package compute

import (
	"time"

	"github.com/chickenjockey/sitestatus/pkg/types"
)

// MinuteKey identifies one UTC minute: floor(unix seconds / 60).
type MinuteKey int64

// MinuteKeyFromSeconds returns the minute containing the unix timestamp sec.
func MinuteKeyFromSeconds(sec int64) MinuteKey {
	k := sec / 60
	if sec%60 != 0 && sec < 0 {
		k--
	}
	return MinuteKey(k)
}

// MinuteKeyOf returns the minute containing t.
func MinuteKeyOf(t time.Time) MinuteKey {
	return MinuteKeyFromSeconds(t.Unix())
}

// MinuteStatusMap holds at most one up/down value per minute.
// The first value stored for a minute wins; later inserts are ignored.
type MinuteStatusMap struct {
	m map[MinuteKey]bool
}

// NewMinuteStatusMap returns an empty map.
func NewMinuteStatusMap() *MinuteStatusMap {
	return &MinuteStatusMap{m: make(map[MinuteKey]bool)}
}

// InsertIfAbsent stores up for k unless k already has a value.
// It reports whether the value was stored.
func (s *MinuteStatusMap) InsertIfAbsent(k MinuteKey, up bool) bool {
	if _, ok := s.m[k]; ok {
		return false
	}
	s.m[k] = up
	return true
}

// Lookup returns the value for k and whether one was recorded.
func (s *MinuteStatusMap) Lookup(k MinuteKey) (up, ok bool) {
	up, ok = s.m[k]
	return up, ok
}

// IsUp reports whether k was recorded as up. Absent minutes are down.
func (s *MinuteStatusMap) IsUp(k MinuteKey) bool {
	return s.m[k]
}

// Len returns the number of minutes with a recorded value.
func (s *MinuteStatusMap) Len() int { return len(s.m) }

// countUp returns the number of up minutes in [from, to].
func (s *MinuteStatusMap) countUp(from, to MinuteKey) int {
	var n int
	for k := from; k <= to; k++ {
		if s.m[k] {
			n++
		}
	}
	return n
}

// BuildMinuteStatusMap records, for every minute in which targetID has a
// sample, whether the newest such sample was up.
//
// samples must be ordered newest first: the first sample seen for a minute
// wins. Rows for other targets and rows with a non-positive timestamp are
// skipped. policy decides how INVALID rows count.
func BuildMinuteStatusMap(samples []types.Sample, targetID string, policy InvalidPolicy) *MinuteStatusMap {
	rows := make([]types.Sample, 0, len(samples))
	for _, s := range samples {
		if s.TargetID != targetID || s.Timestamp <= 0 {
			continue
		}
		rows = append(rows, s)
	}

	up := resolveStatuses(rows, policy)

	out := NewMinuteStatusMap()
	for i, s := range rows {
		out.InsertIfAbsent(MinuteKeyFromSeconds(s.Timestamp), up[i])
	}
	return out
}

// resolveStatuses maps each row to up/down under policy. rows are newest
// first, so the nearest older reading of a row is the next valid one after it.
func resolveStatuses(rows []types.Sample, policy InvalidPolicy) []bool {
	up := make([]bool, len(rows))

	var older, haveOlder bool
	for i := len(rows) - 1; i >= 0; i-- {
		st := rows[i].Status
		if !isInvalid(st) {
			up[i] = isUp(st)
			older, haveOlder = up[i], true
			continue
		}
		switch policy {
		case TreatInvalidAsUp:
			up[i] = true
		case FallbackToHistory:
			up[i] = haveOlder && older
		default:
			up[i] = false
		}
	}
	return up
}
