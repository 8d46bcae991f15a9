package format

import (
	"fmt"
	"time"
)

const (
	dateLayout  = "Jan 2"
	clockLayout = "3:04 PM"
	exactLayout = "1/2/2006, 3:04:05 PM"
)

// RelativeTime renders how long ago the unix timestamp ts was, relative to
// now. A zero timestamp renders as the placeholder; timestamps in the future
// read as "just now".
func RelativeTime(ts int64, now time.Time) string {
	if ts == 0 {
		return Placeholder
	}
	diff := now.UnixMilli() - ts*1000
	if diff < 0 {
		diff = 0
	}

	sec := diff / 1000
	if sec < 10 {
		return "just now"
	}
	if sec < 60 {
		return fmt.Sprintf("%ds ago", sec)
	}
	mins := sec / 60
	if mins < 60 {
		return fmt.Sprintf("%dm ago", mins)
	}
	hr := mins / 60
	if hr < 48 {
		return fmt.Sprintf("%dh ago", hr)
	}
	return fmt.Sprintf("%dd ago", hr/24)
}

// ExactTime renders ts as a full local date and time, e.g.
// "1/2/2026, 3:04:05 PM". A zero timestamp renders as the placeholder.
func ExactTime(ts int64, loc *time.Location) string {
	if ts == 0 {
		return Placeholder
	}
	return time.Unix(ts, 0).In(orUTC(loc)).Format(exactLayout)
}

// ShortTimeRange renders the span covered by the inclusive minute keys
// [startMinute, endMinute]. The end is shown as the instant the span closes,
// one minute after endMinute begins.
//
//	Jan 2 3:00 PM–4:00 PM           same calendar day
//	Jan 2 11:00 PM → Jan 3 12:00 AM  crosses midnight
func ShortTimeRange(startMinute, endMinute int64, loc *time.Location) string {
	loc = orUTC(loc)
	start := time.Unix(startMinute*60, 0).In(loc)
	end := time.Unix((endMinute+1)*60, 0).In(loc)

	d1, t1 := start.Format(dateLayout), start.Format(clockLayout)
	d2, t2 := end.Format(dateLayout), end.Format(clockLayout)

	if d1 == d2 {
		return d1 + " " + t1 + "–" + t2
	}
	return d1 + " " + t1 + " → " + d2 + " " + t2
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
