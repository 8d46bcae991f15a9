package api

import (
	"time"

	"github.com/chickenjockey/sitestatus/pkg/format"
	"github.com/chickenjockey/sitestatus/pkg/types"
	"github.com/chickenjockey/sitestatus/server/internal/store"
)

// stripDots is the number of dots in a loading placeholder strip.
const stripDots = 168

// Status values of a card.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusLoading = "loading"
)

func statusOf(l *types.LatestStatus) string {
	switch {
	case l == nil:
		return StatusLoading
	case l.Up:
		return StatusOnline
	default:
		return StatusOffline
	}
}

// toTargetView renders a store entry as a status card.
func toTargetView(e store.Entry, now time.Time, loc *time.Location) TargetView {
	s := e.Snapshot
	v := TargetView{
		TargetID:      s.TargetID,
		Title:         s.Title,
		Subtitle:      s.Subtitle,
		Kind:          s.Kind,
		Status:        statusOf(s.Latest),
		StatusLabel:   format.StatusLabel(s.Latest),
		Uptime24h:     s.Uptime24h,
		Uptime7d:      s.Uptime7d,
		Uptime24hText: "Uptime 24h " + format.PercentPtr(s.Uptime24h),
		Uptime7dText:  "Uptime 7d " + format.PercentPtr(s.Uptime7d),
		LatencyText:   "Latency: " + format.Placeholder,
		FetchError:    s.FetchError,
		Certs:         s.Certs,
		Diagnostics:   computeDiagnostics(s),
		LastSeen:      e.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if v.Certs == nil {
		v.Certs = []types.CertStatus{}
	}

	if l := s.Latest; l != nil {
		v.Origin = l.Origin
		v.UpdatedAt = l.Timestamp
		v.LatencyMs = l.LatencyMs
		v.LatencyText = "Latency: " + format.Latency(l.LatencyMs)
		if s.Kind == types.KindGame {
			v.PlayersOnline = l.PlayersOnline
			v.PlayersMax = l.PlayersMax
			v.PlayersText = format.Players(l.PlayersOnline, l.PlayersMax)
		}
	}
	v.UpdatedRel = format.RelativeTime(v.UpdatedAt, now)
	v.UpdatedExact = format.ExactTime(v.UpdatedAt, loc)

	if s.FetchError != "" {
		v.Trouble = format.TroubleNotice
	}

	if len(s.Dots) == 0 {
		v.Loading = true
		v.Dots = loadingDots()
		return v
	}
	v.Dots = make([]DotView, len(s.Dots))
	for i, d := range s.Dots {
		v.Dots[i] = toDotView(d, loc)
	}
	first, last := s.Dots[0], s.Dots[len(s.Dots)-1]
	v.StripSpan = format.ShortTimeRange(first.StartMinute, last.EndMinute, loc)
	return v
}

func toDotView(d types.HourlyDot, loc *time.Location) DotView {
	return DotView{
		State:       d.State,
		Label:       format.DotLabel(d.State),
		Color:       format.DotColor(d.State),
		Range:       format.ShortTimeRange(d.StartMinute, d.EndMinute, loc),
		Tooltip:     format.DotTooltip(d, loc),
		UpPct:       d.UpPct,
		UpMinutes:   d.UpMinutes,
		DownMinutes: d.DownMinutes,
		StartMinute: d.StartMinute,
		EndMinute:   d.EndMinute,
	}
}

func loadingDots() []DotView {
	out := make([]DotView, stripDots)
	for i := range out {
		out[i] = DotView{
			State:   StatusLoading,
			Label:   "Loading",
			Color:   format.DotColor(StatusLoading),
			Tooltip: "Loading…",
		}
	}
	return out
}

// toBanner renders the banner for a target. The banner trusts only the
// latest feed: a status that came from history or could not be determined
// shows as down, stamped with the latest reading's own time. Before any
// reading arrives the banner also reads down, with no update time.
func toBanner(targetID string, e store.Entry, found bool, now time.Time, loc *time.Location) BannerResponse {
	b := BannerResponse{TargetID: targetID}
	if !found || e.Snapshot.Latest == nil {
		b.Loading = true
		b.Message = format.BannerMessage(false)
		b.UpdatedRel = format.Placeholder
		b.UpdatedExact = format.Placeholder
		return b
	}
	l := e.Snapshot.Latest
	if l.Origin == types.OriginLatest {
		b.Up = l.Up
		b.Updated = l.Timestamp
	} else {
		b.Updated = l.ReadingTimestamp
	}
	b.Message = format.BannerMessage(b.Up)
	b.UpdatedRel = format.RelativeTime(b.Updated, now)
	b.UpdatedExact = format.ExactTime(b.Updated, loc)
	return b
}
