package compute

import (
	"time"

	"github.com/chickenjockey/sitestatus/pkg/types"
)

// Input is everything needed to evaluate one status card.
type Input struct {
	TargetID string

	// Latest is the latest-feed payload; nil while it has never loaded.
	Latest types.LatestPayload

	// History is the history feed, newest first. HistoryLoaded distinguishes
	// "not fetched yet" from "fetched and empty".
	History       []types.Sample
	HistoryLoaded bool

	Now time.Time

	// StripPolicy applies to the dots and uptimes, LivePolicy to the
	// current status.
	StripPolicy InvalidPolicy
	LivePolicy  InvalidPolicy
}

// Summary is the evaluated card.
type Summary struct {
	Latest    *types.LatestStatus // nil: latest feed has nothing for the target
	Uptime24h *float64            // nil: history not loaded
	Uptime7d  *float64            // nil: history not loaded
	Dots      []HourlyDot         // nil: history not loaded
}

// Summarize evaluates the card for in.TargetID.
func Summarize(in Input) Summary {
	var history []types.Sample
	if in.HistoryLoaded {
		history = in.History
	}

	out := Summary{
		Latest: ReconcileLatest(in.Latest, in.TargetID, history, in.LivePolicy),
	}
	if !in.HistoryLoaded {
		return out
	}

	m := BuildMinuteStatusMap(in.History, in.TargetID, in.StripPolicy)
	end := MinuteKeyOf(in.Now)

	u24 := uptimeOf(m, end, Minutes24h)
	u7 := uptimeOf(m, end, Minutes7d)
	out.Uptime24h = &u24
	out.Uptime7d = &u7
	out.Dots = bucketize(m, end, StripMinutes, MinutesPerDot)
	return out
}
