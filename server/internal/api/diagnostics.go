package api

import (
	"fmt"

	"github.com/chickenjockey/sitestatus/pkg/format"
	"github.com/chickenjockey/sitestatus/pkg/types"
)

// DiagnosticHint is one human-readable insight about a target's status.
// The UI displays these as chips on the status card; clicking one shows
// Detail, a plain-English explanation of what the page is showing.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint (e.g. uptime %).
	Value *float64 `json:"value,omitempty"`
}

// Thresholds for diagnostics.
const (
	slowLatencyMs  = 1000.0
	lowUptimePct   = 97.0
	badUptimePct   = 85.0
	certWarnDays   = 14
	certStatusOK   = "valid"
	certStatusGone = "unreachable"
)

// computeDiagnostics derives human-readable diagnostic hints from a snapshot.
func computeDiagnostics(snap types.TargetSnapshot) []DiagnosticHint {
	var hints []DiagnosticHint

	// ── Feed failure ─────────────────────────────────────────────────────────
	if snap.FetchError != "" {
		hints = append(hints, DiagnosticHint{
			Key:   "feed_failed",
			Level: "warning",
			Title: "Trouble reaching data",
			Detail: fmt.Sprintf(
				"The agent could not refresh one of the status feeds. "+
					"It last tried and got: \"%s\". "+
					"The card keeps showing the last data that did load, so values may be stale "+
					"until the feed answers again.",
				snap.FetchError,
			),
		})
	}

	l := snap.Latest

	// ── Latest reading ──────────────────────────────────────────────────────
	switch {
	case l == nil:
		hints = append(hints, DiagnosticHint{
			Key:   "no_latest",
			Level: "info",
			Title: "Waiting for status",
			Detail: "The latest feed has not reported this target yet. " +
				"The status pill stays on Loading until a reading arrives.",
		})
	case l.Origin == types.OriginHistory:
		hints = append(hints, DiagnosticHint{
			Key:   "history_fallback",
			Level: "info",
			Title: "Last valid reading",
			Detail: fmt.Sprintf(
				"The most recent check could not determine a status, so the card shows the "+
					"newest valid reading from history instead (%s).",
				format.ExactTime(l.Timestamp, nil)+" UTC",
			),
		})
	case l.Origin == types.OriginNone:
		hints = append(hints, DiagnosticHint{
			Key:   "status_unknown",
			Level: "warning",
			Title: "Status undetermined",
			Detail: "The most recent check could not determine a status and no earlier valid " +
				"reading was available, so the target is shown as offline.",
		})
	case !l.Up:
		hints = append(hints, DiagnosticHint{
			Key:   "offline",
			Level: "critical",
			Title: "Offline",
			Detail: "The latest check reported this target as down. " +
				"Hover the newest dots in the strip to see how long it has been out.",
		})
	}

	if l != nil && l.Up && l.LatencyMs != nil && *l.LatencyMs >= slowLatencyMs {
		v := *l.LatencyMs
		hints = append(hints, DiagnosticHint{
			Key:   "slow",
			Level: "warning",
			Title: "Slow responses",
			Detail: fmt.Sprintf(
				"The target is up but answered in %s. Responses over a second usually mean "+
					"the host is overloaded or the network path is congested.",
				format.Latency(&v),
			),
			Value: &v,
		})
	}

	if snap.Kind == types.KindGame && l != nil && l.PlayersOnline != nil && l.PlayersMax != nil &&
		*l.PlayersMax > 0 && *l.PlayersOnline >= *l.PlayersMax {
		hints = append(hints, DiagnosticHint{
			Key:    "server_full",
			Level:  "info",
			Title:  "Server full",
			Detail: fmt.Sprintf("All %d player slots are taken; new players may be turned away.", *l.PlayersMax),
		})
	}

	// ── Uptime ────────────────────────────────────────────────────────────────
	if snap.Uptime24h != nil && *snap.Uptime24h < lowUptimePct {
		v := *snap.Uptime24h
		level := "warning"
		if v < badUptimePct {
			level = "critical"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "uptime_24h",
			Level: level,
			Title: format.Percent(v) + " uptime (24h)",
			Detail: fmt.Sprintf(
				"Over the last 24 hours the target was up for %s of minutes. "+
					"Minutes with no check at all count as down, so gaps in monitoring "+
					"lower this number too.",
				format.Percent(v),
			),
			Value: &v,
		})
	}

	// ── Certificates ──────────────────────────────────────────────────────────
	for _, c := range snap.Certs {
		switch {
		case c.Status == certStatusGone:
			hints = append(hints, DiagnosticHint{
				Key:    "cert_unreachable_" + c.Endpoint,
				Level:  "info",
				Title:  "Cert check failed",
				Detail: fmt.Sprintf("The TLS certificate of %s could not be inspected.", c.Endpoint),
			})
		case c.Status != certStatusOK || c.DaysLeft < certWarnDays:
			v := float64(c.DaysLeft)
			level := "warning"
			if c.DaysLeft <= 0 {
				level = "critical"
			}
			hints = append(hints, DiagnosticHint{
				Key:   "cert_" + c.Endpoint,
				Level: level,
				Title: fmt.Sprintf("Cert: %d days left", c.DaysLeft),
				Detail: fmt.Sprintf(
					"The TLS certificate of %s expires in %d days. "+
						"Once it lapses, browsers and the agent will refuse to connect.",
					c.Endpoint, c.DaysLeft,
				),
				Value: &v,
			})
		}
	}

	// ── All clear ─────────────────────────────────────────────────────────────
	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "healthy",
			Level:  "ok",
			Title:  "All clear",
			Detail: "The target is online and its uptime over the last day is solid.",
		})
	}

	return hints
}
