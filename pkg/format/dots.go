package format

import (
	"fmt"
	"time"

	"github.com/chickenjockey/sitestatus/pkg/types"
)

// Dot states, matching the band names produced by the aggregation engine.
const (
	DotUp      = "up"
	DotMostly  = "mostly"
	DotPartial = "partial"
	DotDown    = "down"
)

// DotLabel returns the human name of a dot state. Unknown states read as Down.
func DotLabel(state string) string {
	switch state {
	case DotUp:
		return "Online"
	case DotMostly:
		return "Mostly online"
	case DotPartial:
		return "Partial"
	default:
		return "Down"
	}
}

// LegendEntry is one row of the band legend.
type LegendEntry struct {
	State string `json:"state"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Legend lists the four bands from best to worst.
func Legend() []LegendEntry {
	return []LegendEntry{
		{State: DotUp, Label: "Online (≥ 97%)", Color: DotColor(DotUp)},
		{State: DotMostly, Label: "Mostly online (85–97%)", Color: DotColor(DotMostly)},
		{State: DotPartial, Label: "Partial (50–85%)", Color: DotColor(DotPartial)},
		{State: DotDown, Label: "Down (< 50%)", Color: DotColor(DotDown)},
	}
}

// DotColor returns the hex colour used to draw a dot state.
func DotColor(state string) string {
	switch state {
	case DotUp:
		return "10b981"
	case DotMostly:
		return "34d399"
	case DotPartial:
		return "a7f3d0"
	default:
		return "a1a1aa"
	}
}

// DotTooltip renders the hover text of a dot:
//
//	Jan 2 3:00 PM–4:00 PM • Mostly online • 95.0% • 57m up / 3m down
func DotTooltip(d types.HourlyDot, loc *time.Location) string {
	return fmt.Sprintf("%s • %s • %s • %dm up / %dm down",
		ShortTimeRange(d.StartMinute, d.EndMinute, loc),
		DotLabel(d.State),
		DotPercent(d.UpPct),
		d.UpMinutes, d.DownMinutes)
}
