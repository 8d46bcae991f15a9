package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/chickenjockey/sitestatus/agent/internal/security"
	"github.com/chickenjockey/sitestatus/pkg/format"
	"github.com/chickenjockey/sitestatus/pkg/types"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiDim   = "\x1b[2m"
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiAmber = "\x1b[33m"
)

// Options controls rendering.
type Options struct {
	Color    bool
	Location *time.Location
}

// ColorEnabled reports whether f is a terminal and NO_COLOR is unset.
func ColorEnabled(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Write renders one block per snapshot, followed by the band legend.
func Write(w io.Writer, snaps []types.TargetSnapshot, now time.Time, opts Options) error {
	p := printer{w: w, color: opts.Color}
	for i, s := range snaps {
		if i > 0 {
			p.line("")
		}
		p.snapshot(s, now, opts.Location)
	}
	p.line("")
	var legend []string
	for _, e := range format.Legend() {
		legend = append(legend, p.paint(dotColor(e.State), glyph(e.State))+" "+e.Label)
	}
	p.line(p.paint(ansiDim, "Each dot = 1 hour, missing data counts as down.  ") + strings.Join(legend, "  "))
	return p.err
}

// AllUp reports whether every snapshot has a current status that is up.
func AllUp(snaps []types.TargetSnapshot) bool {
	for _, s := range snaps {
		if s.Latest == nil || !s.Latest.Up {
			return false
		}
	}
	return len(snaps) > 0
}

type printer struct {
	w     io.Writer
	color bool
	err   error
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, s)
}

func (p *printer) paint(code, s string) string {
	if !p.color || code == "" {
		return s
	}
	return code + s + ansiReset
}

func (p *printer) snapshot(s types.TargetSnapshot, now time.Time, loc *time.Location) {
	title := s.Title
	if s.Subtitle != "" {
		title += " " + p.paint(ansiDim, "("+s.Subtitle+")")
	}

	status := format.StatusLabel(s.Latest)
	statusColor := ansiDim
	if s.Latest != nil {
		statusColor = ansiRed
		if s.Latest.Up {
			statusColor = ansiGreen
		}
	}
	p.line(p.paint(ansiBold, title) + "  " + p.paint(statusColor, status))

	var ts int64
	if s.Latest != nil {
		ts = s.Latest.Timestamp
	}
	updated := format.RelativeTime(ts, now)
	if s.Latest != nil && s.Latest.Origin == types.OriginHistory {
		updated += " (last valid reading)"
	}
	p.line(fmt.Sprintf("  Uptime 24h %s  Uptime 7d %s  Updated: %s",
		format.PercentPtr(s.Uptime24h), format.PercentPtr(s.Uptime7d), updated))

	var metrics string
	if s.Latest != nil {
		metrics = "  Latency: " + format.Latency(s.Latest.LatencyMs)
		if s.Kind == types.KindGame {
			metrics += "  Players: " + format.Players(s.Latest.PlayersOnline, s.Latest.PlayersMax)
		}
	} else {
		metrics = "  Latency: " + format.Placeholder
	}
	p.line(metrics)

	p.line("  " + p.strip(s.Dots))
	if len(s.Dots) > 0 {
		first, last := s.Dots[0], s.Dots[len(s.Dots)-1]
		p.line(p.paint(ansiDim, "  "+format.ShortTimeRange(first.StartMinute, last.EndMinute, loc)))
	}

	if s.FetchError != "" {
		p.line("  " + p.paint(ansiAmber, format.TroubleNotice))
	}
	for _, c := range s.Certs {
		if c.Status != security.StatusValid {
			p.line("  " + p.paint(ansiAmber, fmt.Sprintf("TLS %s: %s (%d days left)", c.Endpoint, c.Status, c.DaysLeft)))
		}
	}
}

// strip renders the dots as one glyph each; nil dots render as loading.
func (p *printer) strip(dots []types.HourlyDot) string {
	if dots == nil {
		return p.paint(ansiDim, strings.Repeat("·", 168))
	}
	var b strings.Builder
	for _, d := range dots {
		b.WriteString(p.paint(dotColor(d.State), glyph(d.State)))
	}
	return b.String()
}

func glyph(state string) string {
	switch state {
	case format.DotUp:
		return "█"
	case format.DotMostly:
		return "▓"
	case format.DotPartial:
		return "▒"
	default:
		return "░"
	}
}

func dotColor(state string) string {
	switch state {
	case format.DotUp, format.DotMostly:
		return ansiGreen
	case format.DotPartial:
		return ansiAmber
	default:
		return ansiDim
	}
}
