package api

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/chickenjockey/sitestatus/pkg/format"
	"github.com/chickenjockey/sitestatus/server/internal/store"
)

const (
	stripBarWidth   = 5
	stripBarSpacing = 1
	stripPadding    = 10
	stripHeight     = 60

	// minBarValue keeps fully-down hours visible as a sliver.
	minBarValue = 6.0
)

// strip serves GET /api/v1/targets/{id}/strip.png: the 7-day dot strip as
// a bar chart, bar height = uptime of the hour, colour = band.
func (h *Handler) strip(w http.ResponseWriter, e store.Entry) {
	png, err := renderStrip(e)
	if err != nil {
		slog.Error("api: strip render failed", "target", e.Snapshot.TargetID, "err", err)
		jsonErr(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(png) //nolint:errcheck
}

func renderStrip(e store.Entry) ([]byte, error) {
	dots := e.Snapshot.Dots
	bars := make([]chart.Value, 0, stripDots)
	if len(dots) == 0 {
		for i := 0; i < stripDots; i++ {
			bars = append(bars, stripBar(format.DotColor(StatusLoading), 100))
		}
	} else {
		for _, d := range dots {
			bars = append(bars, stripBar(format.DotColor(d.State), max(d.UpPct, minBarValue)))
		}
	}

	graph := chart.BarChart{
		Width:      len(bars)*(stripBarWidth+stripBarSpacing) + 2*stripPadding,
		Height:     stripHeight,
		BarWidth:   stripBarWidth,
		BarSpacing: stripBarSpacing,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    stripPadding,
				Left:   stripPadding,
				Right:  stripPadding,
				Bottom: stripPadding,
			},
		},
		XAxis: chart.Style{Hidden: true},
		YAxis: chart.YAxis{
			Style: chart.Style{Hidden: true},
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func stripBar(hex string, value float64) chart.Value {
	c := drawing.ColorFromHex(hex)
	return chart.Value{
		Value: value,
		Style: chart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 0},
	}
}
