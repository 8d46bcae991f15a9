package compute

import (
	"testing"

	"github.com/chickenjockey/sitestatus/pkg/types"
)

func TestSummarize_HistoryNotLoaded(t *testing.T) {
	s := Summarize(Input{
		TargetID:    "site",
		Latest:      types.LatestPayload{"site": {TargetID: "site", Status: "INVALID", Timestamp: 100}},
		History:     []types.Sample{sample("site", "UP", 90)},
		Now:         baseTime,
		StripPolicy: TreatInvalidAsDown,
		LivePolicy:  FallbackToHistory,
	})
	if s.Dots != nil || s.Uptime24h != nil || s.Uptime7d != nil {
		t.Errorf("expected loading placeholders, got %+v", s)
	}
	if s.Latest == nil || s.Latest.Origin != types.OriginNone || s.Latest.Up {
		t.Errorf("Latest = %+v, want down with origin none", s.Latest)
	}
}

func TestSummarize_LatestNotLoaded(t *testing.T) {
	s := Summarize(Input{TargetID: "site", HistoryLoaded: true, History: []types.Sample{}, Now: baseTime})
	if s.Latest != nil {
		t.Errorf("Latest = %+v, want nil", s.Latest)
	}
}

func TestSummarize_EmptyHistoryLoaded(t *testing.T) {
	s := Summarize(Input{TargetID: "site", HistoryLoaded: true, Now: baseTime})
	if len(s.Dots) != DotsPerStrip {
		t.Fatalf("len(Dots) = %d, want %d", len(s.Dots), DotsPerStrip)
	}
	if s.Uptime24h == nil || *s.Uptime24h != 0 || s.Uptime7d == nil || *s.Uptime7d != 0 {
		t.Errorf("uptimes = %v, %v; want 0, 0", s.Uptime24h, s.Uptime7d)
	}
}

func TestSummarize_MatchesIndividualFunctions(t *testing.T) {
	history := append(upRun("site", endMinute, 600), upRun("map", endMinute, 30)...)
	history = append([]types.Sample{sample("site", "INVALID", baseTime.Unix())}, history...)
	latest := types.LatestPayload{"site": {TargetID: "site", Status: "INVALID", Timestamp: baseTime.Unix()}}

	s := Summarize(Input{
		TargetID:      "site",
		Latest:        latest,
		History:       history,
		HistoryLoaded: true,
		Now:           baseTime,
		StripPolicy:   TreatInvalidAsDown,
		LivePolicy:    FallbackToHistory,
	})

	if want := UptimePercent(history, "site", Minutes24h, baseTime, TreatInvalidAsDown); *s.Uptime24h != want {
		t.Errorf("Uptime24h = %v, want %v", *s.Uptime24h, want)
	}
	if want := UptimePercent(history, "site", Minutes7d, baseTime, TreatInvalidAsDown); *s.Uptime7d != want {
		t.Errorf("Uptime7d = %v, want %v", *s.Uptime7d, want)
	}
	dots := HourlyDots(history, "site", baseTime, TreatInvalidAsDown)
	if len(s.Dots) != len(dots) || s.Dots[len(dots)-1] != dots[len(dots)-1] {
		t.Errorf("dots differ from HourlyDots")
	}
	// The strip counts the INVALID minute as down; the live status falls back.
	if s.Dots[len(dots)-1].UpMinutes != 59 {
		t.Errorf("last dot up minutes = %d, want 59", s.Dots[len(dots)-1].UpMinutes)
	}
	if s.Latest == nil || !s.Latest.Up || s.Latest.Origin != types.OriginHistory {
		t.Errorf("Latest = %+v, want up from history", s.Latest)
	}
}
