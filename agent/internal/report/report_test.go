package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/chickenjockey/sitestatus/pkg/types"
)

var baseTime = time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)

func snap(id string, up bool) types.TargetSnapshot {
	u24, u7 := 99.996, 87.5
	ms := 123.0
	on, capacity := 3, 20
	dots := make([]types.HourlyDot, 168)
	for i := range dots {
		dots[i] = types.HourlyDot{State: "up", StartMinute: int64(i * 60), EndMinute: int64(i*60 + 59), UpMinutes: 60, UpPct: 100}
	}
	dots[167].State = "partial"
	return types.TargetSnapshot{
		TargetID:  id,
		Title:     "Minecraft",
		Subtitle:  "mc.example.com",
		Kind:      types.KindGame,
		Latest:    &types.LatestStatus{TargetID: id, Up: up, Timestamp: baseTime.Unix() - 125, LatencyMs: &ms, PlayersOnline: &on, PlayersMax: &capacity},
		Uptime24h: &u24,
		Uptime7d:  &u7,
		Dots:      dots,
	}
}

func TestWrite_PlainText(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []types.TargetSnapshot{snap("mc", true)}, baseTime, Options{Location: time.UTC}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Minecraft (mc.example.com)  Online",
		"Uptime 24h 100.00%  Uptime 7d 87.50%  Updated: 2m ago",
		"Latency: 123ms  Players: 3/20",
		strings.Repeat("█", 167) + "▒",
		"Online (≥ 97%)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("plain output contains ANSI escapes")
	}
}

func TestWrite_LoadingAndTrouble(t *testing.T) {
	s := types.TargetSnapshot{TargetID: "site", Title: "Website", Kind: types.KindWeb, FetchError: "feed: unexpected status 502"}
	var buf bytes.Buffer
	_ = Write(&buf, []types.TargetSnapshot{s}, baseTime, Options{})
	out := buf.String()

	for _, want := range []string{"Loading…", "Uptime 24h —  Uptime 7d —  Updated: —", strings.Repeat("·", 168), "Trouble reaching the API"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWrite_Color(t *testing.T) {
	var buf bytes.Buffer
	_ = Write(&buf, []types.TargetSnapshot{snap("mc", false)}, baseTime, Options{Color: true})
	if !strings.Contains(buf.String(), ansiRed+"Offline"+ansiReset) {
		t.Errorf("expected red Offline label:\n%q", buf.String())
	}
}

func TestAllUp(t *testing.T) {
	if AllUp(nil) {
		t.Error("AllUp(nil) = true")
	}
	if !AllUp([]types.TargetSnapshot{snap("a", true), snap("b", true)}) {
		t.Error("all up reported as not up")
	}
	if AllUp([]types.TargetSnapshot{snap("a", true), snap("b", false)}) {
		t.Error("one down reported as all up")
	}
	if AllUp([]types.TargetSnapshot{{TargetID: "loading"}}) {
		t.Error("loading target reported as up")
	}
}
