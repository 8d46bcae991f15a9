package api_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/common/expfmt"

	"github.com/chickenjockey/sitestatus/pkg/types"
	"github.com/chickenjockey/sitestatus/server/internal/alerts"
	"github.com/chickenjockey/sitestatus/server/internal/api"
	"github.com/chickenjockey/sitestatus/server/internal/store"
)

// --- test helpers -----------------------------------------------------------

// baseTime is 2026-01-02 15:00:00 UTC.
var baseTime = time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

func newStore(snaps ...types.TargetSnapshot) *store.Store {
	st := store.New(0)
	for _, s := range snaps {
		st.Put(s)
	}
	return st
}

func newHandler(st *store.Store, opts api.Options) *api.Handler {
	h := api.New(st, opts)
	h.SetClock(func() time.Time { return baseTime })
	return h
}

// fullDots returns 168 dots ending at baseTime, all "up" except the last.
func fullDots() []types.HourlyDot {
	end := baseTime.Unix() / 60
	start := end - 168*60 + 1
	dots := make([]types.HourlyDot, 168)
	for i := range dots {
		s := start + int64(i)*60
		dots[i] = types.HourlyDot{State: "up", StartMinute: s, EndMinute: s + 59, UpMinutes: 60, UpPct: 100}
	}
	dots[167] = types.HourlyDot{State: "mostly", StartMinute: dots[167].StartMinute, EndMinute: dots[167].EndMinute,
		UpMinutes: 57, DownMinutes: 3, UpPct: 95}
	return dots
}

func webSnap(id string, up bool) types.TargetSnapshot {
	return types.TargetSnapshot{
		TargetID: id,
		Title:    "Website",
		Subtitle: id + ".example.com",
		Kind:     types.KindWeb,
		Latest: &types.LatestStatus{
			TargetID: id, Up: up, LatencyMs: ptrF(42), Timestamp: baseTime.Unix() - 3661,
			Origin: types.OriginLatest, ReadingTimestamp: baseTime.Unix() - 3661,
		},
		Uptime24h: ptrF(99.996),
		Uptime7d:  ptrF(96.5),
		Dots:      fullDots(),
	}
}

func gameSnap(latest *types.LatestStatus) types.TargetSnapshot {
	return types.TargetSnapshot{
		TargetID:  "mc",
		Title:     "Minecraft",
		Kind:      types.KindGame,
		Latest:    latest,
		Uptime24h: ptrF(100),
		Uptime7d:  ptrF(100),
		Dots:      fullDots(),
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

type fakeAlerts []*alerts.Alert

func (f fakeAlerts) Active() []*alerts.Alert { return f }

// --- /api/v1/health ---------------------------------------------------------

func TestHealth(t *testing.T) {
	cases := []struct {
		name  string
		snaps []types.TargetSnapshot
		want  string
	}{
		{"empty", nil, "unknown"},
		{"only loading", []types.TargetSnapshot{{TargetID: "site"}}, "unknown"},
		{"all up", []types.TargetSnapshot{webSnap("site", true), webSnap("map", true)}, "operational"},
		{"mixed", []types.TargetSnapshot{webSnap("site", true), webSnap("map", false)}, "degraded"},
		{"all down", []types.TargetSnapshot{webSnap("site", false), {TargetID: "map"}}, "outage"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := get(t, newHandler(newStore(tc.snaps...), api.Options{}), "/api/v1/health")
			if rr.Code != http.StatusOK {
				t.Fatalf("status: got %d, want 200", rr.Code)
			}
			var resp api.HealthResponse
			decode(t, rr, &resp)
			if resp.State != tc.want {
				t.Errorf("state: got %q, want %q", resp.State, tc.want)
			}
			if resp.TargetCount != len(tc.snaps) {
				t.Errorf("target_count: got %d, want %d", resp.TargetCount, len(tc.snaps))
			}
		})
	}
}

// --- /api/v1/targets --------------------------------------------------------

func TestTargets_CardView(t *testing.T) {
	h := newHandler(newStore(webSnap("site", true), webSnap("map", false)), api.Options{})
	rr := get(t, h, "/api/v1/targets")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var views []api.TargetView
	decode(t, rr, &views)

	if len(views) != 2 || views[0].TargetID != "site" || views[1].TargetID != "map" {
		t.Fatalf("targets out of display order: %+v", views)
	}
	v := views[0]
	checks := map[string][2]string{
		"status":          {v.Status, "online"},
		"status_label":    {v.StatusLabel, "Online"},
		"uptime_24h_text": {v.Uptime24hText, "Uptime 24h 100.00%"},
		"uptime_7d_text":  {v.Uptime7dText, "Uptime 7d 96.50%"},
		"updated_rel":     {v.UpdatedRel, "1h ago"},
		"updated_exact":   {v.UpdatedExact, "1/2/2026, 1:58:59 PM"},
		"latency_text":    {v.LatencyText, "Latency: 42ms"},
		"players_text":    {v.PlayersText, ""},
		"strip_span":      {v.StripSpan, "Dec 26 3:01 PM → Jan 2 3:01 PM"},
	}
	for field, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s: got %q, want %q", field, c[0], c[1])
		}
	}
	if views[1].StatusLabel != "Offline" {
		t.Errorf("second card status_label: got %q, want Offline", views[1].StatusLabel)
	}

	if len(v.Dots) != 168 {
		t.Fatalf("dots: got %d, want 168", len(v.Dots))
	}
	last := v.Dots[167]
	want := api.DotView{
		State: "mostly", Label: "Mostly online", Color: "34d399",
		Range:   "Jan 2 2:01 PM–3:01 PM",
		Tooltip: "Jan 2 2:01 PM–3:01 PM • Mostly online • 95.0% • 57m up / 3m down",
		UpPct:   95, UpMinutes: 57, DownMinutes: 3,
		StartMinute: last.StartMinute, EndMinute: last.EndMinute,
	}
	if diff := cmp.Diff(want, last); diff != "" {
		t.Errorf("last dot (-want +got):\n%s", diff)
	}
}

func TestTargets_GamePlayers(t *testing.T) {
	snap := gameSnap(&types.LatestStatus{
		TargetID: "mc", Up: true, PlayersOnline: ptrI(3), PlayersMax: ptrI(20),
		Timestamp: baseTime.Unix() - 5, Origin: types.OriginLatest,
	})
	rr := get(t, newHandler(newStore(snap), api.Options{}), "/api/v1/targets/mc")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var v api.TargetView
	decode(t, rr, &v)
	if v.PlayersText != "3/20" {
		t.Errorf("players_text: got %q, want 3/20", v.PlayersText)
	}
	if v.LatencyText != "Latency: —" {
		t.Errorf("latency_text: got %q", v.LatencyText)
	}
	if v.UpdatedRel != "just now" {
		t.Errorf("updated_rel: got %q, want just now", v.UpdatedRel)
	}
}

func TestTargets_LoadingAndTrouble(t *testing.T) {
	snap := types.TargetSnapshot{TargetID: "site", Title: "Website", Kind: types.KindWeb, FetchError: "feed: timeout"}
	rr := get(t, newHandler(newStore(snap), api.Options{}), "/api/v1/targets/site")
	var v api.TargetView
	decode(t, rr, &v)

	if v.Status != "loading" || v.StatusLabel != "Loading…" {
		t.Errorf("status: got %q/%q", v.Status, v.StatusLabel)
	}
	if !v.Loading || len(v.Dots) != 168 || v.Dots[0].State != "loading" {
		t.Errorf("expected 168 loading dots, got loading=%v len=%d", v.Loading, len(v.Dots))
	}
	if v.Uptime24hText != "Uptime 24h —" || v.UpdatedRel != "—" {
		t.Errorf("placeholders: got %q / %q", v.Uptime24hText, v.UpdatedRel)
	}
	if v.Trouble != "Trouble reaching the API. Showing what we can." {
		t.Errorf("trouble: got %q", v.Trouble)
	}
	if len(v.Diagnostics) == 0 || v.Diagnostics[0].Key != "feed_failed" {
		t.Errorf("diagnostics: got %+v", v.Diagnostics)
	}
}

func TestTargets_NotFound(t *testing.T) {
	h := newHandler(newStore(), api.Options{})
	for _, p := range []string{"/api/v1/targets/nope", "/api/v1/targets/nope/strip.png", "/api/v1/targets/site/bogus"} {
		if rr := get(t, h, p); rr.Code != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", p, rr.Code)
		}
	}
}

// --- /api/v1/banner ---------------------------------------------------------

func TestBanner(t *testing.T) {
	reading := baseTime.Unix() - 30
	cases := []struct {
		name        string
		latest      *types.LatestStatus
		wantUp      bool
		wantLoading bool
		wantMsg     string
		wantUpdated int64
	}{
		{
			name:        "up from latest",
			latest:      &types.LatestStatus{Up: true, Timestamp: reading, Origin: types.OriginLatest, ReadingTimestamp: reading},
			wantUp:      true,
			wantMsg:     "The server is currently up!",
			wantUpdated: reading,
		},
		{
			name:        "history fallback shows down at reading time",
			latest:      &types.LatestStatus{Up: true, Timestamp: reading - 600, Origin: types.OriginHistory, ReadingTimestamp: reading},
			wantMsg:     "The server is currently down!",
			wantUpdated: reading,
		},
		{
			name:        "undetermined",
			latest:      &types.LatestStatus{Timestamp: reading, Origin: types.OriginNone, ReadingTimestamp: reading},
			wantMsg:     "The server is currently down!",
			wantUpdated: reading,
		},
		{
			name:        "loading reads down",
			wantLoading: true,
			wantMsg:     "The server is currently down!",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHandler(newStore(gameSnap(tc.latest)), api.Options{BannerTarget: "mc"})
			rr := get(t, h, "/api/v1/banner")
			var b api.BannerResponse
			decode(t, rr, &b)
			if b.Up != tc.wantUp || b.Loading != tc.wantLoading || b.Message != tc.wantMsg || b.Updated != tc.wantUpdated {
				t.Errorf("banner: got %+v", b)
			}
			if tc.wantLoading && (b.UpdatedRel != "—" || b.UpdatedExact != "—") {
				t.Errorf("loading banner times: got %q / %q, want placeholders", b.UpdatedRel, b.UpdatedExact)
			}
		})
	}
}

func TestBanner_NotConfigured(t *testing.T) {
	rr := get(t, newHandler(newStore(), api.Options{}), "/api/v1/banner")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

// --- /api/v1/legend, alerts, certs -------------------------------------------

func TestLegend(t *testing.T) {
	rr := get(t, newHandler(newStore(), api.Options{}), "/api/v1/legend")
	var legend []struct{ Label string }
	decode(t, rr, &legend)
	var got []string
	for _, l := range legend {
		got = append(got, l.Label)
	}
	want := []string{"Online (≥ 97%)", "Mostly online (85–97%)", "Partial (50–85%)", "Down (< 50%)"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("legend (-want +got):\n%s", diff)
	}
}

func TestAlerts(t *testing.T) {
	h := newHandler(newStore(), api.Options{})
	if body := strings.TrimSpace(get(t, h, "/api/v1/alerts").Body.String()); body != "[]" {
		t.Errorf("no alert source: got %s, want []", body)
	}

	src := fakeAlerts{{ID: "a1", RuleName: "mc-down", TargetID: "mc", State: alerts.StateFiring}}
	rr := get(t, newHandler(newStore(), api.Options{Alerts: src}), "/api/v1/alerts")
	var got []alerts.Alert
	decode(t, rr, &got)
	if len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("alerts: got %+v", got)
	}
}

func TestCerts_DedupByEndpoint(t *testing.T) {
	cert := types.CertStatus{Endpoint: "api.example.com:443", Status: "valid", DaysLeft: 60}
	a, b := webSnap("site", true), webSnap("map", true)
	a.Certs = []types.CertStatus{cert}
	b.Certs = []types.CertStatus{cert}

	rr := get(t, newHandler(newStore(a, b), api.Options{}), "/api/v1/certs")
	var got []api.CertEntry
	decode(t, rr, &got)
	if len(got) != 1 || got[0].TargetID != "site" || got[0].DaysLeft != 60 {
		t.Errorf("certs: got %+v", got)
	}
}

// --- /api/v1/snapshot ---------------------------------------------------------

func TestSnapshot_Gzip(t *testing.T) {
	h := newHandler(newStore(webSnap("site", true), gameSnap(nil)), api.Options{BannerTarget: "mc"})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding: got %q, want gzip", rr.Header().Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(rr.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	var snap api.SnapshotResponse
	if err := json.NewDecoder(zr).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Targets) != 2 || snap.Banner == nil || !snap.Banner.Loading || len(snap.Legend) != 4 {
		t.Errorf("snapshot: got %d targets, banner %+v, %d legend rows", len(snap.Targets), snap.Banner, len(snap.Legend))
	}
	if snap.GeneratedAt != "2026-01-02T15:00:00Z" {
		t.Errorf("generated_at: got %q", snap.GeneratedAt)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHandler(newStore(), api.Options{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/targets", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- strip.png ---------------------------------------------------------------

func TestStripPNG(t *testing.T) {
	h := newHandler(newStore(webSnap("site", true), types.TargetSnapshot{TargetID: "map"}), api.Options{})
	for _, id := range []string{"site", "map"} {
		rr := get(t, h, "/api/v1/targets/"+id+"/strip.png")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status %d, body %s", id, rr.Code, rr.Body.String())
		}
		if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("%s: Content-Type %q", id, ct)
		}
		if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")) {
			t.Errorf("%s: body is not a PNG", id)
		}
	}
}

// --- history ------------------------------------------------------------------

func TestHistory(t *testing.T) {
	st := newStore(webSnap("site", true))

	rr := get(t, newHandler(st, api.Options{}), "/api/v1/targets/site/history")
	if rr.Code != http.StatusNotFound {
		t.Errorf("archive disabled: got %d, want 404", rr.Code)
	}

	archive, err := store.OpenArchive(":memory:")
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer archive.Close()
	for i := 0; i < 3; i++ {
		if err := archive.Append(context.Background(), webSnap("site", i%2 == 0)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	h := newHandler(st, api.Options{Archive: archive})
	rr = get(t, h, "/api/v1/targets/site/history?limit=2")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}
	var resp api.HistoryResponse
	decode(t, rr, &resp)
	if resp.TargetID != "site" || len(resp.Records) != 2 {
		t.Errorf("history: got %s with %d records", resp.TargetID, len(resp.Records))
	}

	if rr := get(t, h, "/api/v1/targets/site/history?limit=abc"); rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit: got %d, want 400", rr.Code)
	}
}

// --- /metrics -------------------------------------------------------------------

func TestMetrics(t *testing.T) {
	game := gameSnap(&types.LatestStatus{TargetID: "mc", Up: false, PlayersOnline: ptrI(0), PlayersMax: ptrI(20), Origin: types.OriginLatest})
	game.FetchError = "boom"
	game.Certs = []types.CertStatus{{Endpoint: "api.example.com:443", DaysLeft: 12}}
	st := newStore(webSnap("site", true), game)
	src := fakeAlerts{
		{State: alerts.StateFiring},
		{State: alerts.StateResolved},
	}

	rr := httptest.NewRecorder()
	api.NewMetrics(st, src).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(rr.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}

	value := func(name string, labels map[string]string) float64 {
		t.Helper()
		mf, ok := families[name]
		if !ok {
			t.Fatalf("family %s missing", name)
		}
	next:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue next
				}
			}
			return m.GetGauge().GetValue()
		}
		t.Fatalf("%s%v not found", name, labels)
		return 0
	}

	if v := value("sitestatus_target_up", map[string]string{"target": "site"}); v != 1 {
		t.Errorf("site up: got %v, want 1", v)
	}
	if v := value("sitestatus_target_up", map[string]string{"target": "mc"}); v != 0 {
		t.Errorf("mc up: got %v, want 0", v)
	}
	if v := value("sitestatus_target_uptime_percent", map[string]string{"target": "site", "window": "7d"}); v != 96.5 {
		t.Errorf("site uptime 7d: got %v, want 96.5", v)
	}
	if v := value("sitestatus_target_players", map[string]string{"target": "mc", "kind": "max"}); v != 20 {
		t.Errorf("mc players max: got %v, want 20", v)
	}
	if v := value("sitestatus_target_feed_error", map[string]string{"target": "mc"}); v != 1 {
		t.Errorf("mc feed error: got %v, want 1", v)
	}
	if v := value("sitestatus_cert_days_left", map[string]string{"endpoint": "api.example.com:443"}); v != 12 {
		t.Errorf("cert days: got %v, want 12", v)
	}
	if v := value("sitestatus_targets", nil); v != 2 {
		t.Errorf("targets: got %v, want 2", v)
	}
	if v := value("sitestatus_store_entries", nil); v != 2 {
		t.Errorf("store entries: got %v, want 2", v)
	}
	if v := value("sitestatus_alerts_firing", nil); v != 1 {
		t.Errorf("alerts firing: got %v, want 1", v)
	}
}
