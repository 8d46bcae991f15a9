package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/goccy/go-json"

	"github.com/chickenjockey/sitestatus/pkg/format"
	"github.com/chickenjockey/sitestatus/server/internal/alerts"
	"github.com/chickenjockey/sitestatus/server/internal/store"
)

// AlertSource lists current alerts.
type AlertSource interface {
	Active() []*alerts.Alert
}

// HistorySource reads archived snapshots.
type HistorySource interface {
	Recent(ctx context.Context, targetID string, limit int) ([]store.Record, error)
}

// Options configures optional collaborators and rendering.
type Options struct {
	// Alerts feeds /api/v1/alerts; nil serves an empty list.
	Alerts AlertSource
	// Archive feeds the history endpoint; nil answers 404.
	Archive HistorySource
	// Location renders exact times and dot ranges. Defaults to UTC.
	Location *time.Location
	// BannerTarget is the target id behind /api/v1/banner.
	BannerTarget string
}

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads target state from the snapshot store and returns JSON responses.
type Handler struct {
	store *store.Store
	opts  Options
	mux   *http.ServeMux
	h     http.Handler
	now   func() time.Time
}

// New creates a Handler wired to the given snapshot store and registers all routes.
func New(st *store.Store, opts Options) *Handler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	h := &Handler{store: st, opts: opts, mux: http.NewServeMux(), now: time.Now}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/targets", h.listTargets)
	h.mux.HandleFunc("/api/v1/targets/", h.target) // subtree: {id}, {id}/strip.png, {id}/history
	h.mux.HandleFunc("/api/v1/banner", h.banner)
	h.mux.HandleFunc("/api/v1/legend", h.legend)
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)
	h.mux.HandleFunc("/api/v1/certs", h.certs)
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)

	h.h = gziphandler.GzipHandler(h.mux)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.h.ServeHTTP(w, r)
}

// Snapshot builds the full status page payload. The WebSocket hub
// broadcasts the same value.
func (h *Handler) Snapshot() SnapshotResponse {
	now := h.now()
	entries := h.store.List()

	targets := make([]TargetView, 0, len(entries))
	for _, e := range entries {
		targets = append(targets, toTargetView(e, now, h.opts.Location))
	}

	resp := SnapshotResponse{
		Targets:     targets,
		Legend:      format.Legend(),
		Alerts:      h.activeAlerts(),
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}
	if h.opts.BannerTarget != "" {
		b := h.bannerFor(now)
		resp.Banner = &b
	}
	return resp
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: overall state and per-status counts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	snaps := h.store.Snapshots()
	resp := HealthResponse{
		TargetCount: len(snaps),
		AlertCount:  len(h.activeAlerts()),
	}
	for _, s := range snaps {
		switch statusOf(s.Latest) {
		case StatusOnline:
			resp.UpCount++
		case StatusOffline:
			resp.DownCount++
		default:
			resp.LoadingCount++
		}
		if s.FetchError != "" {
			resp.TroubleCount++
		}
	}
	resp.State = overallState(resp)
	jsonResp(w, http.StatusOK, resp)
}

// overallState: operational when every reporting target is up, outage when
// none is, degraded in between. Nothing reporting is unknown.
func overallState(h HealthResponse) string {
	switch {
	case h.UpCount+h.DownCount == 0:
		return "unknown"
	case h.DownCount == 0:
		return "operational"
	case h.UpCount == 0:
		return "outage"
	default:
		return "degraded"
	}
}

// listTargets returns GET /api/v1/targets: all live targets in display order.
func (h *Handler) listTargets(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, h.Snapshot().Targets)
}

// target dispatches GET /api/v1/targets/{id}[/strip.png|/history].
func (h *Handler) target(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/targets/"), "/")
	if rest == "" {
		h.listTargets(w, r)
		return
	}
	id, sub, _ := strings.Cut(rest, "/")

	switch sub {
	case "":
		e, ok := h.store.Get(id)
		if !ok {
			jsonErr(w, http.StatusNotFound, "target not found")
			return
		}
		jsonResp(w, http.StatusOK, toTargetView(e, h.now(), h.opts.Location))
	case "strip.png":
		e, ok := h.store.Get(id)
		if !ok {
			jsonErr(w, http.StatusNotFound, "target not found")
			return
		}
		h.strip(w, e)
	case "history":
		h.history(w, r, id)
	default:
		jsonErr(w, http.StatusNotFound, "not found")
	}
}

// history returns GET /api/v1/targets/{id}/history?limit=N from the archive.
func (h *Handler) history(w http.ResponseWriter, r *http.Request, id string) {
	if h.opts.Archive == nil {
		jsonErr(w, http.StatusNotFound, "history archive is disabled")
		return
	}
	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			jsonErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	recs, err := h.opts.Archive.Recent(r.Context(), id, limit)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	jsonResp(w, http.StatusOK, HistoryResponse{TargetID: id, Records: recs})
}

// banner returns GET /api/v1/banner: the game-server banner.
func (h *Handler) banner(w http.ResponseWriter, r *http.Request) {
	if h.opts.BannerTarget == "" {
		jsonErr(w, http.StatusNotFound, "no banner target configured")
		return
	}
	jsonResp(w, http.StatusOK, h.bannerFor(h.now()))
}

func (h *Handler) bannerFor(now time.Time) BannerResponse {
	e, ok := h.store.Get(h.opts.BannerTarget)
	return toBanner(h.opts.BannerTarget, e, ok, now, h.opts.Location)
}

// legend returns GET /api/v1/legend: the four dot bands.
func (h *Handler) legend(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, format.Legend())
}

// alerts returns GET /api/v1/alerts: firing and recently resolved alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, h.activeAlerts())
}

func (h *Handler) activeAlerts() []*alerts.Alert {
	if h.opts.Alerts == nil {
		return []*alerts.Alert{}
	}
	return h.opts.Alerts.Active()
}

// certs returns GET /api/v1/certs: certificate status per feed endpoint.
// Targets fed by the same agent report the same endpoints; rows are
// deduplicated by endpoint.
func (h *Handler) certs(w http.ResponseWriter, r *http.Request) {
	out := make([]CertEntry, 0)
	seen := make(map[string]bool)
	for _, s := range h.store.Snapshots() {
		for _, c := range s.Certs {
			if seen[c.Endpoint] {
				continue
			}
			seen[c.Endpoint] = true
			out = append(out, CertEntry{TargetID: s.TargetID, CertStatus: c})
		}
	}
	jsonResp(w, http.StatusOK, out)
}

// snapshot returns GET /api/v1/snapshot: the full status page.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, h.Snapshot())
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
