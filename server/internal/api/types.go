package api

import (
	"github.com/chickenjockey/sitestatus/pkg/format"
	"github.com/chickenjockey/sitestatus/pkg/types"
	"github.com/chickenjockey/sitestatus/server/internal/alerts"
	"github.com/chickenjockey/sitestatus/server/internal/store"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State        string `json:"state"` // operational | degraded | outage | unknown
	TargetCount  int    `json:"target_count"`
	UpCount      int    `json:"up_count"`
	DownCount    int    `json:"down_count"`
	LoadingCount int    `json:"loading_count"`
	TroubleCount int    `json:"trouble_count"`
	AlertCount   int    `json:"alert_count"`
}

// TargetView is one status card in GET /api/v1/targets or
// GET /api/v1/targets/{id}. Raw values sit next to their rendered text.
type TargetView struct {
	TargetID string `json:"target_id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Kind     string `json:"kind"`

	Status      string `json:"status"`       // online | offline | loading
	StatusLabel string `json:"status_label"` // Online | Offline | Loading…
	Origin      string `json:"origin,omitempty"`

	Uptime24h     *float64 `json:"uptime_24h"`
	Uptime7d      *float64 `json:"uptime_7d"`
	Uptime24hText string   `json:"uptime_24h_text"`
	Uptime7dText  string   `json:"uptime_7d_text"`

	UpdatedAt    int64  `json:"updated_at"` // unix seconds, 0 if unknown
	UpdatedRel   string `json:"updated_rel"`
	UpdatedExact string `json:"updated_exact"`

	LatencyMs     *float64 `json:"latency_ms,omitempty"`
	LatencyText   string   `json:"latency_text"`
	PlayersOnline *int     `json:"players_online,omitempty"`
	PlayersMax    *int     `json:"players_max,omitempty"`
	PlayersText   string   `json:"players_text,omitempty"`

	Trouble    string `json:"trouble,omitempty"`
	FetchError string `json:"fetch_error,omitempty"`

	Loading   bool      `json:"loading"` // history not loaded yet
	Dots      []DotView `json:"dots"`
	StripSpan string    `json:"strip_span,omitempty"`

	Certs       []types.CertStatus `json:"certs"`
	Diagnostics []DiagnosticHint   `json:"diagnostics"`
	LastSeen    string             `json:"last_seen"` // RFC3339
}

// DotView is one hourly dot with its rendered label and tooltip.
type DotView struct {
	State       string  `json:"state"` // up | mostly | partial | down | loading
	Label       string  `json:"label"`
	Color       string  `json:"color"`
	Range       string  `json:"range,omitempty"`
	Tooltip     string  `json:"tooltip"`
	UpPct       float64 `json:"up_pct"`
	UpMinutes   int     `json:"up_minutes"`
	DownMinutes int     `json:"down_minutes"`
	StartMinute int64   `json:"start_minute,omitempty"`
	EndMinute   int64   `json:"end_minute,omitempty"`
}

// BannerResponse is the payload for GET /api/v1/banner.
type BannerResponse struct {
	TargetID     string `json:"target_id"`
	Loading      bool   `json:"loading"`
	Up           bool   `json:"up"`
	Message      string `json:"message"`
	Updated      int64  `json:"updated"`
	UpdatedRel   string `json:"updated_rel"`
	UpdatedExact string `json:"updated_exact"`
}

// CertEntry is one row of GET /api/v1/certs.
type CertEntry struct {
	TargetID string `json:"target_id"`
	types.CertStatus
}

// HistoryResponse is the payload for GET /api/v1/targets/{id}/history.
type HistoryResponse struct {
	TargetID string         `json:"target_id"`
	Records  []store.Record `json:"records"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the data of
// every WebSocket message.
type SnapshotResponse struct {
	Targets     []TargetView         `json:"targets"`
	Banner      *BannerResponse      `json:"banner,omitempty"`
	Legend      []format.LegendEntry `json:"legend"`
	Alerts      []*alerts.Alert      `json:"alerts"`
	GeneratedAt string               `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
