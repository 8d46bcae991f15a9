package types

// Sample is one row of the upstream status feeds.
// Status is compared case-insensitively against "UP" and "INVALID"; every
// other value counts as not-up.
type Sample struct {
	TargetID      string   `json:"target_id"`
	Status        string   `json:"status"`
	Timestamp     int64    `json:"timestamp"` // unix seconds
	LatencyMs     *float64 `json:"latency_ms,omitempty"`
	PlayersOnline *int     `json:"players_online,omitempty"`
	PlayersMax    *int     `json:"players_max,omitempty"`
}

// LatestPayload is the body of the latest-sample feed, keyed by target id.
type LatestPayload map[string]Sample

// Origin values for LatestStatus.Origin.
const (
	OriginLatest  = "latest"  // the current reading was usable as-is
	OriginHistory = "history" // the current reading was invalid; a historical row stands in
	OriginNone    = "none"    // invalid with nothing to fall back on
)

// LatestStatus is the reconciled current status of one target.
type LatestStatus struct {
	TargetID      string   `json:"target_id"`
	Up            bool     `json:"up"`
	LatencyMs     *float64 `json:"latency_ms,omitempty"`
	PlayersOnline *int     `json:"players_online,omitempty"`
	PlayersMax    *int     `json:"players_max,omitempty"`
	Timestamp     int64    `json:"timestamp"`
	Origin        string   `json:"origin"`

	// ReadingTimestamp is the timestamp of the latest-feed reading itself,
	// which differs from Timestamp when a historical row stands in.
	ReadingTimestamp int64 `json:"reading_timestamp"`
}

// HourlyDot is one 60-minute bucket of the 7-day strip.
type HourlyDot struct {
	State       string  `json:"state"` // up | mostly | partial | down
	StartMinute int64   `json:"start_minute"`
	EndMinute   int64   `json:"end_minute"`
	UpMinutes   int     `json:"up_minutes"`
	DownMinutes int     `json:"down_minutes"`
	UpPct       float64 `json:"up_pct"`
}

// CertStatus is the TLS certificate state of a feed endpoint.
type CertStatus struct {
	Endpoint string `json:"endpoint"`
	Status   string `json:"status"` // valid | expiring | expired | unreachable
	DaysLeft int    `json:"days_left"`
	Issuer   string `json:"issuer,omitempty"`
	NotAfter int64  `json:"not_after,omitempty"` // unix seconds
}

// Target kinds.
const (
	KindWeb  = "web"
	KindGame = "game"
)

// TargetSnapshot is the evaluated state of one target at GeneratedAt.
//
// Latest is nil while the latest feed has never answered for the target.
// Dots, Uptime24h and Uptime7d are nil while history has never loaded;
// a loaded but empty history yields 168 down dots and zero uptimes.
type TargetSnapshot struct {
	TargetID    string        `json:"target_id"`
	Title       string        `json:"title"`
	Subtitle    string        `json:"subtitle,omitempty"`
	Kind        string        `json:"kind"`
	GeneratedAt int64         `json:"generated_at"` // unix seconds
	Latest      *LatestStatus `json:"latest,omitempty"`
	Uptime24h   *float64      `json:"uptime_24h,omitempty"`
	Uptime7d    *float64      `json:"uptime_7d,omitempty"`
	Dots        []HourlyDot   `json:"dots,omitempty"`
	FetchError  string        `json:"fetch_error,omitempty"`
	Certs       []CertStatus  `json:"certs,omitempty"`
}
