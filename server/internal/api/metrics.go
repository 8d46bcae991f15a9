package api

import (
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/chickenjockey/sitestatus/server/internal/alerts"
	"github.com/chickenjockey/sitestatus/server/internal/store"
)

// Metrics serves GET /metrics in the Prometheus text exposition format,
// built from the live snapshots on every scrape.
type Metrics struct {
	store  *store.Store
	alerts AlertSource
}

// NewMetrics returns the /metrics handler. as may be nil.
func NewMetrics(st *store.Store, as AlertSource) *Metrics {
	return &Metrics{store: st, alerts: as}
}

func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	for _, mf := range m.families() {
		if len(mf.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return
		}
	}
}

func (m *Metrics) families() []*dto.MetricFamily {
	var (
		up       = gaugeFamily("sitestatus_target_up", "Whether the target is currently up (1) or down (0).")
		uptime   = gaugeFamily("sitestatus_target_uptime_percent", "Share of minutes up over the window.")
		latency  = gaugeFamily("sitestatus_target_latency_ms", "Latency of the current reading in milliseconds.")
		players  = gaugeFamily("sitestatus_target_players", "Players reported by a game target.")
		trouble  = gaugeFamily("sitestatus_target_feed_error", "Whether the last feed refresh for the target failed.")
		certDays = gaugeFamily("sitestatus_cert_days_left", "Days until the feed endpoint certificate expires.")
		targets  = gaugeFamily("sitestatus_targets", "Number of live targets.")
		held     = gaugeFamily("sitestatus_store_entries", "Snapshots held by the store, including stale ones awaiting eviction.")
		firing   = gaugeFamily("sitestatus_alerts_firing", "Number of alerts currently firing.")
	)

	entries := m.store.List()
	seenCert := make(map[string]bool)
	for _, e := range entries {
		s := e.Snapshot
		id := label("target", s.TargetID)

		if l := s.Latest; l != nil {
			up.Metric = append(up.Metric, gauge(boolValue(l.Up), id))
			if l.LatencyMs != nil {
				latency.Metric = append(latency.Metric, gauge(*l.LatencyMs, id))
			}
			if l.PlayersOnline != nil {
				players.Metric = append(players.Metric, gauge(float64(*l.PlayersOnline), id, label("kind", "online")))
			}
			if l.PlayersMax != nil {
				players.Metric = append(players.Metric, gauge(float64(*l.PlayersMax), id, label("kind", "max")))
			}
		}
		if s.Uptime24h != nil {
			uptime.Metric = append(uptime.Metric, gauge(*s.Uptime24h, id, label("window", "24h")))
		}
		if s.Uptime7d != nil {
			uptime.Metric = append(uptime.Metric, gauge(*s.Uptime7d, id, label("window", "7d")))
		}
		trouble.Metric = append(trouble.Metric, gauge(boolValue(s.FetchError != ""), id))

		for _, c := range s.Certs {
			if seenCert[c.Endpoint] {
				continue
			}
			seenCert[c.Endpoint] = true
			certDays.Metric = append(certDays.Metric, gauge(float64(c.DaysLeft), label("endpoint", c.Endpoint)))
		}
	}
	targets.Metric = append(targets.Metric, gauge(float64(len(entries))))
	held.Metric = append(held.Metric, gauge(float64(m.store.Count())))

	if m.alerts != nil {
		n := 0
		for _, a := range m.alerts.Active() {
			if a.State == alerts.StateFiring {
				n++
			}
		}
		firing.Metric = append(firing.Metric, gauge(float64(n)))
	}

	return []*dto.MetricFamily{up, uptime, latency, players, trouble, certDays, targets, held, firing}
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func gauge(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
