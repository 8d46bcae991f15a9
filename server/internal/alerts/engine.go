package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chickenjockey/sitestatus/pkg/types"
	"github.com/chickenjockey/sitestatus/server/internal/config"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	TargetID   string     `json:"target_id"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
}

// Engine evaluates alert rules against incoming TargetSnapshots and delivers
// webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []config.AlertRule
	webhooks []config.WebhookConfig

	mu       sync.Mutex
	active   map[string]*Alert    // key: "ruleName:targetID"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client
	now      func() time.Time
	wg       sync.WaitGroup
}

// New creates an Engine from the server alert configuration.
// An Engine with empty rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	return &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// Evaluate tests all configured rules against snap.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(snap types.TargetSnapshot) {
	if len(e.rules) == 0 {
		return
	}

	now := e.now()
	for _, rule := range e.rules {
		key := rule.Name + ":" + snap.TargetID
		fires, value := evalCondition(rule.Condition, snap)

		var notify *Alert
		e.mu.Lock()
		if fires {
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			// A condition that stays true re-notifies once per cooldown.
			if now.Sub(e.lastFire[key]) > cooldown {
				notify = e.fire(rule, snap, value, now)
				e.active[key] = notify
				e.lastFire[key] = now
			}
		} else if a, ok := e.active[key]; ok {
			resolved := now
			a.State = StateResolved
			a.ResolvedAt = &resolved
			delete(e.active, key)

			e.history = append(e.history, a)
			if len(e.history) > maxHistoryLen {
				e.history = e.history[len(e.history)-maxHistoryLen:]
			}
			notify = a
		}
		var alertCopy Alert
		if notify != nil {
			alertCopy = *notify
		}
		e.mu.Unlock()

		if notify == nil {
			continue
		}
		if alertCopy.State == StateFiring {
			slog.Warn("alert fired",
				"rule", rule.Name,
				"target", snap.TargetID,
				"value", value,
				"severity", alertCopy.Severity,
			)
		} else {
			slog.Info("alert resolved",
				"rule", rule.Name,
				"target", snap.TargetID,
			)
		}
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.deliver(&alertCopy)
		}()
	}
}

func (e *Engine) fire(rule config.AlertRule, snap types.TargetSnapshot, value float64, now time.Time) *Alert {
	sev := rule.Severity
	if sev == "" {
		sev = "warning"
	}
	name := snap.Title
	if name == "" {
		name = snap.TargetID
	}
	return &Alert{
		ID:       uuid.NewString(),
		RuleName: rule.Name,
		TargetID: snap.TargetID,
		Severity: sev,
		Value:    value,
		Message:  fmt.Sprintf("[%s] %s fired on %s: %s (value %.2f)", sev, rule.Name, name, rule.Condition, value),
		FiredAt:  now,
		State:    StateFiring,
	}
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// Wait blocks until in-flight webhook deliveries have finished.
func (e *Engine) Wait() { e.wg.Wait() }
