package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/chickenjockey/sitestatus/agent/internal/compute"
	"github.com/chickenjockey/sitestatus/agent/internal/config"
	"github.com/chickenjockey/sitestatus/agent/internal/security"
	"github.com/chickenjockey/sitestatus/pkg/types"
)

// Source provides the two upstream feeds. *feed.Client satisfies it.
type Source interface {
	History(ctx context.Context) ([]types.Sample, error)
	Latest(ctx context.Context) (types.LatestPayload, error)
}

// CertChecker inspects endpoint certificates. *security.Checker satisfies it.
type CertChecker interface {
	CheckAll(ctx context.Context, urls ...string) []types.CertStatus
}

// Sink receives every evaluation, one snapshot per target in target order.
type Sink func([]types.TargetSnapshot)

// Options configures a Poller.
type Options struct {
	LatestEvery  time.Duration
	HistoryEvery time.Duration
	CertEvery    time.Duration

	StripPolicy compute.InvalidPolicy
	LivePolicy  compute.InvalidPolicy

	// CertURLs are checked by CertChecker; empty disables cert checks.
	CertURLs []string
}

// OptionsFromConfig derives Options from the agent config.
func OptionsFromConfig(a config.AgentConfig) Options {
	return Options{
		LatestEvery:  a.Feeds.LatestRefresh,
		HistoryEvery: a.Feeds.HistoryRefresh,
		CertEvery:    a.CertCheckInterval,
		StripPolicy:  a.Policy.StripPolicy(),
		LivePolicy:   a.Policy.LivePolicy(),
		CertURLs:     []string{a.Feeds.HistoryURL, a.Feeds.LatestURL},
	}
}

// Poller holds the most recent feed data and evaluates targets against it.
// All exported methods are safe for concurrent use.
type Poller struct {
	src   Source
	certs CertChecker
	sink  Sink
	opts  Options

	mu            sync.Mutex
	targets       []config.Target
	latest        types.LatestPayload
	latestErr     error
	history       []types.Sample
	historyLoaded bool
	historyErr    error
	certStatus    []types.CertStatus

	// now is injectable so tests control the reference instant.
	now func() time.Time
}

// New returns a Poller. certs and sink may be nil.
func New(src Source, certs CertChecker, opts Options, targets []config.Target, sink Sink) *Poller {
	return &Poller{
		src:     src,
		certs:   certs,
		sink:    sink,
		opts:    opts,
		targets: append([]config.Target(nil), targets...),
		now:     time.Now,
	}
}

// SetTargets replaces the target list, e.g. after a config reload.
func (p *Poller) SetTargets(targets []config.Target) {
	p.mu.Lock()
	p.targets = append([]config.Target(nil), targets...)
	p.mu.Unlock()
}

// SetPolicies replaces the INVALID policies, e.g. after a config reload.
func (p *Poller) SetPolicies(strip, live compute.InvalidPolicy) {
	p.mu.Lock()
	p.opts.StripPolicy, p.opts.LivePolicy = strip, live
	p.mu.Unlock()
}

// RefreshLatest fetches the latest feed. On failure the previous payload is
// kept and the error is remembered until the next successful fetch.
func (p *Poller) RefreshLatest(ctx context.Context) error {
	latest, err := p.src.Latest(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.latestErr = err
	if err != nil {
		slog.Warn("poller: latest fetch failed, keeping previous data", "err", err)
		return err
	}
	p.latest = latest
	return nil
}

// RefreshHistory fetches the history feed with the same retention rules as
// RefreshLatest.
func (p *Poller) RefreshHistory(ctx context.Context) error {
	history, err := p.src.History(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.historyErr = err
	if err != nil {
		slog.Warn("poller: history fetch failed, keeping previous data", "err", err)
		return err
	}
	if history == nil {
		history = []types.Sample{}
	}
	p.history = history
	p.historyLoaded = true
	return nil
}

// RefreshCerts re-inspects the feed certificates.
func (p *Poller) RefreshCerts(ctx context.Context) {
	if p.certs == nil || len(p.opts.CertURLs) == 0 {
		return
	}
	certs := p.certs.CheckAll(ctx, p.opts.CertURLs...)
	for _, c := range certs {
		if c.Status != security.StatusValid {
			slog.Warn("poller: feed certificate needs attention",
				"endpoint", c.Endpoint, "status", c.Status, "days_left", c.DaysLeft)
		}
	}

	p.mu.Lock()
	p.certStatus = certs
	p.mu.Unlock()
}

// Refresh fetches both feeds concurrently. The returned error joins the
// failures of either fetch.
func (p *Poller) Refresh(ctx context.Context) error {
	var latestErr, historyErr error
	var g errgroup.Group
	g.Go(func() error { latestErr = p.RefreshLatest(ctx); return nil })
	g.Go(func() error { historyErr = p.RefreshHistory(ctx); return nil })
	_ = g.Wait()
	return errors.Join(latestErr, historyErr)
}

// Evaluate builds one snapshot per target from the current data.
func (p *Poller) Evaluate() []types.TargetSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	fetchErr := errors.Join(p.latestErr, p.historyErr)

	out := make([]types.TargetSnapshot, 0, len(p.targets))
	for _, t := range p.targets {
		sum := compute.Summarize(compute.Input{
			TargetID:      t.ID,
			Latest:        p.latest,
			History:       p.history,
			HistoryLoaded: p.historyLoaded,
			Now:           now,
			StripPolicy:   p.opts.StripPolicy,
			LivePolicy:    p.opts.LivePolicy,
		})

		snap := types.TargetSnapshot{
			TargetID:    t.ID,
			Title:       t.Title,
			Subtitle:    t.Subtitle,
			Kind:        t.Kind,
			GeneratedAt: now.Unix(),
			Latest:      sum.Latest,
			Uptime24h:   sum.Uptime24h,
			Uptime7d:    sum.Uptime7d,
			Dots:        sum.Dots,
			Certs:       append([]types.CertStatus(nil), p.certStatus...),
		}
		if fetchErr != nil {
			snap.FetchError = fetchErr.Error()
		}
		out = append(out, snap)
	}
	return out
}

// Once refreshes both feeds, checks certificates and returns the evaluation.
// Fetch errors are reported in the snapshots, not returned.
func (p *Poller) Once(ctx context.Context) []types.TargetSnapshot {
	_ = p.Refresh(ctx)
	p.RefreshCerts(ctx)
	return p.Evaluate()
}

// Run performs an initial refresh, then keeps refreshing on schedule and
// publishes to the sink after every refresh. It blocks until ctx is
// cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.publish(p.Once(ctx))

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(cron.Every(p.opts.LatestEvery), cron.FuncJob(func() {
		_ = p.RefreshLatest(ctx)
		p.publish(p.Evaluate())
	}))
	c.Schedule(cron.Every(p.opts.HistoryEvery), cron.FuncJob(func() {
		_ = p.RefreshHistory(ctx)
		p.publish(p.Evaluate())
	}))
	if p.certs != nil && p.opts.CertEvery > 0 {
		c.Schedule(cron.Every(p.opts.CertEvery), cron.FuncJob(func() {
			p.RefreshCerts(ctx)
		}))
	}

	slog.Info("poller: started",
		"latest_every", p.opts.LatestEvery, "history_every", p.opts.HistoryEvery)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("poller: stopped")
	return nil
}

func (p *Poller) publish(snaps []types.TargetSnapshot) {
	if p.sink != nil && len(snaps) > 0 {
		p.sink(snaps)
	}
}
