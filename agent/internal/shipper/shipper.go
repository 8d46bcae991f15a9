package shipper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/chickenjockey/sitestatus/agent/internal/config"
	"github.com/chickenjockey/sitestatus/pkg/types"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	sendTimeout       = 10 * time.Second

	// maxBatch caps the snapshots sent in one request.
	maxBatch = 256

	// IngestPath is the server endpoint snapshots are posted to.
	IngestPath = "/api/v1/ingest"
)

// Shipper buffers TargetSnapshots and posts them to sitestatus-server.
// Ship() is non-blocking; when the buffer is full the oldest snapshot is evicted.
// Run() must be called in a goroutine to drain the buffer.
type Shipper struct {
	cfg    config.AgentConfig
	buf    chan types.TargetSnapshot
	url    string
	client *http.Client
}

// statusError is returned when the server answers with a non-2xx status.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.code, e.body)
}

// New creates a Shipper using the given agent config.
func New(cfg config.AgentConfig) *Shipper {
	return &Shipper{
		cfg:    cfg,
		buf:    make(chan types.TargetSnapshot, cfg.BufferSize),
		url:    strings.TrimRight(cfg.ServerEndpoint, "/") + IngestPath,
		client: &http.Client{Timeout: sendTimeout},
	}
}

// Ship enqueues a snapshot without blocking. If the buffer is full the
// oldest entry is evicted to make room; with concurrent producers this may
// repeat until a slot is won.
func (s *Shipper) Ship(snap types.TargetSnapshot) {
	for {
		select {
		case s.buf <- snap:
			return
		default:
		}
		select {
		case <-s.buf:
			slog.Warn("shipper: buffer full, evicted oldest snapshot",
				"target", snap.TargetID, "buffer_cap", cap(s.buf))
		default:
		}
	}
}

// Len returns the number of buffered snapshots.
func (s *Shipper) Len() int { return len(s.buf) }

// Run sends buffered snapshots every ShipInterval. A failed batch is retried
// with exponential backoff until it succeeds, the server rejects it as
// permanently invalid, or ctx is cancelled. Run blocks until ctx is cancelled.
func (s *Shipper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ShipInterval)
	defer ticker.Stop()

	bo := newBackoff()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for batch := s.collect(); len(batch) > 0; batch = s.collect() {
			if !s.deliver(ctx, batch, bo) {
				return
			}
		}
	}
}

// deliver sends batch until it is accepted or discarded. It returns false
// when ctx was cancelled while waiting to retry.
func (s *Shipper) deliver(ctx context.Context, batch []types.TargetSnapshot, bo *backoff) bool {
	for {
		err := s.send(ctx, batch)
		if err == nil {
			bo.reset()
			slog.Debug("shipper: batch delivered", "snapshots", len(batch))
			return true
		}
		if isPermanentError(err) {
			slog.Error("shipper: permanent send error, discarding batch",
				"snapshots", len(batch), "err", err)
			return true
		}

		wait := bo.next()
		slog.Warn("shipper: send failed, will retry",
			"endpoint", s.url, "err", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
	}
}

// collect drains up to maxBatch snapshots without blocking.
func (s *Shipper) collect() []types.TargetSnapshot {
	var batch []types.TargetSnapshot
	for len(batch) < maxBatch {
		select {
		case snap := <-s.buf:
			batch = append(batch, snap)
		default:
			return batch
		}
	}
	return batch
}

// send posts one batch to the server.
func (s *Shipper) send(ctx context.Context, batch []types.TargetSnapshot) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return &statusError{code: http.StatusBadRequest, body: err.Error()}
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.applyAuth(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *Shipper) applyAuth(req *http.Request) {
	auth := s.cfg.ServerAuth
	switch auth.Mode {
	case "apikey":
		req.Header.Set(auth.Header, auth.Key())
	case "basic":
		req.SetBasicAuth(auth.Username, auth.Password())
	}
}

// isPermanentError returns true for server replies that indicate the batch
// itself is invalid or unauthorised and should not be retried.
func isPermanentError(err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
