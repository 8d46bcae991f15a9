package feed

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/chickenjockey/sitestatus/agent/internal/config"
	"github.com/chickenjockey/sitestatus/pkg/types"
)

// maxBodyBytes caps a feed response.
const maxBodyBytes = 32 << 20

// ErrUnexpectedStatus is wrapped by fetch errors caused by a non-200 reply.
var ErrUnexpectedStatus = errors.New("feed: unexpected status")

// Client fetches the history and latest feeds.
type Client struct {
	client *http.Client
	feeds  config.FeedsConfig

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]cachedBody

	// now is injectable so tests can move through dedupe windows.
	now func() time.Time
}

type cachedBody struct {
	body []byte
	at   time.Time
}

// New returns a Client for the configured feeds. The HTTP client is built
// once and reused across fetches.
func New(feeds config.FeedsConfig) (*Client, error) {
	for _, raw := range []string{feeds.HistoryURL, feeds.LatestURL} {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("feed: parse url %q: %w", raw, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("feed: url %q: scheme must be http or https", raw)
		}
	}
	return newClient(feeds, buildHTTPClient(feeds)), nil
}

func newClient(feeds config.FeedsConfig, hc *http.Client) *Client {
	return &Client{
		client: hc,
		feeds:  feeds,
		cache:  make(map[string]cachedBody),
		now:    time.Now,
	}
}

// History fetches and decodes the history feed.
func (c *Client) History(ctx context.Context) ([]types.Sample, error) {
	body, err := c.fetch(ctx, c.feeds.HistoryURL, c.feeds.HistoryDedupe)
	if err != nil {
		return nil, err
	}
	rows, skipped, err := DecodeHistory(body)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		slog.Debug("feed: skipped malformed history rows", "url", c.feeds.HistoryURL, "count", skipped)
	}
	return rows, nil
}

// Latest fetches and decodes the latest feed.
func (c *Client) Latest(ctx context.Context) (types.LatestPayload, error) {
	body, err := c.fetch(ctx, c.feeds.LatestURL, c.feeds.LatestDedupe)
	if err != nil {
		return nil, err
	}
	latest, skipped, err := DecodeLatest(body)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		slog.Debug("feed: skipped malformed latest entries", "url", c.feeds.LatestURL, "count", skipped)
	}
	return latest, nil
}

// fetch returns the body at target, reusing a response younger than dedupe.
func (c *Client) fetch(ctx context.Context, target string, dedupe time.Duration) ([]byte, error) {
	if body, ok := c.cached(target, dedupe); ok {
		return body, nil
	}

	v, err, _ := c.group.Do(target, func() (any, error) {
		body, err := c.get(ctx, target)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[target] = cachedBody{body: body, at: c.now()}
		c.mu.Unlock()
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Client) cached(target string, dedupe time.Duration) ([]byte, bool) {
	if dedupe <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.cache[target]
	if !ok || c.now().Sub(e.at) >= dedupe {
		return nil, false
	}
	return e.body, true
}

// get performs one HTTP GET and returns the response body.
func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: get %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d from %s", ErrUnexpectedStatus, resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("feed: read %s: %w", target, err)
	}
	return body, nil
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.Header, t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the feeds' auth and TLS settings.
func buildHTTPClient(feeds config.FeedsConfig) *http.Client {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: feeds.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = tlsCfg

	timeout := feeds.Timeout
	if timeout <= 0 {
		timeout = config.DefaultFetchTimeout
	}
	return &http.Client{
		Transport: &authRoundTripper{base: base, auth: feeds.Auth},
		Timeout:   timeout,
	}
}
