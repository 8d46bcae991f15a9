package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chickenjockey/sitestatus/agent/internal/config"
)

const historyBody = `[{"target_id":"site","status":"UP","timestamp":120},{"target_id":"site","status":"DOWN","timestamp":60}]`
const latestBody = `{"site":{"target_id":"site","status":"UP","timestamp":120}}`

// feedServer serves /history and /latest and counts hits per path.
type feedServer struct {
	*httptest.Server
	hits   sync.Map // path -> *atomic.Int32
	status atomic.Int32
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()
	fs := &feedServer{}
	fs.status.Store(http.StatusOK)
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := fs.hits.LoadOrStore(r.URL.Path, new(atomic.Int32))
		n.(*atomic.Int32).Add(1)

		if code := int(fs.status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/history":
			_, _ = w.Write([]byte(historyBody))
		case "/latest":
			_, _ = w.Write([]byte(latestBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *feedServer) count(path string) int32 {
	n, ok := fs.hits.Load(path)
	if !ok {
		return 0
	}
	return n.(*atomic.Int32).Load()
}

func (fs *feedServer) feeds() config.FeedsConfig {
	return config.FeedsConfig{
		HistoryURL:    fs.URL + "/history",
		LatestURL:     fs.URL + "/latest",
		HistoryDedupe: 30 * time.Second,
		LatestDedupe:  10 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// --- fetch + decode ---

func TestClient_HistoryAndLatest(t *testing.T) {
	fs := newFeedServer(t)
	c, err := New(fs.feeds())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rows, err := c.History(context.Background())
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(rows) != 2 || rows[0].Timestamp != 120 {
		t.Errorf("History() = %+v", rows)
	}

	latest, err := c.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest["site"].Status != "UP" {
		t.Errorf("Latest()[site] = %+v", latest["site"])
	}
}

func TestClient_UnexpectedStatus(t *testing.T) {
	fs := newFeedServer(t)
	fs.status.Store(http.StatusBadGateway)
	c, _ := New(fs.feeds())

	_, err := c.Latest(context.Background())
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("err = %v, want ErrUnexpectedStatus", err)
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	if _, err := New(config.FeedsConfig{HistoryURL: "ftp://x/history", LatestURL: "http://x/latest"}); err == nil {
		t.Error("expected error for ftp scheme")
	}
}

// --- dedupe window ---

func TestClient_DedupeWindow(t *testing.T) {
	fs := newFeedServer(t)
	c, _ := New(fs.feeds())

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Latest(ctx); err != nil {
			t.Fatalf("Latest() error = %v", err)
		}
	}
	if got := fs.count("/latest"); got != 1 {
		t.Errorf("hits inside window = %d, want 1", got)
	}

	now = now.Add(10 * time.Second)
	if _, err := c.Latest(ctx); err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got := fs.count("/latest"); got != 2 {
		t.Errorf("hits after window = %d, want 2", got)
	}

	// History has its own, longer window.
	_, _ = c.History(ctx)
	now = now.Add(20 * time.Second)
	_, _ = c.History(ctx)
	if got := fs.count("/history"); got != 1 {
		t.Errorf("history hits = %d, want 1", got)
	}
}

func TestClient_FailedFetchIsNotCached(t *testing.T) {
	fs := newFeedServer(t)
	c, _ := New(fs.feeds())

	fs.status.Store(http.StatusInternalServerError)
	if _, err := c.History(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	fs.status.Store(http.StatusOK)
	if _, err := c.History(context.Background()); err != nil {
		t.Fatalf("History() after recovery error = %v", err)
	}
	if got := fs.count("/history"); got != 2 {
		t.Errorf("hits = %d, want 2", got)
	}
}

func TestClient_ConcurrentFetchesShareOneRequest(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(historyBody))
	}))
	defer srv.Close()

	c, _ := New(config.FeedsConfig{
		HistoryURL:    srv.URL + "/history",
		LatestURL:     srv.URL + "/latest",
		HistoryDedupe: time.Minute,
		Timeout:       5 * time.Second,
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.History(context.Background()); err != nil {
				t.Errorf("History() error = %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := hits.Load(); got != 1 {
		t.Errorf("upstream hits = %d, want 1", got)
	}
}

// --- auth ---

func TestClient_AppliesAuth(t *testing.T) {
	t.Setenv("FEED_KEY", "k-123")
	t.Setenv("FEED_TOKEN", "tok")

	tests := []struct {
		name   string
		auth   config.AuthConfig
		header string
		want   string
	}{
		{"apikey", config.AuthConfig{Mode: "apikey", Header: "X-Api-Key", KeyEnv: "FEED_KEY"}, "X-Api-Key", "k-123"},
		{"bearer", config.AuthConfig{Mode: "bearer", TokenEnv: "FEED_TOKEN"}, "Authorization", "Bearer tok"},
		{"none", config.AuthConfig{}, "Authorization", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get(tc.header)
				_, _ = w.Write([]byte(latestBody))
			}))
			defer srv.Close()

			c, _ := New(config.FeedsConfig{
				HistoryURL: srv.URL + "/history",
				LatestURL:  srv.URL + "/latest",
				Auth:       tc.auth,
			})
			if _, err := c.Latest(context.Background()); err != nil {
				t.Fatalf("Latest() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("%s = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}
