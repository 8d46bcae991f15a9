package receiver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/chickenjockey/sitestatus/pkg/types"
	"github.com/chickenjockey/sitestatus/server/internal/store"
)

// maxBodyBytes bounds one ingest request.
const maxBodyBytes = 8 << 20

// Evaluator receives every accepted snapshot, e.g. the alert engine.
type Evaluator interface {
	Evaluate(snap types.TargetSnapshot)
}

// Appender persists accepted snapshots, e.g. the SQLite archive.
type Appender interface {
	Append(ctx context.Context, snaps ...types.TargetSnapshot) error
}

// Notifier is told when new snapshots have been stored, e.g. the ws hub.
type Notifier interface {
	Notify()
}

// Options wires optional collaborators. Nil fields are skipped.
type Options struct {
	Alerts  Evaluator
	Archive Appender
	Stream  Notifier
}

// Receiver is the HTTP handler for POST /api/v1/ingest.
// It validates each incoming TargetSnapshot and stores it in the state store.
type Receiver struct {
	store *store.Store
	opts  Options
}

// ingestResponse is the success body.
type ingestResponse struct {
	OK       bool `json:"ok"`
	Accepted int  `json:"accepted"`
}

// New creates a Receiver that writes accepted snapshots to st.
func New(st *store.Store, opts Options) *Receiver {
	return &Receiver{store: st, opts: opts}
}

// ServeHTTP accepts a JSON array of snapshots, or a single snapshot object.
// The whole batch is rejected with 400 if any snapshot lacks a target_id.
// Authentication is enforced by middleware before this is called.
func (rc *Receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	snaps, err := decodeBatch(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		slog.Warn("receiver: rejected batch", "remote", r.RemoteAddr, "err", err)
		writeJSON(w, code, map[string]string{"error": err.Error()})
		return
	}

	for _, s := range snaps {
		rc.store.Put(s)
		if rc.opts.Alerts != nil {
			rc.opts.Alerts.Evaluate(s)
		}
		slog.Debug("receiver: snapshot stored",
			"target", s.TargetID,
			"up", s.Latest != nil && s.Latest.Up,
			"fetch_error", s.FetchError,
		)
	}
	if rc.opts.Archive != nil && len(snaps) > 0 {
		if err := rc.opts.Archive.Append(r.Context(), snaps...); err != nil {
			slog.Error("receiver: archive append failed", "count", len(snaps), "err", err)
		}
	}
	if rc.opts.Stream != nil {
		rc.opts.Stream.Notify()
	}

	writeJSON(w, http.StatusOK, ingestResponse{OK: true, Accepted: len(snaps)})
}

// decodeBatch parses either a JSON array or a single object.
func decodeBatch(body io.Reader) ([]types.TargetSnapshot, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty body")
	}

	var snaps []types.TargetSnapshot
	if data[0] == '[' {
		if err := json.Unmarshal(data, &snaps); err != nil {
			return nil, fmt.Errorf("decode batch: %w", err)
		}
	} else {
		var one types.TargetSnapshot
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		snaps = []types.TargetSnapshot{one}
	}

	for i, s := range snaps {
		if s.TargetID == "" {
			return nil, fmt.Errorf("snapshot %d: target_id is required", i)
		}
	}
	return snaps, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
