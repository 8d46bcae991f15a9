package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/chickenjockey/sitestatus/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    target_id TEXT NOT NULL,
    received_at INTEGER NOT NULL,
    up INTEGER,
    body TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_target ON snapshots(target_id, received_at);
`

// Record is one archived snapshot.
type Record struct {
	ReceivedAt time.Time            `json:"received_at"`
	Snapshot   types.TargetSnapshot `json:"snapshot"`
}

// Archive persists every ingested snapshot to SQLite so the API can serve
// history beyond the in-memory TTL.
type Archive struct {
	db  *sql.DB
	now func() time.Time
}

// OpenArchive opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %q: %w", path, err)
	}
	// One writer; also keeps ":memory:" to a single shared database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		slog.Debug("archive: WAL not enabled", "err", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: schema: %w", err)
	}
	return &Archive{db: db, now: time.Now}, nil
}

// Close releases the database.
func (a *Archive) Close() error { return a.db.Close() }

// Append stores snaps with the current receive time.
func (a *Archive) Append(ctx context.Context, snaps ...types.TargetSnapshot) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO snapshots (target_id, received_at, up, body) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("archive: prepare: %w", err)
	}
	defer stmt.Close()

	at := a.now().UnixMilli()
	for _, s := range snaps {
		body, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("archive: marshal %q: %w", s.TargetID, err)
		}
		var up sql.NullBool
		if s.Latest != nil {
			up = sql.NullBool{Bool: s.Latest.Up, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, s.TargetID, at, up, string(body)); err != nil {
			return fmt.Errorf("archive: insert %q: %w", s.TargetID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// Recent returns up to limit archived snapshots for targetID, newest first.
func (a *Archive) Recent(ctx context.Context, targetID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := a.db.QueryContext(ctx,
		"SELECT received_at, body FROM snapshots WHERE target_id = ? ORDER BY received_at DESC, id DESC LIMIT ?",
		targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: query: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			ms   int64
			body string
		)
		if err := rows.Scan(&ms, &body); err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		var r Record
		if err := json.Unmarshal([]byte(body), &r.Snapshot); err != nil {
			slog.Warn("archive: skipping unreadable row", "target", targetID, "err", err)
			continue
		}
		r.ReceivedAt = time.UnixMilli(ms).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune deletes rows received before cutoff and returns how many were removed.
func (a *Archive) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := a.db.ExecContext(ctx, "DELETE FROM snapshots WHERE received_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("archive: prune: %w", err)
	}
	return res.RowsAffected()
}

// RunRetention prunes rows older than retention once an hour until ctx is
// cancelled. A non-positive retention keeps everything.
func (a *Archive) RunRetention(ctx context.Context, retention time.Duration) {
	if retention <= 0 {
		return
	}
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.Prune(ctx, a.now().Add(-retention))
			if err != nil {
				slog.Warn("archive: retention failed", "err", err)
				continue
			}
			if n > 0 {
				slog.Debug("archive: pruned snapshots", "count", n)
			}
		}
	}
}
