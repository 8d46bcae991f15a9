package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/chickenjockey/sitestatus/pkg/types"
)

// Entry is a snapshot together with the time it was last received.
type Entry struct {
	Snapshot  types.TargetSnapshot
	UpdatedAt time.Time

	// seq is the order in which the target was first seen. The agent ships
	// targets in display order, so List preserves it.
	seq int
}

// Store is a thread-safe in-memory snapshot store, keyed by target_id.
// A background goroutine (Run) periodically evicts entries that have not
// been updated within the configured TTL. A TTL of zero disables expiry.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	next int
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores or replaces the snapshot for snap.TargetID.
func (s *Store) Put(snap types.TargetSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.next
	if prev, ok := s.data[snap.TargetID]; ok {
		seq = prev.seq
	} else {
		s.next++
	}
	s.data[snap.TargetID] = &Entry{
		Snapshot:  snap,
		UpdatedAt: s.now(),
		seq:       seq,
	}
}

// Get returns a copy of the Entry for the given target ID and a boolean
// indicating whether a live entry was found.
func (s *Store) Get(targetID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[targetID]
	if !ok || !s.live(e, s.now()) {
		return Entry{}, false
	}
	return *e, true
}

// List returns all entries whose UpdatedAt is within the TTL, in the order
// their targets were first seen. Stale entries that have not yet been
// evicted are excluded.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	out := make([]Entry, 0, len(s.data))
	for _, e := range s.data {
		if s.live(e, now) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Snapshots returns the live snapshots in display order.
func (s *Store) Snapshots() []types.TargetSnapshot {
	entries := s.List()
	out := make([]types.TargetSnapshot, len(entries))
	for i, e := range entries {
		out[i] = e.Snapshot
	}
	return out
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.data {
		if !s.live(e, now) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

func (s *Store) live(e *Entry, now time.Time) bool {
	if s.ttl <= 0 {
		return true
	}
	return e.UpdatedAt.After(now.Add(-s.ttl))
}

// Run starts the background TTL eviction loop. It ticks at half the TTL interval
// (minimum 1 second) so entries are evicted promptly. Run blocks until ctx is
// cancelled.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		<-ctx.Done()
		return
	}
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale snapshots", "count", n)
			}
		}
	}
}
