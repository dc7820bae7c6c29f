// Package adapters wraps row sources with the process-wide snapshot the
// dashboard aggregates over.
package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"engdash/internal/cache"
	"engdash/internal/core"
	"engdash/internal/log"
	"engdash/internal/source"
)

const defaultLoadTimeout = 30 * time.Second

var (
	_ source.RowSource = (*SnapshotSource)(nil)
	_ source.Pinger    = (*SnapshotSource)(nil)
	_ cache.Cleaner    = (*SnapshotSource)(nil)
)

// SnapshotStats describes the cached snapshot.
type SnapshotStats struct {
	LoadedAt time.Time `json:"loaded_at"`
	Rows     int       `json:"rows"`
	Loads    int64     `json:"loads"`
}

// SnapshotSource caches the last full read of a row source for ttl.
// Concurrent callers share one in-flight read. Callers always receive
// their own copy of the rows.
type SnapshotSource struct {
	src         source.RowSource
	ttl         time.Duration
	loadTimeout time.Duration

	snapshots  *cache.LRUCache[[]core.TimeEntry]
	group      singleflight.Group
	generation atomic.Uint64
	loads      atomic.Int64

	mu       sync.Mutex
	loadedAt time.Time
	rows     int
}

// NewSnapshotSource wraps src. A non-positive ttl disables caching but
// still coalesces concurrent reads.
func NewSnapshotSource(src source.RowSource, ttl time.Duration) *SnapshotSource {
	return &SnapshotSource{
		src:         src,
		ttl:         ttl,
		loadTimeout: defaultLoadTimeout,
		snapshots:   cache.NewLRUCache[[]core.TimeEntry](1, ttl),
	}
}

// FetchAll returns the cached snapshot, loading it when absent or expired.
func (s *SnapshotSource) FetchAll(ctx context.Context) ([]core.TimeEntry, error) {
	gen := s.generation.Load()
	key := strconv.FormatUint(gen, 10)

	if s.ttl > 0 {
		if rows, ok := s.snapshots.Get(key); ok {
			return clone(rows), nil
		}
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.load(ctx, gen, key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]core.TimeEntry)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *SnapshotSource) load(ctx context.Context, gen uint64, key string) ([]core.TimeEntry, error) {
	// Detached from the first caller so one cancelled request does not fail
	// everyone waiting on the same read.
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
	defer cancel()

	start := time.Now()
	rows, err := s.src.FetchAll(loadCtx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	s.loads.Add(1)

	if s.ttl > 0 && s.generation.Load() == gen {
		s.snapshots.Set(key, rows)
	}

	s.mu.Lock()
	s.loadedAt = time.Now()
	s.rows = len(rows)
	s.mu.Unlock()

	slog.DebugContext(ctx, "Snapshot loaded",
		log.FieldComponent, log.ComponentSnapshot,
		log.FieldRows, len(rows),
		log.FieldDuration, time.Since(start).Milliseconds())
	return rows, nil
}

// Invalidate drops the snapshot. A read already in flight completes for its
// callers but is not cached.
func (s *SnapshotSource) Invalidate() {
	s.generation.Add(1)
	s.snapshots.Purge()
	slog.Debug("Snapshot invalidated", log.FieldComponent, log.ComponentSnapshot)
}

// Ping delegates to the wrapped source when it supports it.
func (s *SnapshotSource) Ping(ctx context.Context) error {
	if p, ok := s.src.(source.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// CleanExpired drops an expired snapshot so its rows can be collected.
func (s *SnapshotSource) CleanExpired() int {
	return s.snapshots.CleanExpired()
}

// Stats reports when the snapshot was last loaded.
func (s *SnapshotSource) Stats() SnapshotStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SnapshotStats{LoadedAt: s.loadedAt, Rows: s.rows, Loads: s.loads.Load()}
}

func clone(rows []core.TimeEntry) []core.TimeEntry {
	out := make([]core.TimeEntry, len(rows))
	copy(out, rows)
	return out
}
