package adapters

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engdash/internal/core"
)

type countingSource struct {
	calls atomic.Int64
	delay time.Duration
	err   error
	rows  []core.TimeEntry
}

func (c *countingSource) FetchAll(ctx context.Context) ([]core.TimeEntry, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.rows, nil
}

func rows() []core.TimeEntry {
	return []core.TimeEntry{
		{ID: 1, PersonName: "A", ProjectName: "X", ProjectCode: "1234-56-78", TaskName: "t1", Duration: decimal.NewFromInt(3)},
	}
}

func TestSnapshotSource_CachesWithinTTL(t *testing.T) {
	src := &countingSource{rows: rows()}
	s := NewSnapshotSource(src, time.Minute)

	for i := 0; i < 3; i++ {
		got, err := s.FetchAll(context.Background())
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	assert.Equal(t, int64(1), src.calls.Load())

	stats := s.Stats()
	assert.Equal(t, 1, stats.Rows)
	assert.Equal(t, int64(1), stats.Loads)
	assert.False(t, stats.LoadedAt.IsZero())
}

func TestSnapshotSource_Invalidate(t *testing.T) {
	src := &countingSource{rows: rows()}
	s := NewSnapshotSource(src, time.Minute)

	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	s.Invalidate()
	_, err = s.FetchAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), src.calls.Load())
}

func TestSnapshotSource_NoTTLAlwaysReads(t *testing.T) {
	src := &countingSource{rows: rows()}
	s := NewSnapshotSource(src, 0)

	_, _ = s.FetchAll(context.Background())
	_, _ = s.FetchAll(context.Background())
	assert.Equal(t, int64(2), src.calls.Load())
}

func TestSnapshotSource_CoalescesConcurrentReads(t *testing.T) {
	src := &countingSource{rows: rows(), delay: 50 * time.Millisecond}
	s := NewSnapshotSource(src, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.FetchAll(context.Background())
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), src.calls.Load())
}

func TestSnapshotSource_ReturnsCopies(t *testing.T) {
	s := NewSnapshotSource(&countingSource{rows: rows()}, time.Minute)

	first, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	first[0].PersonName = "mutated"

	second, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", second[0].PersonName)
}

func TestSnapshotSource_ErrorsAreNotCached(t *testing.T) {
	src := &countingSource{err: errors.New("db down")}
	s := NewSnapshotSource(src, time.Minute)

	_, err := s.FetchAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")

	src.err = nil
	src.rows = rows()
	got, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSnapshotSource_CallerCancellation(t *testing.T) {
	src := &countingSource{rows: rows(), delay: 100 * time.Millisecond}
	s := NewSnapshotSource(src, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.FetchAll(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSnapshotSource_PingWithoutPinger(t *testing.T) {
	s := NewSnapshotSource(&countingSource{}, time.Minute)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestSnapshotSource_CleanExpired(t *testing.T) {
	src := &countingSource{rows: rows()}
	s := NewSnapshotSource(src, 20*time.Millisecond)

	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, s.CleanExpired())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, s.CleanExpired())

	_, err = s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), src.calls.Load())
}
