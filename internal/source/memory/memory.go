package memory

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"engdash/internal/core"
	"engdash/internal/log"
	"engdash/internal/source"
)

//go:embed seed.csv
var demoSeed []byte

var (
	_ source.RowSource = (*Store)(nil)
	_ source.Pinger    = (*Store)(nil)
)

// Store holds time entries in memory. It backs demos and tests.
type Store struct {
	mu    sync.RWMutex
	items []core.TimeEntry
}

func New(entries []core.TimeEntry) *Store {
	s := &Store{}
	s.Replace(entries)
	return s
}

// NewFromCSV seeds a store from a CSV file. An empty path loads the
// built-in demo rows.
func NewFromCSV(path string) (*Store, error) {
	var r io.Reader = bytes.NewReader(demoSeed)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open seed file: %w", err)
		}
		defer f.Close()
		r = f
	}
	entries, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return New(entries), nil
}

// ReadCSV parses CSV time entries. Invalid rows are skipped with a warning.
func ReadCSV(r io.Reader) ([]core.TimeEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	entries, skipped := source.ParseTable(records)
	for _, s := range skipped {
		slog.Warn("Skipping seed row", log.FieldComponent, log.ComponentBackend, "line", s.Line, log.FieldError, s.Err)
	}
	return entries, nil
}

// FetchAll returns a copy of the stored entries.
func (s *Store) FetchAll(_ context.Context) ([]core.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.TimeEntry(nil), s.items...), nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Replace swaps the stored entries. Invalid entries are dropped.
func (s *Store) Replace(entries []core.TimeEntry) {
	valid := make([]core.TimeEntry, 0, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			continue
		}
		valid = append(valid, e)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = valid
}

// Len reports how many entries are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
