// Package source defines where time entries come from and the tabular
// layout shared by the file and spreadsheet backed sources.
package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"engdash/internal/core"
)

type (
	// RowSource performs a full read of the time-entry table.
	RowSource interface {
		FetchAll(ctx context.Context) ([]core.TimeEntry, error)
	}

	// Pinger is implemented by sources that can check their backend is
	// reachable without reading rows.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Columns of the engineering table, in their canonical order.
var Columns = []string{"id", "person_name", "project_name", "project_code", "task_name", "duration"}

// RowError describes a row that was skipped while parsing a table.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// ParseTable converts a matrix of cells into time entries.
//
// When the first row names the columns it is used to locate them, in any
// order; otherwise columns are taken in canonical order. A missing or blank
// id is replaced by the row's line number. Rows that fail to parse or
// validate are skipped and reported, never fatal.
func ParseTable(rows [][]string) ([]core.TimeEntry, []RowError) {
	if len(rows) == 0 {
		return []core.TimeEntry{}, nil
	}

	index, hasHeader := headerIndex(rows[0])
	start := 0
	if hasHeader {
		start = 1
	}

	entries := make([]core.TimeEntry, 0, len(rows)-start)
	var skipped []RowError
	for i := start; i < len(rows); i++ {
		row := rows[i]
		line := i + 1
		if blank(row) {
			continue
		}
		e, err := parseRow(row, index, line)
		if err != nil {
			skipped = append(skipped, RowError{Line: line, Err: err})
			continue
		}
		entries = append(entries, e)
	}
	return entries, skipped
}

func parseRow(row []string, index map[string]int, line int) (core.TimeEntry, error) {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	e := core.TimeEntry{
		ID:          int64(line),
		PersonName:  get("person_name"),
		ProjectName: get("project_name"),
		ProjectCode: get("project_code"),
		TaskName:    get("task_name"),
	}
	if raw := get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return core.TimeEntry{}, fmt.Errorf("invalid id %q", raw)
		}
		e.ID = id
	}
	d, err := core.ParseHours(get("duration"))
	if err != nil {
		return core.TimeEntry{}, fmt.Errorf("duration %q: %w", get("duration"), err)
	}
	e.Duration = d
	if err := e.Validate(); err != nil {
		return core.TimeEntry{}, err
	}
	return e, nil
}

func headerIndex(first []string) (map[string]int, bool) {
	index := make(map[string]int, len(Columns))
	for i, cell := range first {
		name := strings.ToLower(strings.TrimSpace(cell))
		for _, col := range Columns {
			if name == col {
				index[col] = i
			}
		}
	}
	if _, ok := index["person_name"]; ok {
		return index, true
	}

	index = make(map[string]int, len(Columns))
	for i, col := range Columns {
		index[col] = i
	}
	return index, false
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
