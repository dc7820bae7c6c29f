package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

type (
	// Hours is a summable, non-negative duration expressed in hours.
	Hours = decimal.Decimal

	// TimeEntry is one row of the engineering time-tracking table.
	TimeEntry struct {
		ID          int64
		PersonName  string
		ProjectName string
		ProjectCode string
		TaskName    string
		Duration    Hours
	}

	// EntryRow is a TimeEntry as shown to users: the internal ID is dropped.
	EntryRow struct {
		PersonName  string `json:"person_name"`
		ProjectName string `json:"project_name"`
		ProjectCode string `json:"project_code"`
		TaskName    string `json:"task_name"`
		Duration    Hours  `json:"duration"`
	}

	// DecodedCode is the classification derived from a project code.
	// It is never persisted.
	DecodedCode struct {
		Valid   bool   `json:"valid"`
		Source  string `json:"source"`
		Type    string `json:"type"`
		Product string `json:"product"`
	}
)

var ErrNegativeDuration = errors.New("negative duration")

// Validate checks the invariant a row must satisfy before it is aggregated.
// Blank names and malformed codes are data, not errors: they group under
// their own key like any other value.
func (e TimeEntry) Validate() error {
	if e.Duration.IsNegative() {
		return ErrNegativeDuration
	}
	return nil
}

// Row returns the display form of the entry.
func (e TimeEntry) Row() EntryRow {
	return EntryRow{
		PersonName:  e.PersonName,
		ProjectName: e.ProjectName,
		ProjectCode: e.ProjectCode,
		TaskName:    e.TaskName,
		Duration:    e.Duration,
	}
}

// Rows converts entries to their display form, preserving order.
func Rows(entries []TimeEntry) []EntryRow {
	out := make([]EntryRow, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Row())
	}
	return out
}
