// Package storage reads time entries from relational databases.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"engdash/internal/core"
	"engdash/internal/log"
)

const selectEntries = `SELECT id, person_name, project_name, project_code, task_name, duration
FROM engineering
ORDER BY id`

// fetchEntries runs a full scan of the engineering table. Only rows without a
// usable duration are skipped, with a warning. NULL text columns read as
// empty strings and are aggregated like any other value.
func fetchEntries(ctx context.Context, db *sql.DB, backend string) ([]core.TimeEntry, error) {
	rows, err := db.QueryContext(ctx, selectEntries)
	if err != nil {
		return nil, fmt.Errorf("query engineering: %w", err)
	}
	defer rows.Close()

	entries := make([]core.TimeEntry, 0, 256)
	skipped := 0
	for rows.Next() {
		var (
			e        core.TimeEntry
			person   sql.NullString
			project  sql.NullString
			code     sql.NullString
			task     sql.NullString
			duration decimal.NullDecimal
		)
		if err := rows.Scan(&e.ID, &person, &project, &code, &task, &duration); err != nil {
			return nil, fmt.Errorf("scan engineering row: %w", err)
		}
		e.PersonName = person.String
		e.ProjectName = project.String
		e.ProjectCode = code.String
		e.TaskName = task.String
		e.Duration = duration.Decimal

		if !duration.Valid {
			skipped++
			slog.WarnContext(ctx, "Skipping row without duration",
				log.FieldComponent, log.ComponentStorage, log.FieldEntryID, e.ID)
			continue
		}
		if err := e.Validate(); err != nil {
			skipped++
			slog.WarnContext(ctx, "Skipping invalid row",
				log.FieldComponent, log.ComponentStorage, log.FieldEntryID, e.ID, log.FieldError, err)
			continue
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate engineering rows: %w", err)
	}

	slog.DebugContext(ctx, "Fetched engineering rows",
		log.FieldComponent, log.ComponentStorage,
		log.FieldBackend, backend,
		log.FieldRows, len(entries),
		"skipped", skipped)
	return entries, nil
}
