package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SyncRun represents a row in the sync_history table. One row per
// orchestrator invocation; CompletedAt is empty while the run is in flight.
type SyncRun struct {
	ID             int64  `json:"id"`
	SyncType       string `json:"sync_type"`
	StartedAt      string `json:"started_at"`
	CompletedAt    string `json:"completed_at,omitempty"`
	ItemsProcessed int    `json:"items_processed"`
	ItemsExtracted int    `json:"items_extracted"`
	Errors         string `json:"errors,omitempty"`
}

// History manages the sync_history table.
type History struct {
	db  *sql.DB
	Now func() time.Time
}

// NewHistory creates a History backed by the given SQLite database.
func NewHistory(db *sql.DB) *History {
	return &History{db: db, Now: time.Now}
}

// Start records the beginning of a sync run and returns its ID.
func (h *History) Start(ctx context.Context, syncType string) (int64, error) {
	res, err := h.db.ExecContext(ctx,
		`INSERT INTO sync_history (sync_type, started_at) VALUES (?, ?)`,
		syncType, h.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("start sync run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sync run id: %w", err)
	}
	return id, nil
}

// Complete finishes a sync run with its counts and captured errors.
func (h *History) Complete(ctx context.Context, id int64, processed, extracted int, errText string) error {
	_, err := h.db.ExecContext(ctx,
		`UPDATE sync_history SET completed_at = ?, items_processed = ?,
			items_extracted = ?, errors = ?
		 WHERE id = ?`,
		h.Now().UTC().Format(time.RFC3339), processed, extracted, nullStr(errText), id)
	if err != nil {
		return fmt.Errorf("complete sync run %d: %w", id, err)
	}
	return nil
}

// LastSuccessful returns the most recent run that finished with no captured
// errors, or nil if none exists. The watchdog uses its CompletedAt to decide
// whether today's sync already happened.
func (h *History) LastSuccessful(ctx context.Context) (*SyncRun, error) {
	row := h.db.QueryRowContext(ctx,
		`SELECT id, sync_type, started_at, completed_at, items_processed, items_extracted, errors
		 FROM sync_history
		 WHERE completed_at IS NOT NULL AND (errors IS NULL OR errors = '')
		 ORDER BY completed_at DESC LIMIT 1`)
	run, err := scanSyncRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last successful sync: %w", err)
	}
	return &run, nil
}

// Recent returns the latest runs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, sync_type, started_at, completed_at, items_processed, items_extracted, errors
		 FROM sync_history ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sync runs: %w", err)
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent sync runs: %w", err)
	}
	return runs, nil
}

func scanSyncRun(sc scanner) (SyncRun, error) {
	var (
		run               SyncRun
		completedAt, errs sql.NullString
	)
	err := sc.Scan(&run.ID, &run.SyncType, &run.StartedAt, &completedAt,
		&run.ItemsProcessed, &run.ItemsExtracted, &errs)
	if err != nil {
		return SyncRun{}, err
	}
	run.CompletedAt = completedAt.String
	run.Errors = errs.String
	return run, nil
}
