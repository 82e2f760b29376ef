package todo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Ledger records which (source_type, source_id) pairs have already been
// ingested. Pairs are write-once: MarkProcessed on an existing pair returns
// ConflictError, which callers treat as a benign race.
//
// The ledger is the at-least-once boundary of the pipeline. An orchestrator
// that extracts an item but crashes before MarkProcessed will re-extract it
// on the next run; the resulting duplicate suggestion is idempotently
// discardable, so this is accepted rather than engineered away.
type Ledger struct {
	db *sql.DB
}

// NewLedger creates a Ledger backed by the given SQLite database.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// HasProcessed reports whether the pair has already been ingested.
func (l *Ledger) HasProcessed(ctx context.Context, st SourceType, sourceID string) (bool, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed_sources WHERE source_type = ? AND source_id = ?`,
		string(st), sourceID)
	var one int
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger lookup (%s, %s): %w", st, sourceID, err)
	}
	return true, nil
}

// MarkProcessed records the pair. Returns ConflictError if the pair already
// exists.
func (l *Ledger) MarkProcessed(ctx context.Context, st SourceType, sourceID string, when time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO processed_sources (source_type, source_id, processed_at) VALUES (?, ?, ?)`,
		string(st), sourceID, when.UTC().Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return &ConflictError{SourceType: st, SourceID: sourceID}
		}
		return fmt.Errorf("ledger insert (%s, %s): %w", st, sourceID, err)
	}
	return nil
}
