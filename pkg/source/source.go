// Package source provides the raw-item adapters the sync pipeline pulls
// from: the local Granola meeting-notes cache and the Slack Web API. An
// adapter yields raw items with stable (source_type, source_id) identity;
// dedup is the ledger's job, so repeated pulls may overlap.
package source

import (
	"context"
	"fmt"
	"time"

	"digiman/pkg/todo"
)

// RawItem is one unit of source text with stable identity, not yet an item.
type RawItem struct {
	SourceType todo.SourceType
	SourceID   string
	Text       string // payload handed to the extractor
	Context    string // display metadata: meeting title or #channel
	URL        string // link back to the origin, if any
}

// Adapter pulls raw items newer than a cutoff. PullSince must be idempotent:
// the same cutoff may be asked for twice and may return overlapping results.
type Adapter interface {
	Name() string
	PullSince(ctx context.Context, since time.Time) ([]RawItem, error)
}

// UnavailableError reports that an adapter's backing source could not be
// reached at all. The orchestrator records it and moves on to the next
// adapter; it never aborts the run.
type UnavailableError struct {
	Source string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}
