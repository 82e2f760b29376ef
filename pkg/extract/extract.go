// Package extract turns raw source text into candidate action items. The
// production extractor calls a chat-completion model; the rest of the
// pipeline only sees the Extractor interface, so tests substitute a fake.
package extract

import (
	"context"
	"fmt"
)

// Candidate is one proposed action item returned by the extractor.
type Candidate struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// Extractor extracts candidate action items from free text. An empty slice
// is a normal outcome (the text contained nothing actionable); an error
// means the raw item should be retried on the next run.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]Candidate, error)
}

// Error reports a failed extraction for one raw item. The orchestrator
// records it and does not mark the item processed, so it is retried next
// cycle.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Probe is the pre-flight predicate the watchdog runs before forcing a
// catch-up sync: "is the extraction backend reachable". Implementations
// must bound their own timeout.
type Probe interface {
	Available(ctx context.Context) bool
}
