// Package ingest runs one pass of the capture pipeline: pull raw items from
// the source adapters, filter them through the dedup ledger, extract
// candidate action items, and store them as suggestions. Partial success is
// the normal case: per-item and per-adapter failures are captured into the
// sync run record, never fatal.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"digiman/pkg/extract"
	"digiman/pkg/source"
	"digiman/pkg/todo"
)

// DefaultLookback bounds how far back adapters are asked to pull.
const DefaultLookback = 24 * time.Hour

// Orchestrator wires the adapters, ledger, extractor, and store into a
// single Run entry point. All fields are required except Lookback and Now.
type Orchestrator struct {
	Store     *todo.Store
	Ledger    *todo.Ledger
	History   *todo.History
	Adapters  []source.Adapter
	Extractor extract.Extractor
	Lookback  time.Duration
	Now       func() time.Time
	Log       zerolog.Logger
}

// Run executes one ingestion pass and returns the completed sync run record.
// An error is returned only for infrastructure failures (the history table
// itself unwritable); source and extraction failures land in Run.Errors.
func (o *Orchestrator) Run(ctx context.Context, syncType string) (todo.SyncRun, error) {
	now := o.now()
	lookback := o.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	since := now.Add(-lookback)

	runID, err := o.History.Start(ctx, syncType)
	if err != nil {
		return todo.SyncRun{}, fmt.Errorf("record sync start: %w", err)
	}

	var (
		processed, extracted int
		runErrors            []string
	)

	for _, adapter := range o.Adapters {
		items, err := adapter.PullSince(ctx, since)
		if err != nil {
			// One adapter down only loses that adapter's contribution.
			msg := fmt.Sprintf("%s: %v", adapter.Name(), err)
			runErrors = append(runErrors, msg)
			o.Log.Warn().Str("adapter", adapter.Name()).Err(err).Msg("source unavailable")
			continue
		}
		o.Log.Info().Str("adapter", adapter.Name()).Int("items", len(items)).Msg("pulled raw items")

		for _, raw := range items {
			done, err := o.Ledger.HasProcessed(ctx, raw.SourceType, raw.SourceID)
			if err != nil {
				runErrors = append(runErrors, fmt.Sprintf("ledger check %s/%s: %v", raw.SourceType, raw.SourceID, err))
				continue
			}
			if done {
				continue
			}

			candidates, err := o.Extractor.Extract(ctx, raw.Text)
			if err != nil {
				// Not marked processed: the item is retried next cycle.
				runErrors = append(runErrors, fmt.Sprintf("extract %s/%s: %v", raw.SourceType, raw.SourceID, err))
				o.Log.Warn().Str("source_id", raw.SourceID).Err(err).Msg("extraction failed, will retry next run")
				continue
			}

			storeFailed := false
			for _, c := range candidates {
				title := cleanText(c.Title)
				if title == "" {
					continue
				}
				_, err := o.Store.Create(ctx, todo.CreateParams{
					Title:         title,
					Description:   c.Description,
					SourceType:    raw.SourceType,
					SourceID:      raw.SourceID,
					SourceContext: raw.Context,
					SourceURL:     raw.URL,
					Suggestion:    true,
					Confidence:    c.Confidence,
				})
				if err != nil {
					runErrors = append(runErrors, fmt.Sprintf("store %s/%s: %v", raw.SourceType, raw.SourceID, err))
					storeFailed = true
					continue
				}
				extracted++
			}
			if storeFailed {
				// Leave the item unmarked so the lost candidates are
				// retried next run, like an extraction failure.
				o.Log.Warn().Str("source_id", raw.SourceID).Msg("suggestion write failed, will retry next run")
				continue
			}

			// Zero candidates still counts as processed: an item that
			// yields nothing must not be rescanned nightly forever.
			if err := o.markProcessed(ctx, raw); err != nil {
				runErrors = append(runErrors, fmt.Sprintf("mark %s/%s: %v", raw.SourceType, raw.SourceID, err))
				continue
			}
			processed++
		}
	}

	errText := strings.Join(runErrors, "; ")
	if err := o.History.Complete(ctx, runID, processed, extracted, errText); err != nil {
		return todo.SyncRun{}, fmt.Errorf("record sync completion: %w", err)
	}

	o.Log.Info().
		Str("sync_type", syncType).
		Int("processed", processed).
		Int("extracted", extracted).
		Int("errors", len(runErrors)).
		Msg("sync complete")

	return todo.SyncRun{
		ID:             runID,
		SyncType:       syncType,
		StartedAt:      now.UTC().Format(time.RFC3339),
		CompletedAt:    o.now().UTC().Format(time.RFC3339),
		ItemsProcessed: processed,
		ItemsExtracted: extracted,
		Errors:         errText,
	}, nil
}

// markProcessed tolerates the benign double-write race: a concurrent run
// marking the same pair first is success, not failure.
func (o *Orchestrator) markProcessed(ctx context.Context, raw source.RawItem) error {
	err := o.Ledger.MarkProcessed(ctx, raw.SourceType, raw.SourceID, o.now())
	var conflict *todo.ConflictError
	if errors.As(err, &conflict) {
		return nil
	}
	return err
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// cleanText collapses a candidate title to a single line.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
