package todo //nolint:testpackage // shares setupTestDB with store_test.go

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLedger_MarkAndLookup(t *testing.T) {
	ledger := NewLedger(setupTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	seen, err := ledger.HasProcessed(ctx, SourceSlack, "C1_100")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if seen {
		t.Fatal("empty ledger reported pair as processed")
	}

	if err := ledger.MarkProcessed(ctx, SourceSlack, "C1_100", now); err != nil {
		t.Fatalf("mark: %v", err)
	}

	seen, err = ledger.HasProcessed(ctx, SourceSlack, "C1_100")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !seen {
		t.Fatal("marked pair not found")
	}

	// Same ID under a different source type is a different pair.
	seen, err = ledger.HasProcessed(ctx, SourceGranola, "C1_100")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if seen {
		t.Error("pair matched across source types")
	}
}

func TestLedger_DoubleMarkIsConflict(t *testing.T) {
	ledger := NewLedger(setupTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	if err := ledger.MarkProcessed(ctx, SourceGranola, "doc-9", now); err != nil {
		t.Fatalf("mark: %v", err)
	}

	err := ledger.MarkProcessed(ctx, SourceGranola, "doc-9", now.Add(time.Hour))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if conflict.SourceType != SourceGranola || conflict.SourceID != "doc-9" {
		t.Errorf("conflict = %+v", conflict)
	}
}
