package todo

import "fmt"

// ConflictError reports a double write to the dedup ledger. Callers racing
// on the same (source_type, source_id) pair should treat it as
// success-equivalent, not abort the run.
type ConflictError struct {
	SourceType SourceType
	SourceID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("source (%s, %s) already processed", e.SourceType, e.SourceID)
}

// InvalidStateError reports an illegal lifecycle transition. It indicates a
// programming or workflow error and is surfaced to the caller, never
// swallowed.
type InvalidStateError struct {
	ID     string
	Op     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s on item %s: %s", e.Op, e.ID, e.Reason)
}

// NotFoundError reports an item lookup failure.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.ID)
}
