// Package todo holds the suggestion/todo data model, its lifecycle state
// machine, the dedup ledger, and the sync-run history. All persistence is
// SQLite; every write is a single small statement so concurrent readers
// (dashboard, API) never wait on a long sync transaction.
package todo

import (
	"fmt"
	"regexp"
	"time"
)

// SourceType identifies where an item originated.
type SourceType string

// Source type constants.
const (
	SourceGranola SourceType = "granola"
	SourceSlack   SourceType = "slack"
	SourceManual  SourceType = "manual"
)

// Status represents the lifecycle status of an item.
type Status string

// Status constants.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusDiscarded Status = "discarded"
)

// TimelineType selects which due field of an item is authoritative.
type TimelineType string

// Timeline type constants.
const (
	TimelineDate    TimelineType = "date"
	TimelineWeek    TimelineType = "week"
	TimelineMonth   TimelineType = "month"
	TimelineBacklog TimelineType = "backlog"
)

var (
	weekRe  = regexp.MustCompile(`^\d{4}-W\d{2}$`)
	monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// Timeline is the due-context of a todo: a type plus the single value that
// matters for that type. Value is a date (2006-01-02), an ISO week
// (2006-W02), a month (2006-01), or empty for backlog.
type Timeline struct {
	Type  TimelineType `json:"type"`
	Value string       `json:"value,omitempty"`
}

// Validate checks that Value matches the format Type requires.
func (t Timeline) Validate() error {
	switch t.Type {
	case TimelineDate:
		if _, err := time.Parse("2006-01-02", t.Value); err != nil {
			return fmt.Errorf("timeline date %q: want YYYY-MM-DD", t.Value)
		}
	case TimelineWeek:
		if !weekRe.MatchString(t.Value) {
			return fmt.Errorf("timeline week %q: want YYYY-Wnn", t.Value)
		}
	case TimelineMonth:
		if !monthRe.MatchString(t.Value) {
			return fmt.Errorf("timeline month %q: want YYYY-MM", t.Value)
		}
	case TimelineBacklog:
		if t.Value != "" {
			return fmt.Errorf("timeline backlog carries no value, got %q", t.Value)
		}
	default:
		return fmt.Errorf("unknown timeline type %q", t.Type)
	}
	return nil
}

// Item represents a row in the todos table. An item is born either as a
// suggestion (sync output, awaiting triage) or as a todo (user-created,
// timeline supplied); the suggestion phase is left exactly once, via accept
// or discard, and never re-entered.
type Item struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	SourceType    SourceType   `json:"source_type"`
	SourceID      string       `json:"source_id,omitempty"`
	SourceContext string       `json:"source_context,omitempty"`
	SourceURL     string       `json:"source_url,omitempty"`
	TimelineType  TimelineType `json:"timeline_type"`
	DueDate       string       `json:"due_date,omitempty"`
	DueWeek       string       `json:"due_week,omitempty"`
	DueMonth      string       `json:"due_month,omitempty"`
	Status        Status       `json:"status"`
	IsSuggestion  bool         `json:"is_suggestion"`
	Confidence    float64      `json:"extraction_confidence,omitempty"`
	CreatedAt     string       `json:"created_at"`
	UpdatedAt     string       `json:"updated_at"`
	CompletedAt   string       `json:"completed_at,omitempty"`
}

// Timeline returns the item's authoritative due-context. Non-matching due
// fields are ignored even if stale values remain from a prior assignment.
func (i Item) Timeline() Timeline {
	switch i.TimelineType {
	case TimelineDate:
		return Timeline{Type: TimelineDate, Value: i.DueDate}
	case TimelineWeek:
		return Timeline{Type: TimelineWeek, Value: i.DueWeek}
	case TimelineMonth:
		return Timeline{Type: TimelineMonth, Value: i.DueMonth}
	default:
		return Timeline{Type: TimelineBacklog}
	}
}

// ISOWeek formats t's ISO week as YYYY-Wnn, matching the due_week column.
func ISOWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
