package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store manages the todos table in SQLite.
type Store struct {
	db *sql.DB

	// Now is the clock used for timestamps and derived views. Tests
	// override it to pin "today".
	Now func() time.Time
}

// NewStore creates a new Store backed by the given SQLite database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, Now: time.Now}
}

// CreateParams holds parameters for creating a new item.
type CreateParams struct {
	Title         string
	Description   string
	SourceType    SourceType
	SourceID      string
	SourceContext string
	SourceURL     string
	Suggestion    bool     // true: awaiting triage, Timeline is ignored
	Timeline      Timeline // required when Suggestion is false
	Confidence    float64  // extraction confidence, 0 for manual items
}

// Filter selects items for List. Zero-valued fields are not applied.
type Filter struct {
	Status       Status
	IsSuggestion *bool
	SourceType   SourceType
	TimelineType TimelineType
	DueDateFrom  string // inclusive lower bound on due_date
	DueDateTo    string // inclusive upper bound on due_date
	DueWeek      string
	DueMonth     string
	Limit        int
}

// FieldPatch holds the mutable display fields for UpdateFields. Nil pointers
// leave the column untouched.
type FieldPatch struct {
	Title         *string `json:"title,omitempty"`
	Description   *string `json:"description,omitempty"`
	SourceContext *string `json:"source_context,omitempty"`
	SourceURL     *string `json:"source_url,omitempty"`
}

const itemColumns = `id, title, description, source_type, source_id, source_context, source_url,
	timeline_type, due_date, due_week, due_month, status, is_suggestion,
	extraction_confidence, created_at, updated_at, completed_at`

// Create inserts a new item. Suggestions start pending with no timeline;
// todos require a valid timeline. Returns the stored item with its assigned ID.
func (s *Store) Create(ctx context.Context, p CreateParams) (Item, error) {
	if strings.TrimSpace(p.Title) == "" {
		return Item{}, fmt.Errorf("create item: title is required")
	}
	if p.SourceType == "" {
		p.SourceType = SourceManual
	}

	item := Item{
		ID:            uuid.New().String(),
		Title:         strings.TrimSpace(p.Title),
		Description:   p.Description,
		SourceType:    p.SourceType,
		SourceID:      p.SourceID,
		SourceContext: p.SourceContext,
		SourceURL:     p.SourceURL,
		Status:        StatusPending,
		IsSuggestion:  p.Suggestion,
		Confidence:    p.Confidence,
	}

	if p.Suggestion {
		item.TimelineType = TimelineBacklog
	} else {
		if err := p.Timeline.Validate(); err != nil {
			return Item{}, fmt.Errorf("create item: %w", err)
		}
		item.TimelineType = p.Timeline.Type
		item.DueDate, item.DueWeek, item.DueMonth = dueFields(p.Timeline)
	}

	now := s.timestamp()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO todos (id, title, description, source_type, source_id, source_context,
			source_url, timeline_type, due_date, due_week, due_month, status,
			is_suggestion, extraction_confidence, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Title, nullStr(item.Description), string(item.SourceType),
		nullStr(item.SourceID), nullStr(item.SourceContext), nullStr(item.SourceURL),
		string(item.TimelineType), nullStr(item.DueDate), nullStr(item.DueWeek),
		nullStr(item.DueMonth), string(item.Status), item.IsSuggestion,
		nullFloat(item.Confidence), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return Item{}, fmt.Errorf("insert item: %w", err)
	}
	return item, nil
}

// Get returns the item with the given ID, or NotFoundError.
func (s *Store) Get(ctx context.Context, id string) (Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM todos WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, &NotFoundError{ID: id}
	}
	if err != nil {
		return Item{}, fmt.Errorf("get item %s: %w", id, err)
	}
	return item, nil
}

// UpdateFields applies a partial update of display fields. Lifecycle fields
// (status, timeline, suggestion flag) only move through the transition
// methods.
func (s *Store) UpdateFields(ctx context.Context, id string, patch FieldPatch) (Item, error) {
	sets := []string{"updated_at = ?"}
	args := []any{s.timestamp()}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return Item{}, fmt.Errorf("update item %s: title cannot be empty", id)
		}
		sets = append(sets, "title = ?")
		args = append(args, strings.TrimSpace(*patch.Title))
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullStr(*patch.Description))
	}
	if patch.SourceContext != nil {
		sets = append(sets, "source_context = ?")
		args = append(args, nullStr(*patch.SourceContext))
	}
	if patch.SourceURL != nil {
		sets = append(sets, "source_url = ?")
		args = append(args, nullStr(*patch.SourceURL))
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE todos SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return Item{}, fmt.Errorf("update item %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Item{}, &NotFoundError{ID: id}
	}
	return s.Get(ctx, id)
}

// Delete removes an item. Returns NotFoundError if no row matched.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

// List returns items matching the filter, ordered by due date then recency.
func (s *Store) List(ctx context.Context, f Filter) ([]Item, error) {
	var conditions []string
	var args []any

	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.IsSuggestion != nil {
		conditions = append(conditions, "is_suggestion = ?")
		args = append(args, *f.IsSuggestion)
	}
	if f.SourceType != "" {
		conditions = append(conditions, "source_type = ?")
		args = append(args, string(f.SourceType))
	}
	if f.TimelineType != "" {
		conditions = append(conditions, "timeline_type = ?")
		args = append(args, string(f.TimelineType))
	}
	if f.DueDateFrom != "" {
		conditions = append(conditions, "due_date >= ?")
		args = append(args, f.DueDateFrom)
	}
	if f.DueDateTo != "" {
		conditions = append(conditions, "due_date <= ?")
		args = append(args, f.DueDateTo)
	}
	if f.DueWeek != "" {
		conditions = append(conditions, "due_week = ?")
		args = append(args, f.DueWeek)
	}
	if f.DueMonth != "" {
		conditions = append(conditions, "due_month = ?")
		args = append(args, f.DueMonth)
	}

	query := `SELECT ` + itemColumns + ` FROM todos`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY due_date ASC, created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// Accept promotes a suggestion to a todo with the given timeline. Only valid
// while the item is in the suggestion phase; a second accept (or an accept
// after discard) fails with InvalidStateError.
func (s *Store) Accept(ctx context.Context, id string, tl Timeline) (Item, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if !item.IsSuggestion {
		return Item{}, &InvalidStateError{ID: id, Op: "accept", Reason: "item is not a suggestion"}
	}
	if err := tl.Validate(); err != nil {
		return Item{}, fmt.Errorf("accept item %s: %w", id, err)
	}

	date, week, month := dueFields(tl)
	_, err = s.db.ExecContext(ctx,
		`UPDATE todos SET is_suggestion = 0, timeline_type = ?,
			due_date = ?, due_week = ?, due_month = ?, updated_at = ?
		 WHERE id = ?`,
		string(tl.Type), nullStr(date), nullStr(week), nullStr(month), s.timestamp(), id)
	if err != nil {
		return Item{}, fmt.Errorf("accept item %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

// Discard rejects a suggestion. The item leaves the suggestion phase for
// good and is kept as a discarded record.
func (s *Store) Discard(ctx context.Context, id string) (Item, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if !item.IsSuggestion {
		return Item{}, &InvalidStateError{ID: id, Op: "discard", Reason: "item is not a suggestion"}
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE todos SET is_suggestion = 0, status = ?, updated_at = ? WHERE id = ?`,
		string(StatusDiscarded), s.timestamp(), id)
	if err != nil {
		return Item{}, fmt.Errorf("discard item %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

// ToggleComplete flips a todo between pending and completed. completed_at is
// set on the way in and cleared on the way out; toggling twice round-trips.
func (s *Store) ToggleComplete(ctx context.Context, id string) (Item, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if item.IsSuggestion {
		return Item{}, &InvalidStateError{ID: id, Op: "toggle", Reason: "suggestion has no completion state"}
	}

	now := s.timestamp()
	switch item.Status {
	case StatusPending:
		_, err = s.db.ExecContext(ctx,
			`UPDATE todos SET status = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
			string(StatusCompleted), now, now, id)
	case StatusCompleted:
		_, err = s.db.ExecContext(ctx,
			`UPDATE todos SET status = ?, completed_at = NULL, updated_at = ? WHERE id = ?`,
			string(StatusPending), now, id)
	default:
		return Item{}, &InvalidStateError{ID: id, Op: "toggle", Reason: fmt.Sprintf("status %s is terminal", item.Status)}
	}
	if err != nil {
		return Item{}, fmt.Errorf("toggle item %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

// Reassign moves a pending todo to a different timeline. All due fields are
// cleared before the matching one is set, so nothing stale survives the move.
func (s *Store) Reassign(ctx context.Context, id string, tl Timeline) (Item, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if item.IsSuggestion {
		return Item{}, &InvalidStateError{ID: id, Op: "reassign", Reason: "accept the suggestion first"}
	}
	if item.Status != StatusPending {
		return Item{}, &InvalidStateError{ID: id, Op: "reassign", Reason: fmt.Sprintf("item is %s", item.Status)}
	}
	if err := tl.Validate(); err != nil {
		return Item{}, fmt.Errorf("reassign item %s: %w", id, err)
	}

	date, week, month := dueFields(tl)
	_, err = s.db.ExecContext(ctx,
		`UPDATE todos SET timeline_type = ?, due_date = ?, due_week = ?, due_month = ?,
			updated_at = ?
		 WHERE id = ?`,
		string(tl.Type), nullStr(date), nullStr(week), nullStr(month), s.timestamp(), id)
	if err != nil {
		return Item{}, fmt.Errorf("reassign item %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

func (s *Store) timestamp() string {
	return s.Now().UTC().Format(time.RFC3339)
}

// dueFields maps a timeline to its (due_date, due_week, due_month) triple;
// the two non-matching fields come back empty.
func dueFields(tl Timeline) (date, week, month string) {
	switch tl.Type {
	case TimelineDate:
		date = tl.Value
	case TimelineWeek:
		week = tl.Value
	case TimelineMonth:
		month = tl.Value
	}
	return date, week, month
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (Item, error) {
	var (
		item                          Item
		desc, sid, sctx, surl         sql.NullString
		dueDate, dueWeek, dueMonth    sql.NullString
		completedAt                   sql.NullString
		confidence                    sql.NullFloat64
		sourceType, timelineT, status string
	)
	err := sc.Scan(&item.ID, &item.Title, &desc, &sourceType, &sid, &sctx, &surl,
		&timelineT, &dueDate, &dueWeek, &dueMonth, &status, &item.IsSuggestion,
		&confidence, &item.CreatedAt, &item.UpdatedAt, &completedAt)
	if err != nil {
		return Item{}, err
	}
	item.Description = desc.String
	item.SourceType = SourceType(sourceType)
	item.SourceID = sid.String
	item.SourceContext = sctx.String
	item.SourceURL = surl.String
	item.TimelineType = TimelineType(timelineT)
	item.DueDate = dueDate.String
	item.DueWeek = dueWeek.String
	item.DueMonth = dueMonth.String
	item.Status = Status(status)
	item.Confidence = confidence.Float64
	item.CompletedAt = completedAt.String
	return item, nil
}
