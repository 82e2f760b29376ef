package todo

import (
	"context"
	"fmt"
)

// TodayView groups pending work for the daily dashboard. Suggestions never
// appear here; they have no meaningful timeline until accepted.
type TodayView struct {
	Overdue        []Item `json:"overdue"`
	Today          []Item `json:"today"`
	ThisWeek       []Item `json:"this_week"`
	CompletedToday []Item `json:"completed_today"`
}

// CalendarView groups items for a month grid plus the undated backlog.
type CalendarView struct {
	ByDate  map[string][]Item `json:"by_date"`
	Weekly  []Item            `json:"weekly"`
	Monthly []Item            `json:"monthly"`
	Backlog []Item            `json:"backlog"`
}

// Today computes the daily view. Overdue and today/this-week membership are
// derived at query time from due fields; nothing denormalized is stored.
func (s *Store) Today(ctx context.Context) (TodayView, error) {
	now := s.Now()
	today := now.Format("2006-01-02")
	week := ISOWeek(now)

	var view TodayView
	queries := []struct {
		dst   *[]Item
		query string
		args  []any
	}{
		{&view.Overdue,
			`SELECT ` + itemColumns + ` FROM todos
			 WHERE status = 'pending' AND is_suggestion = 0
			   AND timeline_type = 'date' AND due_date < ?
			 ORDER BY due_date ASC`, []any{today}},
		{&view.Today,
			`SELECT ` + itemColumns + ` FROM todos
			 WHERE status = 'pending' AND is_suggestion = 0
			   AND timeline_type = 'date' AND due_date = ?
			 ORDER BY created_at DESC`, []any{today}},
		{&view.ThisWeek,
			`SELECT ` + itemColumns + ` FROM todos
			 WHERE status = 'pending' AND is_suggestion = 0
			   AND timeline_type = 'week' AND due_week = ?
			 ORDER BY created_at DESC`, []any{week}},
		{&view.CompletedToday,
			`SELECT ` + itemColumns + ` FROM todos
			 WHERE status = 'completed' AND substr(completed_at, 1, 10) = ?
			 ORDER BY completed_at DESC`, []any{today}},
	}

	for _, q := range queries {
		items, err := s.queryItems(ctx, q.query, q.args...)
		if err != nil {
			return TodayView{}, err
		}
		*q.dst = items
	}
	return view, nil
}

// Calendar returns the items relevant to one month: dated items inside it,
// weekly items for the year, monthly items, and the pending backlog.
func (s *Store) Calendar(ctx context.Context, year, month int) (CalendarView, error) {
	monthStr := fmt.Sprintf("%04d-%02d", year, month)

	dated, err := s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM todos
		 WHERE timeline_type = 'date' AND substr(due_date, 1, 7) = ?
		 ORDER BY due_date ASC, created_at DESC`, monthStr)
	if err != nil {
		return CalendarView{}, err
	}

	weekly, err := s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM todos
		 WHERE timeline_type = 'week' AND due_week LIKE ?
		 ORDER BY due_week ASC, created_at DESC`, fmt.Sprintf("%04d-W%%", year))
	if err != nil {
		return CalendarView{}, err
	}

	monthly, err := s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM todos
		 WHERE timeline_type = 'month' AND due_month = ?
		 ORDER BY created_at DESC`, monthStr)
	if err != nil {
		return CalendarView{}, err
	}

	backlog, err := s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM todos
		 WHERE timeline_type = 'backlog' AND status = 'pending' AND is_suggestion = 0
		 ORDER BY created_at DESC`)
	if err != nil {
		return CalendarView{}, err
	}

	byDate := make(map[string][]Item)
	for _, item := range dated {
		byDate[item.DueDate] = append(byDate[item.DueDate], item)
	}
	return CalendarView{ByDate: byDate, Weekly: weekly, Monthly: monthly, Backlog: backlog}, nil
}

// Suggestions returns all items awaiting triage, newest first.
func (s *Store) Suggestions(ctx context.Context) ([]Item, error) {
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM todos
		 WHERE is_suggestion = 1 AND status = 'pending'
		 ORDER BY created_at DESC`)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
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
		return nil, fmt.Errorf("query items: %w", err)
	}
	return items, nil
}
