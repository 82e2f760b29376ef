// Package api serves the local JSON API consumed by the dashboard and the
// menu-bar app. Handlers are thin: all rules live in the todo state machine,
// and its errors map onto status codes here.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"digiman/pkg/todo"
	"digiman/pkg/watchdog"
)

// Runner triggers a sync pass; satisfied by *watchdog.LockedRunner so a
// manual trigger contends for the run lock like every other sync entry
// point. Nil disables the POST /api/sync endpoint.
type Runner interface {
	Run(ctx context.Context, syncType string) (todo.SyncRun, error)
}

// Server is the HTTP server around the store.
type Server struct {
	Store   *todo.Store
	History *todo.History
	Runner  Runner
	Log     zerolog.Logger
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /api/todos", s.handleList)
	mux.HandleFunc("POST /api/todos", s.handleCreate)
	mux.HandleFunc("GET /api/todos/{id}", s.handleGet)
	mux.HandleFunc("PATCH /api/todos/{id}", s.handlePatch)
	mux.HandleFunc("DELETE /api/todos/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/todos/{id}/toggle", s.handleToggle)
	mux.HandleFunc("POST /api/todos/{id}/accept", s.handleAccept)
	mux.HandleFunc("POST /api/todos/{id}/discard", s.handleDiscard)
	mux.HandleFunc("POST /api/todos/{id}/reassign", s.handleReassign)
	mux.HandleFunc("GET /api/suggestions", s.handleSuggestions)
	mux.HandleFunc("GET /api/today", s.handleToday)
	mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/sync", s.handleSync)
	return mux
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.Log.Error().Err(err).Msg("server shutdown")
		}
	}()

	s.Log.Info().Str("addr", addr).Msg("api server listening")
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := todo.Filter{
		Status:       todo.Status(q.Get("status")),
		SourceType:   todo.SourceType(q.Get("source_type")),
		TimelineType: todo.TimelineType(q.Get("timeline_type")),
		DueDateFrom:  q.Get("due_date_from"),
		DueDateTo:    q.Get("due_date_to"),
		DueWeek:      q.Get("due_week"),
		DueMonth:     q.Get("due_month"),
	}
	if v := q.Get("suggestion"); v != "" {
		b := v == "true" || v == "1"
		filter.IsSuggestion = &b
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	items, err := s.Store.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, items)
}

type createRequest struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	SourceContext string        `json:"source_context"`
	SourceURL     string        `json:"source_url"`
	Timeline      todo.Timeline `json:"timeline"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Timeline.Type == "" {
		req.Timeline.Type = todo.TimelineBacklog
	}

	item, err := s.Store.Create(r.Context(), todo.CreateParams{
		Title:         req.Title,
		Description:   req.Description,
		SourceType:    todo.SourceManual,
		SourceContext: req.SourceContext,
		SourceURL:     req.SourceURL,
		Timeline:      req.Timeline,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := s.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	var patch todo.FieldPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	item, err := s.Store.UpdateFields(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	item, err := s.Store.ToggleComplete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

type timelineRequest struct {
	Timeline todo.Timeline `json:"timeline"`
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	var req timelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	item, err := s.Store.Accept(r.Context(), r.PathValue("id"), req.Timeline)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	item, err := s.Store.Discard(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleReassign(w http.ResponseWriter, r *http.Request) {
	var req timelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	item, err := s.Store.Reassign(r.Context(), r.PathValue("id"), req.Timeline)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.Suggestions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	view, err := s.Store.Today(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := s.Store.Now()
	year, month := now.Year(), int(now.Month())
	if v := r.URL.Query().Get("year"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			year = n
		}
	}
	if v := r.URL.Query().Get("month"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 12 {
			month = n
		}
	}
	view, err := s.Store.Calendar(r.Context(), year, month)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	runs, err := s.History.Recent(r.Context(), 20)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.Runner == nil {
		http.Error(w, "sync not configured", http.StatusServiceUnavailable)
		return
	}
	run, err := s.Runner.Run(r.Context(), "manual")
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Error().Err(err).Msg("encode response")
	}
}

// writeError maps state-machine errors to status codes: not-found to 404,
// illegal transitions and an in-progress sync to 409, bad input to 400.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		notFound     *todo.NotFoundError
		invalidState *todo.InvalidStateError
		lockHeld     *watchdog.LockHeldError
	)
	switch {
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &invalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &lockHeld):
		http.Error(w, "sync already in progress", http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
