package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/pkg/content"
	"github.com/ogulcanaydogan/budget-guardian/pkg/dispatch"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/ogulcanaydogan/budget-guardian/pkg/receipt"
	"github.com/ogulcanaydogan/budget-guardian/pkg/storage"
)

const (
	requestTimeout = 10 * time.Second
	batchTimeout   = 2 * time.Minute
	scanTimeout    = 60 * time.Second
	maxBodySize    = 10 << 20
)

// Dispatcher runs alerting on demand.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (model.AlertOutcome, error)
	Sweep(ctx context.Context) ([]model.AlertOutcome, error)
	WeeklySummaries(ctx context.Context) ([]model.SummaryOutcome, error)
	RecordTransaction(ctx context.Context, tx model.Transaction) ([]model.AlertOutcome, error)
}

// Store is the read/write surface the API exposes directly.
type Store interface {
	SetBudget(ctx context.Context, budget *model.Budget) error
	GetBudget(ctx context.Context, id string) (*model.Budget, error)
	ListBudgets(ctx context.Context, filter model.BudgetFilter) ([]model.Budget, error)
	DeleteBudget(ctx context.Context, id string) error
	SetContact(ctx context.Context, userID, email string) error
	ListAlertEvents(ctx context.Context, filter model.AlertFilter) ([]model.AlertEvent, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	AggregateUsage(ctx context.Context, filter model.UsageFilter) (*model.UsageSummary, error)
}

// Scanner extracts receipts.
type Scanner interface {
	Scan(ctx context.Context, req receipt.ScanRequest) (model.ReceiptExtraction, error)
}

// Advisor answers finance questions.
type Advisor interface {
	Advise(ctx context.Context, query string) (content.Advice, error)
}

// Server exposes budgets, alerting, receipts and advice over HTTP.
type Server struct {
	dispatcher Dispatcher
	store      Store
	scanner    Scanner
	advisor    Advisor
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates an API server.
func NewServer(d Dispatcher, store Store, scanner Scanner, advisor Advisor, logger *slog.Logger) *Server {
	s := &Server{
		dispatcher: d,
		store:      store,
		scanner:    scanner,
		advisor:    advisor,
		mux:        http.NewServeMux(),
		logger:     logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /api/v1/alerts/dispatch", s.handleDispatch)
	s.mux.HandleFunc("GET /api/v1/alerts", s.handleAlerts)
	s.mux.HandleFunc("POST /api/v1/sweep", s.handleSweep)
	s.mux.HandleFunc("POST /api/v1/summaries", s.handleSummaries)
	s.mux.HandleFunc("POST /api/v1/transactions", s.handleTransaction)

	s.mux.HandleFunc("GET /api/v1/budgets", s.handleListBudgets)
	s.mux.HandleFunc("POST /api/v1/budgets", s.handleSetBudget)
	s.mux.HandleFunc("GET /api/v1/budgets/{id}", s.handleGetBudget)
	s.mux.HandleFunc("DELETE /api/v1/budgets/{id}", s.handleDeleteBudget)
	s.mux.HandleFunc("PUT /api/v1/contacts/{user_id}", s.handleSetContact)

	s.mux.HandleFunc("GET /api/v1/notifications", s.handleNotifications)
	s.mux.HandleFunc("POST /api/v1/notifications/{id}/read", s.handleMarkRead)

	s.mux.HandleFunc("POST /api/v1/receipts/scan", s.handleScan)
	s.mux.HandleFunc("POST /api/v1/advice", s.handleAdvice)
	s.mux.HandleFunc("GET /api/v1/llm/usage", s.handleLLMUsage)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req dispatch.Request
	if !s.decode(w, r, &req) {
		return
	}
	outcome, err := s.dispatcher.Dispatch(ctx, req)
	if err != nil {
		s.writeError(w, "dispatch alert", err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	q := r.URL.Query()
	filter := model.AlertFilter{UserID: q.Get("user_id"), BudgetID: q.Get("budget_id")}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			s.writeError(w, "list alerts", fmt.Errorf("%w: since must be RFC 3339", model.ErrInvalidInput))
			return
		}
		filter.Since = t
	}

	events, err := s.store.ListAlertEvents(ctx, filter)
	if err != nil {
		s.writeError(w, "list alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(events))
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), batchTimeout)
	defer cancel()

	outcomes, err := s.dispatcher.Sweep(ctx)
	if err != nil {
		s.writeError(w, "sweep budgets", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(outcomes))
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), batchTimeout)
	defer cancel()

	outcomes, err := s.dispatcher.WeeklySummaries(ctx)
	if err != nil {
		s.writeError(w, "weekly summaries", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(outcomes))
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var tx model.Transaction
	if !s.decode(w, r, &tx) {
		return
	}
	outcomes, err := s.dispatcher.RecordTransaction(ctx, tx)
	if err != nil {
		s.writeError(w, "record transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, nonNil(outcomes))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	budgets, err := s.store.ListBudgets(ctx, model.BudgetFilter{
		UserID:   r.URL.Query().Get("user_id"),
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		s.writeError(w, "list budgets", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(budgets))
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var b model.Budget
	if !s.decode(w, r, &b) {
		return
	}
	if err := dispatch.Validate(b); err != nil {
		s.writeError(w, "set budget", err)
		return
	}
	if err := s.store.SetBudget(ctx, &b); err != nil {
		s.writeError(w, "set budget", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	b, err := s.store.GetBudget(ctx, r.PathValue("id"))
	if err != nil {
		s.writeError(w, "get budget", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.store.DeleteBudget(ctx, r.PathValue("id")); err != nil {
		s.writeError(w, "delete budget", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type contactRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (s *Server) handleSetContact(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req contactRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := dispatch.Validate(req); err != nil {
		s.writeError(w, "set contact", err)
		return
	}
	userID := r.PathValue("user_id")
	if err := s.store.SetContact(ctx, userID, req.Email); err != nil {
		s.writeError(w, "set contact", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": userID, "email": req.Email})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		s.writeError(w, "list notifications", fmt.Errorf("%w: user_id is required", model.ErrInvalidInput))
		return
	}
	unread := false
	if v := q.Get("unread"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, "list notifications", fmt.Errorf("%w: unread must be a boolean", model.ErrInvalidInput))
			return
		}
		unread = b
	}

	ns, err := s.store.ListNotifications(ctx, userID, unread)
	if err != nil {
		s.writeError(w, "list notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ns))
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.store.MarkNotificationRead(ctx, r.PathValue("id")); err != nil {
		s.writeError(w, "mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), scanTimeout)
	defer cancel()

	var req receipt.ScanRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.scanner.Scan(ctx, req)
	if err != nil {
		s.writeError(w, "scan receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type adviceRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req adviceRequest
	if !s.decode(w, r, &req) {
		return
	}
	advice, err := s.advisor.Advise(ctx, req.Query)
	if err != nil {
		s.writeError(w, "advise", err)
		return
	}
	writeJSON(w, http.StatusOK, advice)
}

func (s *Server) handleLLMUsage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	q := r.URL.Query()
	filter := model.UsageFilter{Provider: q.Get("provider"), Purpose: q.Get("purpose")}
	if period := q.Get("period"); period != "" {
		filter.StartTime, filter.EndTime = model.PeriodBounds(model.BudgetPeriod(period), time.Now().UTC())
	}

	summary, err := s.store.AggregateUsage(ctx, filter)
	if err != nil {
		s.writeError(w, "aggregate llm usage", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// decode reads a JSON body. On failure it writes a 400 and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, "decode request", fmt.Errorf("%w: malformed JSON body: %v", model.ErrInvalidInput, err))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	default:
		s.logger.Error(op, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// nonNil keeps empty lists as [] rather than null on the wire.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
