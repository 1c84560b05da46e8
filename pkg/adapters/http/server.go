package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/domain"
)

// Engine defines the subset of the Switchboard engine exposed over HTTP.
type Engine interface {
	Dispatch(ctx context.Context, cmd domain.Command) error
	Navigate(ctx context.Context, surface domain.SurfaceID, target domain.PageRef) (*domain.History, error)
	Drain(ctx context.Context) error
	SubscribeFeedback(fb domain.Feedback) (bool, error)
	UnsubscribeFeedback(id string)
	Evaluate(ctx context.Context, fb domain.Feedback, info *domain.ContextExtras) (any, error)
	VariablesChanged(ctx context.Context, changed, removed []domain.VariableRef) ([]string, error)
	Invalidate(ctx context.Context, key domain.BankKey) (switchboard.InvalidationResult, error)
	Snapshot(key domain.BankKey) (switchboard.Snapshot, bool)
	History(ctx context.Context, surface domain.SurfaceID) (*domain.History, error)
	OnInstanceStatus(ctx context.Context, status domain.InstanceStatus) error
	InstanceStatus() domain.InstanceStatus
}

var _ Engine = (*switchboard.Engine)(nil)

// Server holds the handlers of the REST adapter.
type Server struct {
	Engine   Engine
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer exposes the metrics of g at GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/commands", s.PostCommand)

	r.Route("/feedbacks", func(r chi.Router) {
		r.Post("/evaluate", s.EvaluateFeedback)
		r.Post("/{id}", s.SubscribeFeedback)
		r.Delete("/{id}", s.UnsubscribeFeedback)
	})

	r.Post("/variables/changed", s.VariablesChanged)

	r.Get("/instances/status", s.GetInstanceStatus)
	r.Put("/instances/status", s.PutInstanceStatus)

	r.Route("/banks/{page}/{bank}", func(r chi.Router) {
		r.Get("/", s.GetSnapshot)
		r.Post("/invalidate", s.Invalidate)
	})

	r.Route("/surfaces/{surface}", func(r chi.Router) {
		r.Get("/history", s.GetHistory)
		r.Post("/navigate", s.Navigate)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnresolvedReference), errors.Is(err, domain.ErrSurfaceUnresolved):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnknownCommand), errors.Is(err, domain.ErrUnknownFeedback), errors.Is(err, domain.ErrMissingOption):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrHistoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
	switch {
	case status == http.StatusNotImplemented:
		s.logger.Warn(op+" rejected", "error", err, "status", status)
	case status >= http.StatusInternalServerError:
		s.logger.Error(op+" failed", "error", err)
	case status == http.StatusUnprocessableEntity:
		// The engine already warned about the reference.
		s.logger.Debug(op+" rejected", "error", err, "status", status)
	default:
		s.logger.Warn(op+" rejected", "error", err, "status", status)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, op string, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(op+" response encode failed", "error", err)
	}
}

// drain flushes the page assignments decided while serving the request.
func (s *Server) drain(w http.ResponseWriter, r *http.Request, op string) bool {
	if err := s.Engine.Drain(r.Context()); err != nil {
		http.Error(w, fmt.Sprintf("%s deferred work failed: %v", op, err), http.StatusInternalServerError)
		s.logger.Error(op+" deferred work failed", "error", err)
		return false
	}
	return true
}

func bankKey(r *http.Request) domain.BankKey {
	return domain.BankKey{Page: chi.URLParam(r, "page"), Bank: chi.URLParam(r, "bank")}
}

// PostCommand handles the POST /commands request.
func (s *Server) PostCommand(w http.ResponseWriter, r *http.Request) {
	var cmd domain.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("PostCommand: Invalid request body", "error", err)
		return
	}

	if err := s.Engine.Dispatch(r.Context(), cmd); err != nil {
		s.fail(w, "Dispatch", err)
		return
	}
	if !s.drain(w, r, "Dispatch") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NavigateRequest is the body of POST /surfaces/{surface}/navigate.
type NavigateRequest struct {
	Page domain.PageRef `json:"page"`
}

// Navigate handles the POST /surfaces/{surface}/navigate request.
func (s *Server) Navigate(w http.ResponseWriter, r *http.Request) {
	var body NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Navigate: Invalid request body", "error", err)
		return
	}

	h, err := s.Engine.Navigate(r.Context(), domain.SurfaceID(chi.URLParam(r, "surface")), body.Page)
	if err != nil {
		s.fail(w, "Navigate", err)
		return
	}
	if !s.drain(w, r, "Navigate") {
		return
	}
	s.writeJSON(w, "Navigate", h)
}

// GetHistory handles the GET /surfaces/{surface}/history request.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.Engine.History(r.Context(), domain.SurfaceID(chi.URLParam(r, "surface")))
	if err != nil {
		s.fail(w, "History", err)
		return
	}
	s.writeJSON(w, "GetHistory", h)
}

// FeedbackRequest is the body of POST /feedbacks/{id}.
type FeedbackRequest struct {
	Type    domain.FeedbackType `json:"type"`
	Options map[string]any      `json:"options,omitempty"`
}

// SubscribeFeedback handles the POST /feedbacks/{id} request.
func (s *Server) SubscribeFeedback(w http.ResponseWriter, r *http.Request) {
	var body FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("SubscribeFeedback: Invalid request body", "error", err)
		return
	}

	fb := domain.Feedback{ID: chi.URLParam(r, "id"), Type: body.Type, Options: body.Options}
	subscribed, err := s.Engine.SubscribeFeedback(fb)
	if err != nil {
		s.fail(w, "Subscribe", err)
		return
	}
	s.writeJSON(w, "SubscribeFeedback", map[string]bool{"subscribed": subscribed})
}

// UnsubscribeFeedback handles the DELETE /feedbacks/{id} request.
func (s *Server) UnsubscribeFeedback(w http.ResponseWriter, r *http.Request) {
	s.Engine.UnsubscribeFeedback(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// EvaluateRequest is the body of POST /feedbacks/evaluate.
type EvaluateRequest struct {
	Feedback domain.Feedback       `json:"feedback"`
	Extras   *domain.ContextExtras `json:"extras,omitempty"`
}

// EvaluateFeedback handles the POST /feedbacks/evaluate request.
func (s *Server) EvaluateFeedback(w http.ResponseWriter, r *http.Request) {
	var body EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("EvaluateFeedback: Invalid request body", "error", err)
		return
	}

	value, err := s.Engine.Evaluate(r.Context(), body.Feedback, body.Extras)
	if err != nil {
		s.fail(w, "Evaluate", err)
		return
	}
	s.writeJSON(w, "EvaluateFeedback", map[string]any{"value": value})
}

// VariablesChangedRequest is the body of POST /variables/changed.
// References use the "namespace:name" form.
type VariablesChangedRequest struct {
	Changed []string `json:"changed"`
	Removed []string `json:"removed,omitempty"`
}

func parseRefs(in []string) ([]domain.VariableRef, error) {
	out := make([]domain.VariableRef, 0, len(in))
	for _, s := range in {
		ref, err := domain.ParseVariableRef(s)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

// VariablesChanged handles the POST /variables/changed request.
func (s *Server) VariablesChanged(w http.ResponseWriter, r *http.Request) {
	var body VariablesChangedRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("VariablesChanged: Invalid request body", "error", err)
		return
	}
	changed, err := parseRefs(body.Changed)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid variable: %v", err), http.StatusBadRequest)
		return
	}
	removed, err := parseRefs(body.Removed)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid variable: %v", err), http.StatusBadRequest)
		return
	}

	ids, err := s.Engine.VariablesChanged(r.Context(), changed, removed)
	if err != nil {
		s.fail(w, "VariablesChanged", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, "VariablesChanged", map[string][]string{"recomputed": ids})
}

// GetInstanceStatus handles the GET /instances/status request.
func (s *Server) GetInstanceStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, "GetInstanceStatus", s.Engine.InstanceStatus())
}

// PutInstanceStatus handles the PUT /instances/status request.
func (s *Server) PutInstanceStatus(w http.ResponseWriter, r *http.Request) {
	var body domain.InstanceStatus
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("PutInstanceStatus: Invalid request body", "error", err)
		return
	}
	if err := s.Engine.OnInstanceStatus(r.Context(), body); err != nil {
		s.fail(w, "InstanceStatus", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Invalidate handles the POST /banks/{page}/{bank}/invalidate request.
func (s *Server) Invalidate(w http.ResponseWriter, r *http.Request) {
	res, err := s.Engine.Invalidate(r.Context(), bankKey(r))
	if err != nil {
		s.fail(w, "Invalidate", err)
		return
	}
	s.writeJSON(w, "Invalidate", res)
}

// GetSnapshot handles the GET /banks/{page}/{bank} request.
func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.Engine.Snapshot(bankKey(r))
	if !ok {
		http.Error(w, "Button not cached", http.StatusNotFound)
		return
	}
	s.writeJSON(w, "GetSnapshot", snap)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, "GetHealth", map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, "GetInfo", map[string]string{
		"app":     "switchboard-http",
		"version": strings.TrimSpace(switchboard.Version),
	})
}
