package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/guidebook"
	"github.com/aretw0/guidebook/internal/presentation/graph"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/ports"
	"github.com/aretw0/guidebook/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes a ports.Planner over HTTP.
type Server struct {
	Planner ports.Planner
	Streams *StreamManager

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics mounts a metrics handler at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithStreams shares a StreamManager, typically one whose Hooks feed the engine.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		if sm != nil {
			s.Streams = sm
		}
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHandler creates a new HTTP handler for the planner.
//
//	GET    /health
//	GET    /info
//	GET    /plan
//	GET    /graph           Mermaid flowchart of the plan
//	GET    /choices
//	PUT    /choices/{key}   {"answer": "..."} | {"titles": [...]} | {"fields": {...}}
//	DELETE /choices/{key}
//	GET    /events          server-sent lifecycle events, ?watch=decision,leaf_finish
//	GET    /metrics         when configured
func NewHandler(planner ports.Planner, opts ...Option) http.Handler {
	s := &Server{
		Planner: planner,
		Streams: NewStreamManager(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/plan", s.GetPlan)
	r.Get("/graph", s.GetGraph)
	r.Get("/choices", s.GetChoices)
	r.Put("/choices/{key}", s.PutChoice)
	r.Delete("/choices/{key}", s.DeleteChoice)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "guidebook-http",
		"version": strings.TrimSpace(guidebook.Version),
	})
}

// GetPlan handles the GET /plan request.
func (s *Server) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.Planner.Plan(r.Context())
	if err != nil {
		s.fail(w, "Plan", err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

// GetGraph handles the GET /graph request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	plan, err := s.Planner.Plan(r.Context())
	if err != nil {
		s.fail(w, "Graph", err)
		return
	}
	overlay := &graph.GraphOverlay{}
	if next := plan.Next(); next != nil {
		overlay.Current = next.Context
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(plan.Tree, overlay))
}

// GetChoices handles the GET /choices request.
func (s *Server) GetChoices(w http.ResponseWriter, r *http.Request) {
	state, err := s.Planner.Choices(r.Context())
	if err != nil {
		s.fail(w, "Choices", err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

// ChooseRequest is the body of PUT /choices/{key}. Exactly one field is set.
type ChooseRequest struct {
	Answer *string           `json:"answer,omitempty"`
	Titles []string          `json:"titles,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (req ChooseRequest) answer() (domain.Answer, error) {
	set := 0
	if req.Answer != nil {
		set++
	}
	if req.Titles != nil {
		set++
	}
	if req.Fields != nil {
		set++
	}
	if set != 1 {
		return domain.Answer{}, errors.New("exactly one of answer, titles or fields is required")
	}

	switch {
	case req.Titles != nil:
		for i, t := range req.Titles {
			clean, err := runner.SanitizeInput(t)
			if err != nil {
				return domain.Answer{}, err
			}
			req.Titles[i] = clean
		}
		return domain.MultiAnswer(req.Titles), nil
	case req.Fields != nil:
		for k, v := range req.Fields {
			clean, err := runner.SanitizeInput(v)
			if err != nil {
				return domain.Answer{}, fmt.Errorf("field %s: %w", k, err)
			}
			req.Fields[k] = clean
		}
		return domain.FormAnswer(req.Fields), nil
	}
	clean, err := runner.SanitizeInput(*req.Answer)
	if err != nil {
		return domain.Answer{}, err
	}
	return domain.SingleAnswer(clean), nil
}

// PutChoice handles the PUT /choices/{key} request.
func (s *Server) PutChoice(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var body ChooseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("PutChoice: Invalid request body", "error", err)
		return
	}
	answer, err := body.answer()
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid input: %v", err), http.StatusBadRequest)
		s.logger.Warn("PutChoice: Input rejected", "error", err, "context", key)
		return
	}

	if err := s.Planner.Choose(r.Context(), key, answer); err != nil {
		s.fail(w, "Choose", err)
		return
	}
	s.logger.Debug("PutChoice: answer recorded", "context", key)
	s.GetPlan(w, r)
}

// DeleteChoice handles the DELETE /choices/{key} request.
func (s *Server) DeleteChoice(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.Planner.Reject(r.Context(), key); err != nil {
		s.fail(w, "Reject", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	var watch map[domain.EventType]bool
	if v := r.URL.Query().Get("watch"); v != "" {
		watch = make(map[domain.EventType]bool)
		for _, t := range strings.Split(v, ",") {
			watch[domain.EventType(strings.TrimSpace(t))] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if watch != nil && !watch[ev.Type] {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnresolvedChoice):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInterrupted):
		status = http.StatusServiceUnavailable
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	}
}
