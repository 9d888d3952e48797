// Package httpapi exposes the intake engine over a JSON HTTP API.
// The server is stateless: all booking state lives behind the session
// manager and its store.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/sequencer"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/session"
)

// Server wires the engine and session manager into HTTP handlers.
type Server struct {
	engine   *intake.Engine
	sessions *session.Manager
	logger   *slog.Logger
}

// TurnRequest is the body of POST /sessions/{id}/turn.
type TurnRequest struct {
	Input       string `json:"input"`
	CallerPhone string `json:"caller_phone,omitempty"`
}

// TurnResponse is the outcome of one processed turn.
type TurnResponse struct {
	Response sequencer.Response   `json:"response"`
	Done     bool                 `json:"done"`
	Repair   sequencer.Report     `json:"repair"`
	State    *domain.BookingState `json:"state,omitempty"`
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine *intake.Engine, sessions *session.Manager, logger *slog.Logger) http.Handler {
	s := &Server{engine: engine, sessions: sessions, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/flow", s.handleFlow)
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Post("/turn", s.handleTurn)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.ResolveFlow())
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	state, err := s.sessions.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.fail(w, http.StatusNotFound, err)
			return
		}
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.DisplayState(state))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTurn processes one utterance for a session under the session
// lock: load-or-start, run the step, persist the successor state.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	var res sequencer.Result
	err := s.sessions.WithLock(r.Context(), id, func(ctx context.Context) error {
		state, err := s.sessions.Store().Load(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrSessionNotFound) {
				return err
			}
			state = domain.NewBookingState(id)
		}
		if req.CallerPhone != "" {
			state = state.Clone()
			state.Meta["caller_phone"] = req.CallerPhone
		}

		res = s.engine.RunStep(ctx, state, req.Input)
		return s.sessions.Store().Save(ctx, id, res.State)
	})
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, TurnResponse{
		Response: res.Response,
		Done:     res.Done,
		Repair:   res.Repair,
		State:    res.State,
	})
}

func (s *Server) fail(w http.ResponseWriter, code int, err error) {
	s.logger.Error("request failed", "err", err)
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
