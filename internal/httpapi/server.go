package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kestrelhq/kestrel/internal/config"
	"github.com/kestrelhq/kestrel/internal/engine"
	"github.com/kestrelhq/kestrel/internal/observability"
)

type Server struct {
	cfg      config.Config
	hub      *engine.Hub
	metrics  *observability.Metrics
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, hub *engine.Hub, metrics *observability.Metrics, logger zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		hub:     hub,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other sites can't drive a user's avatar if
				// the service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/chat/session", s.handleCreateSession)
	r.Post("/v1/chat/session/{id}/end", s.handleEndSession)
	r.Post("/v1/chat/turn", s.handleTurn)
	r.Post("/v1/chat/turn/external", s.handleExternalTurn)
	r.Get("/v1/chat/session/{id}/memory", s.handleExportMemory)
	r.Get("/v1/chat/session/{id}/memory/stats", s.handleMemoryStats)
	r.Get("/v1/chat/session/{id}/recommendations", s.handleRecommendations)
	r.Get("/v1/chat/ws", s.handleChatWS)
	r.Get("/v1/perf/latency", s.handlePerfLatency)
	r.Delete("/v1/perf/latency", s.handlePerfLatencyReset)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":               "ok",
		"active_conversations": s.hub.ActiveCount(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type createSessionRequest struct {
	SessionID   string `json:"session_id"`
	Personality string `json:"personality"`
}

type createSessionResponse struct {
	SessionID       string   `json:"session_id"`
	ConversationID  string   `json:"conversation_id"`
	Personality     string   `json:"personality"`
	SuggestedTopics []string `json:"suggested_topics,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Personality) == "" {
		req.Personality = s.cfg.DefaultPersonality
	}

	eng, err := s.hub.Start(r.Context(), req.SessionID, req.Personality)
	if err != nil {
		var perr *engine.ProfileError
		if errors.As(err, &perr) {
			respondError(w, http.StatusBadRequest, "invalid_personality", perr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "session_start_failed", err.Error())
		return
	}

	rec := eng.Recommendations()
	respondJSON(w, http.StatusCreated, createSessionResponse{
		SessionID:       eng.SessionID(),
		ConversationID:  eng.ConversationID(),
		Personality:     eng.Persona().ID,
		SuggestedTopics: rec.SuggestedTopics,
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	rec, err := s.hub.End(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) engineFor(w http.ResponseWriter, sessionID string) (*engine.Engine, bool) {
	if strings.TrimSpace(sessionID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return nil, false
	}
	eng, err := s.hub.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return nil, false
	}
	return eng, true
}

func (s *Server) handleExportMemory(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engineFor(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, eng.ExportMemory())
}

func (s *Server) handleMemoryStats(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engineFor(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, eng.MemoryStats())
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engineFor(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, eng.Recommendations())
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
