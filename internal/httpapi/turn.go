package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kestrelhq/kestrel/internal/compose"
	"github.com/kestrelhq/kestrel/internal/dialogue"
	"github.com/kestrelhq/kestrel/internal/emotion"
	"github.com/kestrelhq/kestrel/internal/engine"
)

type turnRequest struct {
	SessionID         string  `json:"session_id"`
	Text              string  `json:"text"`
	Emotion           string  `json:"emotion,omitempty"`
	EmotionConfidence float64 `json:"emotion_confidence,omitempty"`
}

type externalTurnRequest struct {
	SessionID         string  `json:"session_id"`
	Text              string  `json:"text"`
	ResponseText      string  `json:"response_text"`
	Emotion           string  `json:"emotion,omitempty"`
	EmotionConfidence float64 `json:"emotion_confidence,omitempty"`
}

type turnResponse struct {
	Response compose.EnhancedResponse `json:"response"`
	Context  dialogue.Summary         `json:"context"`
}

func emotionSignal(name string, confidence float64) *emotion.Signal {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	return &emotion.Signal{Emotion: name, Confidence: confidence, At: time.Now()}
}

// handleTurn runs one synchronous turn and returns the full response,
// without streaming. Browser clients wanting paced chunks use the
// websocket endpoint instead.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}
	eng, ok := s.engineFor(w, req.SessionID)
	if !ok {
		return
	}

	resp, err := eng.ProcessUtterance(req.Text, emotionSignal(req.Emotion, req.EmotionConfidence))
	if err != nil {
		s.respondTurnError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, turnResponse{Response: resp, Context: eng.Summary()})
}

// handleExternalTurn injects a response produced by an external backend
// into the tagging, memory, and prediction stages.
func (s *Server) handleExternalTurn(w http.ResponseWriter, r *http.Request) {
	var req externalTurnRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.ResponseText) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text and response_text are required")
		return
	}
	eng, ok := s.engineFor(w, req.SessionID)
	if !ok {
		return
	}

	resp, err := eng.ProcessExternal(req.Text, req.ResponseText, emotionSignal(req.Emotion, req.EmotionConfidence))
	if err != nil {
		s.respondTurnError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, turnResponse{Response: resp, Context: eng.Summary()})
}

func (s *Server) respondTurnError(w http.ResponseWriter, err error) {
	var perr *engine.ProfileError
	switch {
	case errors.Is(err, engine.ErrBusy):
		respondError(w, http.StatusConflict, "turn_in_progress", err.Error())
	case errors.As(err, &perr):
		respondError(w, http.StatusUnprocessableEntity, "profile_error", perr.Error())
	default:
		respondError(w, http.StatusInternalServerError, "turn_failed", err.Error())
	}
}
