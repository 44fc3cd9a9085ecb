package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kestrelhq/kestrel/internal/engine"
	"github.com/kestrelhq/kestrel/internal/protocol"
	"github.com/kestrelhq/kestrel/internal/stream"
	"github.com/kestrelhq/kestrel/internal/suggest"
)

// handleChatWS runs the streaming turn loop over a websocket. Turns are
// processed one at a time off an inbound queue; control messages are
// handled directly in the read loop so a stop lands mid-stream.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	eng, err := s.hub.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.CountSessionEvent("ws_connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan protocol.ClientTurn, 16)
	outbound := make(chan any, 256)

	eng.SetOnSuggestion(func(sg suggest.Suggestion) {
		event := protocol.SuggestionEvent{
			Type:      protocol.TypeSuggestionEvent,
			SessionID: sessionID,
			Kind:      sg.Kind,
			Text:      sg.Text,
		}
		select {
		case outbound <- event:
		default:
			// Keep websocket writes single-threaded; drop when saturated.
		}
	})
	defer eng.SetOnSuggestion(nil)

	turnsDone := make(chan struct{})
	go func() {
		defer close(turnsDone)
		s.runTurnLoop(ctx, sessionID, eng, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			enqueue(ctx, outbound, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}

		switch msg := parsed.(type) {
		case protocol.ClientControl:
			switch msg.Action {
			case protocol.ActionStop:
				eng.StopStream()
			case protocol.ActionEnd:
				eng.StopStream()
				if _, err := s.hub.End(ctx, sessionID); err != nil && !errors.Is(err, engine.ErrConversationNotFound) {
					s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("end conversation failed")
				}
				break readLoop
			}
		case protocol.ClientTurn:
			select {
			case <-ctx.Done():
				break readLoop
			case inbound <- msg:
			}
		}
	}

	cancel()
	close(inbound)
	<-turnsDone
	<-writerDone
	s.metrics.CountSessionEvent("ws_disconnected")
}

func (s *Server) runTurnLoop(ctx context.Context, sessionID string, eng *engine.Engine, inbound <-chan protocol.ClientTurn, outbound chan<- any) {
	for {
		select {
		case <-ctx.Done():
			return
		case turn, ok := <-inbound:
			if !ok {
				return
			}
			s.runTurn(ctx, sessionID, eng, turn, outbound)
		}
	}
}

func (s *Server) runTurn(ctx context.Context, sessionID string, eng *engine.Engine, turn protocol.ClientTurn, outbound chan<- any) {
	resp, err := eng.ProcessUtterance(turn.Text, emotionSignal(turn.Emotion, turn.EmotionConfidence))
	if err != nil {
		var perr *engine.ProfileError
		code := "turn_failed"
		retryable := false
		switch {
		case errors.Is(err, engine.ErrBusy):
			code = "turn_in_progress"
			retryable = true
		case errors.As(err, &perr):
			code = "profile_error"
		}
		enqueue(ctx, outbound, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      code,
			Retryable: retryable,
			Detail:    err.Error(),
		})
		return
	}

	// Stream blocks until the final chunk or cancellation; chunks go out
	// through the writer goroutine.
	streamID := eng.Stream(resp, func(c stream.Chunk) {
		enqueue(ctx, outbound, protocol.AssistantChunk{
			Type:              protocol.TypeAssistantChunk,
			SessionID:         sessionID,
			StreamID:          c.StreamID,
			Seq:               c.Seq,
			Text:              c.Text,
			IsComplete:        c.IsComplete,
			Emotion:           string(c.Emotion),
			FollowUpQuestions: c.FollowUpQuestions,
		})
	})

	enqueue(ctx, outbound, protocol.AssistantTurnEnd{
		Type:      protocol.TypeAssistantTurnEnd,
		SessionID: sessionID,
		StreamID:  streamID,
		Intent:    eng.Summary().LastIntent,
		Reason:    "complete",
	})
}

// enqueue blocks when the outbound buffer is full so a slow client applies
// backpressure to the stream instead of losing chunks. It gives up only
// when the connection is going away.
func enqueue(ctx context.Context, outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
	case <-ctx.Done():
	}
}
