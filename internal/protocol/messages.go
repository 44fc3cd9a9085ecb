package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientTurn       MessageType = "client_turn"
	TypeClientControl    MessageType = "client_control"
	TypeAssistantChunk   MessageType = "assistant_chunk"
	TypeAssistantTurnEnd MessageType = "assistant_turn_end"
	TypeSuggestionEvent  MessageType = "suggestion_event"
	TypeErrorEvent       MessageType = "error_event"
)

// Control actions accepted on client_control.
const (
	ActionStop = "stop"
	ActionEnd  = "end"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientTurn carries one user utterance, optionally with an emotion
// sample from the client-side detector.
type ClientTurn struct {
	Type              MessageType `json:"type"`
	SessionID         string      `json:"session_id"`
	Text              string      `json:"text"`
	Emotion           string      `json:"emotion,omitempty"`
	EmotionConfidence float64     `json:"emotion_confidence,omitempty"`
	TSMs              int64       `json:"ts_ms"`
}

type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

// AssistantChunk is one paced slice of the response stream. The final
// chunk sets IsComplete and carries the emotion plus follow-ups.
type AssistantChunk struct {
	Type              MessageType `json:"type"`
	SessionID         string      `json:"session_id"`
	StreamID          string      `json:"stream_id"`
	Seq               int         `json:"seq"`
	Text              string      `json:"text"`
	IsComplete        bool        `json:"is_complete"`
	Emotion           string      `json:"emotion,omitempty"`
	FollowUpQuestions []string    `json:"follow_up_questions,omitempty"`
}

type AssistantTurnEnd struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	StreamID  string      `json:"stream_id"`
	Intent    string      `json:"intent"`
	Reason    string      `json:"reason"`
}

// SuggestionEvent carries a proactive nudge produced outside the turn.
type SuggestionEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Kind      string      `json:"kind"`
	Text      string      `json:"text"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientTurn:
		var msg ClientTurn
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Text == "" {
			return nil, errors.New("invalid client_turn")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid client_control")
		}
		switch msg.Action {
		case ActionStop, ActionEnd:
			return msg, nil
		default:
			return nil, fmt.Errorf("invalid client_control action %q", msg.Action)
		}
	default:
		return nil, ErrUnsupportedType
	}
}
