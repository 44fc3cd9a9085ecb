// Package suggest watches emotional and engagement trends across turns
// and proposes conversational nudges. It observes; it never blocks or
// alters the turn pipeline.
package suggest

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kestrelhq/kestrel/internal/dialogue"
	"github.com/kestrelhq/kestrel/internal/emotion"
)

// Suggestion kinds.
const (
	KindTopic   = "topic"
	KindBreak   = "break"
	KindSummary = "summary"
)

// Suggestion is one proactive nudge for the caller's UI.
type Suggestion struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

const (
	minTurnsBetween = 4
	deepSummaryAt   = 20
)

// Engine derives suggestions from the emotion window and the dialogue
// summary. It throttles itself so the avatar doesn't nag: at most one
// suggestion per analysis, none within minTurnsBetween turns of the
// previous one, and never the same kind twice in a row.
type Engine struct {
	logger zerolog.Logger

	// Analyze runs on detached goroutines, one per turn; consecutive
	// turns can overlap, so the throttle state is guarded.
	mu           sync.Mutex
	turns        int
	lastKind     string
	lastEmitTurn int
}

func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger, lastEmitTurn: -minTurnsBetween}
}

// Analyze inspects the current trends and returns at most one
// suggestion, or nil when nothing is worth surfacing.
func (e *Engine) Analyze(window *emotion.Window, summary dialogue.Summary, interests []string) *Suggestion {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.turns++
	if e.turns-e.lastEmitTurn < minTurnsBetween {
		return nil
	}

	s := e.pick(window, summary, interests)
	if s == nil || s.Kind == e.lastKind {
		return nil
	}
	e.lastKind = s.Kind
	e.lastEmitTurn = e.turns
	e.logger.Debug().Str("kind", s.Kind).Msg("proactive suggestion")
	return s
}

func (e *Engine) pick(window *emotion.Window, summary dialogue.Summary, interests []string) *Suggestion {
	trend := "steady"
	engagement := emotion.EngagementMedium
	dominant := ""
	if window != nil {
		trend = window.Trend()
		engagement = window.Engagement()
		dominant, _ = window.Dominant()
	}

	if trend == "declining" || dominant == emotion.Stressed || dominant == emotion.Sad {
		return &Suggestion{
			Kind: KindBreak,
			Text: "We've covered a lot. Want to take a short break?",
		}
	}

	if summary.ConversationLength >= deepSummaryAt || summary.FollowUpCount > 2 {
		text := "Want a quick recap of what we've talked about?"
		if summary.Topic != "" {
			text = fmt.Sprintf("Want a quick recap of our %s discussion?", summary.Topic)
		}
		return &Suggestion{Kind: KindSummary, Text: text}
	}

	if engagement == emotion.EngagementLow {
		topic := nextTopic(interests, summary.Topic)
		if topic == "" {
			return nil
		}
		return &Suggestion{
			Kind: KindTopic,
			Text: fmt.Sprintf("How about we talk about %s for a change?", topic),
		}
	}

	return nil
}

// nextTopic picks the first stored interest that isn't the current topic.
func nextTopic(interests []string, current string) string {
	for _, interest := range interests {
		if interest != "" && interest != current {
			return interest
		}
	}
	return ""
}
