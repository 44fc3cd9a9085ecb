// Package compose assembles the final enhanced response from the drafted
// text, the adapted style, and the active personality.
package compose

import (
	"math/rand"

	"github.com/kestrelhq/kestrel/internal/dialogue"
	"github.com/kestrelhq/kestrel/internal/emotion"
	"github.com/kestrelhq/kestrel/internal/intent"
	"github.com/kestrelhq/kestrel/internal/personality"
	"github.com/kestrelhq/kestrel/internal/style"
)

// Emotion is the avatar emotion tag attached to a response.
type Emotion string

const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionThinking  Emotion = "thinking"
	EmotionListening Emotion = "listening"
)

// EnhancedResponse is the engine's final per-turn output.
type EnhancedResponse struct {
	Text               string     `json:"text"`
	Emotion            Emotion    `json:"emotion"`
	Tone               style.Tone `json:"tone"`
	FollowUpQuestions  []string   `json:"follow_up_questions,omitempty"`
	ContextualHints    []string   `json:"contextual_hints,omitempty"`
	PersonalityMarkers []string   `json:"personality_markers,omitempty"`
}

const (
	// MaxFollowUpQuestions bounds the follow-up list on every response.
	MaxFollowUpQuestions = 3

	briefMaxChars      = 100
	interestAsideOdds  = 0.3
	lowConfidenceBelow = 0.5
	deepConversationAt = 2
)

// Input carries everything one composition needs.
type Input struct {
	Draft         string
	Intent        intent.Intent
	Style         style.ContextualStyle
	Persona       personality.Profile
	Summary       dialogue.Summary
	FollowUps     []string
	UserEmotion   *emotion.Signal
	Interests     []string
	StyleTrend    string
	SessionTopics []string
}

// Composer holds the injectable randomness used for phrase selection and
// the occasional interest aside, so tests can pin outputs.
type Composer struct {
	rng *rand.Rand
}

func NewComposer(rng *rand.Rand) *Composer {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Composer{rng: rng}
}

// Compose enriches the draft, applies the tone transform, tags the avatar
// emotion, and assembles hints and markers.
func (c *Composer) Compose(in Input) EnhancedResponse {
	text := c.enrich(in)
	text = applyTone(text, in.Style)

	out := EnhancedResponse{
		Text:               text,
		Emotion:            emotionTag(in),
		Tone:               in.Style.Tone,
		FollowUpQuestions:  truncateList(in.FollowUps, MaxFollowUpQuestions),
		ContextualHints:    contextualHints(in),
		PersonalityMarkers: personalityMarkers(in.Persona),
	}
	return out
}

// enrich prepends a personality marker phrase when the intent is sociable
// enough to carry one, and sometimes adds an aside about one of the
// personality's own interests.
func (c *Composer) enrich(in Input) string {
	text := in.Draft

	if markerRelevant(in.Intent.Name) {
		bank := markerPhrases[in.Persona.EmotionalTendency]
		if len(bank) > 0 {
			text = bank[c.rng.Intn(len(bank))] + " " + text
		}
	}

	if len(in.Persona.Interests) > 0 && c.rng.Float64() < interestAsideOdds {
		interest := in.Persona.Interests[c.rng.Intn(len(in.Persona.Interests))]
		text = text + " By the way, I've been thinking about " + interest + " lately."
	}

	return text
}

func emotionTag(in Input) Emotion {
	if in.UserEmotion != nil {
		switch in.UserEmotion.Emotion {
		case emotion.Sad, emotion.Stressed:
			return EmotionListening
		case emotion.Excited, emotion.Happy:
			return EmotionHappy
		case emotion.Angry:
			return EmotionNeutral
		}
	}
	return DefaultEmotion(in.Intent.Name, in.Intent.Confidence)
}

// DefaultEmotion is the intent/confidence fallback used when no user
// emotion signal is present. Template-only synthesis uses it directly.
func DefaultEmotion(intentName string, confidence float64) Emotion {
	if confidence < lowConfidenceBelow {
		return EmotionThinking
	}
	switch intentName {
	case intent.NameGreeting, intent.NameOpinionRequest:
		return EmotionHappy
	case intent.NameQuestion, intent.NameExplanationRequest:
		return EmotionThinking
	case intent.NameHelpRequest:
		return EmotionListening
	default:
		return EmotionNeutral
	}
}

func contextualHints(in Input) []string {
	var hints []string
	if in.Summary.Topic != "" {
		hints = append(hints, "topic: "+in.Summary.Topic)
	}
	for _, interest := range in.Interests {
		hints = append(hints, "interest: "+interest)
	}
	if in.Summary.FollowUpCount > deepConversationAt {
		hints = append(hints, "deep conversation")
	}
	if in.UserEmotion != nil && in.UserEmotion.Emotion != "" {
		hints = append(hints, "user emotion: "+in.UserEmotion.Emotion)
	}
	if in.StyleTrend != "" {
		hints = append(hints, "mood trend: "+in.StyleTrend)
	}
	for _, topic := range in.SessionTopics {
		hints = append(hints, "suggested topic: "+topic)
	}
	return hints
}

func personalityMarkers(persona personality.Profile) []string {
	return []string{
		"persona:" + persona.ID,
		"tendency:" + persona.EmotionalTendency,
	}
}

func markerRelevant(intentName string) bool {
	switch intentName {
	case intent.NameGreeting, intent.NameOpinionRequest, intent.NameSmalltalk, intent.NameGratitude:
		return true
	default:
		return false
	}
}

func truncateList(in []string, max int) []string {
	if len(in) <= max {
		out := make([]string, len(in))
		copy(out, in)
		return out
	}
	out := make([]string, max)
	copy(out, in[:max])
	return out
}

// markerPhrases is the fixed phrase bank keyed by emotional tendency.
var markerPhrases = map[string][]string{
	personality.TendencyOptimistic: {
		"Oh, lovely!",
		"You know what?",
		"I was hoping you'd ask.",
	},
	personality.TendencyAnalytical: {
		"Interesting.",
		"Let's be precise.",
	},
	personality.TendencyEnergetic: {
		"Yes!",
		"Love it!",
	},
	personality.TendencyCalm: {
		"Mm.",
		"All right.",
	},
	personality.TendencyEmpathetic: {
		"I'm glad you brought that up.",
		"Thank you for sharing that.",
	},
	personality.TendencyCasual: {
		"Heh.",
		"Alright then.",
	},
}
