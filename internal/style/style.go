// Package style derives a per-turn contextual style from conversation
// context, detected user emotion, and the active personality.
package style

import (
	"time"

	"github.com/kestrelhq/kestrel/internal/emotion"
	"github.com/kestrelhq/kestrel/internal/personality"
)

type Tone string

const (
	ToneFormal     Tone = "formal"
	ToneCasual     Tone = "casual"
	ToneEmpathetic Tone = "empathetic"
	ToneEnergetic  Tone = "energetic"
	ToneCalm       Tone = "calm"
	ToneAnalytical Tone = "analytical"
)

type Length string

const (
	LengthBrief    Length = "brief"
	LengthMedium   Length = "medium"
	LengthDetailed Length = "detailed"
)

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// ContextualStyle is recomputed every turn; it is never stored.
type ContextualStyle struct {
	Tone           Tone   `json:"tone"`
	ResponseLength Length `json:"response_length"`
	EmotionalLevel Level  `json:"emotional_level"`
}

// Context is the slice of conversation state the adapter looks at.
type Context struct {
	ConversationLength int
	Engagement         emotion.Engagement
}

const longConversationAfter = 10

// Adapter applies the style rules in a fixed order; later rules overwrite
// only the fields they set. The clock is injectable for the time-of-day
// rule.
type Adapter struct {
	now func() time.Time
}

func NewAdapter(now func() time.Time) *Adapter {
	if now == nil {
		now = time.Now
	}
	return &Adapter{now: now}
}

// Adapt derives the turn's contextual style. userEmotion may be nil when no
// detector sample is available.
func (a *Adapter) Adapt(ctx Context, persona personality.Profile, userEmotion *emotion.Signal) ContextualStyle {
	s := Base(persona.EmotionalTendency)

	// Rule 1: detected user emotion.
	if userEmotion != nil {
		switch userEmotion.Emotion {
		case emotion.Sad:
			s.Tone = ToneEmpathetic
			s.ResponseLength = LengthMedium
			s.EmotionalLevel = LevelHigh
		case emotion.Stressed:
			s.Tone = ToneCalm
			s.ResponseLength = LengthBrief
			s.EmotionalLevel = LevelLow
		case emotion.Excited, emotion.Happy:
			s.Tone = ToneEnergetic
			s.EmotionalLevel = LevelHigh
		case emotion.Angry:
			s.Tone = ToneCalm
			s.EmotionalLevel = LevelLow
		}
	}

	// Rule 2: long conversations get shorter answers.
	if ctx.ConversationLength > longConversationAfter {
		s.ResponseLength = LengthBrief
		if ctx.Engagement == emotion.EngagementLow {
			s.Tone = ToneCasual
		} else {
			s.Tone = ToneFormal
		}
	}

	// Rule 3: time of day.
	switch hourBand(a.now().Hour()) {
	case "morning":
		s.Tone = ToneEnergetic
	case "evening":
		s.Tone = ToneCalm
	case "night":
		s.Tone = ToneCalm
		s.ResponseLength = LengthBrief
	}

	// Rule 4: engagement extremes win last.
	switch ctx.Engagement {
	case emotion.EngagementLow:
		s.Tone = ToneCasual
		s.ResponseLength = LengthBrief
		s.EmotionalLevel = LevelHigh
	case emotion.EngagementHigh:
		s.Tone = ToneAnalytical
		s.ResponseLength = LengthDetailed
		s.EmotionalLevel = LevelMedium
	}

	return s
}

// Base is the style a personality starts from before the contextual rules
// run. It is also what template-only synthesis uses.
func Base(tendency string) ContextualStyle {
	switch tendency {
	case personality.TendencyEmpathetic:
		return ContextualStyle{Tone: ToneEmpathetic, ResponseLength: LengthMedium, EmotionalLevel: LevelHigh}
	case personality.TendencyEnergetic:
		return ContextualStyle{Tone: ToneEnergetic, ResponseLength: LengthMedium, EmotionalLevel: LevelHigh}
	case personality.TendencyCalm:
		return ContextualStyle{Tone: ToneCalm, ResponseLength: LengthMedium, EmotionalLevel: LevelLow}
	case personality.TendencyAnalytical:
		return ContextualStyle{Tone: ToneAnalytical, ResponseLength: LengthDetailed, EmotionalLevel: LevelLow}
	case personality.TendencyOptimistic:
		return ContextualStyle{Tone: ToneEnergetic, ResponseLength: LengthMedium, EmotionalLevel: LevelMedium}
	default:
		return ContextualStyle{Tone: ToneCasual, ResponseLength: LengthMedium, EmotionalLevel: LevelMedium}
	}
}

func hourBand(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 18 && hour < 22:
		return "evening"
	case hour >= 22 || hour < 5:
		return "night"
	default:
		return "day"
	}
}
