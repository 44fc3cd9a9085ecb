// Package personality defines the avatar persona profiles that drive
// template selection, style adaptation, and response enrichment.
package personality

import (
	"fmt"
	"strings"
)

// Emotional tendencies a profile can declare.
const (
	TendencyOptimistic = "optimistic"
	TendencyAnalytical = "analytical"
	TendencyEnergetic  = "energetic"
	TendencyCalm       = "calm"
	TendencyEmpathetic = "empathetic"
	TendencyCasual     = "casual"
)

// Grammatical gender flags. They only affect lexical agreement in
// generated text for languages that inflect (e.g. French).
const (
	GenderNeutral   = "neutral"
	GenderFeminine  = "feminine"
	GenderMasculine = "masculine"
)

// Profile describes one selectable avatar personality.
type Profile struct {
	ID                string   `yaml:"id"`
	DisplayName       string   `yaml:"display_name"`
	EmotionalTendency string   `yaml:"emotional_tendency"`
	SpeechPatterns    []string `yaml:"speech_patterns"`
	Interests         []string `yaml:"interests"`
	Gender            string   `yaml:"gender"`
}

// Validate reports whether the profile is usable by the engine. A profile
// failing validation is the catastrophic turn error of the engine contract.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("personality profile: missing id")
	}
	switch p.EmotionalTendency {
	case TendencyOptimistic, TendencyAnalytical, TendencyEnergetic,
		TendencyCalm, TendencyEmpathetic, TendencyCasual:
		return nil
	default:
		return fmt.Errorf("personality profile %q: unknown emotional tendency %q", p.ID, p.EmotionalTendency)
	}
}

// Builtin returns the compiled-in persona set, keyed by profile ID.
func Builtin() map[string]Profile {
	return map[string]Profile{
		"friendly": {
			ID:                "friendly",
			DisplayName:       "Friendly",
			EmotionalTendency: TendencyOptimistic,
			SpeechPatterns:    []string{"That's wonderful!", "I love that.", "Tell me more!"},
			Interests:         []string{"music", "travel", "food"},
			Gender:            GenderFeminine,
		},
		"professional": {
			ID:                "professional",
			DisplayName:       "Professional",
			EmotionalTendency: TendencyAnalytical,
			SpeechPatterns:    []string{"Let's look at this precisely.", "The key point is"},
			Interests:         []string{"technology", "science", "economics"},
			Gender:            GenderNeutral,
		},
		"energetic": {
			ID:                "energetic",
			DisplayName:       "Energetic",
			EmotionalTendency: TendencyEnergetic,
			SpeechPatterns:    []string{"Let's go!", "This is exciting!"},
			Interests:         []string{"sports", "adventure", "music"},
			Gender:            GenderMasculine,
		},
		"calm": {
			ID:                "calm",
			DisplayName:       "Calm",
			EmotionalTendency: TendencyCalm,
			SpeechPatterns:    []string{"Take your time.", "One step at a time."},
			Interests:         []string{"nature", "books", "meditation"},
			Gender:            GenderNeutral,
		},
		"empathetic": {
			ID:                "empathetic",
			DisplayName:       "Empathetic",
			EmotionalTendency: TendencyEmpathetic,
			SpeechPatterns:    []string{"I hear you.", "That sounds meaningful."},
			Interests:         []string{"people", "art", "stories"},
			Gender:            GenderFeminine,
		},
	}
}

// Resolve looks up id in the given set, falling back to "friendly" and then
// to any profile when the set is sparse.
func Resolve(set map[string]Profile, id string) (Profile, bool) {
	if p, ok := set[strings.TrimSpace(id)]; ok {
		return p, true
	}
	if p, ok := set["friendly"]; ok {
		return p, false
	}
	for _, p := range set {
		return p, false
	}
	return Profile{}, false
}
