// Package dialogue tracks per-conversation state and drafts the textual
// skeleton of each reply before style and personality enrichment.
package dialogue

import (
	"strings"

	"github.com/kestrelhq/kestrel/internal/intent"
	"github.com/kestrelhq/kestrel/internal/personality"
	"github.com/kestrelhq/kestrel/internal/profile"
)

const maxFollowUpSuggestions = 3

// Expertise branch thresholds for template selection.
const (
	expertiseLowBelow  = 0.4
	expertiseHighAbove = 0.7
)

// topicVocabulary maps utterance keywords to canonical topics for the
// fallback topic scan when the classifier found no topic entity.
var topicVocabulary = map[string]string{
	"music": "music", "song": "music", "band": "music", "album": "music", "jazz": "music",
	"movie": "movies", "film": "movies", "cinema": "movies",
	"book": "books", "novel": "books", "reading": "books",
	"technology": "technology", "computer": "technology", "software": "technology", "ai": "technology",
	"science": "science", "physics": "science", "biology": "science", "space": "science",
	"sport": "sports", "football": "sports", "tennis": "sports", "running": "sports",
	"travel": "travel", "trip": "travel", "vacation": "travel",
	"food": "food", "cooking": "food", "recipe": "food",
	"weather": "weather", "rain": "weather", "sunny": "weather",
	"work": "work", "job": "work", "career": "work",
	"family": "family", "friend": "family", "friends": "family",
	"art": "art", "painting": "art", "museum": "art",
	"history": "history", "ancient": "history",
	"nature": "nature", "hiking": "nature", "garden": "nature",
}

// interestTriggers mark a declared interest; the token right after the
// trigger becomes the interest.
var interestTriggers = []string{
	"i like",
	"i love",
	"i prefer",
	"i enjoy",
	"passionate about",
	"interested in",
	"my favorite",
}

// TurnResult is what one processed turn hands to the composer.
type TurnResult struct {
	DraftText           string
	FollowUpSuggestions []string
	ContextSummary      Summary
}

// Tracker owns a State and applies the per-turn update rules.
type Tracker struct {
	state *State
	lang  string
}

func NewTracker(lang string) *Tracker {
	return &Tracker{state: NewState(), lang: normalizeLang(lang)}
}

// State exposes the tracked state for memory export and engine decisions.
// Callers must not mutate it.
func (t *Tracker) State() *State { return t.state }

// ProcessTurn applies the state-update rules for one classified utterance
// and drafts a personality-specific response skeleton.
func (t *Tracker) ProcessTurn(in intent.Intent, utterance string, persona personality.Profile) TurnResult {
	s := t.state
	s.TurnCount++
	s.appendFlow(in.Name)

	t.resolveTopic(in, utterance)

	switch in.Name {
	case intent.NameQuestion, intent.NameExplanationRequest:
		s.FollowUpCount++
	default:
		s.FollowUpCount = 0
	}

	if s.CurrentTopic != "" {
		switch in.Name {
		case intent.NameExplanationRequest:
			s.Profile.AdjustExpertise(s.CurrentTopic, -profile.ExpertiseStep)
		case intent.NameOpinionRequest:
			s.Profile.AdjustExpertise(s.CurrentTopic, +profile.ExpertiseStep)
		}
	}

	t.detectInterests(utterance)

	s.LastIntent = &in

	return TurnResult{
		DraftText:           t.draftText(in, persona),
		FollowUpSuggestions: t.followUpSuggestions(in),
		ContextSummary:      s.Summary(),
	}
}

// resolveTopic prefers a classifier topic entity, then the fixed-vocabulary
// scan, and otherwise leaves the previous topic in place.
func (t *Tracker) resolveTopic(in intent.Intent, utterance string) {
	if e, ok := in.TopicEntity(); ok {
		t.state.CurrentTopic = e.Value
		return
	}
	for _, tok := range strings.Fields(strings.ToLower(utterance)) {
		tok = strings.Trim(tok, ".,!?;:'\"()")
		if topic, ok := topicVocabulary[tok]; ok {
			t.state.CurrentTopic = topic
			return
		}
	}
}

func (t *Tracker) detectInterests(utterance string) {
	normalized := strings.ToLower(utterance)
	for _, trigger := range interestTriggers {
		idx := strings.Index(normalized, trigger)
		if idx < 0 {
			continue
		}
		rest := strings.Fields(normalized[idx+len(trigger):])
		if len(rest) == 0 {
			continue
		}
		interest := strings.Trim(rest[0], ".,!?;:'\"()")
		if interest == "" {
			continue
		}
		t.state.Profile.AddInterest(interest)
	}
}

func (t *Tracker) draftText(in intent.Intent, persona personality.Profile) string {
	tmpl := lookupTemplate(t.lang, persona.EmotionalTendency, in.Name)

	text := tmpl.Neutral
	if t.state.CurrentTopic != "" {
		expertise := t.state.Profile.Expertise(t.state.CurrentTopic)
		switch {
		case expertise < expertiseLowBelow && tmpl.Simple != "":
			text = tmpl.Simple
		case expertise > expertiseHighAbove && tmpl.Detailed != "":
			text = tmpl.Detailed
		}
	}
	return expandTemplate(text, t.state.CurrentTopic, persona, t.lang)
}

func (t *Tracker) followUpSuggestions(in intent.Intent) []string {
	base, ok := followUpTable[in.Name]
	if !ok {
		base = genericFollowUps
	}
	out := make([]string, 0, maxFollowUpSuggestions)
	out = append(out, base...)
	if topic := t.state.CurrentTopic; topic != "" {
		out = append(out, strings.ReplaceAll(topicFollowUp, "{topic}", topic))
	}
	if len(out) > maxFollowUpSuggestions {
		out = out[:maxFollowUpSuggestions]
	}
	return out
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	switch lang {
	case "fr":
		return "fr"
	default:
		return "en"
	}
}
