// Package session persists cross-conversation user state: preferences,
// aggregate conversation history, and a snapshot of the last session.
// Persistence is best effort; a failing store degrades to in-memory state
// for the run.
package session

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// StaleAfter is how long a persisted session stays reusable. Older
// sessions are discarded and recreated on load.
const StaleAfter = 24 * time.Hour

// MaxCommonTopics bounds the recorded common-topics set.
const MaxCommonTopics = 20

var ErrNotFound = errors.New("session not found")

// Preferences are the user's sticky choices across conversations.
type Preferences struct {
	PreferredPersonality string             `json:"preferred_personality"`
	ResponseStyle        string             `json:"response_style"`
	Interests            []string           `json:"interests"`
	ExpertiseAreas       map[string]float64 `json:"expertise_areas"`
}

// History aggregates conversation metrics across the session's lifetime.
type History struct {
	TotalConversations int            `json:"total_conversations"`
	AvgDurationSeconds float64        `json:"avg_duration_seconds"`
	CommonTopics       []string       `json:"common_topics"`
	PersonalityUsage   map[string]int `json:"personality_usage"`
}

// Snapshot captures how the previous conversation ended.
type Snapshot struct {
	ConversationID string    `json:"conversation_id"`
	MessageCount   int       `json:"message_count"`
	Topic          string    `json:"topic,omitempty"`
	EndedAt        time.Time `json:"ended_at"`
}

// Session is the persisted aggregate. One engine instance drives a session
// at a time, so reads-modify-writes need no optimistic locking.
type Session struct {
	ID          string      `json:"session_id"`
	Preferences Preferences `json:"preferences"`
	History     History     `json:"conversation_history"`
	LastSession *Snapshot   `json:"last_session,omitempty"`
	Created     time.Time   `json:"created"`
	LastUpdated time.Time   `json:"last_updated"`
}

func New(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return &Session{
		ID: id,
		Preferences: Preferences{
			ExpertiseAreas: make(map[string]float64),
		},
		History: History{
			PersonalityUsage: make(map[string]int),
		},
		Created:     now,
		LastUpdated: now,
	}
}

// Stale reports whether the session is too old to reuse.
func (s *Session) Stale(now time.Time) bool {
	return now.Sub(s.LastUpdated) > StaleAfter
}

func (s *Session) Touch(now time.Time) {
	s.LastUpdated = now.UTC()
}

// RecordConversationMetrics folds one finished conversation into the
// running aggregates.
func (s *Session) RecordConversationMetrics(duration time.Duration, topics []string, personalityID string, snapshot *Snapshot) {
	n := float64(s.History.TotalConversations)
	s.History.AvgDurationSeconds = (s.History.AvgDurationSeconds*n + duration.Seconds()) / (n + 1)
	s.History.TotalConversations++

	for _, topic := range topics {
		if topic == "" || containsString(s.History.CommonTopics, topic) {
			continue
		}
		if len(s.History.CommonTopics) >= MaxCommonTopics {
			break
		}
		s.History.CommonTopics = append(s.History.CommonTopics, topic)
	}

	if personalityID != "" {
		if s.History.PersonalityUsage == nil {
			s.History.PersonalityUsage = make(map[string]int)
		}
		s.History.PersonalityUsage[personalityID]++
	}
	if snapshot != nil {
		s.LastSession = snapshot
	}
}

// Recommendations is the onboarding hint derived from session history.
type Recommendations struct {
	Personality     string   `json:"personality,omitempty"`
	SuggestedTopics []string `json:"suggested_topics,omitempty"`
}

// PersonalizedRecommendations returns the most used personality and up to
// three stored interests as suggested topics.
func (s *Session) PersonalizedRecommendations() Recommendations {
	rec := Recommendations{}

	bestCount := 0
	names := make([]string, 0, len(s.History.PersonalityUsage))
	for name := range s.History.PersonalityUsage {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if count := s.History.PersonalityUsage[name]; count > bestCount {
			rec.Personality = name
			bestCount = count
		}
	}

	interests := s.Preferences.Interests
	if len(interests) > 3 {
		interests = interests[:3]
	}
	rec.SuggestedTopics = append(rec.SuggestedTopics, interests...)
	return rec
}

// MergeInterests folds conversation-discovered interests into the
// persisted preference list, keeping the cap.
func (s *Session) MergeInterests(interests []string, max int) {
	for _, interest := range interests {
		if interest == "" || containsString(s.Preferences.Interests, interest) {
			continue
		}
		if len(s.Preferences.Interests) >= max {
			return
		}
		s.Preferences.Interests = append(s.Preferences.Interests, interest)
	}
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
