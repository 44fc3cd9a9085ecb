package session

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// The wire form flattens map-typed fields into sorted [key, value] pair
// arrays so the payload is stable across writes and survives stores that
// don't preserve JSON object key order.

type floatPair struct {
	Key   string
	Value float64
}

func (p floatPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Key, p.Value})
}

func (p *floatPair) UnmarshalJSON(data []byte) error {
	var arr [2]json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if err := json.Unmarshal(arr[0], &p.Key); err != nil {
		return fmt.Errorf("pair key: %w", err)
	}
	if err := json.Unmarshal(arr[1], &p.Value); err != nil {
		return fmt.Errorf("pair value: %w", err)
	}
	return nil
}

type intPair struct {
	Key   string
	Value int
}

func (p intPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Key, p.Value})
}

func (p *intPair) UnmarshalJSON(data []byte) error {
	var arr [2]json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if err := json.Unmarshal(arr[0], &p.Key); err != nil {
		return fmt.Errorf("pair key: %w", err)
	}
	if err := json.Unmarshal(arr[1], &p.Value); err != nil {
		return fmt.Errorf("pair value: %w", err)
	}
	return nil
}

type wirePreferences struct {
	PreferredPersonality string      `json:"preferred_personality"`
	ResponseStyle        string      `json:"response_style"`
	Interests            []string    `json:"interests"`
	ExpertiseAreas       []floatPair `json:"expertise_areas"`
}

type wireHistory struct {
	TotalConversations int       `json:"total_conversations"`
	AvgDurationSeconds float64   `json:"avg_duration_seconds"`
	CommonTopics       []string  `json:"common_topics"`
	PersonalityUsage   []intPair `json:"personality_usage"`
}

type wireSession struct {
	ID          string          `json:"session_id"`
	Preferences wirePreferences `json:"preferences"`
	History     wireHistory     `json:"conversation_history"`
	LastSession *Snapshot       `json:"last_session,omitempty"`
	Created     time.Time       `json:"created"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Encode serializes a session into its wire form.
func Encode(s *Session) ([]byte, error) {
	w := wireSession{
		ID: s.ID,
		Preferences: wirePreferences{
			PreferredPersonality: s.Preferences.PreferredPersonality,
			ResponseStyle:        s.Preferences.ResponseStyle,
			Interests:            s.Preferences.Interests,
			ExpertiseAreas:       flattenFloats(s.Preferences.ExpertiseAreas),
		},
		History: wireHistory{
			TotalConversations: s.History.TotalConversations,
			AvgDurationSeconds: s.History.AvgDurationSeconds,
			CommonTopics:       s.History.CommonTopics,
			PersonalityUsage:   flattenInts(s.History.PersonalityUsage),
		},
		LastSession: s.LastSession,
		Created:     s.Created,
		LastUpdated: s.LastUpdated,
	}
	return json.Marshal(w)
}

// Decode rehydrates a session from its wire form.
func Decode(data []byte) (*Session, error) {
	var w wireSession
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	s := &Session{
		ID: w.ID,
		Preferences: Preferences{
			PreferredPersonality: w.Preferences.PreferredPersonality,
			ResponseStyle:        w.Preferences.ResponseStyle,
			Interests:            w.Preferences.Interests,
			ExpertiseAreas:       make(map[string]float64, len(w.Preferences.ExpertiseAreas)),
		},
		History: History{
			TotalConversations: w.History.TotalConversations,
			AvgDurationSeconds: w.History.AvgDurationSeconds,
			CommonTopics:       w.History.CommonTopics,
			PersonalityUsage:   make(map[string]int, len(w.History.PersonalityUsage)),
		},
		LastSession: w.LastSession,
		Created:     w.Created,
		LastUpdated: w.LastUpdated,
	}
	for _, p := range w.Preferences.ExpertiseAreas {
		s.Preferences.ExpertiseAreas[p.Key] = p.Value
	}
	for _, p := range w.History.PersonalityUsage {
		s.History.PersonalityUsage[p.Key] = p.Value
	}
	return s, nil
}

func flattenFloats(m map[string]float64) []floatPair {
	out := make([]floatPair, 0, len(m))
	for k, v := range m {
		out = append(out, floatPair{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func flattenInts(m map[string]int) []intPair {
	out := make([]intPair, 0, len(m))
	for k, v := range m {
		out = append(out, intPair{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
