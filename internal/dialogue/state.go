package dialogue

import (
	"github.com/kestrelhq/kestrel/internal/intent"
	"github.com/kestrelhq/kestrel/internal/profile"
)

// MaxFlowEntries bounds the rolling intent-name history.
const MaxFlowEntries = 10

// State is the rolling per-conversation dialogue context. It is owned by
// exactly one Tracker and mutated only through ProcessTurn.
type State struct {
	CurrentTopic     string
	ConversationFlow []string
	LastIntent       *intent.Intent
	FollowUpCount    int
	TurnCount        int
	Profile          *profile.Profile
}

func NewState() *State {
	return &State{Profile: profile.New()}
}

func (s *State) appendFlow(name string) {
	s.ConversationFlow = append(s.ConversationFlow, name)
	if len(s.ConversationFlow) > MaxFlowEntries {
		s.ConversationFlow = s.ConversationFlow[len(s.ConversationFlow)-MaxFlowEntries:]
	}
}

// Summary is the slice of state other stages consume: enough for style and
// emotion decisions without handing out the mutable state itself.
type Summary struct {
	Topic         string `json:"topic,omitempty"`
	FollowUpCount int    `json:"follow_up_count"`
	// ConversationLength counts every turn since the conversation started,
	// unlike ConversationFlow which is FIFO-capped at MaxFlowEntries.
	ConversationLength int    `json:"conversation_length"`
	LastIntent         string `json:"last_intent,omitempty"`
}

func (s *State) Summary() Summary {
	sum := Summary{
		Topic:              s.CurrentTopic,
		FollowUpCount:      s.FollowUpCount,
		ConversationLength: s.TurnCount,
	}
	if s.LastIntent != nil {
		sum.LastIntent = s.LastIntent.Name
	}
	return sum
}
