// Package memory keeps the bounded per-conversation transcript used for
// export and statistics.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhq/kestrel/internal/compose"
	"github.com/kestrelhq/kestrel/internal/intent"
)

// MaxMessages bounds the transcript; older messages are dropped FIFO.
const MaxMessages = 50

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Intent rides on user messages,
// Enhanced on assistant ones.
type Message struct {
	Role      Role                      `json:"role"`
	Text      string                    `json:"text"`
	Timestamp time.Time                 `json:"timestamp"`
	Intent    *intent.Intent            `json:"intent,omitempty"`
	Enhanced  *compose.EnhancedResponse `json:"enhanced_response,omitempty"`
}

// Stats summarizes a conversation for UI display.
type Stats struct {
	MessageCount      int            `json:"message_count"`
	UserMessages      int            `json:"user_messages"`
	AssistantMessages int            `json:"assistant_messages"`
	IntentCounts      map[string]int `json:"intent_counts,omitempty"`
	SessionStart      time.Time      `json:"session_start"`
	LastInteraction   time.Time      `json:"last_interaction"`
	DurationSeconds   float64        `json:"duration_seconds"`
}

// Export is the full transcript snapshot handed to callers.
type Export struct {
	ID             string             `json:"id"`
	Messages       []Message          `json:"messages"`
	Interests      []string           `json:"interests,omitempty"`
	Expertise      map[string]float64 `json:"expertise,omitempty"`
	PreferredStyle string             `json:"preferred_style,omitempty"`
	Stats          Stats              `json:"stats"`
}

// Conversation is the bounded transcript for one active conversation.
type Conversation struct {
	mu              sync.RWMutex
	id              string
	messages        []Message
	sessionStart    time.Time
	lastInteraction time.Time
	now             func() time.Time
}

func NewConversation(now func() time.Time) *Conversation {
	if now == nil {
		now = time.Now
	}
	start := now().UTC()
	return &Conversation{
		id:              uuid.NewString(),
		sessionStart:    start,
		lastInteraction: start,
		now:             now,
	}
}

func (c *Conversation) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// AddMessage appends a transcript entry and truncates to the most recent
// MaxMessages.
func (c *Conversation) AddMessage(role Role, text string, in *intent.Intent, enhanced *compose.EnhancedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now().UTC()
	c.messages = append(c.messages, Message{
		Role:      role,
		Text:      text,
		Timestamp: now,
		Intent:    in,
		Enhanced:  enhanced,
	})
	if len(c.messages) > MaxMessages {
		c.messages = c.messages[len(c.messages)-MaxMessages:]
	}
	c.lastInteraction = now
}

// Messages returns a copy of the transcript, oldest first.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{
		MessageCount:    len(c.messages),
		SessionStart:    c.sessionStart,
		LastInteraction: c.lastInteraction,
		DurationSeconds: c.lastInteraction.Sub(c.sessionStart).Seconds(),
	}
	for _, m := range c.messages {
		switch m.Role {
		case RoleUser:
			stats.UserMessages++
		case RoleAssistant:
			stats.AssistantMessages++
		}
		if m.Intent != nil {
			if stats.IntentCounts == nil {
				stats.IntentCounts = make(map[string]int)
			}
			stats.IntentCounts[m.Intent.Name]++
		}
	}
	return stats
}

// ExportWith bundles the transcript with the supplied profile snapshot.
func (c *Conversation) ExportWith(interests []string, expertise map[string]float64, preferredStyle string) Export {
	return Export{
		ID:             c.ID(),
		Messages:       c.Messages(),
		Interests:      interests,
		Expertise:      expertise,
		PreferredStyle: preferredStyle,
		Stats:          c.Stats(),
	}
}
