package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kestrelhq/kestrel/internal/compose"
	"github.com/kestrelhq/kestrel/internal/dialogue"
	"github.com/kestrelhq/kestrel/internal/emotion"
	"github.com/kestrelhq/kestrel/internal/intent"
	"github.com/kestrelhq/kestrel/internal/personality"
	"github.com/kestrelhq/kestrel/internal/stream"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	at := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	e, err := New(context.Background(), Options{
		SessionID:     "sess-1",
		PersonalityID: "friendly",
		Language:      "en",
		Logger:        zerolog.Nop(),
		Rand:          rand.New(rand.NewSource(7)),
		Now:           func() time.Time { return at },
		Delivery:      stream.NewDelivery(time.Millisecond, time.Millisecond, rand.New(rand.NewSource(7)), func(time.Duration) {}, nil),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestGreetingTurn(t *testing.T) {
	e := newTestEngine(t)

	resp, err := e.ProcessUtterance("Bonjour", nil)
	if err != nil {
		t.Fatalf("ProcessUtterance() error = %v", err)
	}
	if resp.Text == "" {
		t.Fatalf("empty response text")
	}
	if resp.Emotion != compose.EmotionHappy {
		t.Fatalf("Emotion = %q, want %q", resp.Emotion, compose.EmotionHappy)
	}
	stats := e.MemoryStats()
	if stats.MessageCount != 2 {
		t.Fatalf("MessageCount = %d, want 2", stats.MessageCount)
	}
	if stats.IntentCounts[intent.NameGreeting] != 1 {
		t.Fatalf("IntentCounts = %v, want one greeting", stats.IntentCounts)
	}
}

func TestNewRejectsInvalidProfile(t *testing.T) {
	_, err := New(context.Background(), Options{
		PersonalityID: "broken",
		Personalities: map[string]personality.Profile{
			"broken": {ID: "broken", EmotionalTendency: "volatile"},
		},
		Logger: zerolog.Nop(),
	})
	var perr *ProfileError
	if !errors.As(err, &perr) {
		t.Fatalf("New() error = %v, want ProfileError", err)
	}
}

func TestProcessUtteranceRejectsConcurrentTurn(t *testing.T) {
	e := newTestEngine(t)
	e.processing.Store(true)
	if _, err := e.ProcessUtterance("hello", nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("ProcessUtterance() error = %v, want ErrBusy", err)
	}
}

func TestProfileErrorResetsProcessingFlag(t *testing.T) {
	e := newTestEngine(t)
	e.persona.EmotionalTendency = "volatile"

	_, err := e.ProcessUtterance("hello", nil)
	var perr *ProfileError
	if !errors.As(err, &perr) {
		t.Fatalf("ProcessUtterance() error = %v, want ProfileError", err)
	}
	// The conversation must not be left stuck behind the busy flag.
	if e.processing.Load() {
		t.Fatalf("processing flag still set after typed error")
	}
	if _, err := e.ProcessUtterance("hello", nil); errors.Is(err, ErrBusy) {
		t.Fatalf("second turn blocked by busy flag")
	}
}

func TestPredictedResponseServed(t *testing.T) {
	e := newTestEngine(t)

	e.cache.Observe(intent.NameGreeting)
	e.cache.PredictAhead(e.persona, dialogue.Summary{})
	pred, ok := e.cache.Get(intent.NameQuestion)
	if !ok {
		t.Fatalf("no prediction stored for question after greeting")
	}

	resp, err := e.ProcessUtterance("do you know when it starts", nil)
	if err != nil {
		t.Fatalf("ProcessUtterance() error = %v", err)
	}
	if resp.Text != pred.Response.Text {
		t.Fatalf("Text = %q, want predicted %q", resp.Text, pred.Response.Text)
	}
}

func TestProcessExternalInjectsText(t *testing.T) {
	e := newTestEngine(t)
	sad := &emotion.Signal{Emotion: emotion.Sad, Confidence: 0.9}

	resp, err := e.ProcessExternal("tell me about storms", "Storms form when warm air rises quickly.", sad)
	if err != nil {
		t.Fatalf("ProcessExternal() error = %v", err)
	}
	if resp.Text != "Storms form when warm air rises quickly." {
		t.Fatalf("Text = %q, want injected text", resp.Text)
	}
	if resp.Emotion != compose.EmotionListening {
		t.Fatalf("Emotion = %q, want %q", resp.Emotion, compose.EmotionListening)
	}
	if e.MemoryStats().MessageCount != 2 {
		t.Fatalf("MessageCount = %d, want 2", e.MemoryStats().MessageCount)
	}
}

func TestEndConversationFoldsIntoSession(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.ProcessUtterance("tell me about music", nil); err != nil {
		t.Fatalf("ProcessUtterance() error = %v", err)
	}

	rec := e.EndConversation(context.Background())
	if rec.Personality != "friendly" {
		t.Fatalf("Personality = %q, want %q", rec.Personality, "friendly")
	}
	if e.sess.History.TotalConversations != 1 {
		t.Fatalf("TotalConversations = %d, want 1", e.sess.History.TotalConversations)
	}
	if e.sess.History.PersonalityUsage["friendly"] != 1 {
		t.Fatalf("PersonalityUsage = %v", e.sess.History.PersonalityUsage)
	}
}

func TestEndConversationRecordsExpertiseTopics(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.ProcessUtterance("that song was nice", nil); err != nil {
		t.Fatalf("ProcessUtterance() error = %v", err)
	}
	if _, err := e.ProcessUtterance("explain it please", nil); err != nil {
		t.Fatalf("ProcessUtterance() error = %v", err)
	}
	if _, err := e.ProcessUtterance("I went on a trip", nil); err != nil {
		t.Fatalf("ProcessUtterance() error = %v", err)
	}

	e.EndConversation(context.Background())
	topics := e.sess.History.CommonTopics
	if !containsTopic(topics, "travel") || !containsTopic(topics, "music") {
		t.Fatalf("CommonTopics = %v, want travel and the expertise topic music", topics)
	}
}

func containsTopic(topics []string, want string) bool {
	for _, topic := range topics {
		if topic == want {
			return true
		}
	}
	return false
}

func TestTurnRecordsPreferredStyle(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.ProcessUtterance("hello there", nil); err != nil {
		t.Fatalf("ProcessUtterance() error = %v", err)
	}
	if got := e.ExportMemory().PreferredStyle; got != "energetic" {
		t.Fatalf("PreferredStyle = %q, want %q", got, "energetic")
	}
}

func TestStreamDeliversThroughEngine(t *testing.T) {
	e := newTestEngine(t)
	e.chunkWords = 2

	var chunks []stream.Chunk
	e.Stream(compose.EnhancedResponse{Text: "a b c d", Emotion: compose.EmotionNeutral}, func(c stream.Chunk) {
		chunks = append(chunks, c)
	})
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if !chunks[1].IsComplete {
		t.Fatalf("final chunk not marked complete")
	}
}
