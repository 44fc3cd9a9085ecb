package style

import (
	"testing"
	"time"

	"github.com/kestrelhq/kestrel/internal/emotion"
	"github.com/kestrelhq/kestrel/internal/personality"
)

func fixedClock(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 3, 14, hour, 0, 0, 0, time.UTC)
	}
}

func TestSadEmotionOverridesBase(t *testing.T) {
	a := NewAdapter(fixedClock(14))
	persona := personality.Builtin()["energetic"]
	got := a.Adapt(Context{ConversationLength: 2, Engagement: emotion.EngagementMedium},
		persona, &emotion.Signal{Emotion: emotion.Sad, Confidence: 0.9})
	if got.Tone != ToneEmpathetic {
		t.Fatalf("Tone = %q, want %q", got.Tone, ToneEmpathetic)
	}
	if got.EmotionalLevel != LevelHigh {
		t.Fatalf("EmotionalLevel = %q, want %q", got.EmotionalLevel, LevelHigh)
	}
}

func TestStressedEmotion(t *testing.T) {
	a := NewAdapter(fixedClock(14))
	got := a.Adapt(Context{Engagement: emotion.EngagementMedium},
		personality.Builtin()["friendly"], &emotion.Signal{Emotion: emotion.Stressed})
	if got.Tone != ToneCalm || got.EmotionalLevel != LevelLow || got.ResponseLength != LengthBrief {
		t.Fatalf("Adapt(stressed) = %+v, want calm/brief/low", got)
	}
}

func TestLongConversationGoesBrief(t *testing.T) {
	a := NewAdapter(fixedClock(14))
	got := a.Adapt(Context{ConversationLength: 11, Engagement: emotion.EngagementMedium},
		personality.Builtin()["friendly"], nil)
	if got.ResponseLength != LengthBrief {
		t.Fatalf("ResponseLength = %q, want %q", got.ResponseLength, LengthBrief)
	}
	if got.Tone != ToneFormal {
		t.Fatalf("Tone = %q, want %q for non-low engagement", got.Tone, ToneFormal)
	}
}

func TestNightRule(t *testing.T) {
	a := NewAdapter(fixedClock(23))
	got := a.Adapt(Context{Engagement: emotion.EngagementMedium},
		personality.Builtin()["energetic"], nil)
	if got.Tone != ToneCalm || got.ResponseLength != LengthBrief {
		t.Fatalf("Adapt(night) = %+v, want calm and brief", got)
	}
}

func TestMorningRule(t *testing.T) {
	a := NewAdapter(fixedClock(8))
	got := a.Adapt(Context{Engagement: emotion.EngagementMedium},
		personality.Builtin()["calm"], nil)
	if got.Tone != ToneEnergetic {
		t.Fatalf("Tone = %q, want %q in the morning", got.Tone, ToneEnergetic)
	}
}

func TestEngagementRuleWinsLast(t *testing.T) {
	a := NewAdapter(fixedClock(8))
	got := a.Adapt(Context{Engagement: emotion.EngagementHigh},
		personality.Builtin()["friendly"], &emotion.Signal{Emotion: emotion.Happy})
	if got.Tone != ToneAnalytical || got.ResponseLength != LengthDetailed || got.EmotionalLevel != LevelMedium {
		t.Fatalf("Adapt(high engagement) = %+v, want analytical/detailed/medium", got)
	}

	got = a.Adapt(Context{Engagement: emotion.EngagementLow},
		personality.Builtin()["professional"], nil)
	if got.Tone != ToneCasual || got.ResponseLength != LengthBrief || got.EmotionalLevel != LevelHigh {
		t.Fatalf("Adapt(low engagement) = %+v, want casual/brief/high", got)
	}
}
