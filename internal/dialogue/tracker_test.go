package dialogue

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kestrelhq/kestrel/internal/intent"
	"github.com/kestrelhq/kestrel/internal/personality"
)

func friendly() personality.Profile {
	return personality.Builtin()["friendly"]
}

func TestFlowKeepsLastTen(t *testing.T) {
	tr := NewTracker("en")
	for i := 1; i <= 11; i++ {
		tr.ProcessTurn(intent.Intent{Name: fmt.Sprintf("turn-%d", i), Confidence: 0.5}, "hello", friendly())
	}
	flow := tr.State().ConversationFlow
	if len(flow) != MaxFlowEntries {
		t.Fatalf("len(ConversationFlow) = %d, want %d", len(flow), MaxFlowEntries)
	}
	if flow[0] != "turn-2" || flow[len(flow)-1] != "turn-11" {
		t.Fatalf("ConversationFlow = %v, want turn-2 .. turn-11", flow)
	}
}

func TestConversationLengthOutlivesFlowCap(t *testing.T) {
	tr := NewTracker("en")
	var res TurnResult
	for i := 0; i < 25; i++ {
		res = tr.ProcessTurn(intent.Intent{Name: intent.NameSmalltalk, Confidence: 0.4}, "hello", friendly())
	}
	if got := res.ContextSummary.ConversationLength; got != 25 {
		t.Fatalf("ConversationLength after 25 turns = %d, want 25", got)
	}
	if got := len(tr.State().ConversationFlow); got != MaxFlowEntries {
		t.Fatalf("len(ConversationFlow) = %d, want %d", got, MaxFlowEntries)
	}
}

func TestFollowUpCountUncapped(t *testing.T) {
	tr := NewTracker("en")
	for i := 0; i < 12; i++ {
		tr.ProcessTurn(intent.Intent{Name: intent.NameQuestion, Confidence: 0.6}, "why though", friendly())
	}
	if got := tr.State().FollowUpCount; got != 12 {
		t.Fatalf("FollowUpCount after 12 questions = %d, want 12", got)
	}
	tr.ProcessTurn(intent.Intent{Name: intent.NameGreeting, Confidence: 0.6}, "hi", friendly())
	if got := tr.State().FollowUpCount; got != 0 {
		t.Fatalf("FollowUpCount after non-question = %d, want 0", got)
	}
}

func TestTopicResolutionOrder(t *testing.T) {
	tr := NewTracker("en")

	// Entity wins over vocabulary scan.
	tr.ProcessTurn(intent.Intent{
		Name:       intent.NameQuestion,
		Confidence: 0.6,
		Entities:   []intent.Entity{{Type: "topic", Value: "black holes"}},
	}, "tell me about black holes and music", friendly())
	if got := tr.State().CurrentTopic; got != "black holes" {
		t.Fatalf("CurrentTopic = %q, want %q", got, "black holes")
	}

	// Vocabulary scan when no entity.
	tr.ProcessTurn(intent.Intent{Name: intent.NameSmalltalk, Confidence: 0.4}, "I went to a jazz concert", friendly())
	if got := tr.State().CurrentTopic; got != "music" {
		t.Fatalf("CurrentTopic = %q, want music", got)
	}

	// Neither entity nor vocabulary: topic unchanged.
	tr.ProcessTurn(intent.Intent{Name: intent.NameSmalltalk, Confidence: 0.4}, "yeah it was great", friendly())
	if got := tr.State().CurrentTopic; got != "music" {
		t.Fatalf("CurrentTopic = %q, want music (unchanged)", got)
	}
}

func TestExpertiseUpdates(t *testing.T) {
	tr := NewTracker("en")
	tr.ProcessTurn(intent.Intent{Name: intent.NameSmalltalk, Confidence: 0.4}, "I heard a great song", friendly())

	before := tr.State().Profile.Expertise("music")
	tr.ProcessTurn(intent.Intent{Name: intent.NameExplanationRequest, Confidence: 0.6}, "explain it", friendly())
	if got := tr.State().Profile.Expertise("music"); got >= before {
		t.Fatalf("Expertise(music) after explanation_request = %v, want < %v", got, before)
	}

	before = tr.State().Profile.Expertise("music")
	tr.ProcessTurn(intent.Intent{Name: intent.NameOpinionRequest, Confidence: 0.6}, "what do you think", friendly())
	if got := tr.State().Profile.Expertise("music"); got <= before {
		t.Fatalf("Expertise(music) after opinion_request = %v, want > %v", got, before)
	}

	// Stays in bounds under any sequence.
	for i := 0; i < 30; i++ {
		tr.ProcessTurn(intent.Intent{Name: intent.NameOpinionRequest, Confidence: 0.6}, "thoughts?", friendly())
	}
	if got := tr.State().Profile.Expertise("music"); got > 1 {
		t.Fatalf("Expertise(music) = %v, want <= 1", got)
	}
}

func TestInterestDetection(t *testing.T) {
	tr := NewTracker("en")
	tr.ProcessTurn(intent.Intent{Name: intent.NameSmalltalk, Confidence: 0.4}, "You know, I like chess a lot", friendly())
	if !tr.State().Profile.HasInterest("chess") {
		t.Fatalf("interests = %v, want to contain chess", tr.State().Profile.Interests())
	}
}

func TestFollowUpSuggestionsBounded(t *testing.T) {
	tr := NewTracker("en")
	res := tr.ProcessTurn(intent.Intent{Name: intent.NameQuestion, Confidence: 0.6}, "what about music", friendly())
	if len(res.FollowUpSuggestions) > maxFollowUpSuggestions {
		t.Fatalf("len(FollowUpSuggestions) = %d, want <= %d", len(res.FollowUpSuggestions), maxFollowUpSuggestions)
	}
	found := false
	for _, s := range res.FollowUpSuggestions {
		if strings.Contains(s, "music") {
			found = true
		}
	}
	if !found {
		t.Fatalf("FollowUpSuggestions = %v, want a topic-aware entry", res.FollowUpSuggestions)
	}
}

func TestUnmappedIntentFallsBackToGenericPrompts(t *testing.T) {
	tr := NewTracker("en")
	res := tr.ProcessTurn(intent.Intent{Name: "weirdness", Confidence: 0.4}, "blah", friendly())
	if len(res.FollowUpSuggestions) < 2 {
		t.Fatalf("len(FollowUpSuggestions) = %d, want >= 2 generic prompts", len(res.FollowUpSuggestions))
	}
}

func TestDraftExpertiseBranches(t *testing.T) {
	tr := NewTracker("en")
	tr.ProcessTurn(intent.Intent{Name: intent.NameSmalltalk, Confidence: 0.4}, "that song was nice", friendly())

	tr.State().Profile.SetExpertise("music", 0.1)
	low := tr.ProcessTurn(intent.Intent{Name: intent.NameQuestion, Confidence: 0.6}, "how does that happen", friendly())

	tr.State().Profile.SetExpertise("music", 0.9)
	high := tr.ProcessTurn(intent.Intent{Name: intent.NameQuestion, Confidence: 0.6}, "how does that happen", friendly())

	if got := tr.State().CurrentTopic; got != "music" {
		t.Fatalf("CurrentTopic = %q, want music (unchanged)", got)
	}

	if low.DraftText == high.DraftText {
		t.Fatalf("draft texts identical across expertise branches: %q", low.DraftText)
	}
}

func TestFrenchTemplateAndGenderAgreement(t *testing.T) {
	tr := NewTracker("fr")
	res := tr.ProcessTurn(intent.Intent{Name: intent.NameGreeting, Confidence: 0.8}, "bonjour", friendly())
	if !strings.Contains(res.DraftText, "ravie") {
		t.Fatalf("DraftText = %q, want feminine agreement (ravie)", res.DraftText)
	}
}

func TestFallbackUtteranceLanguage(t *testing.T) {
	if got := FallbackUtterance("fr-FR"); !strings.Contains(got, "Pardon") {
		t.Fatalf("FallbackUtterance(fr-FR) = %q, want French", got)
	}
	if got := FallbackUtterance("de"); !strings.Contains(got, "Sorry") {
		t.Fatalf("FallbackUtterance(de) = %q, want English fallback", got)
	}
}
