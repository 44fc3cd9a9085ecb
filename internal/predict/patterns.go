package predict

import "github.com/kestrelhq/kestrel/internal/intent"

// defaultPatterns is the built-in table of intent sequences and what tends
// to follow them in avatar conversations.
func defaultPatterns() []Pattern {
	return []Pattern{
		{
			IntentSequence:      []string{intent.NameGreeting},
			NextLikelyIntents:   []string{intent.NameQuestion, intent.NameSmalltalk},
			FollowUpProbability: 0.7,
		},
		{
			IntentSequence:      []string{intent.NameQuestion, intent.NameQuestion},
			NextLikelyIntents:   []string{intent.NameQuestion, intent.NameExplanationRequest},
			FollowUpProbability: 0.8,
		},
		{
			IntentSequence:      []string{intent.NameExplanationRequest},
			NextLikelyIntents:   []string{intent.NameQuestion, intent.NameGratitude},
			FollowUpProbability: 0.6,
		},
		{
			IntentSequence:      []string{intent.NameOpinionRequest},
			NextLikelyIntents:   []string{intent.NameOpinionRequest, intent.NameQuestion},
			FollowUpProbability: 0.5,
		},
		{
			IntentSequence:      []string{intent.NameSmalltalk, intent.NameSmalltalk},
			NextLikelyIntents:   []string{intent.NameQuestion},
			FollowUpProbability: 0.4,
		},
		{
			IntentSequence:      []string{intent.NameGratitude},
			NextLikelyIntents:   []string{intent.NameFarewell},
			FollowUpProbability: 0.6,
		},
	}
}
