package dialogue

import "github.com/kestrelhq/kestrel/internal/intent"

// followUpTable maps the turn's intent to deterministic follow-up prompts.
var followUpTable = map[string][]string{
	intent.NameGreeting: {
		"How has your day been so far?",
		"Anything on your mind?",
	},
	intent.NameQuestion: {
		"Does that answer it, or should I go deeper?",
		"Want a concrete example?",
	},
	intent.NameExplanationRequest: {
		"Should I explain that a different way?",
		"Want me to start from the basics?",
	},
	intent.NameOpinionRequest: {
		"What's your own take on it?",
		"Do you see it differently?",
	},
	intent.NameHelpRequest: {
		"What have you tried so far?",
		"Would it help to break this into steps?",
	},
	intent.NameGratitude: {
		"Is there anything else I can do?",
		"Happy to keep going if you are.",
	},
	intent.NameSmalltalk: {
		"What are you up to today?",
		"Anything fun planned?",
	},
}

var genericFollowUps = []string{
	"Tell me more about that.",
	"What else is on your mind?",
}

const topicFollowUp = "Want to explore {topic} further?"
