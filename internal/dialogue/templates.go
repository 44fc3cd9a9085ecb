package dialogue

import (
	"strings"

	"github.com/kestrelhq/kestrel/internal/intent"
	"github.com/kestrelhq/kestrel/internal/personality"
)

// turnTemplate carries the expertise branches for one intent. Simple is the
// low-expertise phrasing, Detailed the high-expertise one; Neutral is the
// default and the fallback when a branch is empty.
type turnTemplate struct {
	Neutral  string
	Simple   string
	Detailed string
}

// Placeholders expanded by expandTemplate:
//
//	{topic}  current conversation topic
//	{e}      feminine agreement suffix in French ("" or "e")
var templateBanks = map[string]map[string]map[string]turnTemplate{
	"en": {
		personality.TendencyOptimistic: {
			intent.NameGreeting: {
				Neutral: "Hey, so good to see you! What's on your mind today?",
			},
			intent.NameFarewell: {
				Neutral: "It was lovely talking with you. Come back soon!",
			},
			intent.NameQuestion: {
				Neutral:  "Great question! Here's how I see {topic}.",
				Simple:   "Great question! Let me keep it simple: {topic} is easier than it looks.",
				Detailed: "Great question! Since you know {topic} well, let's dig into the details.",
			},
			intent.NameExplanationRequest: {
				Neutral:  "Happy to explain {topic}!",
				Simple:   "No worries, let's take {topic} from the very start.",
				Detailed: "Sure — you already know the basics of {topic}, so here's the deeper picture.",
			},
			intent.NameOpinionRequest: {
				Neutral: "Oh, I have thoughts on {topic}! Honestly, I find it fascinating.",
			},
			intent.NameHelpRequest: {
				Neutral: "Of course I'll help! Tell me a bit more about what's going on.",
			},
			intent.NameGratitude: {
				Neutral: "Anytime! That's what I'm here for.",
			},
			intent.NameSmalltalk: {
				Neutral: "I'm doing great, thanks for asking! How about you?",
			},
			intent.NameUnknown: {
				Neutral: "Hmm, tell me more — I want to make sure I follow you.",
			},
		},
		personality.TendencyAnalytical: {
			intent.NameGreeting: {
				Neutral: "Hello. What shall we work through today?",
			},
			intent.NameFarewell: {
				Neutral: "Goodbye. This was a productive exchange.",
			},
			intent.NameQuestion: {
				Neutral:  "Let me break down {topic} for you.",
				Simple:   "Let's start with the fundamentals of {topic}.",
				Detailed: "Given your familiarity with {topic}, I'll skip straight to the nuances.",
			},
			intent.NameExplanationRequest: {
				Neutral:  "Here is a structured explanation of {topic}.",
				Simple:   "I'll define the basic terms of {topic} first, then build up.",
				Detailed: "You know the groundwork of {topic}; consider the edge cases.",
			},
			intent.NameOpinionRequest: {
				Neutral: "Weighing the evidence on {topic}, my assessment is this.",
			},
			intent.NameHelpRequest: {
				Neutral: "Understood. Describe the problem and I'll work through it methodically.",
			},
			intent.NameGratitude: {
				Neutral: "You're welcome. Glad the analysis was useful.",
			},
			intent.NameSmalltalk: {
				Neutral: "All systems nominal. What would you like to examine?",
			},
			intent.NameUnknown: {
				Neutral: "I need a little more data. Could you rephrase that?",
			},
		},
		personality.TendencyEnergetic: {
			intent.NameGreeting: {
				Neutral: "Hey hey! Ready to dive in?",
			},
			intent.NameFarewell: {
				Neutral: "Catch you later! That was fun!",
			},
			intent.NameQuestion: {
				Neutral:  "Ooh, {topic} — let's get into it!",
				Simple:   "Let's take {topic} step by step, it'll click fast!",
				Detailed: "You clearly know {topic}, so let's go straight for the good stuff!",
			},
			intent.NameExplanationRequest: {
				Neutral: "Buckle up, here comes {topic} explained!",
			},
			intent.NameOpinionRequest: {
				Neutral: "My take on {topic}? I'm all in, and here's why!",
			},
			intent.NameHelpRequest: {
				Neutral: "On it! Tell me what's blocking you and we'll smash through it!",
			},
			intent.NameGratitude: {
				Neutral: "You got it! Anytime!",
			},
			intent.NameSmalltalk: {
				Neutral: "Feeling great! What's new with you?",
			},
			intent.NameUnknown: {
				Neutral: "Wait, say that again? I don't want to miss anything!",
			},
		},
		personality.TendencyCalm: {
			intent.NameGreeting: {
				Neutral: "Hello. It's good to have you here.",
			},
			intent.NameFarewell: {
				Neutral: "Take care. I'll be here when you return.",
			},
			intent.NameQuestion: {
				Neutral:  "Let's consider {topic} together, calmly.",
				Simple:   "We can take {topic} slowly, one piece at a time.",
				Detailed: "You know {topic} well; let's reflect on the finer points.",
			},
			intent.NameExplanationRequest: {
				Neutral: "Of course. Let me walk you gently through {topic}.",
			},
			intent.NameOpinionRequest: {
				Neutral: "I've sat with {topic} for a while. Here's how it settles for me.",
			},
			intent.NameHelpRequest: {
				Neutral: "I'm here. Describe it in your own time and we'll sort it out.",
			},
			intent.NameGratitude: {
				Neutral: "You're very welcome.",
			},
			intent.NameSmalltalk: {
				Neutral: "All is well here. How are you feeling?",
			},
			intent.NameUnknown: {
				Neutral: "Take a moment and tell me again — I'm listening.",
			},
		},
		personality.TendencyEmpathetic: {
			intent.NameGreeting: {
				Neutral: "Hi there. How are you, really?",
			},
			intent.NameFarewell: {
				Neutral: "Goodbye for now. Be kind to yourself.",
			},
			intent.NameQuestion: {
				Neutral:  "That matters to you, I can tell. Let's look at {topic}.",
				Simple:   "No rush — we'll make sense of {topic} together.",
				Detailed: "You've thought a lot about {topic}; let's honor that and go deeper.",
			},
			intent.NameExplanationRequest: {
				Neutral: "I'd be glad to explain {topic}. Stop me whenever something feels unclear.",
			},
			intent.NameOpinionRequest: {
				Neutral: "Thank you for asking what I think about {topic}. Here's my honest view.",
			},
			intent.NameHelpRequest: {
				Neutral: "I hear you, and I want to help. What's weighing on you?",
			},
			intent.NameGratitude: {
				Neutral: "It means a lot that you'd say that.",
			},
			intent.NameSmalltalk: {
				Neutral: "I'm well, and I'm glad you're here. How has your day been?",
			},
			intent.NameUnknown: {
				Neutral: "I want to understand you properly — could you say it another way?",
			},
		},
		personality.TendencyCasual: {
			intent.NameGreeting: {
				Neutral: "Hey! What's up?",
			},
			intent.NameFarewell: {
				Neutral: "Later! Good chat.",
			},
			intent.NameQuestion: {
				Neutral: "So, {topic}? Here's the deal.",
			},
			intent.NameExplanationRequest: {
				Neutral: "Sure, {topic} in plain words.",
			},
			intent.NameOpinionRequest: {
				Neutral: "Honestly? {topic} is pretty cool.",
			},
			intent.NameHelpRequest: {
				Neutral: "Sure thing. What do you need?",
			},
			intent.NameGratitude: {
				Neutral: "No problem at all.",
			},
			intent.NameSmalltalk: {
				Neutral: "Same old, same old. You?",
			},
			intent.NameUnknown: {
				Neutral: "Huh, not sure I caught that. One more time?",
			},
		},
	},
	"fr": {
		personality.TendencyOptimistic: {
			intent.NameGreeting: {
				Neutral: "Bonjour ! Je suis ravi{e} de te voir. De quoi as-tu envie de parler ?",
			},
			intent.NameFarewell: {
				Neutral: "À bientôt ! C'était un vrai plaisir.",
			},
			intent.NameGratitude: {
				Neutral: "Avec plaisir ! Je suis là pour ça.",
			},
			intent.NameUnknown: {
				Neutral: "Dis-m'en un peu plus, je veux être sûr{e} de bien te suivre.",
			},
		},
		personality.TendencyCalm: {
			intent.NameGreeting: {
				Neutral: "Bonjour. Je suis content{e} de te retrouver.",
			},
		},
	},
}

const fallbackDraft = "I'm with you. Tell me more."

// lookupTemplate finds the closest template for lang/tendency/intent,
// falling back to English, then to the optimistic bank, then to a generic
// line. It never fails.
func lookupTemplate(lang, tendency, intentName string) turnTemplate {
	for _, l := range []string{lang, "en"} {
		bank, ok := templateBanks[l]
		if !ok {
			continue
		}
		for _, tend := range []string{tendency, personality.TendencyOptimistic} {
			byIntent, ok := bank[tend]
			if !ok {
				continue
			}
			if tmpl, ok := byIntent[intentName]; ok {
				return tmpl
			}
			if tmpl, ok := byIntent[intent.NameUnknown]; ok && l == "en" {
				return tmpl
			}
		}
	}
	return turnTemplate{Neutral: fallbackDraft}
}

// expandTemplate fills topic and gender-agreement placeholders.
func expandTemplate(text, topic string, persona personality.Profile, lang string) string {
	if topic == "" {
		topic = "that"
		if lang == "fr" {
			topic = "ça"
		}
	}
	text = strings.ReplaceAll(text, "{topic}", topic)

	suffix := ""
	if lang == "fr" && persona.Gender == personality.GenderFeminine {
		suffix = "e"
	}
	return strings.ReplaceAll(text, "{e}", suffix)
}

// Draft returns the neutral template text for an intent without touching
// any tracked state. Speculative synthesis uses it to pre-build likely
// next responses.
func Draft(lang string, persona personality.Profile, intentName, topic string) string {
	l := normalizeLang(lang)
	tmpl := lookupTemplate(l, persona.EmotionalTendency, intentName)
	return expandTemplate(tmpl.Neutral, topic, persona, l)
}

// FallbackUtterance is the degraded reply used when a pipeline stage fails
// mid-turn. The turn still succeeds from the caller's point of view.
func FallbackUtterance(lang string) string {
	if normalizeLang(lang) == "fr" {
		return "Pardon, j'ai perdu le fil un instant. On reprend ?"
	}
	return "Sorry, I lost my train of thought for a moment. Where were we?"
}
