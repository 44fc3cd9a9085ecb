package intent

// BuiltinDefinitions is the compiled-in intent pack. Content packs loaded at
// startup are registered on top of these; the registry is append-only so the
// builtin set always keeps tie priority.
func BuiltinDefinitions() []Definition {
	return []Definition{
		{
			Name:     NameGreeting,
			Keywords: []string{"hello", "hi", "hey", "howdy", "greetings", "bonjour", "salut", "ciao"},
			Phrases:  []string{"good morning", "good afternoon", "good evening", "nice to meet you"},
			Priority: 4,
		},
		{
			Name:     NameFarewell,
			Keywords: []string{"bye", "goodbye", "farewell"},
			Phrases:  []string{"see you", "good night", "talk to you later", "au revoir"},
			Priority: 4,
		},
		{
			Name:        NameExplanationRequest,
			Keywords:    []string{"explain", "meaning", "clarify", "definition"},
			Phrases:     []string{"what is", "what are", "what does", "explain to me", "help me understand"},
			EntityTypes: []string{"topic"},
			Priority:    2,
		},
		{
			Name:        NameOpinionRequest,
			Keywords:    []string{"think", "opinion", "believe", "view"},
			Phrases:     []string{"what do you think", "your opinion", "how do you feel", "do you like"},
			EntityTypes: []string{"topic"},
			Priority:    2,
		},
		{
			Name:     NameHelpRequest,
			Keywords: []string{"help", "assist", "stuck", "support"},
			Phrases:  []string{"can you help", "i need help", "help me"},
			Priority: 1,
		},
		{
			Name:        NameQuestion,
			Keywords:    []string{"what", "when", "where", "who", "which", "how", "why"},
			Phrases:     []string{"can you tell", "do you know", "i wonder"},
			EntityTypes: []string{"topic"},
			Priority:    1,
		},
		{
			Name:     NameGratitude,
			Keywords: []string{"thanks", "thank", "merci", "appreciated"},
			Phrases:  []string{"thank you"},
			Priority: 2,
		},
		{
			Name:     NameSmalltalk,
			Keywords: []string{"weather", "weekend", "coffee", "lunch", "nice", "fun"},
			Phrases:  []string{"how is it going", "how are you"},
			Priority: 0,
		},
	}
}

// NewDefaultClassifier builds a classifier preloaded with the builtin pack.
func NewDefaultClassifier() *Classifier {
	return NewClassifier(BuiltinDefinitions()...)
}
