package intent

// Entity is a typed span of text extracted from an utterance.
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Span  [2]int `json:"span"`
}

// Intent is the classified purpose of a single utterance.
type Intent struct {
	Name       string   `json:"name"`
	Confidence float64  `json:"confidence"`
	Entities   []Entity `json:"entities"`
}

// Definition describes one registrable intent for the classifier.
type Definition struct {
	Name        string   `yaml:"name"`
	Keywords    []string `yaml:"keywords"`
	Phrases     []string `yaml:"phrases"`
	EntityTypes []string `yaml:"entity_types"`
	Priority    int      `yaml:"priority"`
}

const (
	NameUnknown            = "unknown"
	NameGreeting           = "greeting"
	NameFarewell           = "farewell"
	NameQuestion           = "question"
	NameExplanationRequest = "explanation_request"
	NameOpinionRequest     = "opinion_request"
	NameHelpRequest        = "help_request"
	NameGratitude          = "gratitude"
	NameSmalltalk          = "smalltalk"
)

// TopicEntity reports the first entity of type "topic", if any.
func (in Intent) TopicEntity() (Entity, bool) {
	for _, e := range in.Entities {
		if e.Type == "topic" {
			return e, true
		}
	}
	return Entity{}, false
}
