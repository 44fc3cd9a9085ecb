package intent

import (
	"strings"
	"sync"
)

const (
	keywordWeight    = 0.3
	phraseWeight     = 0.4
	exactTokenWeight = 0.1
	unknownScore     = 0.1
)

// topicConnectors introduce a topic entity; the tokens right after them
// become the entity value.
var topicConnectors = map[string]bool{
	"about":      true,
	"regarding":  true,
	"of":         true,
	"concerning": true,
}

// Classifier scores registered intent definitions against an utterance.
// Classification is total: input that matches nothing degrades to a
// low-confidence unknown intent rather than an error.
type Classifier struct {
	mu   sync.RWMutex
	defs []Definition
}

func NewClassifier(defs ...Definition) *Classifier {
	c := &Classifier{}
	for _, d := range defs {
		c.Register(d)
	}
	return c
}

// Register appends a definition to the registry. The registry is
// append-only; earlier registrations win score ties.
func (c *Classifier) Register(def Definition) {
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs = append(c.defs, def)
}

func (c *Classifier) Definitions() []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Classify maps an utterance to its best-scoring intent. It never fails.
func (c *Classifier) Classify(utterance string) Intent {
	normalized := strings.ToLower(strings.TrimSpace(utterance))
	tokens := strings.Fields(normalized)

	c.mu.RLock()
	defs := c.defs
	var (
		best      Definition
		bestScore float64
		found     bool
	)
	for _, def := range defs {
		score := scoreDefinition(def, normalized, tokens)
		if score <= 0 {
			continue
		}
		if !found || score > bestScore {
			best = def
			bestScore = score
			found = true
		}
	}
	c.mu.RUnlock()

	if !found {
		return Intent{Name: NameUnknown, Confidence: unknownScore, Entities: nil}
	}

	out := Intent{Name: best.Name, Confidence: bestScore}
	for _, entityType := range best.EntityTypes {
		if entityType == "topic" {
			out.Entities = append(out.Entities, extractTopicEntities(normalized, tokens)...)
		}
	}
	return out
}

func scoreDefinition(def Definition, normalized string, tokens []string) float64 {
	score := 0.0
	for _, kw := range def.Keywords {
		if kw != "" && strings.Contains(normalized, kw) {
			score += keywordWeight
		}
	}
	for _, ph := range def.Phrases {
		if ph != "" && strings.Contains(normalized, ph) {
			score += phraseWeight
		}
	}
	for _, tok := range tokens {
		if tokenEqualsAny(tok, def.Keywords) || tokenEqualsAny(tok, def.Phrases) {
			score += exactTokenWeight
		}
	}
	if score <= 0 {
		return 0
	}
	score *= float64(def.Priority)*0.1 + 0.9
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func tokenEqualsAny(token string, candidates []string) bool {
	for _, c := range candidates {
		if token == c {
			return true
		}
	}
	return false
}

// extractTopicEntities finds connector words and takes the 1-3 tokens that
// follow each as a topic value.
func extractTopicEntities(normalized string, tokens []string) []Entity {
	var out []Entity
	for i, tok := range tokens {
		if !topicConnectors[trimTokenPunct(tok)] {
			continue
		}
		end := i + 1 + 3
		if end > len(tokens) {
			end = len(tokens)
		}
		var parts []string
		for _, t := range tokens[i+1 : end] {
			t = trimTokenPunct(t)
			if t == "" {
				break
			}
			parts = append(parts, t)
		}
		if len(parts) == 0 {
			continue
		}
		value := strings.Join(parts, " ")
		start := strings.Index(normalized, parts[0])
		if start < 0 {
			start = 0
		}
		out = append(out, Entity{
			Type:  "topic",
			Value: value,
			Span:  [2]int{start, start + len(value)},
		})
	}
	return out
}

func trimTokenPunct(tok string) string {
	return strings.Trim(tok, ".,!?;:'\"()")
}
