// Package content loads optional YAML packs that extend the built-in
// intent definitions and personality profiles.
package content

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kestrelhq/kestrel/internal/intent"
	"github.com/kestrelhq/kestrel/internal/personality"
)

// Pack is the on-disk extension format. Entries add to the built-ins;
// personalities with a known ID override the built-in of the same name.
type Pack struct {
	Intents       []intent.Definition   `yaml:"intents"`
	Personalities []personality.Profile `yaml:"personalities"`
}

// Load reads and validates a pack file. An empty path yields an empty
// pack so callers don't need to special-case the unconfigured default.
func Load(path string) (*Pack, error) {
	if path == "" {
		return &Pack{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content pack: %w", err)
	}
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse content pack: %w", err)
	}
	if err := pack.validate(); err != nil {
		return nil, err
	}
	return &pack, nil
}

func (p *Pack) validate() error {
	for i, def := range p.Intents {
		if def.Name == "" {
			return fmt.Errorf("content pack: intent %d has no name", i)
		}
		if len(def.Keywords) == 0 && len(def.Phrases) == 0 {
			return fmt.Errorf("content pack: intent %q has no keywords or phrases", def.Name)
		}
		if def.Priority < 0 || def.Priority > 10 {
			return fmt.Errorf("content pack: intent %q priority %d out of range", def.Name, def.Priority)
		}
	}
	for i := range p.Personalities {
		if err := p.Personalities[i].Validate(); err != nil {
			return fmt.Errorf("content pack: personality %d: %w", i, err)
		}
	}
	return nil
}

// Classifier builds an intent classifier from the built-in definitions
// plus the pack's additions, in that registration order.
func (p *Pack) Classifier() *intent.Classifier {
	c := intent.NewDefaultClassifier()
	for _, def := range p.Intents {
		c.Register(def)
	}
	return c
}

// MergedPersonalities merges the built-in personas with the pack's,
// replacing any built-in whose ID the pack redefines.
func (p *Pack) MergedPersonalities() map[string]personality.Profile {
	merged := personality.Builtin()
	for _, profile := range p.Personalities {
		merged[profile.ID] = profile
	}
	return merged
}
