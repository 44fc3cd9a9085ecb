// Package predict observes the conversation's intent sequence and
// opportunistically pre-synthesizes likely next responses. It is a pure
// optimization: every failure is swallowed and a cold cache only means a
// normal composer run.
package predict

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kestrelhq/kestrel/internal/compose"
	"github.com/kestrelhq/kestrel/internal/dialogue"
	"github.com/kestrelhq/kestrel/internal/observability"
	"github.com/kestrelhq/kestrel/internal/personality"
	"github.com/kestrelhq/kestrel/internal/style"
)

const (
	// WindowSize is how many recent intent names the cache matches
	// patterns against.
	WindowSize = 5

	// DefaultTTL is how long a synthesized response stays servable.
	DefaultTTL = 30 * time.Second
)

// PredictedResponse wraps a pre-synthesized response. It may be served any
// number of times until ExpiresAt passes; it is never consumed by a read.
type PredictedResponse struct {
	ID                string                   `json:"id"`
	AnticipatedIntent string                   `json:"anticipated_intent"`
	Response          compose.EnhancedResponse `json:"response"`
	Confidence        float64                  `json:"confidence"`
	ExpiresAt         time.Time                `json:"expires_at"`
}

// Pattern describes one observed intent sequence and what tends to follow.
type Pattern struct {
	IntentSequence      []string
	NextLikelyIntents   []string
	FollowUpProbability float64
}

// Cache holds the rolling intent window and the stored predictions.
type Cache struct {
	mu       sync.Mutex
	window   []string
	entries  []PredictedResponse
	patterns []Pattern
	ttl      time.Duration
	now      func() time.Time
	lang     string
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

func NewCache(ttl time.Duration, now func() time.Time, lang string, metrics *observability.Metrics, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		patterns: defaultPatterns(),
		ttl:      ttl,
		now:      now,
		lang:     lang,
		metrics:  metrics,
		logger:   logger,
	}
}

// Observe appends an intent name to the rolling window.
func (c *Cache) Observe(intentName string) {
	if intentName == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.window = append(c.window, intentName)
	if len(c.window) > WindowSize {
		c.window = c.window[len(c.window)-WindowSize:]
	}
}

// Window returns a copy of the rolling intent window, oldest first.
func (c *Cache) Window() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.window))
	copy(out, c.window)
	return out
}

// PredictAhead matches the pattern table against the window's suffix and
// synthesizes a template-only response for each likely next intent. Expired
// entries are swept here. Panics are recovered and logged; the caller's
// turn is never affected.
func (c *Cache) PredictAhead(persona personality.Profile, summary dialogue.Summary) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn().Interface("panic", r).Msg("predictive synthesis failed")
		}
	}()

	now := c.now()

	c.mu.Lock()
	window := make([]string, len(c.window))
	copy(window, c.window)
	c.sweepLocked(now)
	c.mu.Unlock()

	var fresh []PredictedResponse
	for _, p := range c.patterns {
		if !suffixMatches(window, p.IntentSequence) {
			continue
		}
		for _, next := range p.NextLikelyIntents {
			fresh = append(fresh, PredictedResponse{
				ID:                uuid.NewString(),
				AnticipatedIntent: next,
				Response:          c.synthesize(next, persona, summary),
				Confidence:        p.FollowUpProbability,
				ExpiresAt:         now.Add(c.ttl),
			})
		}
	}
	if len(fresh) == 0 {
		return
	}

	c.mu.Lock()
	c.entries = append(c.entries, fresh...)
	c.mu.Unlock()

	for range fresh {
		c.metrics.CountPredictionStored()
	}
	c.logger.Debug().Int("count", len(fresh)).Msg("stored predicted responses")
}

// Get returns the first stored, non-expired prediction for the intent.
// Entries stay servable until TTL expiry; a hit does not remove them.
func (c *Cache) Get(intentName string) (PredictedResponse, bool) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.AnticipatedIntent != intentName {
			continue
		}
		if now.After(e.ExpiresAt) {
			continue
		}
		return e, true
	}
	return PredictedResponse{}, false
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) sweepLocked(now time.Time) {
	kept := c.entries[:0]
	for _, e := range c.entries {
		if now.After(e.ExpiresAt) {
			continue
		}
		kept = append(kept, e)
	}
	c.entries = kept
}

// synthesize builds a template-only response: no marker phrases, no
// interest asides, no tone rewriting. Just the draft bank plus the default
// emotion mapping and the personality's base tone.
func (c *Cache) synthesize(intentName string, persona personality.Profile, summary dialogue.Summary) compose.EnhancedResponse {
	base := style.Base(persona.EmotionalTendency)
	return compose.EnhancedResponse{
		Text:    dialogue.Draft(c.lang, persona, intentName, summary.Topic),
		Emotion: compose.DefaultEmotion(intentName, 1),
		Tone:    base.Tone,
		PersonalityMarkers: []string{
			"persona:" + persona.ID,
			"tendency:" + persona.EmotionalTendency,
		},
	}
}

func suffixMatches(window, seq []string) bool {
	if len(seq) == 0 || len(seq) > len(window) {
		return false
	}
	offset := len(window) - len(seq)
	for i, name := range seq {
		if window[offset+i] != name {
			return false
		}
	}
	return true
}
