// Package profile holds the per-conversation user profile: declared
// interests, a preferred response style, and per-topic expertise estimates.
package profile

import "sort"

const (
	MaxInterests = 20

	// ExpertiseStep is how far a single explanation or opinion turn moves
	// a topic's expertise estimate.
	ExpertiseStep = 0.1
)

// Profile is owned by one conversation at a time; it is not safe for
// concurrent mutation and does not need to be.
type Profile struct {
	interests      []string
	preferredStyle string
	expertise      map[string]float64
}

func New() *Profile {
	return &Profile{expertise: make(map[string]float64)}
}

// AddInterest records an interest once, keeping at most MaxInterests.
func (p *Profile) AddInterest(interest string) bool {
	if interest == "" {
		return false
	}
	for _, existing := range p.interests {
		if existing == interest {
			return false
		}
	}
	if len(p.interests) >= MaxInterests {
		return false
	}
	p.interests = append(p.interests, interest)
	return true
}

func (p *Profile) HasInterest(interest string) bool {
	for _, existing := range p.interests {
		if existing == interest {
			return true
		}
	}
	return false
}

// Interests returns the recorded interests in insertion order.
func (p *Profile) Interests() []string {
	out := make([]string, len(p.interests))
	copy(out, p.interests)
	return out
}

// TopInterests returns up to n interests, earliest declared first.
func (p *Profile) TopInterests(n int) []string {
	if n <= 0 || n > len(p.interests) {
		n = len(p.interests)
	}
	out := make([]string, n)
	copy(out, p.interests[:n])
	return out
}

func (p *Profile) PreferredStyle() string { return p.preferredStyle }

func (p *Profile) SetPreferredStyle(style string) { p.preferredStyle = style }

// Expertise reports the [0,1] expertise estimate for a topic; unseen topics
// report 0.5, the neutral midpoint.
func (p *Profile) Expertise(topic string) float64 {
	if v, ok := p.expertise[topic]; ok {
		return v
	}
	return 0.5
}

// SetExpertise clamps the value into [0,1] before storing.
func (p *Profile) SetExpertise(topic string, value float64) {
	if topic == "" {
		return
	}
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	p.expertise[topic] = value
}

// AdjustExpertise shifts a topic's estimate by delta, clamped into [0,1].
func (p *Profile) AdjustExpertise(topic string, delta float64) {
	if topic == "" {
		return
	}
	p.SetExpertise(topic, p.Expertise(topic)+delta)
}

// ExpertiseMap returns a copy of all tracked topic estimates.
func (p *Profile) ExpertiseMap() map[string]float64 {
	out := make(map[string]float64, len(p.expertise))
	for k, v := range p.expertise {
		out[k] = v
	}
	return out
}

// ExpertiseTopics returns the tracked topics in sorted order.
func (p *Profile) ExpertiseTopics() []string {
	out := make([]string, 0, len(p.expertise))
	for k := range p.expertise {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
