// Package emotion models user-emotion samples supplied by an external
// detector and derives coarse engagement/trend signals from a rolling
// window of recent samples.
package emotion

import (
	"sync"
	"time"
)

// Emotions reported by the external detector.
const (
	Neutral  = "neutral"
	Happy    = "happy"
	Sad      = "sad"
	Stressed = "stressed"
	Excited  = "excited"
	Angry    = "angry"
)

// Engagement is a coarse estimate of user interest.
type Engagement string

const (
	EngagementLow    Engagement = "low"
	EngagementMedium Engagement = "medium"
	EngagementHigh   Engagement = "high"
)

// Signal is one emotion sample from the external detector.
type Signal struct {
	Emotion    string    `json:"emotion"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// Window keeps the most recent emotion samples in a fixed-size ring.
type Window struct {
	mu      sync.RWMutex
	max     int
	samples []Signal
	next    int
	filled  bool
}

func NewWindow(maxSamples int) *Window {
	if maxSamples <= 0 {
		maxSamples = 16
	}
	return &Window{
		max:     maxSamples,
		samples: make([]Signal, maxSamples),
	}
}

func (w *Window) Observe(s Signal) {
	if s.Emotion == "" {
		return
	}
	if s.At.IsZero() {
		s.At = time.Now().UTC()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples[w.next] = s
	w.next++
	if w.next >= len(w.samples) {
		w.next = 0
		w.filled = true
	}
}

// Recent returns up to n samples, oldest first.
func (w *Window) Recent(n int) []Signal {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ordered := w.orderedLocked()
	if n <= 0 || n > len(ordered) {
		n = len(ordered)
	}
	return ordered[len(ordered)-n:]
}

// Dominant reports the most frequent emotion in the window.
func (w *Window) Dominant() (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	counts := make(map[string]int)
	for _, s := range w.orderedLocked() {
		counts[s.Emotion]++
	}
	best, bestCount := "", 0
	for emo, count := range counts {
		if count > bestCount {
			best, bestCount = emo, count
		}
	}
	return best, best != ""
}

// Engagement derives a coarse engagement level from the share of
// high-energy emotions in the window. An empty window reads as medium.
func (w *Window) Engagement() Engagement {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ordered := w.orderedLocked()
	if len(ordered) == 0 {
		return EngagementMedium
	}
	engaged := 0
	for _, s := range ordered {
		switch s.Emotion {
		case Happy, Excited:
			engaged++
		}
	}
	ratio := float64(engaged) / float64(len(ordered))
	switch {
	case ratio >= 0.6:
		return EngagementHigh
	case ratio <= 0.2:
		return EngagementLow
	default:
		return EngagementMedium
	}
}

// Trend compares the first and second half of the window and reports
// whether the user's mood is improving, declining, or steady.
func (w *Window) Trend() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ordered := w.orderedLocked()
	if len(ordered) < 4 {
		return "steady"
	}
	half := len(ordered) / 2
	early := moodScore(ordered[:half])
	late := moodScore(ordered[half:])
	switch {
	case late > early+0.25:
		return "improving"
	case late < early-0.25:
		return "declining"
	default:
		return "steady"
	}
}

func (w *Window) orderedLocked() []Signal {
	if !w.filled {
		out := make([]Signal, w.next)
		copy(out, w.samples[:w.next])
		return out
	}
	out := make([]Signal, 0, len(w.samples))
	out = append(out, w.samples[w.next:]...)
	out = append(out, w.samples[:w.next]...)
	return out
}

func moodScore(samples []Signal) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		switch s.Emotion {
		case Happy, Excited:
			sum += 1
		case Sad, Stressed, Angry:
			sum -= 1
		}
	}
	return sum / float64(len(samples))
}
