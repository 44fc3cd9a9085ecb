// Package stream splits a composed response into ordered word-group chunks
// and emits them at a paced cadence. Delivery is cooperatively cancellable:
// starting a new stream or calling Stop silently ends the previous one, and
// chunks already emitted stand.
package stream

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhq/kestrel/internal/compose"
	"github.com/kestrelhq/kestrel/internal/observability"
)

const (
	// DefaultChunkWords is the word-group size when the caller passes 0.
	DefaultChunkWords = 30

	DefaultDelayMin = 30 * time.Millisecond
	DefaultDelayMax = 80 * time.Millisecond
)

// Chunk is one ordered fragment of a streamed response. Emotion and
// follow-up questions ride only on the final chunk.
type Chunk struct {
	StreamID          string          `json:"stream_id"`
	Seq               int             `json:"seq"`
	Text              string          `json:"text"`
	IsComplete        bool            `json:"is_complete"`
	Emotion           compose.Emotion `json:"emotion,omitempty"`
	FollowUpQuestions []string        `json:"follow_up_questions,omitempty"`
}

// Delivery paces chunk emission for one conversation. Only one stream is
// "current" at a time; a stream whose id is no longer current aborts before
// its next emit with no error.
type Delivery struct {
	delayMin time.Duration
	delayMax time.Duration
	sleep    func(time.Duration)
	metrics  *observability.Metrics

	mu      sync.Mutex
	rng     *rand.Rand
	current string
}

func NewDelivery(delayMin, delayMax time.Duration, rng *rand.Rand, sleep func(time.Duration), metrics *observability.Metrics) *Delivery {
	if delayMin <= 0 {
		delayMin = DefaultDelayMin
	}
	if delayMax < delayMin {
		delayMax = delayMin
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Delivery{
		delayMin: delayMin,
		delayMax: delayMax,
		sleep:    sleep,
		metrics:  metrics,
		rng:      rng,
	}
}

// Stream emits the response as paced chunks through onChunk and blocks
// until the final chunk or cancellation. It returns the stream id it ran
// under. Starting it implicitly cancels any prior stream on this Delivery.
func (d *Delivery) Stream(resp compose.EnhancedResponse, onChunk func(Chunk), chunkWords int) string {
	if chunkWords <= 0 {
		chunkWords = DefaultChunkWords
	}
	id := uuid.NewString()

	d.mu.Lock()
	d.current = id
	d.mu.Unlock()

	d.metrics.StreamStarted()
	defer d.metrics.StreamFinished()

	groups := splitWords(resp.Text, chunkWords)
	for i, text := range groups {
		if !d.isCurrent(id) {
			d.metrics.CountStreamCancellation()
			return id
		}
		chunk := Chunk{
			StreamID: id,
			Seq:      i,
			Text:     text,
		}
		if i == len(groups)-1 {
			chunk.IsComplete = true
			chunk.Emotion = resp.Emotion
			chunk.FollowUpQuestions = resp.FollowUpQuestions
		}
		onChunk(chunk)
		d.metrics.CountStreamChunk()

		if i < len(groups)-1 {
			d.sleep(d.jitter())
		}
	}
	return id
}

// Stop cancels the current stream, if any. Cancellation is not an error;
// no further chunks are emitted for that stream id.
func (d *Delivery) Stop() {
	d.mu.Lock()
	d.current = ""
	d.mu.Unlock()
}

func (d *Delivery) isCurrent(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current == id
}

func (d *Delivery) jitter() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	span := d.delayMax - d.delayMin
	if span <= 0 {
		return d.delayMin
	}
	return d.delayMin + time.Duration(d.rng.Int63n(int64(span)+1))
}

// splitWords groups the text into runs of up to n words. Empty text still
// yields one (empty, final) chunk so callers always see completion.
func splitWords(text string, n int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var out []string
	for start := 0; start < len(words); start += n {
		end := start + n
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
	}
	return out
}
