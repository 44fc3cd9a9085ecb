// Package engine wires the turn pipeline together: one Engine instance
// drives one conversation end to end.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kestrelhq/kestrel/internal/compose"
	"github.com/kestrelhq/kestrel/internal/dialogue"
	"github.com/kestrelhq/kestrel/internal/emotion"
	"github.com/kestrelhq/kestrel/internal/intent"
	"github.com/kestrelhq/kestrel/internal/memory"
	"github.com/kestrelhq/kestrel/internal/observability"
	"github.com/kestrelhq/kestrel/internal/personality"
	"github.com/kestrelhq/kestrel/internal/predict"
	"github.com/kestrelhq/kestrel/internal/session"
	"github.com/kestrelhq/kestrel/internal/stream"
	"github.com/kestrelhq/kestrel/internal/style"
	"github.com/kestrelhq/kestrel/internal/suggest"
)

// ProfileError is the only turn failure surfaced to callers: the selected
// personality profile is unusable and no sensible response can be built.
type ProfileError struct {
	ProfileID string
	Err       error
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("personality %q unusable: %v", e.ProfileID, e.Err)
}

func (e *ProfileError) Unwrap() error { return e.Err }

// ErrBusy is returned when a turn arrives while another is in flight.
var ErrBusy = fmt.Errorf("engine: turn already in progress")

// Options configures one engine instance. Zero-value fields fall back to
// sane defaults; Metrics may be nil.
type Options struct {
	SessionID     string
	PersonalityID string
	Language      string

	Personalities map[string]personality.Profile
	Classifier    *intent.Classifier

	PredictedTTL time.Duration
	ChunkWords   int
	Delivery     *stream.Delivery

	Sessions *session.Manager
	Metrics  *observability.Metrics
	Logger   zerolog.Logger
	Rand     *rand.Rand
	Now      func() time.Time

	// OnSuggestion receives proactive suggestions from the detached
	// analytics path. May be nil.
	OnSuggestion func(suggest.Suggestion)
}

// Engine owns the per-conversation state and runs the synchronous
// pipeline: classify, track, adapt, compose, memorize. The predictive
// cache and suggestion analytics run detached and never affect the
// turn's result.
type Engine struct {
	persona    personality.Profile
	lang       string
	chunkWords int

	classifier *intent.Classifier
	tracker    *dialogue.Tracker
	styler     *style.Adapter
	composer   *compose.Composer
	cache      *predict.Cache
	delivery   *stream.Delivery
	conv       *memory.Conversation
	window     *emotion.Window
	suggester  *suggest.Engine

	sessions *session.Manager
	sess     *session.Session

	metrics *observability.Metrics
	logger  zerolog.Logger
	now     func() time.Time

	processing atomic.Bool
	started    time.Time

	suggestionMu sync.Mutex
	onSuggestion func(suggest.Suggestion)
}

// New builds an engine for one conversation, loading (or creating) the
// persisted session behind it.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Personalities == nil {
		opts.Personalities = personality.Builtin()
	}
	persona, _ := personality.Resolve(opts.Personalities, opts.PersonalityID)
	if err := persona.Validate(); err != nil {
		return nil, &ProfileError{ProfileID: opts.PersonalityID, Err: err}
	}
	if opts.Classifier == nil {
		opts.Classifier = intent.NewDefaultClassifier()
	}
	if opts.PredictedTTL <= 0 {
		opts.PredictedTTL = predict.DefaultTTL
	}
	if opts.ChunkWords <= 0 {
		opts.ChunkWords = stream.DefaultChunkWords
	}
	if opts.Delivery == nil {
		opts.Delivery = stream.NewDelivery(stream.DefaultDelayMin, stream.DefaultDelayMax, opts.Rand, nil, opts.Metrics)
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewManager(session.NewInMemoryStore(), opts.Metrics, opts.Logger)
	}

	e := &Engine{
		persona:      persona,
		lang:         opts.Language,
		chunkWords:   opts.ChunkWords,
		classifier:   opts.Classifier,
		tracker:      dialogue.NewTracker(opts.Language),
		styler:       style.NewAdapter(opts.Now),
		composer:     compose.NewComposer(opts.Rand),
		cache:        predict.NewCache(opts.PredictedTTL, opts.Now, opts.Language, opts.Metrics, opts.Logger),
		delivery:     opts.Delivery,
		conv:         memory.NewConversation(opts.Now),
		window:       emotion.NewWindow(16),
		suggester:    suggest.NewEngine(opts.Logger),
		sessions:     opts.Sessions,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		now:          opts.Now,
		started:      opts.Now(),
		onSuggestion: opts.OnSuggestion,
	}
	e.sess = e.sessions.LoadOrCreate(ctx, opts.SessionID)
	e.metrics.CountSessionEvent("conversation_start")
	return e, nil
}

func (e *Engine) SessionID() string      { return e.sess.ID }
func (e *Engine) ConversationID() string { return e.conv.ID() }

// Persona returns the active personality profile.
func (e *Engine) Persona() personality.Profile { return e.persona }

// Summary returns the current dialogue context snapshot.
func (e *Engine) Summary() dialogue.Summary { return e.tracker.State().Summary() }

// SetOnSuggestion replaces the proactive-suggestion handler. Pass nil to
// detach the current one.
func (e *Engine) SetOnSuggestion(fn func(suggest.Suggestion)) {
	e.suggestionMu.Lock()
	e.onSuggestion = fn
	e.suggestionMu.Unlock()
}

// ProcessUtterance runs one full turn. The only error it returns is the
// typed ProfileError; every other internal failure degrades to the
// language-appropriate fallback utterance.
func (e *Engine) ProcessUtterance(utterance string, userEmotion *emotion.Signal) (compose.EnhancedResponse, error) {
	if !e.processing.CompareAndSwap(false, true) {
		return compose.EnhancedResponse{}, ErrBusy
	}
	defer e.processing.Store(false)

	if err := e.persona.Validate(); err != nil {
		return compose.EnhancedResponse{}, &ProfileError{ProfileID: e.persona.ID, Err: err}
	}

	turnStart := e.now()
	if userEmotion != nil {
		e.window.Observe(*userEmotion)
	}

	in := e.timedClassify(utterance)
	e.metrics.CountTurn(in.Name)
	e.cache.Observe(in.Name)

	resp, ok := e.runPipeline(in, utterance, userEmotion)
	if !ok {
		resp = compose.EnhancedResponse{
			Text:    dialogue.FallbackUtterance(e.lang),
			Emotion: compose.EmotionNeutral,
			Tone:    style.Base(e.persona.EmotionalTendency).Tone,
		}
	}

	e.memorize(utterance, in, resp)
	e.detach(in)

	e.metrics.ObserveTurnStage("turn_total", e.now().Sub(turnStart))
	return resp, nil
}

// runPipeline executes track, predictive lookup, adapt, and compose.
// ok is false when a stage panicked; the caller degrades to the fallback.
func (e *Engine) runPipeline(in intent.Intent, utterance string, userEmotion *emotion.Signal) (resp compose.EnhancedResponse, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str("intent", in.Name).Msg("turn stage failed, degrading to fallback")
			ok = false
		}
	}()

	trackStart := e.now()
	turn := e.tracker.ProcessTurn(in, utterance, e.persona)
	e.metrics.ObserveTurnStage("track", e.now().Sub(trackStart))

	adaptStart := e.now()
	styleCtx := style.Context{
		ConversationLength: turn.ContextSummary.ConversationLength,
		Engagement:         e.window.Engagement(),
	}
	contextual := e.styler.Adapt(styleCtx, e.persona, userEmotion)
	e.tracker.State().Profile.SetPreferredStyle(string(contextual.Tone))
	e.metrics.ObserveTurnStage("adapt", e.now().Sub(adaptStart))

	if predicted, hit := e.cache.Get(in.Name); hit {
		e.metrics.CountPredictiveLookup("hit")
		e.metrics.ObserveIndicator("predicted_served")
		resp = predicted.Response
		// The cached text was synthesized before this turn's context
		// existed; re-tone it and attach the fresh follow-ups.
		resp.Tone = contextual.Tone
		resp.FollowUpQuestions = turn.FollowUpSuggestions
		return resp, true
	}
	e.metrics.CountPredictiveLookup("miss")

	composeStart := e.now()
	state := e.tracker.State()
	resp = e.composer.Compose(compose.Input{
		Draft:         turn.DraftText,
		Intent:        in,
		Style:         contextual,
		Persona:       e.persona,
		Summary:       turn.ContextSummary,
		FollowUps:     turn.FollowUpSuggestions,
		UserEmotion:   userEmotion,
		Interests:     state.Profile.TopInterests(3),
		StyleTrend:    e.window.Trend(),
		SessionTopics: e.sess.History.CommonTopics,
	})
	e.metrics.ObserveTurnStage("compose", e.now().Sub(composeStart))
	return resp, true
}

// ProcessExternal injects a response produced by an external backend into
// the tagging and memory stages, bypassing the template pipeline. The
// classified intent and tracked context still drive tone and emotion.
func (e *Engine) ProcessExternal(utterance, responseText string, userEmotion *emotion.Signal) (compose.EnhancedResponse, error) {
	if !e.processing.CompareAndSwap(false, true) {
		return compose.EnhancedResponse{}, ErrBusy
	}
	defer e.processing.Store(false)

	if userEmotion != nil {
		e.window.Observe(*userEmotion)
	}

	in := e.timedClassify(utterance)
	e.metrics.CountTurn(in.Name)
	e.cache.Observe(in.Name)
	turn := e.tracker.ProcessTurn(in, utterance, e.persona)

	contextual := e.styler.Adapt(style.Context{
		ConversationLength: turn.ContextSummary.ConversationLength,
		Engagement:         e.window.Engagement(),
	}, e.persona, userEmotion)
	e.tracker.State().Profile.SetPreferredStyle(string(contextual.Tone))

	resp := compose.EnhancedResponse{
		Text:               responseText,
		Emotion:            externalEmotion(in, userEmotion),
		Tone:               contextual.Tone,
		FollowUpQuestions:  turn.FollowUpSuggestions,
		PersonalityMarkers: []string{"persona:" + e.persona.ID, "external"},
	}

	e.memorize(utterance, in, resp)
	e.detach(in)
	return resp, nil
}

func externalEmotion(in intent.Intent, userEmotion *emotion.Signal) compose.Emotion {
	if userEmotion != nil {
		switch userEmotion.Emotion {
		case emotion.Sad, emotion.Stressed:
			return compose.EmotionListening
		case emotion.Excited, emotion.Happy:
			return compose.EmotionHappy
		case emotion.Angry:
			return compose.EmotionNeutral
		}
	}
	return compose.DefaultEmotion(in.Name, in.Confidence)
}

func (e *Engine) timedClassify(utterance string) intent.Intent {
	start := e.now()
	in := e.classifier.Classify(utterance)
	e.metrics.ObserveTurnStage("classify", e.now().Sub(start))
	return in
}

func (e *Engine) memorize(utterance string, in intent.Intent, resp compose.EnhancedResponse) {
	start := e.now()
	e.conv.AddMessage(memory.RoleUser, utterance, &in, nil)
	e.conv.AddMessage(memory.RoleAssistant, resp.Text, nil, &resp)
	e.metrics.ObserveTurnStage("memorize", e.now().Sub(start))
}

// detach runs the fire-and-forget side effects of a turn. Panics are
// swallowed; these paths must never reach the caller.
func (e *Engine) detach(in intent.Intent) {
	summary := e.tracker.State().Summary()
	interests := e.tracker.State().Profile.Interests()

	go func() {
		e.cache.PredictAhead(e.persona, summary)
	}()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Warn().Interface("panic", r).Msg("suggestion analytics failed")
			}
		}()
		s := e.suggester.Analyze(e.window, summary, interests)
		if s == nil {
			return
		}
		e.suggestionMu.Lock()
		fn := e.onSuggestion
		e.suggestionMu.Unlock()
		if fn != nil {
			fn(*s)
		}
	}()
}

// Stream delivers a response through the paced chunk stream and returns
// the stream id.
func (e *Engine) Stream(resp compose.EnhancedResponse, onChunk func(stream.Chunk)) string {
	return e.delivery.Stream(resp, onChunk, e.chunkWords)
}

// StopStream cancels the in-flight stream, if any.
func (e *Engine) StopStream() {
	e.delivery.Stop()
}

// MemoryStats returns the transcript statistics snapshot.
func (e *Engine) MemoryStats() memory.Stats {
	return e.conv.Stats()
}

// ExportMemory returns the transcript plus the tracked profile.
func (e *Engine) ExportMemory() memory.Export {
	state := e.tracker.State()
	return e.conv.ExportWith(state.Profile.Interests(), state.Profile.ExpertiseMap(), state.Profile.PreferredStyle())
}

// Recommendations derives onboarding hints from the persisted session.
func (e *Engine) Recommendations() session.Recommendations {
	return e.sess.PersonalizedRecommendations()
}

// EndConversation folds the finished conversation into the session
// aggregate and persists it best-effort.
func (e *Engine) EndConversation(ctx context.Context) session.Recommendations {
	e.StopStream()

	state := e.tracker.State()
	topics := make([]string, 0, 2)
	if state.CurrentTopic != "" {
		topics = append(topics, state.CurrentTopic)
	}
	topics = append(topics, state.Profile.TopInterests(3)...)
	topics = append(topics, state.Profile.ExpertiseTopics()...)

	e.sess.MergeInterests(state.Profile.Interests(), 20)
	e.sess.RecordConversationMetrics(e.now().Sub(e.started), topics, e.persona.ID, &session.Snapshot{
		ConversationID: e.conv.ID(),
		MessageCount:   e.conv.Stats().MessageCount,
		Topic:          state.CurrentTopic,
		EndedAt:        e.now().UTC(),
	})
	e.sessions.Persist(ctx, e.sess)
	e.metrics.CountSessionEvent("conversation_end")
	return e.sess.PersonalizedRecommendations()
}
