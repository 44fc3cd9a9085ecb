package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the dialogue engine.
// A nil *Metrics is valid and drops every observation, so tests can build
// engines without touching the process-wide registry.
type Metrics struct {
	ActiveConversations prometheus.Gauge
	Turns               *prometheus.CounterVec
	PredictiveLookups   *prometheus.CounterVec
	PredictionsStored   prometheus.Counter
	StreamChunks        prometheus.Counter
	StreamCancellations prometheus.Counter
	ActiveStreams       prometheus.Gauge
	SessionEvents       *prometheus.CounterVec
	TurnStageLatency    *prometheus.HistogramVec

	turnStages *turnStageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveConversations: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Number of active dialogue conversations.",
		}),
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Processed dialogue turns by classified intent.",
		}, []string{"intent"}),
		PredictiveLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictive_lookups_total",
			Help:      "Predictive cache lookups by result.",
		}, []string{"result"}),
		PredictionsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_stored_total",
			Help:      "Predicted responses synthesized and stored.",
		}),
		StreamChunks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_chunks_total",
			Help:      "Response chunks emitted by streaming delivery.",
		}),
		StreamCancellations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_cancellations_total",
			Help:      "Streams cancelled before their final chunk.",
		}),
		ActiveStreams: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Streams currently emitting chunks.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle and persistence events by type.",
		}, []string{"event"}),
		TurnStageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_stage_latency_ms",
			Help:      "Latency of each turn pipeline stage in milliseconds.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 25, 50},
		}, []string{"stage"}),
		turnStages: newTurnStageWindow(256),
	}
}

func (m *Metrics) ObserveTurnStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	ms := float64(d.Microseconds()) / 1000.0
	m.TurnStageLatency.WithLabelValues(stage).Observe(ms)
	m.turnStages.Observe(stage, ms)
}

func (m *Metrics) SnapshotTurnStages() TurnStageSnapshot {
	if m == nil {
		return TurnStageSnapshot{}
	}
	return m.turnStages.Snapshot()
}

func (m *Metrics) ResetTurnStages() {
	if m == nil {
		return
	}
	m.turnStages.Reset()
}

func (m *Metrics) ObserveIndicator(name string) {
	if m == nil {
		return
	}
	m.turnStages.ObserveIndicator(name)
}

func (m *Metrics) CountTurn(intentName string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(intentName).Inc()
}

func (m *Metrics) CountPredictiveLookup(result string) {
	if m == nil {
		return
	}
	m.PredictiveLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) CountPredictionStored() {
	if m == nil {
		return
	}
	m.PredictionsStored.Inc()
}

func (m *Metrics) CountSessionEvent(event string) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) CountStreamChunk() {
	if m == nil {
		return
	}
	m.StreamChunks.Inc()
}

func (m *Metrics) CountStreamCancellation() {
	if m == nil {
		return
	}
	m.StreamCancellations.Inc()
}

func (m *Metrics) SetActiveConversations(n int) {
	if m == nil {
		return
	}
	m.ActiveConversations.Set(float64(n))
}

func (m *Metrics) StreamStarted() {
	if m == nil {
		return
	}
	m.ActiveStreams.Inc()
}

func (m *Metrics) StreamFinished() {
	if m == nil {
		return
	}
	m.ActiveStreams.Dec()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
