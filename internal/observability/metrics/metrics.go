// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_practice"

// Metrics holds all Prometheus metrics for the client.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionFailures *prometheus.CounterVec
	SessionDuration prometheus.Histogram
	ConnectDuration prometheus.Histogram

	// Capture metrics
	FramesSent     prometheus.Counter
	AudioBytesSent prometheus.Counter

	// Transcript metrics
	TranscriptsPartial *prometheus.CounterVec
	MessagesFinalized  *prometheus.CounterVec
	TurnsCompleted     prometheus.Counter

	// Playback metrics
	FragmentsReceived prometheus.Counter
	BuffersScheduled  prometheus.Counter
	BuffersActive     prometheus.Gauge
	DecodeErrors      prometheus.Counter
	Interruptions     prometheus.Counter

	// Export publish metrics
	ExportPublishTotal   *prometheus.CounterVec
	ExportPublishErrors  *prometheus.CounterVec
	ExportPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of practice sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active sessions (0 or 1)",
		}),
		SessionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_failures_total",
			Help:      "Total number of sessions ended by an error",
		}, []string{"kind"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of practice sessions in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		ConnectDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connect_duration_seconds",
			Help:      "Time from start request to connection established",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),

		// Capture metrics
		FramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_sent_total",
			Help:      "Total microphone frames sent to the remote service",
		}),
		AudioBytesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_sent_total",
			Help:      "Total microphone audio bytes sent to the remote service",
		}),

		// Transcript metrics
		TranscriptsPartial: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_partial_total",
			Help:      "Total number of partial transcript fragments received",
		}, []string{"speaker"}),
		MessagesFinalized: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_finalized_total",
			Help:      "Total number of finalized chat messages",
		}, []string{"speaker"}),
		TurnsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_completed_total",
			Help:      "Total number of turn-complete signals received",
		}),

		// Playback metrics
		FragmentsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_fragments_received_total",
			Help:      "Total inbound audio fragments received",
		}),
		BuffersScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_buffers_scheduled_total",
			Help:      "Total playback buffers scheduled",
		}),
		BuffersActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_buffers_active",
			Help:      "Number of playback buffers currently tracked",
		}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_decode_errors_total",
			Help:      "Total inbound audio fragments dropped because they could not be decoded",
		}),
		Interruptions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interruptions_total",
			Help:      "Total interruption signals received",
		}),

		// Export publish metrics
		ExportPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_publish_total",
			Help:      "Total number of transcript events published",
		}, []string{"topic", "event_type"}),
		ExportPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_publish_errors_total",
			Help:      "Total number of transcript export publish errors",
		}, []string{"topic", "event_type"}),
		ExportPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_publish_latency_seconds",
			Help:      "Transcript export publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionStart records a new session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session ending.
func (m *Metrics) RecordSessionEnd(durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordSessionFailure records a session ended by an error.
func (m *Metrics) RecordSessionFailure(kind string) {
	m.SessionFailures.WithLabelValues(kind).Inc()
}

// RecordConnect records the time taken to establish a connection.
func (m *Metrics) RecordConnect(durationSeconds float64) {
	m.ConnectDuration.Observe(durationSeconds)
}

// RecordFrameSent records one microphone frame forwarded to the remote service.
func (m *Metrics) RecordFrameSent(bytes int) {
	m.FramesSent.Inc()
	m.AudioBytesSent.Add(float64(bytes))
}

// RecordPartialTranscript records a partial transcript fragment.
func (m *Metrics) RecordPartialTranscript(speaker string) {
	m.TranscriptsPartial.WithLabelValues(speaker).Inc()
}

// RecordTurnComplete records a turn-complete signal and the messages it finalized.
func (m *Metrics) RecordTurnComplete(speakers []string) {
	m.TurnsCompleted.Inc()
	for _, s := range speakers {
		m.MessagesFinalized.WithLabelValues(s).Inc()
	}
}

// RecordFragmentScheduled records an inbound audio fragment scheduled for playback.
func (m *Metrics) RecordFragmentScheduled() {
	m.FragmentsReceived.Inc()
	m.BuffersScheduled.Inc()
}

// RecordDecodeError records an inbound audio fragment dropped as undecodable.
func (m *Metrics) RecordDecodeError() {
	m.FragmentsReceived.Inc()
	m.DecodeErrors.Inc()
}

// RecordInterruption records an interruption signal.
func (m *Metrics) RecordInterruption() {
	m.Interruptions.Inc()
}

// SetBuffersActive sets the tracked playback buffer gauge.
func (m *Metrics) SetBuffersActive(n int) {
	m.BuffersActive.Set(float64(n))
}

// RecordExportPublish records a transcript export publish attempt.
func (m *Metrics) RecordExportPublish(topic, eventType string, err error, latencySeconds float64) {
	m.ExportPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.ExportPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.ExportPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
