// Package events exports transcript events to Kafka for downstream
// progress-tracking consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"voice-practice-client/internal/models"
	"voice-practice-client/internal/observability/metrics"
	"voice-practice-client/internal/schema"
)

// Event type values carried in the exported payloads.
const (
	EventTypePartial = "session.transcript.partial"
	EventTypeFinal   = "session.transcript.final"
)

// Exporter publishes transcript events to separate Kafka topics.
// When disabled it runs in log-only mode and publishing always succeeds.
type Exporter struct {
	writerPartial *kafka.Writer
	writerFinal   *kafka.Writer
	principal     string
	topicPartial  string
	topicFinal    string
	enabled       bool
	validator     *schema.Validator
	metrics       *metrics.Metrics
}

// Config holds Kafka exporter configuration.
type Config struct {
	Brokers      []string
	TopicPartial string
	TopicFinal   string
	Principal    string
	Enabled      bool
}

// New creates a transcript exporter with separate topics for partial and
// final transcripts.
func New(cfg *Config) *Exporter {
	m := metrics.DefaultMetrics
	v := schema.New()

	if cfg == nil {
		log.Info().Msg("Transcript export disabled (nil config), using log-only mode")
		return &Exporter{
			enabled:   false,
			validator: v,
			metrics:   m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Transcript export disabled, using log-only mode")
		return &Exporter{
			principal:    cfg.Principal,
			topicPartial: cfg.TopicPartial,
			topicFinal:   cfg.TopicFinal,
			enabled:      false,
			validator:    v,
			metrics:      m,
		}
	}

	// Custom dialer with longer timeouts for slow DNS resolution.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerPartial := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicPartial,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	writerFinal := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicFinal,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicPartial", cfg.TopicPartial).
		Str("topicFinal", cfg.TopicFinal).
		Str("principal", cfg.Principal).
		Msg("Transcript exporter initialized")

	return &Exporter{
		writerPartial: writerPartial,
		writerFinal:   writerFinal,
		principal:     cfg.Principal,
		topicPartial:  cfg.TopicPartial,
		topicFinal:    cfg.TopicFinal,
		enabled:       true,
		validator:     v,
		metrics:       m,
	}
}

// PublishPartial exports an in-progress transcript update, keyed by session.
func (e *Exporter) PublishPartial(ctx context.Context, event models.TranscriptPartial) error {
	return e.publish(ctx, e.writerPartial, e.topicPartial, "partial", event.SessionID, event)
}

// PublishFinal exports a finalized chat message, keyed by session.
func (e *Exporter) PublishFinal(ctx context.Context, event models.TranscriptFinal) error {
	return e.publish(ctx, e.writerFinal, e.topicFinal, "final", event.SessionID, event)
}

func (e *Exporter) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	if err := e.validator.Validate(event); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Rejected invalid transcript event")
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", e.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing transcript event")

	if !e.enabled || writer == nil {
		e.metrics.RecordExportPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(e.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		e.metrics.RecordExportPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	e.metrics.RecordExportPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (e *Exporter) Close() error {
	var err error
	if e.writerPartial != nil {
		if closeErr := e.writerPartial.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Error closing partial writer")
			err = closeErr
		}
	}
	if e.writerFinal != nil {
		if closeErr := e.writerFinal.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Error closing final writer")
			err = closeErr
		}
	}
	return err
}
