// Package events publishes interview events to Kafka. Transcript
// entries and lifecycle changes go to separate topics so downstream
// consumers can subscribe to one without the other.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/anishjha12309/itero/internal/models"
	"github.com/anishjha12309/itero/internal/observability/metrics"
)

// TranscriptEvent is the wire shape of one accepted transcript entry.
type TranscriptEvent struct {
	SessionID string                 `json:"sessionId"`
	Entry     models.TranscriptEntry `json:"entry"`
}

// LifecycleEvent marks an interview state change.
type LifecycleEvent struct {
	SessionID string    `json:"sessionId"`
	Type      string    `json:"type"` // started, ended, evaluated
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes interview events to separate Kafka topics.
type Publisher struct {
	writerTranscript *kafka.Writer
	writerLifecycle  *kafka.Writer
	topicTranscript  string
	topicLifecycle   string
	enabled          bool
	metrics          *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers         []string
	TranscriptTopic string
	LifecycleTopic  string
	Enabled         bool
}

// New creates a Kafka event publisher. A nil or disabled config yields
// a log-only publisher whose Publish methods never fail.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{enabled: false, metrics: m}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			topicTranscript: cfg.TranscriptTopic,
			topicLifecycle:  cfg.LifecycleTopic,
			enabled:         false,
			metrics:         m,
		}
	}

	// Longer dial timeout covers slow DNS resolution in Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerTranscript := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TranscriptTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
	writerLifecycle := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.LifecycleTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTranscript", cfg.TranscriptTopic).
		Str("topicLifecycle", cfg.LifecycleTopic).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerTranscript: writerTranscript,
		writerLifecycle:  writerLifecycle,
		topicTranscript:  cfg.TranscriptTopic,
		topicLifecycle:   cfg.LifecycleTopic,
		enabled:          true,
		metrics:          m,
	}
}

// PublishTranscript publishes one accepted transcript entry, keyed by
// session so a session's entries stay ordered within a partition.
func (p *Publisher) PublishTranscript(ctx context.Context, sessionID string, entry models.TranscriptEntry) error {
	return p.publish(ctx, p.writerTranscript, p.topicTranscript, "transcript", sessionID,
		TranscriptEvent{SessionID: sessionID, Entry: entry})
}

// PublishLifecycle publishes an interview state change.
func (p *Publisher) PublishLifecycle(ctx context.Context, event LifecycleEvent) error {
	return p.publish(ctx, p.writerLifecycle, p.topicLifecycle, event.Type, event.SessionID, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTranscript != nil {
		if e := p.writerTranscript.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing transcript writer")
			err = e
		}
	}
	if p.writerLifecycle != nil {
		if e := p.writerLifecycle.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing lifecycle writer")
			err = e
		}
	}
	return err
}
