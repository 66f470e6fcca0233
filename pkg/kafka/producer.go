package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/bramble/internal/tracing"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles Kafka event emission
type Producer struct {
	writer messageWriter
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// GroupEvent describes a change of dedup group membership
type GroupEvent struct {
	EventType     string    `json:"event_type"` // dedup.group.created, .updated, .deleted
	SchemaVersion string    `json:"schema_version"`
	DedupID       string    `json:"dedup_id"`
	RecordIDs     []string  `json:"record_ids"`
	Deleted       bool      `json:"deleted"`
	Changed       time.Time `json:"changed"`
	Timestamp     time.Time `json:"timestamp"`
}

func (p *Producer) groupMessage(ctx context.Context, event *GroupEvent) (kafka.Message, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(event.EventType)},
		{Key: "schema_version", Value: []byte(event.SchemaVersion)},
	}
	if tp := tracing.GetTraceParent(ctx); tp != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(tp)})
	}
	// keyed by group so consumers see a group's changes in order
	return kafka.Message{
		Topic:   p.topic,
		Key:     []byte(event.DedupID),
		Value:   data,
		Headers: headers,
	}, nil
}

// PublishGroupEvent publishes a dedup group event to Kafka
func (p *Producer) PublishGroupEvent(ctx context.Context, event *GroupEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishGroupEvent")
	defer span.End()

	msg, err := p.groupMessage(ctx, event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish group event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"dedup_id":   event.DedupID,
	}).Debug("Published group event")

	return nil
}

// PublishGroupEvents publishes multiple group events in a batch
func (p *Producer) PublishGroupEvents(ctx context.Context, events []*GroupEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishGroupEvents")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, len(events))
	for i, event := range events {
		msg, err := p.groupMessage(ctx, event)
		if err != nil {
			return err
		}
		messages[i] = msg
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"batch_size": len(events),
		}).Error("Failed to publish group events batch")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"batch_size": len(events),
	}).Debug("Published group events batch")

	return nil
}
