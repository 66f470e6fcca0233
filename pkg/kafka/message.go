package kafka

import (
	"encoding/json"
	"errors"
	"time"
)

// Record event types emitted by the harvester
const (
	EventRecordUpdated = "record.updated"
	EventRecordDeleted = "record.deleted"
)

// RecordEvent announces that a stored record changed and needs a dedup pass
type RecordEvent struct {
	EventType string    `json:"event_type"`
	RecordID  string    `json:"record_id"`
	SourceID  string    `json:"source_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content; nil when the message carries nothing to dedup
	RecordEvent *RecordEvent
}

// Parse decodes the message value as a harvester record event or a Debezium change on the
// records table. Missing record ids fall back to the message key, missing types to the
// event_type header.
func (m *IncomingMessage) Parse() error {
	if len(m.Value) == 0 {
		// tombstone
		m.RecordEvent = nil
		return nil
	}

	if IsDebeziumMessage(m.Value) {
		event, err := ParseDebeziumRecordChange(m.Value)
		if err != nil {
			return err
		}
		m.RecordEvent = event
		return nil
	}

	var event RecordEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return err
	}
	if event.RecordID == "" {
		event.RecordID = m.Key
	}
	if event.EventType == "" {
		event.EventType = m.Headers["event_type"]
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = m.Timestamp
	}
	if event.RecordID == "" {
		return errors.New("record event without record id")
	}
	switch event.EventType {
	case EventRecordUpdated, EventRecordDeleted:
	default:
		m.RecordEvent = nil
		return nil
	}
	m.RecordEvent = &event
	return nil
}

// RecordID returns the record the message refers to, or ""
func (m *IncomingMessage) RecordID() string {
	if m.RecordEvent == nil {
		return ""
	}
	return m.RecordEvent.RecordID
}
