package kafka

import (
	"bytes"
	"encoding/json"
	"time"
)

// DebeziumEnvelope is the standard Debezium CDC message format
type DebeziumEnvelope struct {
	Schema  json.RawMessage `json:"schema,omitempty"`
	Payload DebeziumPayload `json:"payload"`
}

// DebeziumPayload contains the before/after state of a row
type DebeziumPayload struct {
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
	Source DebeziumSource  `json:"source"`
	Op     string          `json:"op"` // c=create, u=update, d=delete, r=read (snapshot)
	TsMs   int64           `json:"ts_ms"`
}

// DebeziumSource contains metadata about the source of the change
type DebeziumSource struct {
	Connector string `json:"connector"`
	Name      string `json:"name"`
	TsMs      int64  `json:"ts_ms"`
	Db        string `json:"db"`
	Schema    string `json:"schema"`
	Table     string `json:"table"`
	Lsn       int64  `json:"lsn,omitempty"`
}

// IsCreate returns true if this is a create operation
func (p *DebeziumPayload) IsCreate() bool {
	return p.Op == "c" || p.Op == "r"
}

// IsUpdate returns true if this is an update operation
func (p *DebeziumPayload) IsUpdate() bool {
	return p.Op == "u"
}

// IsDelete returns true if this is a delete operation
func (p *DebeziumPayload) IsDelete() bool {
	return p.Op == "d"
}

// RecordRow is the part of a records row the consumer cares about
type RecordRow struct {
	ID          string  `json:"id"`
	SourceID    string  `json:"source_id"`
	Deleted     bool    `json:"deleted"`
	Fingerprint *string `json:"fingerprint"`
}

// IsDebeziumMessage reports whether value looks like a Debezium envelope
func IsDebeziumMessage(value []byte) bool {
	return bytes.Contains(value, []byte(`"op"`)) && bytes.Contains(value, []byte(`"payload"`))
}

// ParseDebeziumRecordChange turns a records-table change into a RecordEvent.
// Changes that only touch dedup bookkeeping (dedup_id, update_needed, keys) yield nil,
// otherwise the engine would consume its own writes.
func ParseDebeziumRecordChange(value []byte) (*RecordEvent, error) {
	var env DebeziumEnvelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, err
	}
	p := env.Payload
	if p.Source.Table != "" && p.Source.Table != "records" {
		return nil, nil
	}

	var before, after *RecordRow
	if err := decodeRow(p.Before, &before); err != nil {
		return nil, err
	}
	if err := decodeRow(p.After, &after); err != nil {
		return nil, err
	}

	ts := time.UnixMilli(p.TsMs).UTC()
	switch {
	case p.IsDelete() && before != nil:
		return &RecordEvent{EventType: EventRecordDeleted, RecordID: before.ID, SourceID: before.SourceID, Timestamp: ts}, nil
	case p.IsCreate() && after != nil:
		return &RecordEvent{EventType: eventTypeFor(after), RecordID: after.ID, SourceID: after.SourceID, Timestamp: ts}, nil
	case p.IsUpdate() && after != nil:
		if before != nil && before.Deleted == after.Deleted && fingerprint(before) == fingerprint(after) {
			return nil, nil
		}
		return &RecordEvent{EventType: eventTypeFor(after), RecordID: after.ID, SourceID: after.SourceID, Timestamp: ts}, nil
	}
	return nil, nil
}

func decodeRow(raw json.RawMessage, out **RecordRow) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var row RecordRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return err
	}
	*out = &row
	return nil
}

func eventTypeFor(row *RecordRow) string {
	if row.Deleted {
		return EventRecordDeleted
	}
	return EventRecordUpdated
}

func fingerprint(row *RecordRow) string {
	if row.Fingerprint == nil {
		return ""
	}
	return *row.Fingerprint
}
