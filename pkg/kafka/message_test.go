package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomingMessage_Parse(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		msg      IncomingMessage
		wantID   string
		wantType string
		wantNil  bool
		wantErr  bool
	}{
		{
			name:     "native event",
			msg:      IncomingMessage{Value: []byte(`{"event_type":"record.updated","record_id":"helka.1","source_id":"helka"}`)},
			wantID:   "helka.1",
			wantType: EventRecordUpdated,
		},
		{
			name:     "id from key and type from header",
			msg:      IncomingMessage{Key: "helka.2", Value: []byte(`{}`), Headers: map[string]string{"event_type": "record.deleted"}},
			wantID:   "helka.2",
			wantType: EventRecordDeleted,
		},
		{
			name:    "unknown event type is ignored",
			msg:     IncomingMessage{Value: []byte(`{"event_type":"source.harvested","record_id":"helka.1"}`)},
			wantNil: true,
		},
		{
			name:    "tombstone is ignored",
			msg:     IncomingMessage{Key: "helka.1"},
			wantNil: true,
		},
		{
			name:    "missing id",
			msg:     IncomingMessage{Value: []byte(`{"event_type":"record.updated"}`)},
			wantErr: true,
		},
		{
			name:    "malformed",
			msg:     IncomingMessage{Value: []byte(`{"event_type":`)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			msg.Timestamp = ts
			err := msg.Parse()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, msg.RecordEvent)
				assert.Empty(t, msg.RecordID())
				return
			}
			require.NotNil(t, msg.RecordEvent)
			assert.Equal(t, tt.wantID, msg.RecordID())
			assert.Equal(t, tt.wantType, msg.RecordEvent.EventType)
			assert.Equal(t, ts, msg.RecordEvent.Timestamp)
		})
	}
}

func TestParseDebeziumRecordChange(t *testing.T) {
	envelope := func(op, before, after string) []byte {
		return []byte(`{"payload":{"op":"` + op + `","ts_ms":1714564800000,"source":{"table":"records"},"before":` + before + `,"after":` + after + `}}`)
	}

	t.Run("insert", func(t *testing.T) {
		event, err := ParseDebeziumRecordChange(envelope("c", "null", `{"id":"helka.1","source_id":"helka","deleted":false,"fingerprint":"a"}`))
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, "helka.1", event.RecordID)
		assert.Equal(t, EventRecordUpdated, event.EventType)
		assert.Equal(t, time.UnixMilli(1714564800000).UTC(), event.Timestamp)
	})

	t.Run("payload change", func(t *testing.T) {
		event, err := ParseDebeziumRecordChange(envelope("u",
			`{"id":"helka.1","deleted":false,"fingerprint":"a"}`,
			`{"id":"helka.1","deleted":false,"fingerprint":"b"}`))
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, EventRecordUpdated, event.EventType)
	})

	t.Run("soft delete", func(t *testing.T) {
		event, err := ParseDebeziumRecordChange(envelope("u",
			`{"id":"helka.1","deleted":false,"fingerprint":"a"}`,
			`{"id":"helka.1","deleted":true,"fingerprint":"a"}`))
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, EventRecordDeleted, event.EventType)
	})

	t.Run("bookkeeping update is ignored", func(t *testing.T) {
		event, err := ParseDebeziumRecordChange(envelope("u",
			`{"id":"helka.1","deleted":false,"fingerprint":"a"}`,
			`{"id":"helka.1","deleted":false,"fingerprint":"a"}`))
		require.NoError(t, err)
		assert.Nil(t, event)
	})

	t.Run("row delete", func(t *testing.T) {
		event, err := ParseDebeziumRecordChange(envelope("d", `{"id":"helka.1"}`, "null"))
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, EventRecordDeleted, event.EventType)
		assert.Equal(t, "helka.1", event.RecordID)
	})

	t.Run("other table", func(t *testing.T) {
		value := []byte(`{"payload":{"op":"c","source":{"table":"dedup_groups"},"before":null,"after":{"id":"g"}}}`)
		event, err := ParseDebeziumRecordChange(value)
		require.NoError(t, err)
		assert.Nil(t, event)
	})

	t.Run("routed through Parse", func(t *testing.T) {
		msg := IncomingMessage{Value: envelope("r", "null", `{"id":"helka.9","deleted":false}`)}
		require.NoError(t, msg.Parse())
		assert.Equal(t, "helka.9", msg.RecordID())
	})
}
