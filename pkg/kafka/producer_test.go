package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_PublishGroupEvent(t *testing.T) {
	writer := &fakeWriter{}
	p := &Producer{writer: writer, logger: ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}), topic: "dedup-events"}

	changed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.PublishGroupEvent(t.Context(), &GroupEvent{
		EventType:     "dedup.group.created",
		SchemaVersion: "1.0",
		DedupID:       "g1",
		RecordIDs:     []string{"a.1", "b.1"},
		Changed:       changed,
	}))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "dedup-events", msg.Topic)
	assert.Equal(t, "g1", string(msg.Key))
	assert.Contains(t, msg.Headers, kafka.Header{Key: "event_type", Value: []byte("dedup.group.created")})

	var decoded GroupEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, []string{"a.1", "b.1"}, decoded.RecordIDs)
	assert.Equal(t, changed, decoded.Changed)
	assert.False(t, decoded.Timestamp.IsZero())
}

func TestProducer_PublishGroupEvents(t *testing.T) {
	writer := &fakeWriter{}
	p := &Producer{writer: writer, logger: ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}), topic: "dedup-events"}

	require.NoError(t, p.PublishGroupEvents(t.Context(), nil))
	assert.Empty(t, writer.messages)

	require.NoError(t, p.PublishGroupEvents(t.Context(), []*GroupEvent{
		{EventType: "dedup.group.updated", DedupID: "g1"},
		{EventType: "dedup.group.deleted", DedupID: "g2", Deleted: true},
	}))
	assert.Len(t, writer.messages, 2)
	assert.Equal(t, "g2", string(writer.messages[1].Key))
}
