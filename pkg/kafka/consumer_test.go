package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

type fakeReader struct {
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func newTestConsumer(handler MessageHandler) (*Consumer, *fakeReader) {
	reader := &fakeReader{}
	return &Consumer{
		reader:  reader,
		topic:   "records",
		logger:  ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}),
		handler: handler,
	}, reader
}

func TestConsumer_processMessage(t *testing.T) {
	event := kafka.Message{Topic: "records", Offset: 7, Value: []byte(`{"event_type":"record.updated","record_id":"helka.1"}`)}

	t.Run("commits after success", func(t *testing.T) {
		var seen []string
		c, reader := newTestConsumer(func(_ context.Context, msg *IncomingMessage) error {
			seen = append(seen, msg.RecordID())
			return nil
		})
		c.processMessage(t.Context(), event)
		assert.Equal(t, []string{"helka.1"}, seen)
		assert.Len(t, reader.committed, 1)
	})

	t.Run("does not commit on failure", func(t *testing.T) {
		c, reader := newTestConsumer(func(context.Context, *IncomingMessage) error {
			return errors.New("database unavailable")
		})
		c.processMessage(t.Context(), event)
		assert.Empty(t, reader.committed)
	})

	t.Run("commits unparsable messages without handling", func(t *testing.T) {
		called := false
		c, reader := newTestConsumer(func(context.Context, *IncomingMessage) error {
			called = true
			return nil
		})
		c.processMessage(t.Context(), kafka.Message{Topic: "records", Value: []byte("not json")})
		assert.False(t, called)
		assert.Len(t, reader.committed, 1)
	})

	t.Run("commits ignored messages without handling", func(t *testing.T) {
		called := false
		c, reader := newTestConsumer(func(context.Context, *IncomingMessage) error {
			called = true
			return nil
		})
		c.processMessage(t.Context(), kafka.Message{Topic: "records", Key: []byte("helka.1")})
		assert.False(t, called)
		assert.Len(t, reader.committed, 1)
	})
}

func TestConsumer_StartStop(t *testing.T) {
	c, _ := newTestConsumer(func(context.Context, *IncomingMessage) error { return nil })
	assert.NoError(t, c.Start(t.Context()))
	assert.NoError(t, c.Stop())
	assert.True(t, c.Health())
}
