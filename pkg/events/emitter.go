// Package events publishes dedup group lifecycle changes for downstream index publishers.
package events

import (
	"context"
	"slices"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/internal/tracing"
	"github.com/Ramsey-B/bramble/pkg/dedup"
	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
)

// Publisher writes group events to the event stream
type Publisher interface {
	PublishGroupEvent(ctx context.Context, event *kafka.GroupEvent) error
}

// Emitter turns group changes into events. Publish failures are logged and counted, never
// returned: the group is already written and the next change republishes its state.
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

var _ dedup.GroupObserver = (*Emitter)(nil)

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// GroupChanged publishes the new state of group
func (e *Emitter) GroupChanged(ctx context.Context, action dedup.GroupAction, group *models.DedupGroup) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.GroupChanged")
	defer span.End()

	eventType := EventTypeFor(action)
	event := &kafka.GroupEvent{
		EventType:     string(eventType),
		SchemaVersion: SchemaVersion,
		DedupID:       group.ID,
		RecordIDs:     slices.Clone(group.IDs),
		Deleted:       group.Deleted,
		Changed:       group.Changed,
	}

	if err := e.publisher.PublishGroupEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"dedup_id":   group.ID,
			"event_type": eventType,
		}).Error("Failed to emit group event")
		metrics.EventsPublishedTotal.WithLabelValues(string(eventType), "failed").Inc()
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(eventType), "published").Inc()
}
