package events

import (
	"github.com/Ramsey-B/bramble/pkg/dedup"
)

// EventType defines the type of event
type EventType string

const (
	EventTypeGroupCreated EventType = "dedup.group.created"
	EventTypeGroupUpdated EventType = "dedup.group.updated"
	EventTypeGroupDeleted EventType = "dedup.group.deleted"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// EventTypeFor maps a group action to its event type
func EventTypeFor(action dedup.GroupAction) EventType {
	switch action {
	case dedup.GroupCreated:
		return EventTypeGroupCreated
	case dedup.GroupDeleted:
		return EventTypeGroupDeleted
	default:
		return EventTypeGroupUpdated
	}
}
