package dedup

import (
	"context"

	"github.com/Ramsey-B/bramble/pkg/models"
)

// GroupAction describes what happened to a dedup group
type GroupAction string

const (
	GroupCreated GroupAction = "created"
	GroupUpdated GroupAction = "updated"
	GroupDeleted GroupAction = "deleted"
)

// GroupObserver is notified after a dedup group has been written
type GroupObserver interface {
	GroupChanged(ctx context.Context, action GroupAction, group *models.DedupGroup)
}

type noopObserver struct{}

func (noopObserver) GroupChanged(context.Context, GroupAction, *models.DedupGroup) {}
