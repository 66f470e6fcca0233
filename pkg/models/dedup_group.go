package models

import (
	"slices"
	"time"
)

// DedupGroup is a persisted cluster of records believed to describe the same work.
// A live group always has at least two members; emptied groups are kept as deleted tombstones.
type DedupGroup struct {
	ID      string    `json:"id" db:"id"`
	IDs     []string  `json:"ids" db:"-"`
	Deleted bool      `json:"deleted" db:"deleted"`
	Changed time.Time `json:"changed" db:"changed"`
}

// Contains reports whether id is a member of the group
func (g *DedupGroup) Contains(id string) bool {
	return slices.Contains(g.IDs, id)
}

// Clone returns a deep copy of the group
func (g *DedupGroup) Clone() *DedupGroup {
	if g == nil {
		return nil
	}
	c := *g
	c.IDs = slices.Clone(g.IDs)
	return &c
}
