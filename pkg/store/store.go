// Package store defines the persistence contract the dedup engine runs against.
//
// Lookups that find nothing return a nil value and a nil error; errors are reserved for
// failures of the backing store itself.
package store

import (
	"context"
	"iter"
	"slices"
	"time"

	"github.com/Ramsey-B/bramble/pkg/models"
)

// RecordFilter selects records. Zero-valued fields do not constrain the query.
type RecordFilter struct {
	IDs             []string
	SourceID        string
	ExcludeSourceID string
	HostRecordID    string
	LinkingID       string
	DedupID         string
	KeyType         models.KeyType
	KeyValue        string
	Deleted         *bool
	UpdateNeeded    *bool
	AfterID         string
	Limit           int
}

// RecordUpdate is a partial update applied to every record matching a filter.
// Updated is always written. SetKeys replaces all three key sets, nil clearing a set.
type RecordUpdate struct {
	DedupID      *string
	UnsetDedupID bool
	UpdateNeeded *bool
	Deleted      *bool
	SetKeys      bool
	TitleKeys    []string
	ISBNKeys     []string
	IDKeys       []string
	Updated      time.Time
}

// GroupFilter selects dedup groups
type GroupFilter struct {
	ContainsID string
	Deleted    *bool
	AfterID    string
	Limit      int
}

// Store is the record and dedup-group store
type Store interface {
	GetRecord(ctx context.Context, id string) (*models.Record, error)
	FindRecord(ctx context.Context, filter RecordFilter) (*models.Record, error)
	// FindRecords streams matching records ordered by id. Breaking out of the loop releases the cursor.
	FindRecords(ctx context.Context, filter RecordFilter) iter.Seq2[*models.Record, error]
	UpdateRecords(ctx context.Context, filter RecordFilter, update RecordUpdate) (int64, error)
	SaveRecord(ctx context.Context, record *models.Record) error

	GetDedup(ctx context.Context, id string) (*models.DedupGroup, error)
	FindDedup(ctx context.Context, filter GroupFilter) (*models.DedupGroup, error)
	FindDedups(ctx context.Context, filter GroupFilter) iter.Seq2[*models.DedupGroup, error]
	SaveDedup(ctx context.Context, group *models.DedupGroup) error

	Timestamp() time.Time
}

// Bool returns a pointer to b, for filter and update fields
func Bool(b bool) *bool {
	return &b
}

// String returns a pointer to s, for update fields
func String(s string) *string {
	return &s
}

// Matches reports whether r satisfies f. Backends without a query language use it directly.
func (f RecordFilter) Matches(r *models.Record) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, r.ID) {
		return false
	}
	if f.SourceID != "" && r.SourceID != f.SourceID {
		return false
	}
	if f.ExcludeSourceID != "" && r.SourceID == f.ExcludeSourceID {
		return false
	}
	if f.HostRecordID != "" && r.HostRecordID != f.HostRecordID {
		return false
	}
	if f.LinkingID != "" && r.LinkingID != f.LinkingID {
		return false
	}
	if f.DedupID != "" && r.DedupID != f.DedupID {
		return false
	}
	if f.KeyType != "" && !slices.Contains(r.Keys(f.KeyType), f.KeyValue) {
		return false
	}
	if f.Deleted != nil && r.Deleted != *f.Deleted {
		return false
	}
	if f.UpdateNeeded != nil && r.UpdateNeeded != *f.UpdateNeeded {
		return false
	}
	if f.AfterID != "" && r.ID <= f.AfterID {
		return false
	}
	return true
}

// Apply returns a copy of r with the update applied
func (u RecordUpdate) Apply(r *models.Record) *models.Record {
	c := r.Clone()
	if u.DedupID != nil {
		c.DedupID = *u.DedupID
	}
	if u.UnsetDedupID {
		c.DedupID = ""
	}
	if u.UpdateNeeded != nil {
		c.UpdateNeeded = *u.UpdateNeeded
	}
	if u.Deleted != nil {
		c.Deleted = *u.Deleted
	}
	if u.SetKeys {
		c.TitleKeys = slices.Clone(u.TitleKeys)
		c.ISBNKeys = slices.Clone(u.ISBNKeys)
		c.IDKeys = slices.Clone(u.IDKeys)
	}
	c.Updated = u.Updated
	return c
}

// Matches reports whether g satisfies f
func (f GroupFilter) Matches(g *models.DedupGroup) bool {
	if f.ContainsID != "" && !g.Contains(f.ContainsID) {
		return false
	}
	if f.Deleted != nil && g.Deleted != *f.Deleted {
		return false
	}
	if f.AfterID != "" && g.ID <= f.AfterID {
		return false
	}
	return true
}
