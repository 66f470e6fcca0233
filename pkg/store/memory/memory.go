// Package memory is an in-process store.Store used by tests and dry runs.
package memory

import (
	"context"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/store"
)

// Store keeps records and groups in maps guarded by a single RWMutex.
// Every value crossing the API boundary is a copy.
type Store struct {
	mu      sync.RWMutex
	records map[string]*models.Record
	groups  map[string]*models.DedupGroup
	now     func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		records: make(map[string]*models.Record),
		groups:  make(map[string]*models.DedupGroup),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) GetRecord(_ context.Context, id string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id].Clone(), nil
}

func (s *Store) FindRecord(ctx context.Context, filter store.RecordFilter) (*models.Record, error) {
	filter.Limit = 1
	for rec, err := range s.FindRecords(ctx, filter) {
		return rec, err
	}
	return nil, nil
}

func (s *Store) FindRecords(ctx context.Context, filter store.RecordFilter) iter.Seq2[*models.Record, error] {
	return func(yield func(*models.Record, error) bool) {
		s.mu.RLock()
		var matched []*models.Record
		for _, rec := range s.records {
			if filter.Matches(rec) {
				matched = append(matched, rec.Clone())
			}
		}
		s.mu.RUnlock()

		sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
		if filter.Limit > 0 && len(matched) > filter.Limit {
			matched = matched[:filter.Limit]
		}
		for _, rec := range matched {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (s *Store) UpdateRecords(_ context.Context, filter store.RecordFilter, update store.RecordUpdate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, rec := range s.records {
		if filter.Matches(rec) {
			s.records[id] = update.Apply(rec)
			n++
		}
	}
	return n, nil
}

func (s *Store) SaveRecord(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := record.Clone()
	if existing, ok := s.records[c.ID]; ok {
		c.Created = existing.Created
	} else if c.Created.IsZero() {
		c.Created = s.now()
	}
	if c.Updated.IsZero() {
		c.Updated = s.now()
	}
	s.records[c.ID] = c
	return nil
}

func (s *Store) GetDedup(_ context.Context, id string) (*models.DedupGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groups[id].Clone(), nil
}

func (s *Store) FindDedup(ctx context.Context, filter store.GroupFilter) (*models.DedupGroup, error) {
	filter.Limit = 1
	for group, err := range s.FindDedups(ctx, filter) {
		return group, err
	}
	return nil, nil
}

func (s *Store) FindDedups(ctx context.Context, filter store.GroupFilter) iter.Seq2[*models.DedupGroup, error] {
	return func(yield func(*models.DedupGroup, error) bool) {
		s.mu.RLock()
		var matched []*models.DedupGroup
		for _, group := range s.groups {
			if filter.Matches(group) {
				matched = append(matched, group.Clone())
			}
		}
		s.mu.RUnlock()

		sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
		if filter.Limit > 0 && len(matched) > filter.Limit {
			matched = matched[:filter.Limit]
		}
		for _, group := range matched {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(group, nil) {
				return
			}
		}
	}
}

func (s *Store) SaveDedup(_ context.Context, group *models.DedupGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := group.Clone()
	if c.Changed.IsZero() {
		c.Changed = s.now()
	}
	s.groups[c.ID] = c
	return nil
}

func (s *Store) Timestamp() time.Time {
	return s.now()
}

// Records returns a snapshot of every record, for assertions and exports
func (s *Store) Records() []*models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Groups returns a snapshot of every dedup group, tombstones included
func (s *Store) Groups() []*models.DedupGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.DedupGroup, 0, len(s.groups))
	for _, group := range s.groups {
		out = append(out, group.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
