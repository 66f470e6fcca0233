// Package postgres implements store.Store on PostgreSQL.
package postgres

import (
	"context"
	"iter"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/internal/database"
	"github.com/Ramsey-B/bramble/internal/repositories/dedupgroup"
	"github.com/Ramsey-B/bramble/internal/repositories/record"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/store"
)

// Store delegates to the record and dedup group repositories
type Store struct {
	records *record.Repository
	groups  *dedupgroup.Repository
}

var _ store.Store = (*Store)(nil)

// New creates a store over db
func New(db database.DB, logger ectologger.Logger) *Store {
	return &Store{
		records: record.NewRepository(db, logger),
		groups:  dedupgroup.NewRepository(db, logger),
	}
}

func (s *Store) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	return s.records.Get(ctx, id)
}

func (s *Store) FindRecord(ctx context.Context, filter store.RecordFilter) (*models.Record, error) {
	filter.Limit = 1
	for rec, err := range s.records.Find(ctx, filter) {
		return rec, err
	}
	return nil, nil
}

func (s *Store) FindRecords(ctx context.Context, filter store.RecordFilter) iter.Seq2[*models.Record, error] {
	return s.records.Find(ctx, filter)
}

func (s *Store) UpdateRecords(ctx context.Context, filter store.RecordFilter, update store.RecordUpdate) (int64, error) {
	return s.records.Update(ctx, filter, update)
}

func (s *Store) SaveRecord(ctx context.Context, rec *models.Record) error {
	return s.records.Save(ctx, rec)
}

// CountRecords is used by the stats endpoint
func (s *Store) CountRecords(ctx context.Context, filter store.RecordFilter) (int64, error) {
	return s.records.Count(ctx, filter)
}

func (s *Store) GetDedup(ctx context.Context, id string) (*models.DedupGroup, error) {
	return s.groups.Get(ctx, id)
}

func (s *Store) FindDedup(ctx context.Context, filter store.GroupFilter) (*models.DedupGroup, error) {
	filter.Limit = 1
	for group, err := range s.groups.Find(ctx, filter) {
		return group, err
	}
	return nil, nil
}

func (s *Store) FindDedups(ctx context.Context, filter store.GroupFilter) iter.Seq2[*models.DedupGroup, error] {
	return s.groups.Find(ctx, filter)
}

func (s *Store) SaveDedup(ctx context.Context, group *models.DedupGroup) error {
	return s.groups.Save(ctx, group)
}

// CountLiveGroups is used by the stats endpoint
func (s *Store) CountLiveGroups(ctx context.Context) (int64, error) {
	return s.groups.CountLive(ctx)
}

// Timestamp truncates to microseconds, the resolution of timestamptz
func (s *Store) Timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
