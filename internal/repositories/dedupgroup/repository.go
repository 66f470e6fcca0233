package dedupgroup

import (
	"context"
	"fmt"
	"iter"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/bramble/internal/database"
	"github.com/Ramsey-B/bramble/internal/tracing"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/store"
)

const table = "dedup_groups"

type row struct {
	models.DedupGroup
	IDs pq.StringArray `db:"ids"`
}

func (r *row) toModel() *models.DedupGroup {
	group := r.DedupGroup
	group.IDs = []string(r.IDs)
	return &group
}

// Repository handles dedup group persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new dedup group repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get returns the group with id, or nil if there is none
func (r *Repository) Get(ctx context.Context, id string) (*models.DedupGroup, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupgroup.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "ids", "deleted", "changed")
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var out row
	if err := r.db.GetContext(ctx, &out, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"dedup_id": id}).Error("Failed to get dedup group")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dedup group")
	}
	return out.toModel(), nil
}

// Find streams groups matching the filter ordered by id
func (r *Repository) Find(ctx context.Context, filter store.GroupFilter) iter.Seq2[*models.DedupGroup, error] {
	return func(yield func(*models.DedupGroup, error) bool) {
		ctx, span := tracing.StartSpan(ctx, "dedupgroup.Repository.Find")
		defer span.End()

		sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		sb.Select("id", "ids", "deleted", "changed")
		sb.From(table)
		var where []string
		if filter.ContainsID != "" {
			where = append(where, fmt.Sprintf("ids @> ARRAY[%s]::text[]", sb.Var(filter.ContainsID)))
		}
		if filter.Deleted != nil {
			where = append(where, sb.Equal("deleted", *filter.Deleted))
		}
		if filter.AfterID != "" {
			where = append(where, sb.GreaterThan("id", filter.AfterID))
		}
		if len(where) > 0 {
			sb.Where(where...)
		}
		sb.OrderBy("id")
		if filter.Limit > 0 {
			sb.Limit(filter.Limit)
		}

		query, args := sb.Build()
		rows, err := r.db.QueryxContext(ctx, query, args...)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to query dedup groups")
			yield(nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find dedup groups"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var out row
			if err := rows.StructScan(&out); err != nil {
				r.logger.WithContext(ctx).WithError(err).Error("Failed to scan dedup group")
				yield(nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to read dedup group"))
				return
			}
			if !yield(out.toModel(), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find dedup groups"))
		}
	}
}

// Save inserts or replaces a group
func (r *Repository) Save(ctx context.Context, group *models.DedupGroup) error {
	ctx, span := tracing.StartSpan(ctx, "dedupgroup.Repository.Save")
	defer span.End()

	ids := group.IDs
	if ids == nil {
		ids = []string{}
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("id", "ids", "deleted", "changed")
	ib.Values(group.ID, pq.Array(ids), group.Deleted, group.Changed)
	query, args := ib.Build()
	query += " ON CONFLICT (id) DO UPDATE SET ids = EXCLUDED.ids, deleted = EXCLUDED.deleted, changed = EXCLUDED.changed"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"dedup_id": group.ID}).Error("Failed to save dedup group")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save dedup group")
	}
	return nil
}

// CountLive returns the number of live groups
func (r *Repository) CountLive(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupgroup.Repository.CountLive")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(table)
	sb.Where(sb.Equal("deleted", false))

	query, args := sb.Build()
	var n int64
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count dedup groups")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count dedup groups")
	}
	return n, nil
}
