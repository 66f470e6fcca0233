package record

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

const table = "records"

var columns = []string{
	"id",
	"source_id",
	"format",
	"deleted",
	"update_needed",
	"COALESCE(host_record_id, '') AS host_record_id",
	"COALESCE(linking_id, '') AS linking_id",
	"COALESCE(title_keys, '{}') AS title_keys",
	"COALESCE(isbn_keys, '{}') AS isbn_keys",
	"COALESCE(id_keys, '{}') AS id_keys",
	"COALESCE(dedup_id, '') AS dedup_id",
	"payload",
	"COALESCE(fingerprint, '') AS fingerprint",
	"created",
	"updated",
}

// row is the scan target for a records row; key arrays come back as pq arrays
type row struct {
	models.Record
	TitleKeys pq.StringArray `db:"title_keys"`
	ISBNKeys  pq.StringArray `db:"isbn_keys"`
	IDKeys    pq.StringArray `db:"id_keys"`
}

func (r *row) toModel() *models.Record {
	rec := r.Record
	rec.TitleKeys = nilIfEmpty(r.TitleKeys)
	rec.ISBNKeys = nilIfEmpty(r.ISBNKeys)
	rec.IDKeys = nilIfEmpty(r.IDKeys)
	return &rec
}

func nilIfEmpty(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	return values
}

// nullable stores "" as NULL
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Repository handles record persistence and the candidate key index
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get returns the record with id, or nil if there is none
func (r *Repository) Get(ctx context.Context, id string) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var out row
	if err := r.db.GetContext(ctx, &out, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"record_id": id}).Error("Failed to get record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get record")
	}
	return out.toModel(), nil
}

// Find streams records matching the filter ordered by id
func (r *Repository) Find(ctx context.Context, filter store.RecordFilter) iter.Seq2[*models.Record, error] {
	return func(yield func(*models.Record, error) bool) {
		ctx, span := tracing.StartSpan(ctx, "record.Repository.Find")
		defer span.End()

		sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		sb.Select(columns...)
		sb.From(table)
		if where := recordConditions(&sb.Cond, filter); len(where) > 0 {
			sb.Where(where...)
		}
		sb.OrderBy("id")
		if filter.Limit > 0 {
			sb.Limit(filter.Limit)
		}

		query, args := sb.Build()
		rows, err := r.db.QueryxContext(ctx, query, args...)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to query records")
			yield(nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find records"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var out row
			if err := rows.StructScan(&out); err != nil {
				r.logger.WithContext(ctx).WithError(err).Error("Failed to scan record")
				yield(nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to read record"))
				return
			}
			if !yield(out.toModel(), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to iterate records")
			yield(nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find records"))
		}
	}
}

// Update applies a partial update to every matching record and returns how many were changed.
// Key changes rewrite the key index in the same transaction.
func (r *Repository) Update(ctx context.Context, filter store.RecordFilter, update store.RecordUpdate) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Update")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)

	assignments := []string{ub.Assign("updated", update.Updated)}
	switch {
	case update.UnsetDedupID:
		assignments = append(assignments, ub.Assign("dedup_id", nil))
	case update.DedupID != nil:
		assignments = append(assignments, ub.Assign("dedup_id", nullable(*update.DedupID)))
	}
	if update.UpdateNeeded != nil {
		assignments = append(assignments, ub.Assign("update_needed", *update.UpdateNeeded))
	}
	if update.Deleted != nil {
		assignments = append(assignments, ub.Assign("deleted", *update.Deleted))
	}
	if update.SetKeys {
		assignments = append(assignments,
			ub.Assign("title_keys", pq.Array(nilIfEmpty(update.TitleKeys))),
			ub.Assign("isbn_keys", pq.Array(nilIfEmpty(update.ISBNKeys))),
			ub.Assign("id_keys", pq.Array(nilIfEmpty(update.IDKeys))),
		)
	}
	ub.Set(assignments...)
	if where := recordConditions(&ub.Cond, filter); len(where) > 0 {
		ub.Where(where...)
	}

	query, args := ub.Build()

	if !update.SetKeys {
		result, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to update records")
			return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update records")
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update records")
		}
		return n, nil
	}

	var ids []string
	err := database.WithTx(ctx, r.logger, r.db, nil, func(ctx context.Context, tx database.Tx) error {
		if err := tx.SelectContext(ctx, &ids, query+" RETURNING id", args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to update records")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update records")
		}
		for _, id := range ids {
			keys := &models.Record{ID: id, TitleKeys: update.TitleKeys, ISBNKeys: update.ISBNKeys, IDKeys: update.IDKeys}
			if err := r.replaceKeys(ctx, tx, keys); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// Save inserts or replaces a record together with its key index entries
func (r *Repository) Save(ctx context.Context, rec *models.Record) error {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Save")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("id", "source_id", "format", "deleted", "update_needed", "host_record_id", "linking_id",
		"title_keys", "isbn_keys", "id_keys", "dedup_id", "payload", "fingerprint", "created", "updated")
	ib.Values(
		rec.ID,
		rec.SourceID,
		rec.Format,
		rec.Deleted,
		rec.UpdateNeeded,
		nullable(rec.HostRecordID),
		nullable(rec.LinkingID),
		pq.Array(rec.TitleKeys),
		pq.Array(rec.ISBNKeys),
		pq.Array(rec.IDKeys),
		nullable(rec.DedupID),
		rec.Payload,
		nullable(rec.Fingerprint),
		rec.Created,
		rec.Updated,
	)
	query, args := ib.Build()
	query += ` ON CONFLICT (id) DO UPDATE SET
		source_id = EXCLUDED.source_id,
		format = EXCLUDED.format,
		deleted = EXCLUDED.deleted,
		update_needed = EXCLUDED.update_needed,
		host_record_id = EXCLUDED.host_record_id,
		linking_id = EXCLUDED.linking_id,
		title_keys = EXCLUDED.title_keys,
		isbn_keys = EXCLUDED.isbn_keys,
		id_keys = EXCLUDED.id_keys,
		dedup_id = EXCLUDED.dedup_id,
		payload = EXCLUDED.payload,
		fingerprint = EXCLUDED.fingerprint,
		updated = EXCLUDED.updated`

	return database.WithTx(ctx, r.logger, r.db, nil, func(ctx context.Context, tx database.Tx) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"record_id": rec.ID}).Error("Failed to save record")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save record")
		}
		return r.replaceKeys(ctx, tx, rec)
	})
}

// replaceKeys rewrites the key index entries of one record
func (r *Repository) replaceKeys(ctx context.Context, tx database.Tx, rec *models.Record) error {
	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("record_keys")
	db.Where(db.Equal("record_id", rec.ID))
	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"record_id": rec.ID}).Error("Failed to delete record keys")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete record keys")
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("record_keys")
	ib.Cols("record_id", "key_type", "key_value")
	n := 0
	for _, keyType := range models.KeyTypes {
		for _, value := range rec.Keys(keyType) {
			if value == "" {
				continue
			}
			ib.Values(rec.ID, string(keyType), value)
			n++
		}
	}
	if n == 0 {
		return nil
	}

	query, args = ib.Build()
	if _, err := tx.ExecContext(ctx, query+" ON CONFLICT DO NOTHING", args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"record_id": rec.ID}).Error("Failed to insert record keys")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert record keys")
	}
	return nil
}

// recordConditions translates a filter into WHERE expressions
func recordConditions(cond *sqlbuilder.Cond, f store.RecordFilter) []string {
	var where []string
	if len(f.IDs) > 0 {
		where = append(where, cond.In("id", sqlbuilder.Flatten(f.IDs)...))
	}
	if f.SourceID != "" {
		where = append(where, cond.Equal("source_id", f.SourceID))
	}
	if f.ExcludeSourceID != "" {
		where = append(where, cond.NotEqual("source_id", f.ExcludeSourceID))
	}
	if f.HostRecordID != "" {
		where = append(where, cond.Equal("host_record_id", f.HostRecordID))
	}
	if f.LinkingID != "" {
		where = append(where, cond.Equal("linking_id", f.LinkingID))
	}
	if f.DedupID != "" {
		where = append(where, cond.Equal("dedup_id", f.DedupID))
	}
	if f.KeyType != "" {
		where = append(where, fmt.Sprintf(
			"id IN (SELECT record_id FROM record_keys WHERE key_type = %s AND key_value = %s)",
			cond.Var(string(f.KeyType)), cond.Var(f.KeyValue),
		))
	}
	if f.Deleted != nil {
		where = append(where, cond.Equal("deleted", *f.Deleted))
	}
	if f.UpdateNeeded != nil {
		where = append(where, cond.Equal("update_needed", *f.UpdateNeeded))
	}
	if f.AfterID != "" {
		where = append(where, cond.GreaterThan("id", f.AfterID))
	}
	return where
}

// Count returns the number of records matching the filter
func (r *Repository) Count(ctx context.Context, filter store.RecordFilter) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(table)
	if where := recordConditions(&sb.Cond, filter); len(where) > 0 {
		sb.Where(where...)
	}

	query, args := sb.Build()
	var n int64
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count records")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count records")
	}
	return n, nil
}
