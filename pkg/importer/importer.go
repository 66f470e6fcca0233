// Package importer loads harvested records from JSON lines into the store, extracting their
// candidate keys and flagging changed records for deduplication.
package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/bramble/internal/tracing"
	"github.com/Ramsey-B/bramble/pkg/dedup"
	"github.com/Ramsey-B/bramble/pkg/fingerprint"
	"github.com/Ramsey-B/bramble/pkg/metadata"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/store"
)

const maxLineSize = 16 << 20

var validate = validator.New()

// Stats counts what an import did
type Stats struct {
	Read      int `json:"read"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
	Invalid   int `json:"invalid"`
}

// Importer writes harvested records to a store
type Importer struct {
	logger  ectologger.Logger
	store   store.Store
	factory *metadata.Factory
}

// New creates an importer
func New(logger ectologger.Logger, st store.Store, factory *metadata.Factory) *Importer {
	return &Importer{logger: logger, store: st, factory: factory}
}

// Import reads one CreateRecordRequest per line. Invalid lines are logged and counted;
// only store and read failures abort the import.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*Stats, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Importer.Import")
	defer span.End()

	stats := &Stats{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		stats.Read++

		var req models.CreateRecordRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			stats.Invalid++
			i.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"line": line}).Warn("Skipping malformed record line")
			continue
		}
		if err := validate.Struct(req); err != nil {
			stats.Invalid++
			i.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"line": line, "record_id": req.ID}).Warn("Skipping invalid record")
			continue
		}
		if models.SourcePrefix(req.ID) != req.SourceID {
			stats.Invalid++
			i.logger.WithContext(ctx).WithFields(map[string]any{
				"line":      line,
				"record_id": req.ID,
				"source_id": req.SourceID,
			}).Warn("Skipping record whose id is not prefixed with its source")
			continue
		}

		if err := i.importRecord(ctx, &req, stats); err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, err
	}

	i.logger.WithContext(ctx).WithFields(map[string]any{
		"read":      stats.Read,
		"created":   stats.Created,
		"updated":   stats.Updated,
		"deleted":   stats.Deleted,
		"unchanged": stats.Unchanged,
		"invalid":   stats.Invalid,
	}).Info("Import completed")
	return stats, nil
}

func (i *Importer) importRecord(ctx context.Context, req *models.CreateRecordRequest, stats *Stats) error {
	existing, err := i.store.GetRecord(ctx, req.ID)
	if err != nil {
		return err
	}

	if req.Deleted && req.Payload == "" {
		if existing == nil || existing.Deleted {
			stats.Unchanged++
			return nil
		}
		_, err := i.store.UpdateRecords(ctx, store.RecordFilter{IDs: []string{req.ID}}, store.RecordUpdate{
			Deleted:      store.Bool(true),
			UpdateNeeded: store.Bool(true),
			Updated:      i.store.Timestamp(),
		})
		if err != nil {
			return err
		}
		stats.Deleted++
		return nil
	}

	linkingID := req.LinkingID
	if linkingID == "" {
		linkingID = req.ID
	}
	payload := []byte(req.Payload)
	fp := fingerprint.Generate(req.Format, payload, req.HostRecordID, linkingID)

	if existing != nil && existing.Deleted == req.Deleted && !fingerprint.HasChanged(existing.Fingerprint, fp) {
		stats.Unchanged++
		return nil
	}

	now := i.store.Timestamp()
	rec := &models.Record{
		ID:           req.ID,
		SourceID:     req.SourceID,
		Format:       req.Format,
		Deleted:      req.Deleted,
		UpdateNeeded: true,
		HostRecordID: req.HostRecordID,
		LinkingID:    linkingID,
		Payload:      payload,
		Fingerprint:  fp,
		Created:      now,
		Updated:      now,
	}
	if existing != nil {
		// membership is owned by the dedup engine
		rec.DedupID = existing.DedupID
		rec.Created = existing.Created
	}

	if !rec.Deleted {
		meta, err := i.factory.Create(rec.Format, rec.Payload, rec.ID, rec.SourceID)
		if err != nil {
			stats.Invalid++
			i.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"record_id": rec.ID}).Warn("Skipping unparsable record")
			return nil
		}
		rec, _ = dedup.UpdateCandidateKeys(rec, meta)
		if meta.IsDeleted() {
			rec.Deleted = true
		}
	}

	if err := i.store.SaveRecord(ctx, rec); err != nil {
		return err
	}
	switch {
	case existing == nil:
		stats.Created++
	case rec.Deleted && !existing.Deleted:
		stats.Deleted++
	default:
		stats.Updated++
	}
	return nil
}
