// Package dedup finds duplicate bibliographic records and maintains the dedup groups linking them.
package dedup

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/internal/tracing"
	"github.com/Ramsey-B/bramble/pkg/matching"
	"github.com/Ramsey-B/bramble/pkg/metadata"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/sources"
	"github.com/Ramsey-B/bramble/pkg/store"
)

// Outcome is the result of processing one record
type Outcome string

const (
	OutcomeMatched   Outcome = metrics.OutcomeMatched
	OutcomeUnmatched Outcome = metrics.OutcomeUnmatched
	OutcomeSkipped   Outcome = metrics.OutcomeSkipped
)

// Handler runs dedup passes against a store
type Handler struct {
	logger   ectologger.Logger
	store    store.Store
	matcher  *matching.Matcher
	sources  *sources.Registry
	search   *CandidateSearch
	observer GroupObserver
	config   Config
}

// Option configures a Handler
type Option func(*Handler)

// WithObserver registers an observer for dedup group changes
func WithObserver(o GroupObserver) Option {
	return func(h *Handler) {
		if o != nil {
			h.observer = o
		}
	}
}

// NewHandler creates a new dedup handler
func NewHandler(
	logger ectologger.Logger,
	st store.Store,
	matcher *matching.Matcher,
	registry *sources.Registry,
	config Config,
	opts ...Option,
) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dedup config: %w", err)
	}
	search, err := NewCandidateSearch(st, config.MaxCandidates, config.HotKeyMaxCandidates, config.HotKeyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create candidate search: %w", err)
	}

	h := &Handler{
		logger:   logger,
		store:    st,
		matcher:  matcher,
		sources:  registry,
		search:   search,
		observer: noopObserver{},
		config:   config,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// UpdateDedupCandidateKeys returns rec with keys derived from meta and whether they changed
func (h *Handler) UpdateDedupCandidateKeys(rec *models.Record, meta metadata.Record) (*models.Record, bool) {
	return UpdateCandidateKeys(rec, meta)
}

// Process loads a record, refreshes its candidate keys and runs a dedup pass on it
func (h *Handler) Process(ctx context.Context, id string) (Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Handler.Process")
	defer span.End()

	rec, err := h.store.GetRecord(ctx, id)
	if err != nil {
		return "", err
	}
	if rec == nil {
		h.logger.WithContext(ctx).WithFields(map[string]any{"record_id": id}).Debug("record not found, skipping")
		return OutcomeSkipped, nil
	}

	var meta metadata.Record
	if !rec.Deleted {
		meta, err = h.matcher.Parse(rec)
		if err != nil {
			return h.skipUnparsable(ctx, rec, err)
		}
		rec, err = h.refreshKeys(ctx, rec, meta)
		if err != nil {
			return "", err
		}
	}

	matched, err := h.dedupRecord(ctx, rec, meta)
	if err != nil {
		return "", err
	}
	if matched {
		return OutcomeMatched, nil
	}
	return OutcomeUnmatched, nil
}

// skipUnparsable clears the update flag of a record whose payload cannot be parsed.
// It keeps its keys and group membership until a new payload arrives.
func (h *Handler) skipUnparsable(ctx context.Context, rec *models.Record, parseErr error) (Outcome, error) {
	h.logger.WithContext(ctx).WithError(parseErr).WithFields(map[string]any{
		"record_id": rec.ID,
		"format":    rec.Format,
	}).Error("unparsable record payload, skipping")

	if rec.UpdateNeeded {
		_, err := h.store.UpdateRecords(ctx, store.RecordFilter{IDs: []string{rec.ID}}, store.RecordUpdate{
			UpdateNeeded: store.Bool(false),
			Updated:      h.store.Timestamp(),
		})
		if err != nil {
			return "", err
		}
	}
	return OutcomeSkipped, nil
}

// refreshKeys writes new candidate keys, and the deletion status carried by the payload, when they changed
func (h *Handler) refreshKeys(ctx context.Context, rec *models.Record, meta metadata.Record) (*models.Record, error) {
	updated, changed := h.UpdateDedupCandidateKeys(rec, meta)
	deleted := meta.IsDeleted() && !rec.Deleted
	if !changed && !deleted {
		return rec, nil
	}

	update := store.RecordUpdate{
		SetKeys:   true,
		TitleKeys: updated.TitleKeys,
		ISBNKeys:  updated.ISBNKeys,
		IDKeys:    updated.IDKeys,
		Updated:   h.store.Timestamp(),
	}
	if deleted {
		update.Deleted = store.Bool(true)
		updated.Deleted = true
	}
	if _, err := h.store.UpdateRecords(ctx, store.RecordFilter{IDs: []string{rec.ID}}, update); err != nil {
		return nil, err
	}
	updated.Updated = update.Updated
	return updated, nil
}

// DedupRecord runs a dedup pass on rec and reports whether a duplicate was found.
// A record without a match loses any stale group membership and its update flag.
func (h *Handler) DedupRecord(ctx context.Context, rec *models.Record) (bool, error) {
	var meta metadata.Record
	if !rec.Deleted {
		var err error
		if meta, err = h.matcher.Parse(rec); err != nil {
			return false, err
		}
	}
	return h.dedupRecord(ctx, rec, meta)
}

func (h *Handler) dedupRecord(ctx context.Context, rec *models.Record, meta metadata.Record) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Handler.DedupRecord")
	defer span.End()

	log := h.logger.WithContext(ctx).WithFields(map[string]any{
		"record_id": rec.ID,
		"source_id": rec.SourceID,
	})

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		metrics.RecordPassDuration.Observe(elapsed.Seconds())
		if h.config.SlowPassThreshold > 0 && elapsed > h.config.SlowPassThreshold {
			log.WithFields(map[string]any{"duration": elapsed.String()}).Warn("slow dedup pass")
		}
	}()

	if !rec.Deleted && h.sources.DedupEnabled(rec.SourceID) {
		candidate, err := h.findMatch(ctx, rec, meta)
		if err != nil {
			return false, err
		}
		if candidate != nil {
			log.WithFields(map[string]any{"candidate_id": candidate.ID}).Debug("found duplicate")
			if _, err := h.MarkDuplicates(ctx, rec, candidate); err != nil {
				return false, err
			}
			return true, nil
		}
	}

	if rec.DedupID != "" {
		if err := h.RemoveFromDedupRecord(ctx, rec.DedupID, rec.ID); err != nil {
			return false, err
		}
	}
	if rec.DedupID != "" || rec.UpdateNeeded {
		_, err := h.store.UpdateRecords(ctx, store.RecordFilter{IDs: []string{rec.ID}}, store.RecordUpdate{
			UnsetDedupID: true,
			UpdateNeeded: store.Bool(false),
			Updated:      h.store.Timestamp(),
		})
		if err != nil {
			return false, err
		}
	}
	return false, nil
}

// findMatch walks the record's keys in priority order and returns the first matching candidate
func (h *Handler) findMatch(ctx context.Context, rec *models.Record, meta metadata.Record) (*models.Record, error) {
	var own *models.DedupGroup
	if rec.DedupID != "" {
		var err error
		if own, err = h.store.GetDedup(ctx, rec.DedupID); err != nil {
			return nil, err
		}
	}

	for _, keyType := range models.KeyTypes {
		for _, keyValue := range rec.Keys(keyType) {
			if keyValue == "" {
				continue
			}
			candidate, err := h.searchKey(ctx, rec, meta, own, keyType, keyValue)
			if err != nil {
				return nil, err
			}
			if candidate != nil {
				return candidate, nil
			}
		}
	}
	return nil, nil
}

// searchKey scans the candidates of one key. own is the group rec currently belongs to, if any.
func (h *Handler) searchKey(
	ctx context.Context,
	rec *models.Record,
	meta metadata.Record,
	own *models.DedupGroup,
	keyType models.KeyType,
	keyValue string,
) (*models.Record, error) {
	limit := h.search.Limit(keyType, keyValue)
	processed := 0

	for candidate, err := range h.search.FindCandidates(ctx, keyType, keyValue, rec.SourceID) {
		if err != nil {
			return nil, err
		}
		if candidate.ID == rec.ID || !h.sources.DedupEnabled(candidate.SourceID) {
			continue
		}

		// Candidates sharing a higher priority key were already compared under that key,
		// and disjoint identifiers on both sides rule a candidate out.
		if keyType != models.KeyTypeISBN && skipOnKeys(rec.ISBNKeys, candidate.ISBNKeys) {
			continue
		}
		if keyType == models.KeyTypeTitle && skipOnKeys(rec.IDKeys, candidate.IDKeys) {
			continue
		}

		processed++
		if processed > limit {
			h.search.MarkHot(keyType, keyValue)
			metrics.HotKeysTotal.WithLabelValues(string(keyType)).Inc()
			h.logger.WithContext(ctx).WithFields(map[string]any{
				"record_id": rec.ID,
				"key_type":  string(keyType),
				"key":       keyValue,
				"limit":     limit,
			}).Debug("too many candidates for key")
			return nil, nil
		}

		// A group never holds two records of one source
		if candidate.DedupID != "" && (own == nil || candidate.DedupID != own.ID) {
			group, err := h.store.GetDedup(ctx, candidate.DedupID)
			if err != nil {
				return nil, err
			}
			clash, err := h.hasOtherFromSource(ctx, group, rec)
			if err != nil {
				return nil, err
			}
			if clash {
				continue
			}
		}
		if own != nil && !own.Deleted && candidate.DedupID != own.ID {
			clash, err := h.hasOtherFromSource(ctx, own, candidate)
			if err != nil {
				return nil, err
			}
			if clash {
				continue
			}
		}

		metrics.CandidatesExaminedTotal.WithLabelValues(string(keyType)).Inc()
		if h.matcher.Matches(ctx, rec, meta, candidate) {
			return candidate, nil
		}
	}
	return nil, nil
}

func skipOnKeys(own, other []string) bool {
	return matching.SharesAny(own, other) || matching.Disjoint(own, other)
}

// hasOtherFromSource reports whether group holds a record, other than rec, from rec's source.
// Member sources are read from the stored records.
func (h *Handler) hasOtherFromSource(ctx context.Context, group *models.DedupGroup, rec *models.Record) (bool, error) {
	if group == nil {
		return false, nil
	}
	others := slices.DeleteFunc(slices.Clone(group.IDs), func(id string) bool { return id == rec.ID })
	if len(others) == 0 {
		return false, nil
	}
	found, err := h.store.FindRecord(ctx, store.RecordFilter{IDs: others, SourceID: rec.SourceID})
	if err != nil {
		return false, err
	}
	return found != nil, nil
}
