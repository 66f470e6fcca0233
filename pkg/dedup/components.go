package dedup

import (
	"context"
	"slices"
	"strings"

	"github.com/Ramsey-B/bramble/internal/tracing"
	"github.com/Ramsey-B/bramble/pkg/metadata"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/store"
)

// DedupComponentParts links the component parts of host with those of another host
// in the same dedup group. Parts are only linked when every part of both hosts
// matches pairwise in order; the first such host wins. It returns the number of
// part pairs whose membership was written.
func (h *Handler) DedupComponentParts(ctx context.Context, host *models.Record) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Handler.DedupComponentParts")
	defer span.End()

	log := h.logger.WithContext(ctx).WithFields(map[string]any{
		"record_id": host.ID,
		"dedup_id":  host.DedupID,
	})

	if host.LinkingID == "" {
		log.Error("host record has no linking id, cannot deduplicate component parts")
		return 0, nil
	}
	if host.DedupID == "" {
		return 0, nil
	}

	parts, err := h.componentParts(ctx, host)
	if err != nil || len(parts) == 0 {
		return 0, err
	}

	metas := make([]metadata.Record, len(parts))
	for i, part := range parts {
		if metas[i], err = h.matcher.Parse(part); err != nil {
			log.WithError(err).WithFields(map[string]any{"part_id": part.ID}).Warn("failed to parse component part")
			return 0, nil
		}
	}

	others, err := h.otherHosts(ctx, host)
	if err != nil {
		return 0, err
	}

	for _, other := range others {
		otherParts, err := h.componentParts(ctx, other)
		if err != nil {
			return 0, err
		}
		if len(otherParts) != len(parts) {
			continue
		}

		allMatch := true
		for i, part := range parts {
			if !h.matcher.Matches(ctx, part, metas[i], otherParts[i]) {
				allMatch = false
				break
			}
		}
		if !allMatch {
			continue
		}

		linked := 0
		for i, part := range parts {
			written, err := h.MarkDuplicates(ctx, part, otherParts[i])
			if err != nil {
				return linked, err
			}
			if written {
				linked++
			}
		}
		metrics.ComponentPartsLinkedTotal.Add(float64(linked))
		log.WithFields(map[string]any{
			"other_host_id": other.ID,
			"parts":         len(parts),
			"linked":        linked,
		}).Debug("deduplicated component parts")
		return linked, nil
	}
	return 0, nil
}

// componentParts returns the live parts of host sorted by their numeric-aware id key
func (h *Handler) componentParts(ctx context.Context, host *models.Record) ([]*models.Record, error) {
	if host.LinkingID == "" {
		return nil, nil
	}

	var parts []*models.Record
	for part, err := range h.store.FindRecords(ctx, store.RecordFilter{
		SourceID:     host.SourceID,
		HostRecordID: host.LinkingID,
		Deleted:      store.Bool(false),
	}) {
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}

	slices.SortStableFunc(parts, func(a, b *models.Record) int {
		return strings.Compare(metadata.IDSortKey(a.ID), metadata.IDSortKey(b.ID))
	})
	return parts, nil
}

// otherHosts returns live members of host's group from other sources
func (h *Handler) otherHosts(ctx context.Context, host *models.Record) ([]*models.Record, error) {
	var others []*models.Record
	for rec, err := range h.store.FindRecords(ctx, store.RecordFilter{
		DedupID:         host.DedupID,
		ExcludeSourceID: host.SourceID,
		Deleted:         store.Bool(false),
	}) {
		if err != nil {
			return nil, err
		}
		if !rec.IsComponentPart() {
			others = append(others, rec)
		}
	}
	return others, nil
}
