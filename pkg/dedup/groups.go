package dedup

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/Ramsey-B/bramble/internal/tracing"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/store"
)

// Reasons reported by CheckDedupRecord
const (
	ReasonRecordMissing   = "record does not exist"
	ReasonGroupDeleted    = "dedup record deleted"
	ReasonRecordDeleted   = "record deleted"
	ReasonSingleRecord    = "single record in a dedup group"
	ReasonNotLinked       = "record not linked"
	ReasonLinkedElsewhere = "record linked with another dedup record"
	ReasonSameSource      = "another record from the same source in the dedup group"
)

// MarkDuplicates links rec1 and rec2 into one dedup group and reports whether
// either record's membership was written. rec1 is re-read first; if it is gone
// nothing happens. A host record cascades into its component parts.
func (h *Handler) MarkDuplicates(ctx context.Context, rec1, rec2 *models.Record) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Handler.MarkDuplicates")
	defer span.End()

	log := h.logger.WithContext(ctx).WithFields(map[string]any{
		"record_id":    rec1.ID,
		"duplicate_id": rec2.ID,
	})

	fresh, err := h.store.GetRecord(ctx, rec1.ID)
	if err != nil {
		return false, err
	}
	if fresh == nil {
		log.Error("record vanished before it could be linked")
		return false, nil
	}
	rec1 = fresh

	groupID, err := h.resolveGroup(ctx, rec1, rec2)
	if err != nil {
		return false, err
	}

	written := false
	if rec1.DedupID != groupID || rec2.DedupID != groupID || rec1.UpdateNeeded || rec2.UpdateNeeded {
		_, err := h.store.UpdateRecords(ctx, store.RecordFilter{IDs: []string{rec1.ID, rec2.ID}}, store.RecordUpdate{
			DedupID:      store.String(groupID),
			UpdateNeeded: store.Bool(false),
			Updated:      h.store.Timestamp(),
		})
		if err != nil {
			return false, err
		}
		written = true
		log.WithFields(map[string]any{"dedup_id": groupID}).Debug("linked duplicates")
	}

	if !rec1.IsComponentPart() {
		host := rec1.Clone()
		host.DedupID = groupID
		if _, err := h.DedupComponentParts(ctx, host); err != nil {
			return written, err
		}
	}
	return written, nil
}

// resolveGroup picks or creates the group rec1 and rec2 end up in
func (h *Handler) resolveGroup(ctx context.Context, rec1, rec2 *models.Record) (string, error) {
	switch {
	case rec2.DedupID != "" && rec1.DedupID != rec2.DedupID:
		if rec1.DedupID != "" {
			if err := h.RemoveFromDedupRecord(ctx, rec1.DedupID, rec1.ID); err != nil {
				return "", err
			}
		}
		return h.addOrCreate(ctx, rec2.DedupID, rec1.ID, rec1.ID, rec2.ID)
	case rec1.DedupID != "":
		return h.addOrCreate(ctx, rec1.DedupID, rec2.ID, rec1.ID, rec2.ID)
	default:
		return h.CreateDedupRecord(ctx, rec1.ID, rec2.ID)
	}
}

// addOrCreate adds id to groupID, creating a new group of id1 and id2 if that group is gone
func (h *Handler) addOrCreate(ctx context.Context, groupID, id, id1, id2 string) (string, error) {
	added, err := h.AddToDedupRecord(ctx, groupID, id)
	if err != nil {
		return "", err
	}
	if added {
		return groupID, nil
	}
	return h.CreateDedupRecord(ctx, id1, id2)
}

// CreateDedupRecord stores a new group of two records and returns its id
func (h *Handler) CreateDedupRecord(ctx context.Context, id1, id2 string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Handler.CreateDedupRecord")
	defer span.End()

	group := &models.DedupGroup{
		ID:      uuid.NewString(),
		IDs:     []string{id1, id2},
		Changed: h.store.Timestamp(),
	}
	if err := h.store.SaveDedup(ctx, group); err != nil {
		return "", err
	}

	metrics.GroupChangesTotal.WithLabelValues(string(GroupCreated)).Inc()
	h.observer.GroupChanged(ctx, GroupCreated, group)
	return group.ID, nil
}

// AddToDedupRecord adds id to a live group. It returns false when the group is missing or deleted.
func (h *Handler) AddToDedupRecord(ctx context.Context, groupID, id string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Handler.AddToDedupRecord")
	defer span.End()

	group, err := h.store.GetDedup(ctx, groupID)
	if err != nil {
		return false, err
	}
	if group == nil || group.Deleted {
		return false, nil
	}
	if group.Contains(id) {
		return true, nil
	}

	group.IDs = append(group.IDs, id)
	group.Changed = h.store.Timestamp()
	if err := h.store.SaveDedup(ctx, group); err != nil {
		return false, err
	}

	metrics.GroupChangesTotal.WithLabelValues(string(GroupUpdated)).Inc()
	h.observer.GroupChanged(ctx, GroupUpdated, group)
	return true, nil
}

// RemoveFromDedupRecord removes id from a group. A group left with one member is
// deleted and that member is flagged for a new pass; with more members left, all of
// them are flagged. A missing group is logged as a dangling reference and a deleted
// group no longer holding id is left untouched.
func (h *Handler) RemoveFromDedupRecord(ctx context.Context, groupID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "dedup.Handler.RemoveFromDedupRecord")
	defer span.End()

	log := h.logger.WithContext(ctx).WithFields(map[string]any{
		"dedup_id":  groupID,
		"record_id": id,
	})

	group, err := h.store.GetDedup(ctx, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		log.Warn("dangling reference to a dedup record that does not exist")
		return nil
	}
	if group.Deleted && !group.Contains(id) {
		log.Debug("dedup record already deleted")
		return nil
	}

	group.IDs = slices.DeleteFunc(group.IDs, func(member string) bool { return member == id })
	now := h.store.Timestamp()

	switch len(group.IDs) {
	case 0:
		group.Deleted = true
	case 1:
		_, err := h.store.UpdateRecords(ctx,
			store.RecordFilter{IDs: group.IDs, DedupID: group.ID, Deleted: store.Bool(false)},
			store.RecordUpdate{UnsetDedupID: true, UpdateNeeded: store.Bool(true), Updated: now},
		)
		if err != nil {
			return err
		}
		group.IDs = nil
		group.Deleted = true
	default:
		_, err := h.store.UpdateRecords(ctx,
			store.RecordFilter{IDs: group.IDs},
			store.RecordUpdate{UpdateNeeded: store.Bool(true), Updated: now},
		)
		if err != nil {
			return err
		}
	}

	group.Changed = now
	if err := h.store.SaveDedup(ctx, group); err != nil {
		return err
	}

	action := GroupUpdated
	if group.Deleted {
		action = GroupDeleted
	}
	metrics.GroupChangesTotal.WithLabelValues(string(action)).Inc()
	h.observer.GroupChanged(ctx, action, group)
	log.WithFields(map[string]any{"remaining": len(group.IDs)}).Debug("removed record from dedup record")
	return nil
}

// CheckDedupRecord verifies every member of a group and removes those that violate
// the group invariants. It returns one line per repair.
func (h *Handler) CheckDedupRecord(ctx context.Context, group *models.DedupGroup) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Handler.CheckDedupRecord")
	defer span.End()

	var results []string
	for _, id := range slices.Clone(group.IDs) {
		if !group.Contains(id) {
			continue
		}

		rec, err := h.store.GetRecord(ctx, id)
		if err != nil {
			return results, err
		}

		reason := checkMember(group, rec)
		if reason == "" {
			clash, err := h.earlierFromSource(ctx, group, rec)
			if err != nil {
				return results, err
			}
			if !clash {
				continue
			}
			reason = ReasonSameSource
		}

		if err := h.RemoveFromDedupRecord(ctx, group.ID, id); err != nil {
			return results, err
		}
		if rec != nil && rec.DedupID == group.ID {
			_, err := h.store.UpdateRecords(ctx, store.RecordFilter{IDs: []string{id}}, store.RecordUpdate{
				UnsetDedupID: true,
				UpdateNeeded: store.Bool(true),
				Updated:      h.store.Timestamp(),
			})
			if err != nil {
				return results, err
			}
		}

		line := fmt.Sprintf("Removed '%s' from dedup record '%s' (%s)", id, group.ID, reason)
		results = append(results, line)
		metrics.IntegrityRepairsTotal.WithLabelValues(reason).Inc()
		h.logger.WithContext(ctx).WithFields(map[string]any{
			"dedup_id":  group.ID,
			"record_id": id,
			"reason":    reason,
		}).Warn(line)

		group, err = h.store.GetDedup(ctx, group.ID)
		if err != nil {
			return results, err
		}
		if group == nil {
			break
		}
	}
	return results, nil
}

func checkMember(group *models.DedupGroup, rec *models.Record) string {
	switch {
	case rec == nil:
		return ReasonRecordMissing
	case group.Deleted:
		return ReasonGroupDeleted
	case rec.Deleted:
		return ReasonRecordDeleted
	case len(group.IDs) < 2:
		return ReasonSingleRecord
	case rec.DedupID == "":
		return ReasonNotLinked
	case rec.DedupID != group.ID:
		return ReasonLinkedElsewhere
	}
	return ""
}

// earlierFromSource reports whether group holds a record of rec's source with a lower id.
// The lowest id of a source keeps its place in the group.
func (h *Handler) earlierFromSource(ctx context.Context, group *models.DedupGroup, rec *models.Record) (bool, error) {
	var earlier []string
	for _, id := range group.IDs {
		if id < rec.ID {
			earlier = append(earlier, id)
		}
	}
	if len(earlier) == 0 {
		return false, nil
	}
	found, err := h.store.FindRecord(ctx, store.RecordFilter{IDs: earlier, SourceID: rec.SourceID})
	if err != nil {
		return false, err
	}
	return found != nil, nil
}
