package dedup

import (
	"slices"

	"github.com/Ramsey-B/bramble/pkg/metadata"
	"github.com/Ramsey-B/bramble/pkg/models"
)

// UpdateCandidateKeys derives the title, ISBN and id keys of rec from its metadata.
// It returns a copy carrying the new keys and whether any key set changed.
// Empty key sets are stored as nil.
func UpdateCandidateKeys(rec *models.Record, meta metadata.Record) (*models.Record, bool) {
	out := rec.Clone()

	out.TitleKeys = nil
	if key := metadata.TitleKey(meta.Title(true)); key != "" {
		out.TitleKeys = []string{key}
	}
	out.ISBNKeys = keySet(meta.ISBNs())
	out.IDKeys = keySet(meta.UniqueIDs())

	changed := !sameSet(rec.TitleKeys, out.TitleKeys) ||
		!sameSet(rec.ISBNKeys, out.ISBNKeys) ||
		!sameSet(rec.IDKeys, out.IDKeys)
	return out, changed
}

func keySet(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := slices.Clone(a), slices.Clone(b)
	slices.Sort(sa)
	slices.Sort(sb)
	return slices.Equal(sa, sb)
}
