package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/bramble/pkg/models"
)

func TestRecordFilter_Matches(t *testing.T) {
	rec := &models.Record{
		ID:           "x.2",
		SourceID:     "x",
		HostRecordID: "h1",
		DedupID:      "g1",
		ISBNKeys:     []string{"9780321125217"},
		UpdateNeeded: true,
	}

	tests := []struct {
		name   string
		filter RecordFilter
		want   bool
	}{
		{"empty filter", RecordFilter{}, true},
		{"ids", RecordFilter{IDs: []string{"x.1", "x.2"}}, true},
		{"other ids", RecordFilter{IDs: []string{"x.1"}}, false},
		{"source", RecordFilter{SourceID: "x"}, true},
		{"excluded source", RecordFilter{ExcludeSourceID: "x"}, false},
		{"host", RecordFilter{HostRecordID: "h1"}, true},
		{"dedup id", RecordFilter{DedupID: "g2"}, false},
		{"key", RecordFilter{KeyType: models.KeyTypeISBN, KeyValue: "9780321125217"}, true},
		{"key of other type", RecordFilter{KeyType: models.KeyTypeTitle, KeyValue: "9780321125217"}, false},
		{"not deleted", RecordFilter{Deleted: Bool(false)}, true},
		{"deleted", RecordFilter{Deleted: Bool(true)}, false},
		{"update needed", RecordFilter{UpdateNeeded: Bool(true)}, true},
		{"after id", RecordFilter{AfterID: "x.1"}, true},
		{"after own id", RecordFilter{AfterID: "x.2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(rec))
		})
	}
}

func TestRecordUpdate_Apply(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := &models.Record{ID: "x.1", DedupID: "g1", TitleKeys: []string{"old"}}

	t.Run("unset dedup id", func(t *testing.T) {
		out := RecordUpdate{UnsetDedupID: true, UpdateNeeded: Bool(true), Updated: now}.Apply(rec)
		assert.Empty(t, out.DedupID)
		assert.True(t, out.UpdateNeeded)
		assert.Equal(t, now, out.Updated)
		assert.Equal(t, "g1", rec.DedupID, "original untouched")
	})

	t.Run("set keys", func(t *testing.T) {
		out := RecordUpdate{SetKeys: true, ISBNKeys: []string{"9780321125217"}, Deleted: Bool(true)}.Apply(rec)
		assert.Nil(t, out.TitleKeys)
		assert.Equal(t, []string{"9780321125217"}, out.ISBNKeys)
		assert.True(t, out.Deleted)
		assert.Equal(t, []string{"old"}, rec.TitleKeys)
	})

	t.Run("set dedup id", func(t *testing.T) {
		out := RecordUpdate{DedupID: String("g2")}.Apply(rec)
		assert.Equal(t, "g2", out.DedupID)
		assert.Equal(t, []string{"old"}, out.TitleKeys)
	})
}

func TestGroupFilter_Matches(t *testing.T) {
	group := &models.DedupGroup{ID: "g2", IDs: []string{"x.1", "y.1"}}

	assert.True(t, GroupFilter{}.Matches(group))
	assert.True(t, GroupFilter{ContainsID: "y.1"}.Matches(group))
	assert.False(t, GroupFilter{ContainsID: "z.1"}.Matches(group))
	assert.True(t, GroupFilter{Deleted: Bool(false)}.Matches(group))
	assert.True(t, GroupFilter{AfterID: "g1"}.Matches(group))
	assert.False(t, GroupFilter{AfterID: "g2"}.Matches(group))
}
