package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/bramble/pkg/metadata/metadatatest"
	"github.com/Ramsey-B/bramble/pkg/models"
)

func TestUpdateCandidateKeys(t *testing.T) {
	stub := &metadatatest.Stub{
		TitleValue:  "The Design of Everyday Things",
		FilingTitle: "Design of Everyday Things",
		ISBNList:    []string{"9780465050659", "9780465050659", ""},
		IDs:         []string{"(nbn)fnb123"},
	}
	rec := &models.Record{ID: "x.1", SourceID: "x"}

	updated, changed := UpdateCandidateKeys(rec, stub)
	assert.True(t, changed)
	assert.Equal(t, []string{"designofeverydaythings"}, updated.TitleKeys)
	assert.Equal(t, []string{"9780465050659"}, updated.ISBNKeys)
	assert.Equal(t, []string{"(nbn)fnb123"}, updated.IDKeys)
	assert.Nil(t, rec.TitleKeys, "input record is not modified")

	t.Run("unchanged keys", func(t *testing.T) {
		_, changed := UpdateCandidateKeys(updated, stub)
		assert.False(t, changed)
	})

	t.Run("order does not matter", func(t *testing.T) {
		reordered := updated.Clone()
		reordered.ISBNKeys = []string{"9780465050659"}
		stub := *stub
		stub.ISBNList = []string{"9780465050659"}
		_, changed := UpdateCandidateKeys(reordered, &stub)
		assert.False(t, changed)
	})

	t.Run("empty sets are removed", func(t *testing.T) {
		cleared, changed := UpdateCandidateKeys(updated, &metadatatest.Stub{})
		assert.True(t, changed)
		assert.Nil(t, cleared.TitleKeys)
		assert.Nil(t, cleared.ISBNKeys)
		assert.Nil(t, cleared.IDKeys)
	})
}
