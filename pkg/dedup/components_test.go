package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/bramble/pkg/metadata/metadatatest"
	"github.com/Ramsey-B/bramble/pkg/models"
)

func part(title string) metadatatest.Stub {
	return metadatatest.Stub{TitleValue: title, FormatValue: "BookSection"}
}

func partOf(hostLinkingID string) func(*models.Record) {
	return func(r *models.Record) {
		r.HostRecordID = hostLinkingID
		r.UpdateNeeded = false
	}
}

func TestDedupComponentParts(t *testing.T) {
	t.Run("all parts match in numeric order", func(t *testing.T) {
		f := newFixture(t, DefaultConfig())
		f.add(t, "x.h", book("Collected Essays", "", "", "9780321125217"))
		f.add(t, "x.p2", part("Chapter two"), partOf("x.h"))
		f.add(t, "x.p10", part("Chapter ten"), partOf("x.h"))

		f.add(t, "y.h", book("Collected Essays", "", "", "9780321125217"))
		f.add(t, "y.p02", part("Chapter two"), partOf("y.h"))
		f.add(t, "y.p10", part("Chapter ten"), partOf("y.h"))

		assert.Equal(t, OutcomeMatched, f.process(t, "x.h"))

		two, ten := f.record(t, "x.p2"), f.record(t, "x.p10")
		require.NotEmpty(t, two.DedupID)
		require.NotEmpty(t, ten.DedupID)
		assert.Equal(t, two.DedupID, f.record(t, "y.p02").DedupID)
		assert.Equal(t, ten.DedupID, f.record(t, "y.p10").DedupID)
		assert.NotEqual(t, two.DedupID, ten.DedupID)
		assertGroupInvariant(t, f.store)
	})

	t.Run("count mismatch links no parts", func(t *testing.T) {
		f := newFixture(t, DefaultConfig())
		f.add(t, "x.h", book("Collected Essays", "", "", "9780321125217"))
		f.add(t, "x.p1", part("Chapter one"), partOf("x.h"))
		f.add(t, "x.p2", part("Chapter two"), partOf("x.h"))

		f.add(t, "y.h", book("Collected Essays", "", "", "9780321125217"))
		f.add(t, "y.p1", part("Chapter one"), partOf("y.h"))

		assert.Equal(t, OutcomeMatched, f.process(t, "x.h"))

		assert.NotEmpty(t, f.record(t, "x.h").DedupID)
		for _, id := range []string{"x.p1", "x.p2", "y.p1"} {
			assert.Empty(t, f.record(t, id).DedupID, id)
		}
	})

	t.Run("one mismatching pair links no parts", func(t *testing.T) {
		f := newFixture(t, DefaultConfig())
		f.add(t, "x.h", book("Collected Essays", "", "", "9780321125217"))
		f.add(t, "x.p1", part("Chapter one"), partOf("x.h"))
		f.add(t, "x.p2", part("Chapter two"), partOf("x.h"))

		f.add(t, "y.h", book("Collected Essays", "", "", "9780321125217"))
		f.add(t, "y.p1", part("Chapter one"), partOf("y.h"))
		f.add(t, "y.p2", part("Appendix"), partOf("y.h"))

		assert.Equal(t, OutcomeMatched, f.process(t, "x.h"))
		for _, id := range []string{"x.p1", "x.p2", "y.p1", "y.p2"} {
			assert.Empty(t, f.record(t, id).DedupID, id)
		}
	})

	t.Run("host without linking id", func(t *testing.T) {
		f := newFixture(t, DefaultConfig())
		host := f.add(t, "x.h", book("Collected Essays", "", ""), func(r *models.Record) {
			r.LinkingID = ""
			r.DedupID = "g1"
		})

		linked, err := f.handler.DedupComponentParts(t.Context(), host)
		require.NoError(t, err)
		assert.Zero(t, linked)
	})

	t.Run("returns pairs written", func(t *testing.T) {
		f := newFixture(t, DefaultConfig())
		f.add(t, "x.h", book("Collected Essays", "", "", "9780321125217"))
		f.add(t, "x.p1", part("Chapter one"), partOf("x.h"))
		f.add(t, "y.h", book("Collected Essays", "", "", "9780321125217"))
		f.add(t, "y.p1", part("Chapter one"), partOf("y.h"))
		f.drain(t)

		host := f.record(t, "x.h")
		require.NotEmpty(t, host.DedupID)

		linked, err := f.handler.DedupComponentParts(t.Context(), host)
		require.NoError(t, err)
		assert.Zero(t, linked, "parts are already linked")
	})
}
