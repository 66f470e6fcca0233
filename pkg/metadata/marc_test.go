package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const designPatternsJSON = `{
	"leader": "00000cam a2200000 a 4500",
	"fields": [
		{"001": "dp-1"},
		{"008": "940101s1995    maua          001 0 eng  "},
		{"020": {"ind1": " ", "ind2": " ", "subfields": [{"a": "0-201-63361-2 (hbk.)"}]}},
		{"020": {"ind1": " ", "ind2": " ", "subfields": [{"a": "9780201633610"}]}},
		{"015": {"ind1": " ", "ind2": " ", "subfields": [{"a": "GB95-12345"}, {"2": "bnb"}]}},
		{"035": {"ind1": " ", "ind2": " ", "subfields": [{"a": "(OCoLC)31171684"}]}},
		{"100": {"ind1": "1", "ind2": " ", "subfields": [{"a": "Gamma, Erich,"}]}},
		{"245": {"ind1": "1", "ind2": "0", "subfields": [{"a": "Design patterns :"}, {"b": "elements of reusable object-oriented software /"}, {"c": "Erich Gamma ... [et al.]."}]}},
		{"300": {"ind1": " ", "ind2": " ", "subfields": [{"a": "xv, 395 p. :"}]}},
		{"490": {"ind1": "1", "ind2": " ", "subfields": [{"a": "Addison-Wesley professional computing series ;"}, {"x": "1234-5679"}, {"v": "v. 1"}]}},
		{"506": {"ind1": " ", "ind2": " ", "subfields": [{"a": "Open access."}]}}
	]
}`

func TestMarcRecord_JSON(t *testing.T) {
	rec, err := NewMarcRecord([]byte(designPatternsJSON), "src.dp-1", "src")
	require.NoError(t, err)

	assert.Equal(t, "Design patterns elements of reusable object-oriented software", rec.Title(false))
	assert.Equal(t, "Design patterns elements of reusable object-oriented software Erich Gamma ... [et al.]", rec.FullTitle())
	assert.Equal(t, "Gamma, Erich", rec.MainAuthor())
	assert.Equal(t, []string{"9780201633610"}, rec.ISBNs())
	assert.Equal(t, []string{"(bnb)gb9512345", "(ocolc)31171684"}, rec.UniqueIDs())
	assert.Empty(t, rec.ISSNs())
	assert.Equal(t, "Book", rec.Format())
	assert.Equal(t, "1995", rec.PublicationYear())
	assert.Equal(t, 395, rec.PageCount())
	assert.Equal(t, "1234-5679", rec.SeriesISSN())
	assert.Equal(t, "v. 1", rec.SeriesNumbering())
	assert.Equal(t, "Open access", rec.AccessRestrictions())
	assert.False(t, rec.IsDeleted())
}

func TestMarcRecord_XML(t *testing.T) {
	payload := `<?xml version="1.0"?>
<collection xmlns="http://www.loc.gov/MARC21/slim">
  <record>
    <leader>00000dab a2200000 a 4500</leader>
    <controlfield tag="001">art-1</controlfield>
    <datafield tag="022" ind1=" " ind2=" "><subfield code="a">0028-0836</subfield></datafield>
    <datafield tag="245" ind1="0" ind2="4"><subfield code="a">The structure of DNA.</subfield></datafield>
    <datafield tag="264" ind1=" " ind2="1"><subfield code="c">[1953]</subfield></datafield>
  </record>
</collection>`

	rec, err := NewMarcRecord([]byte(payload), "src.art-1", "src")
	require.NoError(t, err)

	assert.Equal(t, "The structure of DNA", rec.Title(false))
	assert.Equal(t, "structure of DNA", rec.Title(true))
	assert.Equal(t, []string{"0028-0836"}, rec.ISSNs())
	assert.Equal(t, "Article", rec.Format())
	assert.Equal(t, "1953", rec.PublicationYear())
	assert.True(t, rec.IsDeleted())
	assert.Empty(t, rec.MainAuthor())
	assert.Zero(t, rec.PageCount())
}

func TestMarcRecord_Fields(t *testing.T) {
	rec, err := NewMarcRecord([]byte(designPatternsJSON), "src.dp-1", "src")
	require.NoError(t, err)
	m := rec.(*MarcRecord)

	t.Run("repeatable tags keep order", func(t *testing.T) {
		fields := m.DataFields("020")
		require.Len(t, fields, 2)
		assert.Equal(t, "0-201-63361-2 (hbk.)", fields[0].Subfield("a"))
		assert.Equal(t, "9780201633610", fields[1].Subfield("a"))
	})

	t.Run("control and data fields are distinct variants", func(t *testing.T) {
		assert.Equal(t, "dp-1", m.Control("001"))
		assert.Empty(t, m.DataFields("001"))
		assert.Empty(t, m.Control("245"))
	})
}

func TestMarcRecord_Invalid(t *testing.T) {
	_, err := NewMarcRecord([]byte("   "), "x", "src")
	assert.Error(t, err)

	_, err = NewMarcRecord([]byte("{not json"), "x", "src")
	assert.Error(t, err)

	_, err = NewMarcRecord([]byte("<collection></collection>"), "x", "src")
	assert.Error(t, err)
}
