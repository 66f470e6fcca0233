package metadata

import (
	"encoding/xml"
	"strings"
)

// EadRecord is an archival description unit: an <archdesc> or a component <c>/<cNN> element
type EadRecord struct {
	doc eadUnit
}

type eadDid struct {
	UnitTitle string `xml:"unittitle"`
	UnitID    []struct {
		Identifier string `xml:"identifier,attr"`
		Value      string `xml:",chardata"`
	} `xml:"unitid"`
	UnitDate []struct {
		Normal string `xml:"normal,attr"`
		Value  string `xml:",chardata"`
	} `xml:"unitdate"`
	Origination []struct {
		PersName string `xml:"persname"`
		CorpName string `xml:"corpname"`
	} `xml:"origination"`
	Extent string `xml:"physdesc>extent"`
}

type eadUnit struct {
	XMLName        xml.Name
	Level          string   `xml:"level,attr"`
	Did            eadDid   `xml:"did"`
	AccessRestrict []string `xml:"accessrestrict>p"`
	ArchDesc       *eadUnit `xml:"archdesc"`
}

// NewEadRecord parses an EAD document, archdesc or component element
func NewEadRecord(payload []byte, _, _ string) (Record, error) {
	var unit eadUnit
	if err := xml.Unmarshal(payload, &unit); err != nil {
		return nil, err
	}
	if unit.XMLName.Local == "ead" && unit.ArchDesc != nil {
		unit = *unit.ArchDesc
	}
	return &EadRecord{doc: unit}, nil
}

func (r *EadRecord) Title(forFiling bool) string {
	return strings.TrimSpace(r.doc.Did.UnitTitle)
}

func (r *EadRecord) FullTitle() string {
	return r.Title(false)
}

func (r *EadRecord) MainAuthor() string {
	for _, o := range r.doc.Did.Origination {
		if name := strings.TrimSpace(o.PersName); name != "" {
			return name
		}
		if name := strings.TrimSpace(o.CorpName); name != "" {
			return name
		}
	}
	return ""
}

func (r *EadRecord) ISBNs() []string { return nil }
func (r *EadRecord) ISSNs() []string { return nil }

// UniqueIDs returns unitids that carry an identifier attribute, which are persistent across finding aids
func (r *EadRecord) UniqueIDs() []string {
	var out []string
	for _, u := range r.doc.Did.UnitID {
		if u.Identifier != "" {
			out = append(out, sourcedID("", "unitid", u.Identifier))
		}
	}
	return unique(out)
}

func (r *EadRecord) Format() string {
	level := strings.ToLower(strings.TrimSpace(r.doc.Level))
	if level == "" {
		return "Archive"
	}
	return "Archive" + strings.ToUpper(level[:1]) + level[1:]
}

func (r *EadRecord) PublicationYear() string {
	for _, d := range r.doc.Did.UnitDate {
		if year := firstYear(d.Normal); year != "" {
			return year
		}
		if year := firstYear(d.Value); year != "" {
			return year
		}
	}
	return ""
}

func (r *EadRecord) PageCount() int { return 0 }

func (r *EadRecord) SeriesISSN() string      { return "" }
func (r *EadRecord) SeriesNumbering() string { return "" }

func (r *EadRecord) AccessRestrictions() string {
	var parts []string
	for _, p := range r.doc.AccessRestrict {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "; ")
}

// IsDeleted is always false; EAD has no record status
func (r *EadRecord) IsDeleted() bool { return false }
