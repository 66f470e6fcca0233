package metadata

import (
	"encoding/xml"
	"strings"
)

// LidoRecord is a museum object described in LIDO
type LidoRecord struct {
	doc lidoDoc
}

type lidoTerm struct {
	Terms []string `xml:"term"`
}

type lidoDoc struct {
	RecID       string `xml:"lidoRecID"`
	Descriptive struct {
		Classification struct {
			WorkTypes []lidoTerm `xml:"objectWorkTypeWrap>objectWorkType"`
		} `xml:"objectClassificationWrap"`
		Identification struct {
			Titles []struct {
				Values []struct {
					Pref  string `xml:"pref,attr"`
					Value string `xml:",chardata"`
				} `xml:"appellationValue"`
			} `xml:"titleWrap>titleSet"`
			Measurements []struct {
				Display string `xml:"displayObjectMeasurements"`
			} `xml:"objectMeasurementsWrap>objectMeasurementsSet"`
		} `xml:"objectIdentificationWrap"`
		Events []struct {
			Type   lidoTerm `xml:"eventType"`
			Actors []struct {
				Names []string `xml:"actorInRole>actor>nameActorSet>appellationValue"`
			} `xml:"eventActor"`
			EarliestDate string `xml:"eventDate>date>earliestDate"`
			DisplayDate  string `xml:"eventDate>displayDate"`
		} `xml:"eventWrap>eventSet>event"`
	} `xml:"descriptiveMetadata"`
	Administrative struct {
		Rights []struct {
			Type lidoTerm `xml:"rightsType"`
		} `xml:"rightsWorkWrap>rightsWorkSet"`
	} `xml:"administrativeMetadata"`
}

// NewLidoRecord parses a lido:lido element
func NewLidoRecord(payload []byte, _, _ string) (Record, error) {
	r := &LidoRecord{}
	if err := xml.Unmarshal(payload, &r.doc); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *LidoRecord) Title(forFiling bool) string {
	for _, set := range r.doc.Descriptive.Identification.Titles {
		for _, v := range set.Values {
			if v.Pref == "" || v.Pref == "preferred" {
				return strings.TrimSpace(v.Value)
			}
		}
	}
	return ""
}

func (r *LidoRecord) FullTitle() string {
	return r.Title(false)
}

func (r *LidoRecord) MainAuthor() string {
	for _, ev := range r.doc.Descriptive.Events {
		if !ev.Type.has("creation", "production", "valmistus") {
			continue
		}
		for _, actor := range ev.Actors {
			for _, name := range actor.Names {
				if name = strings.TrimSpace(name); name != "" {
					return name
				}
			}
		}
	}
	return ""
}

func (r *LidoRecord) ISBNs() []string { return nil }
func (r *LidoRecord) ISSNs() []string { return nil }

func (r *LidoRecord) UniqueIDs() []string { return nil }

func (r *LidoRecord) Format() string {
	for _, wt := range r.doc.Descriptive.Classification.WorkTypes {
		for _, term := range wt.Terms {
			if term = strings.TrimSpace(term); term != "" {
				return term
			}
		}
	}
	return "Object"
}

func (r *LidoRecord) PublicationYear() string {
	for _, ev := range r.doc.Descriptive.Events {
		if !ev.Type.has("creation", "production", "valmistus") {
			continue
		}
		if year := firstYear(ev.EarliestDate); year != "" {
			return year
		}
		if year := firstYear(ev.DisplayDate); year != "" {
			return year
		}
	}
	return ""
}

func (r *LidoRecord) PageCount() int { return 0 }

func (r *LidoRecord) SeriesISSN() string      { return "" }
func (r *LidoRecord) SeriesNumbering() string { return "" }

func (r *LidoRecord) AccessRestrictions() string {
	for _, rights := range r.doc.Administrative.Rights {
		for _, term := range rights.Type.Terms {
			if term = strings.TrimSpace(term); term != "" {
				return term
			}
		}
	}
	return ""
}

// IsDeleted is always false; LIDO has no record status
func (r *LidoRecord) IsDeleted() bool { return false }

func (t lidoTerm) has(values ...string) bool {
	for _, term := range t.Terms {
		term = strings.ToLower(strings.TrimSpace(term))
		for _, v := range values {
			if term == v {
				return true
			}
		}
	}
	return false
}
