package metadata

import (
	"encoding/xml"
	"strings"
)

// ForwardRecord is a moving-image work described in EN 15907 (Forward)
type ForwardRecord struct {
	doc forwardDoc
}

type forwardDoc struct {
	IdentifyingTitle string `xml:"IdentifyingTitle"`
	Titles           []struct {
		Type  string `xml:"type,attr"`
		Text  string `xml:"TitleText"`
		Parts []struct {
			Unit  string `xml:"Unit"`
			Value string `xml:"Value"`
		} `xml:"PartDesignation"`
	} `xml:"Title"`
	Agents []struct {
		Name     string `xml:"AgentName"`
		Activity []struct {
			Code  string `xml:"finna-activity-code,attr"`
			Value string `xml:",chardata"`
		} `xml:"Activity"`
	} `xml:"HasAgent"`
	YearOfReference string `xml:"YearOfReference"`
	Production      []struct {
		Year string `xml:"YearOfReference"`
		Date string `xml:"DateText"`
	} `xml:"ProductionEvent"`
	Identifiers []struct {
		Scheme string `xml:"scheme,attr"`
		Value  string `xml:",chardata"`
	} `xml:"Identifier"`
	Access string `xml:"AccessConditions"`
}

// NewForwardRecord parses a Forward work record
func NewForwardRecord(payload []byte, _, _ string) (Record, error) {
	r := &ForwardRecord{}
	if err := xml.Unmarshal(payload, &r.doc); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *ForwardRecord) Title(forFiling bool) string {
	if t := strings.TrimSpace(r.doc.IdentifyingTitle); t != "" {
		return t
	}
	for _, t := range r.doc.Titles {
		if text := strings.TrimSpace(t.Text); text != "" {
			return text
		}
	}
	return ""
}

func (r *ForwardRecord) FullTitle() string {
	title := r.Title(false)
	for _, t := range r.doc.Titles {
		for _, p := range t.Parts {
			if p.Value != "" {
				title += " " + strings.TrimSpace(p.Unit+" "+p.Value)
			}
		}
	}
	return strings.TrimSpace(title)
}

// MainAuthor prefers the director, then the first named agent
func (r *ForwardRecord) MainAuthor() string {
	first := ""
	for _, a := range r.doc.Agents {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		if first == "" {
			first = name
		}
		for _, act := range a.Activity {
			if act.Code == "D02" || strings.EqualFold(strings.TrimSpace(act.Value), "director") {
				return name
			}
		}
	}
	return first
}

func (r *ForwardRecord) ISBNs() []string { return nil }
func (r *ForwardRecord) ISSNs() []string { return nil }

func (r *ForwardRecord) UniqueIDs() []string {
	var out []string
	for _, id := range r.doc.Identifiers {
		if id.Scheme != "" {
			out = append(out, sourcedID(id.Scheme, "", id.Value))
		}
	}
	return unique(out)
}

func (r *ForwardRecord) Format() string {
	return "MotionPicture"
}

func (r *ForwardRecord) PublicationYear() string {
	if year := firstYear(r.doc.YearOfReference); year != "" {
		return year
	}
	for _, p := range r.doc.Production {
		if year := firstYear(p.Year); year != "" {
			return year
		}
		if year := firstYear(p.Date); year != "" {
			return year
		}
	}
	return ""
}

func (r *ForwardRecord) PageCount() int { return 0 }

func (r *ForwardRecord) SeriesISSN() string      { return "" }
func (r *ForwardRecord) SeriesNumbering() string { return "" }

func (r *ForwardRecord) AccessRestrictions() string {
	return strings.TrimSpace(r.doc.Access)
}

// IsDeleted is always false; Forward has no record status
func (r *ForwardRecord) IsDeleted() bool { return false }
