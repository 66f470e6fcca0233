package metadata

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/Ramsey-B/bramble/pkg/normalizers"
)

// Field is one occurrence of a MARC tag, either a ControlField or a DataField
type Field interface {
	isField()
}

// ControlField is a 00X field carrying a single value
type ControlField struct {
	Value string
}

// DataField carries two indicators and ordered subfields
type DataField struct {
	Ind1      string
	Ind2      string
	Subfields []Subfield
}

// Subfield is a coded value inside a DataField
type Subfield struct {
	Code  string
	Value string
}

func (ControlField) isField() {}
func (DataField) isField()    {}

// Subfield returns the first value of code, or ""
func (f DataField) Subfield(code string) string {
	for _, sf := range f.Subfields {
		if sf.Code == code {
			return sf.Value
		}
	}
	return ""
}

// Join concatenates the values of the given codes in field order
func (f DataField) Join(sep string, codes ...string) string {
	var parts []string
	for _, sf := range f.Subfields {
		for _, c := range codes {
			if sf.Code == c {
				if v := strings.TrimSpace(sf.Value); v != "" {
					parts = append(parts, v)
				}
				break
			}
		}
	}
	return strings.Join(parts, sep)
}

// MarcRecord is a MARC 21 bibliographic record keyed by tag; occurrences keep their order
type MarcRecord struct {
	Leader string
	Fields map[string][]Field
}

// NewMarcRecord parses MARC-in-JSON or MARCXML
func NewMarcRecord(payload []byte, _, _ string) (Record, error) {
	m := &MarcRecord{Fields: make(map[string][]Field)}

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, errors.New("empty payload")
	}

	var err error
	if trimmed[0] == '<' {
		err = m.decodeXML(trimmed)
	} else {
		err = m.decodeJSON(trimmed)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

type marcJSON struct {
	Leader string                       `json:"leader"`
	Fields []map[string]json.RawMessage `json:"fields"`
}

type marcJSONDataField struct {
	Ind1      string              `json:"ind1"`
	Ind2      string              `json:"ind2"`
	Subfields []map[string]string `json:"subfields"`
}

func (m *MarcRecord) decodeJSON(payload []byte) error {
	var doc marcJSON
	if err := json.Unmarshal(payload, &doc); err != nil {
		return err
	}
	m.Leader = doc.Leader
	for _, entry := range doc.Fields {
		for tag, raw := range entry {
			if len(raw) > 0 && raw[0] == '"' {
				var value string
				if err := json.Unmarshal(raw, &value); err != nil {
					return fmt.Errorf("field %s: %w", tag, err)
				}
				m.Add(tag, ControlField{Value: value})
				continue
			}
			var df marcJSONDataField
			if err := json.Unmarshal(raw, &df); err != nil {
				return fmt.Errorf("field %s: %w", tag, err)
			}
			field := DataField{Ind1: df.Ind1, Ind2: df.Ind2}
			for _, sf := range df.Subfields {
				for code, value := range sf {
					field.Subfields = append(field.Subfields, Subfield{Code: code, Value: value})
				}
			}
			m.Add(tag, field)
		}
	}
	return nil
}

type marcXMLRecord struct {
	Leader        string `xml:"leader"`
	ControlFields []struct {
		Tag   string `xml:"tag,attr"`
		Value string `xml:",chardata"`
	} `xml:"controlfield"`
	DataFields []struct {
		Tag       string `xml:"tag,attr"`
		Ind1      string `xml:"ind1,attr"`
		Ind2      string `xml:"ind2,attr"`
		Subfields []struct {
			Code  string `xml:"code,attr"`
			Value string `xml:",chardata"`
		} `xml:"subfield"`
	} `xml:"datafield"`
}

func (m *MarcRecord) decodeXML(payload []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(payload))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return errors.New("no MARCXML record element")
		}
		if err != nil {
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "record" {
			continue
		}

		var rec marcXMLRecord
		if err := dec.DecodeElement(&rec, &start); err != nil {
			return err
		}
		m.Leader = rec.Leader
		for _, cf := range rec.ControlFields {
			m.Add(cf.Tag, ControlField{Value: cf.Value})
		}
		for _, df := range rec.DataFields {
			field := DataField{Ind1: df.Ind1, Ind2: df.Ind2}
			for _, sf := range df.Subfields {
				field.Subfields = append(field.Subfields, Subfield{Code: sf.Code, Value: sf.Value})
			}
			m.Add(df.Tag, field)
		}
		return nil
	}
}

// Add appends an occurrence of tag
func (m *MarcRecord) Add(tag string, f Field) {
	m.Fields[tag] = append(m.Fields[tag], f)
}

// Control returns the value of the first occurrence of a control field
func (m *MarcRecord) Control(tag string) string {
	for _, f := range m.Fields[tag] {
		if cf, ok := f.(ControlField); ok {
			return cf.Value
		}
	}
	return ""
}

// DataFields returns every data-field occurrence of tag
func (m *MarcRecord) DataFields(tag string) []DataField {
	var out []DataField
	for _, f := range m.Fields[tag] {
		if df, ok := f.(DataField); ok {
			out = append(out, df)
		}
	}
	return out
}

// First returns the first data-field occurrence of tag
func (m *MarcRecord) First(tag string) (DataField, bool) {
	fields := m.DataFields(tag)
	if len(fields) == 0 {
		return DataField{}, false
	}
	return fields[0], true
}

func (m *MarcRecord) Title(forFiling bool) string {
	f, ok := m.First("245")
	if !ok {
		return ""
	}
	if forFiling {
		if skip, err := strconv.Atoi(f.Ind2); err == nil && skip > 0 {
			f = skipNonFiling(f, skip)
		}
	}
	return titleJoin(f, "a", "b", "n", "p")
}

// titleJoin joins title subfields with their trailing ISBD punctuation removed
func titleJoin(f DataField, codes ...string) string {
	var parts []string
	for _, sf := range f.Subfields {
		if !slices.Contains(codes, sf.Code) {
			continue
		}
		if v := trimPunctuation(sf.Value); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func skipNonFiling(f DataField, skip int) DataField {
	out := DataField{Ind1: f.Ind1, Ind2: f.Ind2, Subfields: make([]Subfield, len(f.Subfields))}
	copy(out.Subfields, f.Subfields)
	for i, sf := range out.Subfields {
		if sf.Code != "a" {
			continue
		}
		r := []rune(sf.Value)
		if skip < len(r) {
			out.Subfields[i].Value = string(r[skip:])
		}
		break
	}
	return out
}

func (m *MarcRecord) FullTitle() string {
	f, ok := m.First("245")
	if !ok {
		return ""
	}
	return titleJoin(f, "a", "b", "n", "p", "c")
}

func (m *MarcRecord) MainAuthor() string {
	if f, ok := m.First("100"); ok {
		return trimPunctuation(f.Subfield("a"))
	}
	if f, ok := m.First("110"); ok {
		return trimPunctuation(f.Join(" ", "a", "b"))
	}
	if f, ok := m.First("111"); ok {
		return trimPunctuation(f.Subfield("a"))
	}
	return ""
}

func (m *MarcRecord) ISBNs() []string {
	var out []string
	for _, f := range m.DataFields("020") {
		out = append(out, normalizers.NormalizeISBN(f.Subfield("a")))
	}
	return unique(out)
}

func (m *MarcRecord) ISSNs() []string {
	var out []string
	for _, f := range m.DataFields("022") {
		out = append(out, normalizers.NormalizeISSN(f.Subfield("a")))
	}
	return unique(out)
}

func (m *MarcRecord) UniqueIDs() []string {
	var out []string
	for _, f := range m.DataFields("015") {
		out = append(out, sourcedID(f.Subfield("2"), "nbn", f.Subfield("a")))
	}
	for _, f := range m.DataFields("016") {
		out = append(out, sourcedID(f.Subfield("2"), "nba", f.Subfield("a")))
	}
	for _, f := range m.DataFields("024") {
		if f.Ind1 == "2" {
			out = append(out, sourcedID("", "ismn", f.Subfield("a")))
		}
	}
	for _, f := range m.DataFields("035") {
		if v := strings.TrimSpace(f.Subfield("a")); strings.HasPrefix(v, "(OCoLC)") {
			out = append(out, "(ocolc)"+normalizers.Alphanumeric(strings.TrimPrefix(v, "(OCoLC)")))
		}
	}
	return unique(out)
}

func sourcedID(source, fallback, value string) string {
	value = strings.ToLower(normalizers.Alphanumeric(value))
	if value == "" {
		return ""
	}
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		source = fallback
	}
	return "(" + source + ")" + value
}

func (m *MarcRecord) Format() string {
	if len(m.Leader) < 8 {
		return "Unknown"
	}
	recordType, level := m.Leader[6], m.Leader[7]
	switch recordType {
	case 'a', 't':
		switch level {
		case 's':
			return "Journal"
		case 'a', 'b':
			return "Article"
		}
		if strings.HasPrefix(m.Control("007"), "c") {
			return "eBook"
		}
		return "Book"
	case 'c', 'd':
		return "MusicalScore"
	case 'e', 'f':
		return "Map"
	case 'g':
		return "Video"
	case 'i':
		return "SoundRecording"
	case 'j':
		return "MusicRecording"
	case 'k':
		return "Image"
	case 'm':
		return "Electronic"
	case 'o', 'p':
		return "Kit"
	case 'r':
		return "PhysicalObject"
	}
	return "Unknown"
}

func (m *MarcRecord) PublicationYear() string {
	if f008 := m.Control("008"); len(f008) >= 11 {
		if year := f008[7:11]; normalizers.DigitsOnly(year) == year {
			return year
		}
	}
	for _, f := range m.DataFields("264") {
		if f.Ind2 == "1" {
			if year := firstYear(f.Subfield("c")); year != "" {
				return year
			}
		}
	}
	if f, ok := m.First("260"); ok {
		return firstYear(f.Subfield("c"))
	}
	return ""
}

func (m *MarcRecord) PageCount() int {
	if f, ok := m.First("300"); ok {
		return firstNumber(f.Subfield("a"))
	}
	return 0
}

func (m *MarcRecord) SeriesISSN() string {
	if f, ok := m.First("490"); ok {
		return normalizers.NormalizeISSN(f.Subfield("x"))
	}
	return ""
}

func (m *MarcRecord) SeriesNumbering() string {
	if f, ok := m.First("490"); ok {
		return trimPunctuation(f.Subfield("v"))
	}
	return ""
}

func (m *MarcRecord) AccessRestrictions() string {
	var parts []string
	for _, f := range m.DataFields("506") {
		if v := trimPunctuation(f.Subfield("a")); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "; ")
}

// IsDeleted reads the record status in leader position 5
func (m *MarcRecord) IsDeleted() bool {
	return len(m.Leader) > 5 && m.Leader[5] == 'd'
}
