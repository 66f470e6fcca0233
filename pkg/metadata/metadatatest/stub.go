// Package metadatatest provides a JSON-backed metadata.Record for tests.
package metadatatest

import (
	"encoding/json"

	"github.com/Ramsey-B/bramble/pkg/metadata"
)

// Format is the tag the stub constructor is registered under
const Format = "stub"

// Stub is a metadata.Record whose values are set directly
type Stub struct {
	TitleValue      string   `json:"title,omitempty"`
	FilingTitle     string   `json:"filing_title,omitempty"`
	Author          string   `json:"author,omitempty"`
	ISBNList        []string `json:"isbns,omitempty"`
	ISSNList        []string `json:"issns,omitempty"`
	IDs             []string `json:"ids,omitempty"`
	FormatValue     string   `json:"format,omitempty"`
	Year            string   `json:"year,omitempty"`
	Pages           int      `json:"pages,omitempty"`
	SeriesISSNValue string   `json:"series_issn,omitempty"`
	SeriesNumber    string   `json:"series_numbering,omitempty"`
	Access          string   `json:"access,omitempty"`
	Deleted         bool     `json:"deleted,omitempty"`
}

// New parses a stub payload
func New(payload []byte, _, _ string) (metadata.Record, error) {
	s := &Stub{}
	if err := json.Unmarshal(payload, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Factory returns a metadata factory with the stub format registered next to the built-in ones
func Factory() *metadata.Factory {
	f := metadata.NewFactory()
	f.Register(Format, New)
	return f
}

// Payload encodes a stub as a record payload
func Payload(s Stub) []byte {
	b, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return b
}

func (s *Stub) Title(forFiling bool) string {
	if forFiling && s.FilingTitle != "" {
		return s.FilingTitle
	}
	return s.TitleValue
}

func (s *Stub) FullTitle() string          { return s.TitleValue }
func (s *Stub) MainAuthor() string         { return s.Author }
func (s *Stub) ISBNs() []string            { return s.ISBNList }
func (s *Stub) ISSNs() []string            { return s.ISSNList }
func (s *Stub) UniqueIDs() []string        { return s.IDs }
func (s *Stub) Format() string             { return s.FormatValue }
func (s *Stub) PublicationYear() string    { return s.Year }
func (s *Stub) PageCount() int             { return s.Pages }
func (s *Stub) SeriesISSN() string         { return s.SeriesISSNValue }
func (s *Stub) SeriesNumbering() string    { return s.SeriesNumber }
func (s *Stub) AccessRestrictions() string { return s.Access }
func (s *Stub) IsDeleted() bool            { return s.Deleted }
