// Package metadata exposes harvested MARC, LIDO, EAD and Forward payloads through one read interface.
package metadata

import (
	"fmt"
	"sync"
)

// Record is the uniform read view over a parsed bibliographic record.
// Identifier accessors return normalized, de-duplicated values.
type Record interface {
	// Title returns the main title. forFiling drops leading non-filing characters ("The ", "A ").
	Title(forFiling bool) string
	FullTitle() string
	MainAuthor() string
	ISBNs() []string
	ISSNs() []string
	// UniqueIDs returns other identifiers as "(source)value".
	UniqueIDs() []string
	Format() string
	PublicationYear() string
	PageCount() int
	SeriesISSN() string
	SeriesNumbering() string
	AccessRestrictions() string
	// IsDeleted reports a deletion status carried inside the payload itself.
	IsDeleted() bool
}

// Constructor parses a payload of one format
type Constructor func(payload []byte, id, sourceID string) (Record, error)

// Format tags understood by the default factory
const (
	FormatMarc    = "marc"
	FormatLido    = "lido"
	FormatEad     = "ead"
	FormatForward = "forward"
)

// UnknownFormatError is returned for a format tag with no registered constructor
type UnknownFormatError struct {
	Format string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown metadata format %q", e.Format)
}

// Factory maps format tags to constructors
type Factory struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewFactory creates a factory with the built-in formats registered
func NewFactory() *Factory {
	f := &Factory{constructors: make(map[string]Constructor)}
	f.Register(FormatMarc, NewMarcRecord)
	f.Register(FormatLido, NewLidoRecord)
	f.Register(FormatEad, NewEadRecord)
	f.Register(FormatForward, NewForwardRecord)
	return f
}

// Register adds or replaces the constructor for a format tag
func (f *Factory) Register(format string, c Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[format] = c
}

// Create parses payload with the constructor registered for format
func (f *Factory) Create(format string, payload []byte, id, sourceID string) (Record, error) {
	f.mu.RLock()
	c, ok := f.constructors[format]
	f.mu.RUnlock()
	if !ok {
		return nil, &UnknownFormatError{Format: format}
	}
	rec, err := c(payload, id, sourceID)
	if err != nil {
		return nil, fmt.Errorf("parse %s record %s: %w", format, id, err)
	}
	return rec, nil
}
