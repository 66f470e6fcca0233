package models

import (
	"slices"
	"strings"
	"time"
)

// KeyType names one of the three candidate key categories carried by a record
type KeyType string

const (
	KeyTypeISBN  KeyType = "isbn_keys"
	KeyTypeID    KeyType = "id_keys"
	KeyTypeTitle KeyType = "title_keys"
)

// KeyTypes lists the key categories in the order candidates are searched
var KeyTypes = []KeyType{KeyTypeISBN, KeyTypeID, KeyTypeTitle}

// Record is one harvested bibliographic record.
// HostRecordID, LinkingID and DedupID use "" for absent.
type Record struct {
	ID           string    `json:"id" db:"id"`
	SourceID     string    `json:"source_id" db:"source_id"`
	Format       string    `json:"format" db:"format"`
	Deleted      bool      `json:"deleted" db:"deleted"`
	UpdateNeeded bool      `json:"update_needed" db:"update_needed"`
	HostRecordID string    `json:"host_record_id,omitempty" db:"host_record_id"`
	LinkingID    string    `json:"linking_id,omitempty" db:"linking_id"`
	TitleKeys    []string  `json:"title_keys,omitempty" db:"-"`
	ISBNKeys     []string  `json:"isbn_keys,omitempty" db:"-"`
	IDKeys       []string  `json:"id_keys,omitempty" db:"-"`
	DedupID      string    `json:"dedup_id,omitempty" db:"dedup_id"`
	Payload      []byte    `json:"payload,omitempty" db:"payload"`
	Fingerprint  string    `json:"fingerprint,omitempty" db:"fingerprint"`
	Created      time.Time `json:"created" db:"created"`
	Updated      time.Time `json:"updated" db:"updated"`
}

// Keys returns the key set of the given category
func (r *Record) Keys(keyType KeyType) []string {
	switch keyType {
	case KeyTypeISBN:
		return r.ISBNKeys
	case KeyTypeID:
		return r.IDKeys
	case KeyTypeTitle:
		return r.TitleKeys
	}
	return nil
}

// IsComponentPart reports whether the record is a child of a host record
func (r *Record) IsComponentPart() bool {
	return r.HostRecordID != ""
}

// SourcePrefix returns the source part of a source-prefixed record id ("helka.123" -> "helka")
func SourcePrefix(id string) string {
	prefix, _, found := strings.Cut(id, ".")
	if !found {
		return ""
	}
	return prefix
}

// Clone returns a deep copy so store snapshots are never shared between workers
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.TitleKeys = slices.Clone(r.TitleKeys)
	c.ISBNKeys = slices.Clone(r.ISBNKeys)
	c.IDKeys = slices.Clone(r.IDKeys)
	c.Payload = slices.Clone(r.Payload)
	return &c
}

// CreateRecordRequest is the JSON-lines import format for harvested records
type CreateRecordRequest struct {
	ID           string `json:"id" validate:"required"`
	SourceID     string `json:"source_id" validate:"required"`
	Format       string `json:"format" validate:"required,oneof=marc lido ead forward"`
	Deleted      bool   `json:"deleted"`
	HostRecordID string `json:"host_record_id,omitempty"`
	LinkingID    string `json:"linking_id,omitempty"`
	Payload      string `json:"payload" validate:"required_unless=Deleted true"`
}
