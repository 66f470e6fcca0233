package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"author with initial", "Smith, J.", "smith j"},
		{"diacritics", "Müller, Jürgen", "muller jurgen"},
		{"title punctuation", "Design Patterns: Elements of Reusable OO Software", "design patterns elements of reusable oo software"},
		{"whitespace runs", "  Untitled \t Work ", "untitled work"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"isbn-13 plain", "9780321125217", "9780321125217"},
		{"isbn-13 hyphenated with qualifier", "978-0-321-12521-7 (pbk.)", "9780321125217"},
		{"isbn-10 converted", "0-321-12521-5", "9780321125217"},
		{"prefixed label", "ISBN 0321125215", "9780321125217"},
		{"bad isbn-13 checksum", "9780321125218", ""},
		{"bad isbn-10 checksum", "0321125216", ""},
		{"not an isbn", "12345", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeISBN(tt.input))
		})
	}
}

func TestNormalizeISSN(t *testing.T) {
	assert.Equal(t, "0028-0836", NormalizeISSN("0028-0836"))
	assert.Equal(t, "1234-567X", NormalizeISSN("1234567x"))
	assert.Equal(t, "0028-0836", NormalizeISSN("ISSN 0028-0836 (print)"))
	assert.Equal(t, "", NormalizeISSN("123"))
}

func TestApplyChain(t *testing.T) {
	assert.Equal(t, "abc123", ApplyChain(" A-b C 1.2.3 ", "lowercase", "alphanumeric"))
	assert.Equal(t, "unchanged", Apply("unchanged", "no_such_normalizer"))

	fn, ok := Get("digits_only")
	assert.True(t, ok)
	assert.Equal(t, "2001", fn("c2001."))
}
