// Package normalizers provides the string normalization used for candidate keys and match comparisons
package normalizers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("fold_diacritics", FoldDiacritics)
	Register("punctuation_to_space", PunctuationToSpace)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("digits_only", DigitsOnly)
	Register("alphanumeric", Alphanumeric)
	Register("isbn13", NormalizeISBN)
	Register("issn", NormalizeISSN)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// TextChain is the chain used for comparable title and author strings.
var TextChain = []string{"fold_diacritics", "lowercase", "punctuation_to_space", "collapse_whitespace"}

// Text folds diacritics and case, turns punctuation into spaces and collapses whitespace.
// "Smith, J." and "Smith J" both become "smith j".
func Text(s string) string {
	return ApplyChain(s, TextChain...)
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// FoldDiacritics strips combining marks after canonical decomposition ("Müller" -> "Muller").
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// PunctuationToSpace replaces punctuation and symbols with a space
func PunctuationToSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, s)
}

// CollapseWhitespace trims and reduces every whitespace run to a single space
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Alphanumeric keeps only alphanumeric characters
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// isbnToken returns the first ISBN-looking token with hyphens dropped.
// Anything after the token ("(pbk.)", ": 12.50 EUR") is ignored.
func isbnToken(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		case r == '-':
		default:
			if b.Len() > 0 {
				return b.String()
			}
		}
	}
	return b.String()
}

// NormalizeISBN returns the ISBN-13 form of a valid ISBN-10 or ISBN-13, or "" when the value is not a valid ISBN
func NormalizeISBN(s string) string {
	token := isbnToken(s)
	switch len(token) {
	case 10:
		if !validISBN10(token) {
			return ""
		}
		base := "978" + token[:9]
		return base + string(isbn13CheckDigit(base))
	case 13:
		if strings.ContainsRune(token, 'X') {
			return ""
		}
		if !strings.HasPrefix(token, "978") && !strings.HasPrefix(token, "979") {
			return ""
		}
		if isbn13CheckDigit(token[:12]) != token[12] {
			return ""
		}
		return token
	}
	return ""
}

func validISBN10(token string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		c := token[i]
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

func isbn13CheckDigit(first12 string) byte {
	sum := 0
	for i := 0; i < 12; i++ {
		v := int(first12[i] - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return byte('0' + (10-sum%10)%10)
}

// NormalizeISSN returns an ISSN as "NNNN-NNNC", or "" when it does not have eight characters
func NormalizeISSN(s string) string {
	var b strings.Builder
scan:
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		case r == '-':
		default:
			if b.Len() > 0 {
				break scan
			}
		}
	}
	issn := b.String()
	if len(issn) != 8 || strings.ContainsRune(issn[:7], 'X') {
		return ""
	}
	return issn[:4] + "-" + issn[4:]
}
