package matching

import (
	"strings"
	"unicode/utf8"
)

// Scorer provides the string comparisons used by the match cascade.
// All comparisons work on runes and truncate their inputs to a fixed length first.
type Scorer struct {
	truncate int
}

// NewScorer creates a new Scorer; truncate <= 0 disables truncation
func NewScorer(truncate int) *Scorer {
	return &Scorer{truncate: truncate}
}

func (s *Scorer) cut(str string) []rune {
	r := []rune(str)
	if s.truncate > 0 && len(r) > s.truncate {
		r = r[:s.truncate]
	}
	return r
}

// LevenshteinDistance calculates the edit distance between two strings
func (s *Scorer) LevenshteinDistance(a, b string) int {
	return levenshtein(s.cut(a), s.cut(b))
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Create two rows for dynamic programming
	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(row[j-1]+1, prevRow[j]+1, prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

// ScaledDistance returns the edit distance as a percentage of the shorter input.
// Scaling by the shorter side keeps the result independent of argument order.
// Two empty strings are at distance 0; one empty string is at distance 100.
func (s *Scorer) ScaledDistance(a, b string) float64 {
	ra, rb := s.cut(a), s.cut(b)
	shorter := min(len(ra), len(rb))
	if shorter == 0 {
		if len(ra) == len(rb) {
			return 0
		}
		return 100
	}
	return float64(levenshtein(ra, rb)) / float64(shorter) * 100
}

// AuthorMatch is the lenient structural comparison of two normalized author names.
// Names match when equal, when both are at least six characters and one is a
// prefix of the other, or word by word when the first words are equal and the
// following words share their initial letter ("smith john" vs "smith j a").
// Words past the shorter name are ignored.
func (s *Scorer) AuthorMatch(a, b string) bool {
	if a == b {
		return true
	}

	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la >= 6 && lb >= 6 {
		ra, rb := []rune(a), []rune(b)
		shorter := min(la, lb)
		if string(ra[:shorter]) == string(rb[:shorter]) {
			return true
		}
	}

	wa, wb := strings.Fields(a), strings.Fields(b)
	words := min(len(wa), len(wb))
	if words < 2 || wa[0] != wb[0] {
		return false
	}
	for i := 1; i < words; i++ {
		fa, _ := utf8.DecodeRuneInString(wa[i])
		fb, _ := utf8.DecodeRuneInString(wb[i])
		if fa != fb {
			return false
		}
	}
	return true
}
