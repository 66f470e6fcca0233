package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorer_LevenshteinDistance(t *testing.T) {
	s := NewScorer(0)

	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"muller", "müller", 1},
		{"design patterns", "design patterns", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, s.LevenshteinDistance(tt.a, tt.b))
			assert.Equal(t, tt.want, s.LevenshteinDistance(tt.b, tt.a))
		})
	}
}

func TestScorer_Truncate(t *testing.T) {
	s := NewScorer(5)
	assert.Equal(t, 0, s.LevenshteinDistance("abcdeXXXX", "abcdeYY"))
	assert.Equal(t, float64(0), s.ScaledDistance("abcdeXXXX", "abcdeYY"))
}

func TestScorer_ScaledDistance(t *testing.T) {
	s := NewScorer(255)

	t.Run("symmetric", func(t *testing.T) {
		a, b := "design patterns", "design patterns elements"
		assert.Equal(t, s.ScaledDistance(a, b), s.ScaledDistance(b, a))
	})

	t.Run("scaled by shorter input", func(t *testing.T) {
		// 1 edit over 10 runes
		assert.InDelta(t, 10.0, s.ScaledDistance("abcdefghij", "abcdefghiX"), 0.0001)
		// 2 insertions over 10 runes
		assert.InDelta(t, 20.0, s.ScaledDistance("abcdefghij", "abcdefghijkl"), 0.0001)
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Equal(t, float64(0), s.ScaledDistance("", ""))
		assert.Equal(t, float64(100), s.ScaledDistance("", "abc"))
	})
}

func TestScorer_AuthorMatch(t *testing.T) {
	s := NewScorer(255)

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"exact", "smith john", "smith john", true},
		{"initial", "smith john", "smith j", true},
		{"several initials", "tolkien john ronald", "tolkien j r", true},
		{"long prefix", "gamma erich", "gamma erich 1961", true},
		{"short prefix is not enough", "li", "lin", false},
		{"different surname", "smith john", "smyth john", false},
		{"different initial", "smith john", "smith k", false},
		{"extra initial", "li j", "li j k", true},
		{"abbreviated with extra initial", "smith j a", "smith john", true},
		{"extra word with different initial", "smith k a", "smith john", false},
		{"single words", "smith", "smyth", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.AuthorMatch(tt.a, tt.b))
			assert.Equal(t, tt.want, s.AuthorMatch(tt.b, tt.a))
		})
	}
}
