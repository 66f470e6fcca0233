package metadata

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleKey(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{"stops after third long word", "Design Patterns: Elements of Reusable OO Software", "designpatternselements"},
		{"short title kept whole", "Design Patterns", "designpatterns"},
		{"diacritics folded", "Älä lyö lasta", "alalyolasta"},
		{"stops after twenty runes", "a b c abcdefghijklmnopqrstuvwxyz d", "abcabcdefghijklmnopqrstuvwxyz"},
		{"empty", "", ""},
		{"punctuation only", "...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TitleKey(tt.title))
		})
	}
}

func TestIDSortKey(t *testing.T) {
	ids := []string{"src.part10", "src.part2", "src.part1", "src.partx"}
	sort.Slice(ids, func(i, j int) bool { return IDSortKey(ids[i]) < IDSortKey(ids[j]) })
	assert.Equal(t, []string{"src.part1", "src.part2", "src.part10", "src.partx"}, ids)

	assert.Equal(t, "abc", IDSortKey("abc"))
}
