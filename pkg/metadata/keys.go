package metadata

import (
	"strings"
	"unicode/utf8"

	"github.com/Ramsey-B/bramble/pkg/normalizers"
)

const (
	titleKeyMaxLongWords = 2
	titleKeyMinRunes     = 20
	titleKeyMaxRunes     = 100
	sortKeyDigits        = 20
)

// TitleKey builds the coarse clustering key for a filing title.
// Leading words are concatenated until more than two words longer than three runes have been taken
// or the key has grown past twenty runes; the result keeps letters and digits only.
func TitleKey(title string) string {
	var key strings.Builder
	longWords, keyLen := 0, 0
	for _, word := range strings.Fields(normalizers.Text(title)) {
		word = normalizers.Alphanumeric(word)
		if word == "" {
			continue
		}
		key.WriteString(word)
		n := utf8.RuneCountInString(word)
		if n > 3 {
			longWords++
		}
		keyLen += n
		if longWords > titleKeyMaxLongWords || keyLen > titleKeyMinRunes {
			break
		}
	}
	return truncateRunes(key.String(), titleKeyMaxRunes)
}

// IDSortKey left-pads a trailing run of digits so "part10" sorts after "part2"
func IDSortKey(id string) string {
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	digits := id[i:]
	if digits == "" || len(digits) >= sortKeyDigits {
		return id
	}
	return id[:i] + strings.Repeat("0", sortKeyDigits-len(digits)) + digits
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// unique drops empty strings and repeats, keeping first-seen order
func unique(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// trimPunctuation strips the ISBD separators MARC cataloguing leaves at the end of subfields
func trimPunctuation(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), " /:;,.=")
}

// firstYear returns the first run of four digits in s
func firstYear(s string) string {
	run := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			run++
			if run == 4 && (i+1 == len(s) || s[i+1] < '0' || s[i+1] > '9') {
				return s[i-3 : i+1]
			}
			continue
		}
		run = 0
	}
	return ""
}

// firstNumber returns the first integer in s, or 0
func firstNumber(s string) int {
	n, found := 0, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			n = n*10 + int(c-'0')
			found = true
			continue
		}
		if found {
			break
		}
	}
	return n
}
