package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)
var punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// NormalizeName lowercases name and drops whitespace and punctuation, so
// "HUB-Robeson  Market" and "hub robeson market" compare equal.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	name = punctuationRegex.ReplaceAllString(name, "")
	return name
}

// MatchName reports whether any of the already normalized matchers is a
// substring of the normalized name.
func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if m != "" && strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// Words splits name into lowercase alphanumeric words.
func Words(name string) []string {
	return strings.Fields(strings.ToLower(punctuationRegex.ReplaceAllString(name, " ")))
}
