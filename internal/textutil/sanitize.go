package textutil

import (
	"strings"
	"unicode"
)

// SanitizeFileName makes name safe as a single path element on every
// filesystem a library may live on. Separators, colons and asterisks become
// dashes; other reserved characters and control runes are dropped. Runs of
// whitespace collapse and trailing dots are removed.
func SanitizeFileName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*':
			return '-'
		case '?', '"', '<', '>', '|':
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	return strings.TrimRight(strings.Join(strings.Fields(mapped), " "), ". ")
}
