package episodes

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"showkeeper/internal/textutil"
)

// BestCommonName derives a title for a merged slot from the titles it absorbs.
// "Exodus (1)" and "Exodus (2)" become "Exodus". When the titles share no
// meaningful root the result is the titles joined with " + ".
func BestCommonName(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	fallback := strings.Join(names, " + ")

	for _, name := range names[1:] {
		if len(name) != len(names[0]) {
			return fallback
		}
	}
	root := textutil.CommonPrefix(names...)
	trimmed := trimRoot(root)
	if trimmed == "" {
		return fallback
	}
	if strings.EqualFold(trimmed, "episode") || strings.EqualFold(trimmed, "part") {
		return fallback
	}
	if n := len([]rune(root)); n < 4 && n < textutil.ShortestLength(names...)/2 {
		return fallback
	}
	return trimmed
}

// trimRoot strips trailing punctuation, spaces, and dangling "part" or
// "episode" words until nothing more can be removed.
func trimRoot(root string) string {
	for {
		before := root
		root = strings.TrimRightFunc(root, func(r rune) bool {
			return unicode.IsSpace(r) || unicode.IsPunct(r)
		})
		for _, word := range []string{"part", "episode"} {
			lower := strings.ToLower(root)
			if !strings.HasSuffix(lower, word) {
				continue
			}
			cut := len(root) - len(word)
			if prev, _ := utf8.DecodeLastRuneInString(root[:cut]); cut == 0 || !unicode.IsLetter(prev) {
				root = root[:cut]
			}
		}
		if root == before {
			return root
		}
	}
}

// SimilarNames reports whether two titles share a meaningful root, such as
// "Pilot (1)" and "Pilot (2)". The root must not be a bare "episode" and
// must be longer than three characters and half the shorter title.
func SimilarNames(a, b string) bool {
	root := trimRoot(textutil.CommonPrefix(a, b))
	if root == "" || strings.EqualFold(root, "episode") {
		return false
	}
	n := len([]rune(root))
	return n > 3 && n > textutil.ShortestLength(a, b)/2
}
