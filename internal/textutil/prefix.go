package textutil

import "unicode/utf8"

// CommonPrefix returns the longest leading substring shared by every name.
// Comparison is byte-wise but never splits a multi-byte rune.
func CommonPrefix(names ...string) string {
	if len(names) == 0 {
		return ""
	}
	prefix := names[0]
	for _, name := range names[1:] {
		n := 0
		for n < len(prefix) && n < len(name) && prefix[n] == name[n] {
			n++
		}
		prefix = prefix[:n]
		if prefix == "" {
			return ""
		}
	}
	for len(prefix) > 0 && !utf8.ValidString(prefix) {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}

// ShortestLength returns the rune length of the shortest name.
func ShortestLength(names ...string) int {
	if len(names) == 0 {
		return 0
	}
	shortest := utf8.RuneCountInString(names[0])
	for _, name := range names[1:] {
		if n := utf8.RuneCountInString(name); n < shortest {
			shortest = n
		}
	}
	return shortest
}
