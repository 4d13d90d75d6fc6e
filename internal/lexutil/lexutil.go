// Package lexutil implements small rune/string predicates for query text.
// SplitASCIISpace is shared by the query parser's phrase splitting and the
// normalizer's synonym expansion; the query lexer keeps its own rune
// predicates.
package lexutil

import "strings"

// IsQuerySpace reports whether r is whitespace that separates surface-syntax
// tokens. Only ASCII space-class runes count; netspeak words may contain
// other Unicode whitespace-adjacent characters as literal content.
func IsQuerySpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

// IsStructural reports whether r is one of the surface-syntax structural
// characters that the lexer treats specially outside of escapes.
func IsStructural(r rune) bool {
	switch r {
	case '?', '*', '+', '.', '[', ']', '{', '}', '#', '"', '|', '\\':
		return true
	default:
		return false
	}
}

// SplitASCIISpace splits a synonym string on runs of ASCII space only,
// dropping empty fields. This is the documented (and intentionally narrow)
// tokenization rule for multi-word synonyms: Unicode whitespace and internal
// punctuation are left as part of the surrounding token.
func SplitASCIISpace(s string) []string {
	var fields []string
	start := -1
	for i, r := range s {
		if r == ' ' {
			if start >= 0 {
				fields = append(fields, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, s[start:])
	}
	return fields
}

// HasRegexMeta reports whether s contains a character that forces the
// lexer to treat a bare token as a regex atom rather than a plain word.
func HasRegexMeta(s string) bool {
	return strings.ContainsAny(s, "?*+.[]{}")
}
