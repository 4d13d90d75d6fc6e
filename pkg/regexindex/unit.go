// Package regexindex implements the regex word-set index (§4.3): a query
// model over a small set of algebraically-simplified units, an in-memory
// vocabulary index (word directory, character set, open-addressed hash
// table), and the four-step matching algorithm that picks between a hash
// lookup and a regexp fallback depending on how many words a query could
// possibly match.
package regexindex

// UnitType is the kind of one RegexUnit.
type UnitType int

const (
	UQmark UnitType = iota
	UStar
	UWord
	UCharSet
	UOptionalWord
)

// Unit is one element of a regex query: QMARK/STAR carry no value, WORD and
// OPTIONAL_WORD carry a literal rune sequence, and CHAR_SET carries the set
// of alternative runes at that position (§4.3.1).
type Unit struct {
	Type  UnitType
	Value []rune
}

func Qmark() Unit               { return Unit{Type: UQmark} }
func Star() Unit                { return Unit{Type: UStar} }
func Word(s []rune) Unit        { return Unit{Type: UWord, Value: s} }
func CharSet(s []rune) Unit     { return Unit{Type: UCharSet, Value: s} }
func OptionalWord(s []rune) Unit { return Unit{Type: UOptionalWord, Value: s} }

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// withoutDuplicateRunes returns a copy of s with duplicate runes removed,
// order unspecified (matches the reference's sort-then-uniq approach).
func withoutDuplicateRunes(s []rune) []rune {
	if len(s) < 2 {
		out := make([]rune, len(s))
		copy(out, s)
		return out
	}
	seen := make(map[rune]bool, len(s))
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
