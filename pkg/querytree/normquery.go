package querytree

import "strings"

// SourceKind records which surface construct a NormQuery terminal ultimately
// came from (§6 response phrase word tags). The normalizer sets this once,
// at the innermost wrapping construct, and never overwrites it as expansion
// propagates the terminal outward through enclosing composites — mirroring
// the reference's walk-up-to-first-special-ancestor rule.
type SourceKind int

const (
	SourceWord SourceKind = iota
	SourceQmark
	SourceStar
	SourcePlus
	SourceRegex
	SourceDictset
	SourceOptionset
	SourceOrderset
)

func (k SourceKind) String() string {
	switch k {
	case SourceWord:
		return "WORD"
	case SourceQmark:
		return "WORD_FOR_QMARK"
	case SourceStar:
		return "WORD_FOR_STAR"
	case SourcePlus:
		return "WORD_FOR_PLUS"
	case SourceRegex:
		return "WORD_FOR_REGEX"
	case SourceDictset:
		return "WORD_IN_DICTSET"
	case SourceOptionset:
		return "WORD_IN_OPTIONSET"
	case SourceOrderset:
		return "WORD_IN_ORDERSET"
	default:
		return "WORD"
	}
}

// NormTerminal is one position of a NormQuery: either a concrete WORD or a
// QMARK placeholder, tagged with its provenance for response tagging.
type NormTerminal struct {
	IsWord bool
	Text   string // valid iff IsWord
	Source SourceKind
}

// NormQuery is a finite ordered sequence of terminals of fixed length — the
// unit both the regex/postings retrieval path and the result cache operate
// on (§3, §4.7).
type NormQuery struct {
	Terminals []NormTerminal
}

// Length is the phrase length this NormQuery matches.
func (q *NormQuery) Length() int { return len(q.Terminals) }

// IsPureWord reports whether the NormQuery contains no QMARK placeholders,
// i.e. whether it should be resolved via the phrase dictionary rather than
// postings-based wildcard retrieval (§4.7.1).
func (q *NormQuery) IsPureWord() bool {
	for _, t := range q.Terminals {
		if !t.IsWord {
			return false
		}
	}
	return true
}

// CanonicalKey renders the NormQuery as the cache key defined in §4.7.3:
// each QMARK as "?", each WORD as its text, space-separated.
func (q *NormQuery) CanonicalKey() string {
	var b strings.Builder
	for i, t := range q.Terminals {
		if i > 0 {
			b.WriteByte(' ')
		}
		if t.IsWord {
			b.WriteString(t.Text)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

// Clone returns a deep-enough copy (terminal slice copied, strings shared)
// suitable for mutation by callers that trim or extend a NormQuery.
func (q *NormQuery) Clone() *NormQuery {
	out := &NormQuery{Terminals: make([]NormTerminal, len(q.Terminals))}
	copy(out.Terminals, q.Terminals)
	return out
}
