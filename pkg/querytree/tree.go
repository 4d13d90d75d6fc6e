// Package querytree implements the parse-tree node model shared by the
// query parser and the normalizer: a single tagged struct rather than a
// visitor hierarchy, per the "dynamic dispatch over tree nodes" design note.
package querytree

import "strings"

// Tag identifies the kind of a Unit.
type Tag int

const (
	WORD Tag = iota
	QMARK
	STAR
	PLUS
	REGEX
	DICTSET
	OPTIONSET
	ORDERSET
	ALTERNATION
	CONCAT
)

func (t Tag) String() string {
	switch t {
	case WORD:
		return "WORD"
	case QMARK:
		return "QMARK"
	case STAR:
		return "STAR"
	case PLUS:
		return "PLUS"
	case REGEX:
		return "REGEX"
	case DICTSET:
		return "DICTSET"
	case OPTIONSET:
		return "OPTIONSET"
	case ORDERSET:
		return "ORDERSET"
	case ALTERNATION:
		return "ALTERNATION"
	case CONCAT:
		return "CONCAT"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether units of this tag never have children.
func (t Tag) IsTerminal() bool {
	switch t {
	case WORD, QMARK, STAR, PLUS, REGEX:
		return true
	default:
		return false
	}
}

// Unit is a single node of the query tree. Terminals (WORD, QMARK, STAR,
// PLUS, REGEX) carry Text and no Children; DICTSET wraps exactly one WORD
// child; OPTIONSET/ORDERSET/ALTERNATION/CONCAT carry zero or more children.
type Unit struct {
	Tag      Tag
	Text     string
	Children []*Unit
}

// MaxDepth is the hard bound on tree depth (§3): exceeding it is an
// InvalidQuery, not a panic or silent truncation.
const MaxDepth = 30

// NewTerminal builds a terminal unit.
func NewTerminal(tag Tag, text string) *Unit {
	return &Unit{Tag: tag, Text: text}
}

// NewComposite builds a composite unit from already-built children.
func NewComposite(tag Tag, children ...*Unit) *Unit {
	return &Unit{Tag: tag, Children: children}
}

// Depth returns the maximum depth of the subtree rooted at u (a lone
// terminal has depth 1).
func (u *Unit) Depth() int {
	if u == nil {
		return 0
	}
	if len(u.Children) == 0 {
		return 1
	}
	max := 0
	for _, c := range u.Children {
		if d := c.Depth(); d > max {
			max = d
		}
	}
	return max + 1
}

// CanonicalText renders u back to surface syntax. It is used by the parser
// round-trip test (§8.1); the cache key is NormQuery.CanonicalKey.
func (u *Unit) CanonicalText() string {
	var b strings.Builder
	u.writeCanonical(&b)
	return b.String()
}

func (u *Unit) writeCanonical(b *strings.Builder) {
	switch u.Tag {
	case WORD:
		b.WriteString(escapeWord(u.Text))
	case QMARK:
		b.WriteByte('?')
	case STAR:
		b.WriteByte('*')
	case PLUS:
		b.WriteByte('+')
	case REGEX:
		b.WriteString(u.Text)
	case DICTSET:
		b.WriteString("# ")
		if len(u.Children) == 1 {
			u.Children[0].writeCanonical(b)
		}
	case OPTIONSET:
		b.WriteString("[ ")
		writeChildren(b, u.Children, " ")
		b.WriteString(" ]")
	case ORDERSET:
		b.WriteString("{ ")
		writeChildren(b, u.Children, " ")
		b.WriteString(" }")
	case ALTERNATION:
		writeChildren(b, u.Children, " | ")
	case CONCAT:
		writeChildren(b, u.Children, " ")
	}
}

func writeChildren(b *strings.Builder, children []*Unit, sep string) {
	for i, c := range children {
		if i > 0 {
			b.WriteString(sep)
		}
		c.writeCanonical(b)
	}
}

func escapeWord(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '?', '*', '+', '.', '[', ']', '{', '}', '#', '"', '|', '\\', ' ':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
