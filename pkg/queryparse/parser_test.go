package queryparse

import (
	"strings"
	"testing"

	"github.com/netspeak-go/netspeak/pkg/querytree"
)

func mustParse(t *testing.T, q string) *querytree.Unit {
	t.Helper()
	u, err := Parse(q)
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", q, err)
	}
	return u
}

func TestParseSimpleConcat(t *testing.T) {
	u := mustParse(t, "this is a test")
	if u.Tag != querytree.CONCAT || len(u.Children) != 4 {
		t.Fatalf("got %v", u)
	}
}

func TestParseSingleWordNoConcatWrapper(t *testing.T) {
	u := mustParse(t, "hello")
	if u.Tag != querytree.WORD || u.Text != "hello" {
		t.Fatalf("got %v", u)
	}
}

func TestParseWildcards(t *testing.T) {
	u := mustParse(t, "that ? works")
	if u.Tag != querytree.CONCAT || len(u.Children) != 3 {
		t.Fatalf("got %v", u)
	}
	if u.Children[1].Tag != querytree.QMARK {
		t.Fatalf("expected QMARK, got %v", u.Children[1].Tag)
	}
}

func TestParseOptionSet(t *testing.T) {
	u := mustParse(t, "so [ good beautiful ] today")
	if u.Tag != querytree.CONCAT || len(u.Children) != 3 {
		t.Fatalf("got %v", u)
	}
	set := u.Children[1]
	if set.Tag != querytree.OPTIONSET || len(set.Children) != 2 {
		t.Fatalf("got %v", set)
	}
}

func TestParseOrderSet(t *testing.T) {
	u := mustParse(t, "{ the of life }")
	if u.Tag != querytree.ORDERSET || len(u.Children) != 3 {
		t.Fatalf("got %v", u)
	}
}

func TestParseDictset(t *testing.T) {
	u := mustParse(t, "I # fast car")
	if u.Tag != querytree.CONCAT || len(u.Children) != 3 {
		t.Fatalf("got %v", u)
	}
	ds := u.Children[1]
	if ds.Tag != querytree.DICTSET || len(ds.Children) != 1 || ds.Children[0].Text != "fast" {
		t.Fatalf("got %v", ds)
	}
}

func TestParseAlternation(t *testing.T) {
	u := mustParse(t, "a b | c d")
	if u.Tag != querytree.ALTERNATION || len(u.Children) != 2 {
		t.Fatalf("got %v", u)
	}
	for _, branch := range u.Children {
		if branch.Tag != querytree.CONCAT || len(branch.Children) != 2 {
			t.Fatalf("got %v", branch)
		}
	}
}

func TestParseRegexToken(t *testing.T) {
	u := mustParse(t, "colo[u]r")
	if u.Tag != querytree.REGEX || u.Text != "colo[u]r" {
		t.Fatalf("got %v", u)
	}
}

func TestParsePhraseInSet(t *testing.T) {
	u := mustParse(t, "[ \"New York\" Boston ]")
	if u.Tag != querytree.OPTIONSET || len(u.Children) != 2 {
		t.Fatalf("got %v", u)
	}
	phrase := u.Children[0]
	if phrase.Tag != querytree.CONCAT || len(phrase.Children) != 2 {
		t.Fatalf("expected forced concat phrase, got %v", phrase)
	}
}

func TestParseEscapedStructuralCharIsLiteral(t *testing.T) {
	u := mustParse(t, `\?`)
	if u.Tag != querytree.WORD || u.Text != "?" {
		t.Fatalf("got %v", u)
	}
}

func TestParseEmptyQueryYieldsEmptyConcat(t *testing.T) {
	for _, q := range []string{"", "   "} {
		u := mustParse(t, q)
		if u.Tag != querytree.CONCAT || len(u.Children) != 0 {
			t.Fatalf("Parse(%q): got %v, want empty CONCAT", q, u)
		}
	}
}

func TestParseUnmatchedBracketIsError(t *testing.T) {
	_, err := Parse("this is invalid [")
	if err == nil {
		t.Fatal("expected error for unmatched '['")
	}
	var se *SyntaxError
	if !asSyntaxError(err, &se) {
		t.Fatalf("expected *SyntaxError, got %T", err)
	}
}

func TestParseEmptySetIsAccepted(t *testing.T) {
	u := mustParse(t, "abc [ ]")
	if u.Tag != querytree.CONCAT || len(u.Children) != 2 {
		t.Fatalf("got %v", u)
	}
	set := u.Children[1]
	if set.Tag != querytree.OPTIONSET || len(set.Children) != 0 {
		t.Fatalf("expected empty OPTIONSET, got %v", set)
	}

	u2 := mustParse(t, "abc { }")
	if u2.Tag != querytree.CONCAT || len(u2.Children) != 2 {
		t.Fatalf("got %v", u2)
	}
	set2 := u2.Children[1]
	if set2.Tag != querytree.ORDERSET || len(set2.Children) != 0 {
		t.Fatalf("expected empty ORDERSET, got %v", set2)
	}
}

func TestParseWildcardInSetIsError(t *testing.T) {
	if _, err := Parse("abc { foo ? }"); err == nil {
		t.Fatal("expected error for wildcard inside a set")
	}
}

func TestParseTooDeepIsError(t *testing.T) {
	var b strings.Builder
	for i := 0; i < querytree.MaxDepth+5; i++ {
		b.WriteString("[ ")
	}
	b.WriteString("a")
	for i := 0; i < querytree.MaxDepth+5; i++ {
		b.WriteString(" ]")
	}
	if _, err := Parse(b.String()); err == nil {
		t.Fatal("expected depth error")
	}
}

func TestCanonicalRoundTripPreservesShape(t *testing.T) {
	for _, q := range []string{
		"this is a test",
		"so [ good beautiful ] today",
		"{ the of life }",
		"a b | c d",
	} {
		u := mustParse(t, q)
		again, err := Parse(u.CanonicalText())
		if err != nil {
			t.Fatalf("round trip of %q -> %q failed: %v", q, u.CanonicalText(), err)
		}
		if again.CanonicalText() != u.CanonicalText() {
			t.Fatalf("round trip mismatch: %q != %q", again.CanonicalText(), u.CanonicalText())
		}
		if !sameShape(again, u) {
			t.Fatalf("round trip of %q via %q changed the tree shape", q, u.CanonicalText())
		}
	}
}

// sameShape reports whether a and b have the same tags, texts and child
// structure.
func sameShape(a, b *querytree.Unit) bool {
	if a.Tag != b.Tag || a.Text != b.Text || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !sameShape(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func asSyntaxError(err error, target **SyntaxError) bool {
	se, ok := err.(*SyntaxError)
	if ok {
		*target = se
	}
	return ok
}
