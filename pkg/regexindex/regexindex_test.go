package regexindex

import (
	"strings"
	"testing"
	"time"
)

func buildTestIndex(t *testing.T, words ...string) *Index {
	t.Helper()
	idx, err := Build(strings.NewReader(strings.Join(words, "\n")))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func TestParseColorRegexMatchesBoth(t *testing.T) {
	idx := buildTestIndex(t, "color", "colour", "couch")
	q := ParseRegexToken("colo[u]r")
	got := idx.Match(q, 10, 20*time.Millisecond)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %v", got)
	}
	if got[0] != "color" || got[1] != "colour" {
		t.Fatalf("expected frequency order [color colour], got %v", got)
	}
}

func TestParseOptionalWordSingleChar(t *testing.T) {
	q := ParseRegexToken("colo[u]r")
	units := q.Units()
	foundOptional := false
	for _, u := range units {
		if u.Type == UOptionalWord {
			foundOptional = true
		}
	}
	if !foundOptional {
		t.Fatalf("expected an OPTIONAL_WORD unit for single-char bracket, got %+v", units)
	}
}

func TestParseCharSetMultiChar(t *testing.T) {
	q := ParseRegexToken("[bp]et")
	units := q.Units()
	if units[0].Type != UCharSet || len(units[0].Value) != 2 {
		t.Fatalf("expected a 2-rune CHAR_SET, got %+v", units[0])
	}
}

func TestBuilderAdjacentWordsConcatenate(t *testing.T) {
	var b QueryBuilder
	b.Add(Word([]rune("co")))
	b.Add(Word([]rune("lo")))
	b.Add(Word([]rune("r")))
	q := b.ToQuery()
	if len(q.Units()) != 1 || string(q.Units()[0].Value) != "color" {
		t.Fatalf("expected concatenated word, got %+v", q.Units())
	}
}

func TestBuilderAdjacentStarsCollapse(t *testing.T) {
	var b QueryBuilder
	b.Add(Star())
	b.Add(Star())
	q := b.ToQuery()
	if len(q.Units()) != 1 {
		t.Fatalf("expected single STAR, got %+v", q.Units())
	}
}

func TestBuilderQmarkAfterStarReorders(t *testing.T) {
	var b QueryBuilder
	b.Add(Star())
	b.Add(Qmark())
	q := b.ToQuery()
	units := q.Units()
	if len(units) != 2 || units[0].Type != UQmark || units[1].Type != UStar {
		t.Fatalf("expected [QMARK, STAR], got %+v", units)
	}
}

func TestBuilderEmptyCharSetRejectsAll(t *testing.T) {
	var b QueryBuilder
	b.Add(Word([]rune("a")))
	b.Add(CharSet(nil))
	q := b.ToQuery()
	if !q.RejectAll() {
		t.Fatalf("expected reject-all query")
	}
}

func TestBuilderSingleCharCharSetBecomesWord(t *testing.T) {
	var b QueryBuilder
	b.Add(CharSet([]rune("aaa")))
	q := b.ToQuery()
	units := q.Units()
	if len(units) != 1 || units[0].Type != UWord || string(units[0].Value) != "a" {
		t.Fatalf("expected single WORD unit 'a', got %+v", units)
	}
}

func TestAcceptAllNonEmptyShortCircuit(t *testing.T) {
	idx := buildTestIndex(t, "a", "b", "c")
	q := ParseRegexToken("*")
	got := idx.Match(q, 2, 20*time.Millisecond)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches from accept-all, got %v", got)
	}
}

func TestUnknownCharacterRejectsWord(t *testing.T) {
	idx := buildTestIndex(t, "cat", "dog")
	q := ParseRegexToken("c中t")
	got := idx.Match(q, 10, 20*time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("expected zero matches for unknown character, got %v", got)
	}
}

func TestBraceRepeatsCharSet(t *testing.T) {
	idx := buildTestIndex(t, "aa", "ab", "ba", "bb", "cc")
	q := ParseRegexToken("{ab}")
	got := idx.Match(q, 10, 20*time.Millisecond)
	if len(got) != 4 {
		t.Fatalf("expected 4 matches, got %v", got)
	}
}
