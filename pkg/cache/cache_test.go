package cache

import "testing"

func TestDisjointWithTrivialEmpty(t *testing.T) {
	a := RawRefResult{}
	b := RawRefResult{Refs: []Ref{{PhraseID: 1, Frequency: 10}}}
	if !a.DisjointWith(b) {
		t.Fatalf("expected empty result to be trivially disjoint")
	}
}

func TestDisjointWithNonOverlappingRanges(t *testing.T) {
	a := RawRefResult{Refs: []Ref{{PhraseID: 1}, {PhraseID: 2}, {PhraseID: 3}}}
	b := RawRefResult{Refs: []Ref{{PhraseID: 10}, {PhraseID: 11}}}
	if !a.DisjointWith(b) {
		t.Fatalf("expected disjoint ranges")
	}
	if !b.DisjointWith(a) {
		t.Fatalf("expected disjoint ranges symmetrically")
	}
}

func TestDisjointWithOverlappingRangesIsFalse(t *testing.T) {
	a := RawRefResult{Refs: []Ref{{PhraseID: 1}, {PhraseID: 5}}}
	b := RawRefResult{Refs: []Ref{{PhraseID: 3}, {PhraseID: 8}}}
	if a.DisjointWith(b) {
		t.Fatalf("expected overlapping ranges to not be disjoint")
	}
}

func TestMergeUnionsAndDedups(t *testing.T) {
	a := RawRefResult{
		Refs:         []Ref{{PhraseID: 1, Frequency: 10}, {PhraseID: 3, Frequency: 5}},
		UnknownWords: []string{"zzz"},
	}
	b := RawRefResult{
		Refs:         []Ref{{PhraseID: 2, Frequency: 7}, {PhraseID: 3, Frequency: 5}},
		UnknownWords: []string{"aaa"},
	}
	merged := a.Merge(b)
	if len(merged.Refs) != 3 {
		t.Fatalf("expected 3 distinct refs, got %d: %+v", len(merged.Refs), merged.Refs)
	}
	for i := 1; i < len(merged.Refs); i++ {
		if merged.Refs[i].PhraseID <= merged.Refs[i-1].PhraseID {
			t.Fatalf("refs not ascending: %+v", merged.Refs)
		}
	}
	if len(merged.UnknownWords) != 2 || merged.UnknownWords[0] != "aaa" {
		t.Fatalf("expected sorted [aaa zzz], got %v", merged.UnknownWords)
	}
}

func TestLookupExactOptionsMatch(t *testing.T) {
	c := New(10)
	opts := SearchOptions{MaxPhraseCount: 100, MaxPhraseFrequency: 1000, MinLength: 1, MaxLength: 5}
	result := RawRefResult{Refs: []Ref{{PhraseID: 1, Frequency: 500}}}
	c.Store("the ?", opts, result)

	got, ok := c.Lookup("the ?", opts)
	if !ok || len(got.Refs) != 1 {
		t.Fatalf("expected exact hit, got ok=%v result=%+v", ok, got)
	}
}

func TestLookupPrunableSuperset(t *testing.T) {
	c := New(10)
	cached := SearchOptions{MaxPhraseCount: 100, MaxPhraseFrequency: 1000, MinLength: 1, MaxLength: 10}
	result := RawRefResult{Refs: []Ref{
		{PhraseID: 1, Frequency: 900},
		{PhraseID: 2, Frequency: 800},
		{PhraseID: 3, Frequency: 50},
	}}
	c.Store("the ?", cached, result)

	req := SearchOptions{MaxPhraseCount: 2, MaxPhraseFrequency: 1000, MinLength: 2, MaxLength: 5}
	got, ok := c.Lookup("the ?", req)
	if !ok {
		t.Fatalf("expected prunable-superset hit")
	}
	if len(got.Refs) != 2 {
		t.Fatalf("expected pruned slice of 2, got %d", len(got.Refs))
	}
}

func TestLookupIncompatibleOptionsIsMiss(t *testing.T) {
	c := New(10)
	cached := SearchOptions{MaxPhraseCount: 100, MaxPhraseFrequency: 1000, MinLength: 1, MaxLength: 10}
	c.Store("the ?", cached, RawRefResult{Refs: []Ref{{PhraseID: 1, Frequency: 900}}})

	req := SearchOptions{MaxPhraseCount: 100, MaxPhraseFrequency: 500, MinLength: 1, MaxLength: 10}
	if _, ok := c.Lookup("the ?", req); ok {
		t.Fatalf("expected miss: differing max frequency is not prunable")
	}
}

func TestLookupMissingKey(t *testing.T) {
	c := New(10)
	if _, ok := c.Lookup("nope", SearchOptions{}); ok {
		t.Fatalf("expected miss for absent key")
	}
}

func TestEvictionRespectsCapacity(t *testing.T) {
	c := New(2)
	opts := SearchOptions{MaxPhraseCount: 10, MaxPhraseFrequency: 100}
	c.Store("a", opts, RawRefResult{Refs: []Ref{{PhraseID: 1}}})
	c.Store("b", opts, RawRefResult{Refs: []Ref{{PhraseID: 2}}})
	if _, ok := c.Lookup("a", opts); !ok {
		t.Fatalf("expected 'a' to remain cached")
	}
	c.Store("c", opts, RawRefResult{Refs: []Ref{{PhraseID: 3}}})
	if c.Len() > 2 {
		t.Fatalf("expected capacity to cap entries at 2, got %d", c.Len())
	}
}
