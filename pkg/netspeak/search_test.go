package netspeak

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/netspeak-go/netspeak/pkg/cache"
	"github.com/netspeak-go/netspeak/pkg/corpus"
	"github.com/netspeak-go/netspeak/pkg/phrasedict"
	"github.com/netspeak-go/netspeak/pkg/postings"
	"github.com/netspeak-go/netspeak/pkg/querytree"
)

func writeVocab(t *testing.T, dir string, words []string) {
	t.Helper()
	var content string
	for id, w := range words {
		content += w + " " + itoa(id) + "\n"
	}
	if err := os.WriteFile(filepath.Join(dir, "vocab"), []byte(content), 0o644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func writePhrasesFile(t *testing.T, dir string, n int, records [][2]any) {
	t.Helper()
	var buf []byte
	for _, rec := range records {
		freq := rec[0].(uint64)
		ids := rec[1].([]uint32)
		head := make([]byte, 8)
		binary.LittleEndian.PutUint64(head, freq)
		buf = append(buf, head...)
		for _, id := range ids {
			idBytes := make([]byte, 4)
			binary.LittleEndian.PutUint32(idBytes, id)
			buf = append(buf, idBytes...)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "phrases."+itoa(n)), buf, 0o644); err != nil {
		t.Fatalf("write phrases.%d: %v", n, err)
	}
}

// newTestCore builds a Core directly from in-memory fixtures, bypassing
// Open/config so the retrieval pipeline can be exercised without a full
// on-disk directory layout.
func newTestCore(t *testing.T) *Core {
	t.Helper()
	dir := t.TempDir()

	corpusDir := filepath.Join(dir, "corpus")
	if err := os.MkdirAll(corpusDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeVocab(t, corpusDir, []string{"the", "quick", "brown", "fox"})
	// phrase 0: "the quick fox" freq 100; phrase 1: "the brown fox" freq 80.
	writePhrasesFile(t, corpusDir, 3, [][2]any{
		{uint64(100), []uint32{0, 1, 3}},
		{uint64(80), []uint32{0, 2, 3}},
	})
	corp, err := corpus.Open(corpusDir)
	if err != nil {
		t.Fatalf("corpus.Open: %v", err)
	}

	// The dictionary holds the phrase plus every vocabulary word as a
	// unigram, so a miss reports only the words the dictionary lacks.
	dictKeys := []string{"the quick fox", "the", "quick", "brown", "fox"}
	dictValues := [][]byte{
		encodePhraseDictTestValue(100, 0),
		encodePhraseDictTestValue(1000, 0),
		encodePhraseDictTestValue(500, 1),
		encodePhraseDictTestValue(300, 2),
		encodePhraseDictTestValue(400, 3),
	}
	dict, err := phrasedict.Build(dictKeys, dictValues, 1000)
	if err != nil {
		t.Fatalf("phrasedict.Build: %v", err)
	}

	postingsDir := filepath.Join(dir, "postings")
	postlists := map[string][]postings.Posting{
		"3:0_the": {
			{PhraseID: 0, Frequency: 100},
			{PhraseID: 1, Frequency: 80},
		},
		"3:2_fox": {
			{PhraseID: 0, Frequency: 100},
			{PhraseID: 1, Frequency: 80},
		},
	}
	if err := postings.Build(postingsDir, postlists); err != nil {
		t.Fatalf("postings.Build: %v", err)
	}
	idx, err := postings.Open(postingsDir)
	if err != nil {
		t.Fatalf("postings.Open: %v", err)
	}

	return &Core{
		corpus:      corp,
		phraseDict:  dict,
		phraseIndex: idx,
		cache:       cache.New(16),
	}
}

func encodePhraseDictTestValue(freq uint64, id uint32) []byte {
	b := make([]byte, phraseDictValueSize)
	binary.LittleEndian.PutUint64(b[0:8], freq)
	binary.LittleEndian.PutUint32(b[8:12], id)
	return b
}

const phraseDictValueSize = 12

func wordTerm(text string) querytree.NormTerminal {
	return querytree.NormTerminal{IsWord: true, Text: text, Source: querytree.SourceWord}
}

func qmarkTerm() querytree.NormTerminal {
	return querytree.NormTerminal{IsWord: false, Source: querytree.SourceQmark}
}

func TestProcessNonWildcardHit(t *testing.T) {
	c := newTestCore(t)
	q := &querytree.NormQuery{Terminals: []querytree.NormTerminal{wordTerm("the"), wordTerm("quick"), wordTerm("fox")}}

	item, err := c.processNonWildcard(cache.SearchOptions{MaxPhraseCount: 10, MaxPhraseFrequency: 1000}, q)
	if err != nil {
		t.Fatalf("processNonWildcard: %v", err)
	}
	if item.phrase == nil || item.phrase.freq != 100 {
		t.Fatalf("expected phrase hit with freq 100, got %+v", item.phrase)
	}
}

func TestProcessNonWildcardReportsUnknownWords(t *testing.T) {
	c := newTestCore(t)
	q := &querytree.NormQuery{Terminals: []querytree.NormTerminal{wordTerm("the"), wordTerm("slow"), wordTerm("fox")}}

	item, err := c.processNonWildcard(cache.SearchOptions{MaxPhraseCount: 10, MaxPhraseFrequency: 1000}, q)
	if err != nil {
		t.Fatalf("processNonWildcard: %v", err)
	}
	if item.phrase != nil {
		t.Fatalf("expected a miss, got phrase hit %+v", item.phrase)
	}
	if len(item.unkown) != 1 || item.unkown[0] != "slow" {
		t.Fatalf("expected unknown word 'slow', got %v", item.unkown)
	}
}

func TestMostSelectivePositionPrefersEarlierTieWhenEqualSize(t *testing.T) {
	c := newTestCore(t)
	q := &querytree.NormQuery{Terminals: []querytree.NormTerminal{wordTerm("the"), qmarkTerm(), wordTerm("fox")}}

	pos, key, found, err := c.mostSelectivePosition(3, q)
	if err != nil {
		t.Fatalf("mostSelectivePosition: %v", err)
	}
	if !found {
		t.Fatalf("expected a fixed-word anchor")
	}
	if pos != 0 || key != "3:0_the" {
		t.Fatalf("expected anchor at position 0 (3:0_the), got pos=%d key=%q", pos, key)
	}
}

func TestRetrieveWildcardMatchesFixedWords(t *testing.T) {
	c := newTestCore(t)
	q := &querytree.NormQuery{Terminals: []querytree.NormTerminal{wordTerm("the"), qmarkTerm(), wordTerm("fox")}}

	result, err := c.retrieveWildcard(cache.SearchOptions{MaxPhraseCount: 10, MaxPhraseFrequency: 1000}, q)
	if err != nil {
		t.Fatalf("retrieveWildcard: %v", err)
	}
	if len(result.Refs) != 2 {
		t.Fatalf("expected both phrases to match, got %+v", result.Refs)
	}
	if result.Refs[0].Frequency != 100 || result.Refs[1].Frequency != 80 {
		t.Fatalf("expected descending-frequency order preserved, got %+v", result.Refs)
	}
}

func TestProcessWildcardStoresInCache(t *testing.T) {
	c := newTestCore(t)
	q := &querytree.NormQuery{Terminals: []querytree.NormTerminal{wordTerm("the"), qmarkTerm(), wordTerm("fox")}}
	opts := cache.SearchOptions{MaxPhraseCount: 10, MaxPhraseFrequency: 1000}

	if _, err := c.processWildcard(opts, q); err != nil {
		t.Fatalf("processWildcard: %v", err)
	}
	if c.cache.Len() != 1 {
		t.Fatalf("expected one cache entry after first call, got %d", c.cache.Len())
	}

	item, err := c.processWildcard(opts, q)
	if err != nil {
		t.Fatalf("processWildcard (cached): %v", err)
	}
	if len(item.wild.Refs) != 2 {
		t.Fatalf("expected cached result with 2 refs, got %+v", item.wild.Refs)
	}
}

func TestMergeRawResultOrdersByFrequencyAndCaps(t *testing.T) {
	c := newTestCore(t)
	q := &querytree.NormQuery{Terminals: []querytree.NormTerminal{wordTerm("the"), qmarkTerm(), wordTerm("fox")}}
	items := []rawItem{
		{query: q, wild: cache.RawRefResult{Refs: []cache.Ref{{PhraseID: 1, Frequency: 80}, {PhraseID: 0, Frequency: 100}}}},
	}

	result, err := c.mergeRawResult(cache.SearchOptions{MaxPhraseCount: 1, MaxPhraseFrequency: 1000}, items)
	if err != nil {
		t.Fatalf("mergeRawResult: %v", err)
	}
	if len(result.Phrases) != 1 {
		t.Fatalf("expected cap at 1 phrase, got %d", len(result.Phrases))
	}
	if result.Phrases[0].Frequency != 100 {
		t.Fatalf("expected the higher-frequency phrase to survive the cap, got %+v", result.Phrases[0])
	}
}

func TestDedupeSortedWords(t *testing.T) {
	got := dedupeSortedWords([]string{"zzz", "aaa", "zzz", "mmm"})
	want := []string{"aaa", "mmm", "zzz"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRegexMatcherOrNilReturnsGenuineNilInterface(t *testing.T) {
	m := regexMatcherOrNil(nil)
	if m != nil {
		t.Fatalf("expected a genuinely nil interface, got %#v", m)
	}
}

func TestErrorResponseShape(t *testing.T) {
	resp := errorResponse(KindInvalidQuery, "bad query")
	if resp.Result != nil {
		t.Fatalf("expected no result on an error response")
	}
	if resp.Error == nil || resp.Error.Kind != KindInvalidQuery || resp.Error.Message != "bad query" {
		t.Fatalf("unexpected error response: %+v", resp.Error)
	}
}
