package netspeak

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/netspeak-go/netspeak/pkg/cache"
	"github.com/netspeak-go/netspeak/pkg/corpus"
	"github.com/netspeak-go/netspeak/pkg/normalize"
	"github.com/netspeak-go/netspeak/pkg/queryparse"
	"github.com/netspeak-go/netspeak/pkg/querytree"
	"github.com/netspeak-go/netspeak/pkg/regexindex"
	"github.com/netspeak-go/netspeak/pkg/synonyms"
)

// decodePhraseDictValue splits the phrase dictionary's fixed value layout:
// an 8-byte frequency followed by a 4-byte phrase-local id.
func decodePhraseDictValue(b []byte) (freq uint64, id uint32) {
	return binary.LittleEndian.Uint64(b[0:8]), binary.LittleEndian.Uint32(b[8:12])
}

// Search is the Core's sole entry point (§4.7): parse, normalize,
// retrieve per NormQuery, merge and cap at max_phrases.
func (c *Core) Search(req Request) Response {
	tree, err := queryparse.Parse(req.Query)
	if err != nil {
		return errorResponse(KindInvalidQuery, err.Error())
	}

	normOpts, searchOpts := c.options(req)
	normalizer := normalize.New(regexMatcherOrNil(c.regexIndex), synonymLookupOrNil(c.synonyms))

	normQueries, err := normalizer.Normalize(tree, normOpts)
	if err != nil {
		if _, ok := err.(*normalize.ErrTooComplex); ok {
			return errorResponse(KindInvalidQuery, err.Error())
		}
		return errorResponse(KindInternalError, err.Error())
	}

	raw, err := c.searchRaw(searchOpts, normQueries)
	if err != nil {
		return errorResponse(KindInternalError, err.Error())
	}

	result, err := c.mergeRawResult(searchOpts, raw)
	if err != nil {
		return errorResponse(KindInternalError, err.Error())
	}
	return Response{Result: result}
}

func errorResponse(kind ErrorKind, message string) Response {
	return Response{Error: &Error{Kind: kind, Message: message}}
}

// regexMatcherOrNil returns a nil normalize.RegexMatcher interface value
// (not a non-nil interface wrapping a nil pointer) when idx is nil, since
// the normalizer's nil check is on the interface itself.
func regexMatcherOrNil(idx *regexindex.Index) normalize.RegexMatcher {
	if idx == nil {
		return nil
	}
	return regexindex.NormalizeAdapter{Index: idx}
}

// synonymLookupOrNil mirrors regexMatcherOrNil's nil-interface guard: d
// must be typed as the concrete *synonyms.Dictionary here, not the
// normalize.SynonymLookup interface, or a nil d would still produce a
// non-nil interface value downstream.
func synonymLookupOrNil(d *synonyms.Dictionary) normalize.SynonymLookup {
	if d == nil {
		return nil
	}
	return d
}

// rawItem pairs one NormQuery with its raw retrieval result, the unit the
// reference calls RawResult::RefItem/add_item (§4.7.1-2).
type rawItem struct {
	query  *querytree.NormQuery
	wild   cache.RawRefResult // valid when query has QMARKs
	phrase *phraseHit         // valid when query is a pure word and was found
	unkown []string           // unknown words from a pure-word miss
}

type phraseHit struct {
	id   uint64
	freq uint64
}

func (c *Core) searchRaw(opts cache.SearchOptions, queries []*querytree.NormQuery) ([]rawItem, error) {
	items := make([]rawItem, 0, len(queries))
	for _, q := range queries {
		if q.IsPureWord() {
			item, err := c.processNonWildcard(opts, q)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		} else {
			item, err := c.processWildcard(opts, q)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	return items, nil
}

// processNonWildcard resolves a pure-WORD NormQuery via the phrase
// dictionary directly (§4.7.1).
func (c *Core) processNonWildcard(opts cache.SearchOptions, q *querytree.NormQuery) (rawItem, error) {
	key := q.CanonicalKey()
	if opts.MaxPhraseCount > 0 {
		if raw, ok := c.phraseDict.Get(key); ok {
			freq, id := decodePhraseDictValue(raw)
			if freq <= opts.MaxPhraseFrequency {
				return rawItem{query: q, phrase: &phraseHit{id: uint64(id), freq: freq}}, nil
			}
		}
	}

	var unknown []string
	for _, t := range q.Terminals {
		if _, ok := c.phraseDict.Get(t.Text); !ok {
			unknown = append(unknown, t.Text)
		}
	}
	return rawItem{query: q, unkown: unknown}, nil
}

// processWildcard dispatches a NormQuery containing QMARKs to the result
// cache first, falling back to postings-based wildcard retrieval (§4.7.1,
// §4.7.3).
func (c *Core) processWildcard(opts cache.SearchOptions, q *querytree.NormQuery) (rawItem, error) {
	key := q.CanonicalKey()

	if cached, ok := c.cache.Lookup(key, opts); ok {
		return rawItem{query: q, wild: cached}, nil
	}

	result, err := c.retrieveWildcard(opts, q)
	if err != nil {
		return rawItem{}, err
	}
	c.cache.Store(key, opts, result)
	return rawItem{query: q, wild: result}, nil
}

// retrieveWildcard implements the postings-based wildcard path of
// §4.7.1: pick the most selective fixed-word position, scan its postlist
// in descending-frequency order, and verify each candidate phrase against
// the query's other fixed words by fetching it from the corpus.
func (c *Core) retrieveWildcard(opts cache.SearchOptions, q *querytree.NormQuery) (cache.RawRefResult, error) {
	n := q.Length()
	pos, key, found, err := c.mostSelectivePosition(n, q)
	if err != nil {
		return cache.RawRefResult{}, err
	}
	if !found {
		// no fixed word at all (an all-QMARK query): nothing to anchor on.
		return cache.RawRefResult{}, nil
	}

	pl, ok, err := c.phraseIndex.Lookup(key, 0, -1)
	if err != nil {
		return cache.RawRefResult{}, err
	}
	if !ok {
		return cache.RawRefResult{}, nil
	}

	var refs []cache.Ref
	for {
		posting, more := pl.Next()
		if !more {
			break
		}
		if opts.MaxPhraseCount > 0 && len(refs) >= opts.MaxPhraseCount {
			break
		}
		if posting.Frequency > opts.MaxPhraseFrequency {
			continue
		}
		phrase, err := c.corpus.ReadPhrases([]corpus.Ref{{Length: n, LocalID: uint64(posting.PhraseID)}})
		if err != nil {
			return cache.RawRefResult{}, err
		}
		if !matchesFixedWords(q, phrase[0].Words, pos) {
			continue
		}
		refs = append(refs, cache.Ref{PhraseID: uint64(posting.PhraseID), Frequency: posting.Frequency})
	}

	return cache.RawRefResult{Refs: refs}, nil
}

// mostSelectivePosition picks the fixed-word position whose postlist is
// smallest, consulting the sketch index when available (§4.7.1).
func (c *Core) mostSelectivePosition(n int, q *querytree.NormQuery) (pos int, key string, found bool, err error) {
	best := -1
	bestLen := -1
	var bestKey string
	for i, t := range q.Terminals {
		if !t.IsWord {
			continue
		}
		k := positionKey(n, i, t.Text)
		size, ok, lenErr := c.postlistSize(k)
		if lenErr != nil {
			return 0, "", false, lenErr
		}
		if !ok {
			continue
		}
		if best == -1 || size < bestLen {
			best, bestLen, bestKey = i, size, k
		}
	}
	if best == -1 {
		return 0, "", false, nil
	}
	return best, bestKey, true, nil
}

func (c *Core) postlistSize(key string) (int, bool, error) {
	if c.sketch != nil {
		if points, ok := c.sketch.Lookup(key); ok && len(points) > 0 {
			return int(points[len(points)-1].Index) + 1, true, nil
		}
	}
	return c.phraseIndex.Len(key)
}

func positionKey(n, pos int, word string) string {
	return fmt.Sprintf("%d:%d_%s", n, pos, word)
}

func matchesFixedWords(q *querytree.NormQuery, words []string, anchoredPos int) bool {
	for i, t := range q.Terminals {
		if i == anchoredPos || !t.IsWord {
			continue
		}
		if words[i] != t.Text {
			return false
		}
	}
	return true
}

// mergeRawResult implements §4.7.2: collect unique wildcard refs into a
// single (-freq, id) ordering, batch-fetch their phrases, union with the
// non-wildcard hits, re-sort and cap.
func (c *Core) mergeRawResult(opts cache.SearchOptions, items []rawItem) (*Result, error) {
	result := &Result{}

	// A phrase's PhraseID is only unique within its own length class (it is
	// a postlist-local id, per §4.4.1), so two NormQueries of differing
	// lengths can legitimately report the same raw id for different
	// phrases. Dedup sets are therefore kept per length rather than
	// globally over the id alone.
	type mergedRef struct {
		query  *querytree.NormQuery
		length int
		id     uint64
		freq   uint64
	}
	type combinedKey struct {
		length int
		id     uint64
	}
	uniq := make(map[combinedKey]mergedRef)
	var order []combinedKey
	seenByLength := make(map[int]*roaring.Bitmap)
	for _, item := range items {
		result.UnknownWords = append(result.UnknownWords, item.unkown...)
		length := item.query.Length()
		seen, ok := seenByLength[length]
		if !ok {
			seen = roaring.New()
			seenByLength[length] = seen
		}
		for _, ref := range item.wild.Refs {
			key := combinedKey{length: length, id: ref.PhraseID}
			if seen.CheckedAdd(uint32(ref.PhraseID)) {
				order = append(order, key)
			}
			uniq[key] = mergedRef{query: item.query, length: length, id: ref.PhraseID, freq: ref.Frequency}
		}
	}
	result.UnknownWords = dedupeSortedWords(result.UnknownWords)

	if opts.MaxPhraseCount == 0 {
		return result, nil
	}

	refs := make([]mergedRef, 0, len(order))
	for _, key := range order {
		refs = append(refs, uniq[key])
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].freq != refs[j].freq {
			return refs[i].freq > refs[j].freq
		}
		return refs[i].id < refs[j].id
	})
	if len(refs) > opts.MaxPhraseCount {
		refs = refs[:opts.MaxPhraseCount]
	}

	corpusRefs := make([]corpus.Ref, len(refs))
	for i, r := range refs {
		corpusRefs[i] = corpus.Ref{Length: r.length, LocalID: r.id}
	}
	var phrases []corpus.Phrase
	if len(corpusRefs) > 0 {
		var err error
		phrases, err = c.corpus.ReadPhrases(corpusRefs)
		if err != nil {
			return nil, err
		}
	}

	final := make([]ResponsePhrase, 0, len(refs)+len(items))
	for i, r := range refs {
		final = append(final, buildResponsePhrase(r.id, r.freq, phrases[i].Words, r.query))
	}
	for _, item := range items {
		if item.phrase == nil {
			continue
		}
		words := make([]string, len(item.query.Terminals))
		for i, t := range item.query.Terminals {
			words[i] = t.Text
		}
		final = append(final, buildResponsePhrase(item.phrase.id, item.phrase.freq, words, item.query))
	}

	sort.SliceStable(final, func(i, j int) bool { return final[i].Frequency > final[j].Frequency })
	if len(final) > opts.MaxPhraseCount {
		final = final[:opts.MaxPhraseCount]
	}
	result.Phrases = final
	return result, nil
}

func buildResponsePhrase(id, freq uint64, words []string, q *querytree.NormQuery) ResponsePhrase {
	rw := make([]ResponseWord, len(words))
	for i, w := range words {
		tag := querytree.SourceWord
		if i < len(q.Terminals) {
			tag = q.Terminals[i].Source
		}
		rw[i] = ResponseWord{Text: w, Tag: tag.String()}
	}
	return ResponsePhrase{ID: id, Length: len(words), Frequency: freq, Words: rw}
}

func dedupeSortedWords(words []string) []string {
	if len(words) == 0 {
		return nil
	}
	sort.Strings(words)
	out := words[:1]
	for _, w := range words[1:] {
		if w != out[len(out)-1] {
			out = append(out, w)
		}
	}
	return out
}
