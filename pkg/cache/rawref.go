// Package cache implements RawRefResult (§3, the raw phrase-id/frequency
// result of a single NormQuery's retrieval) and the bounded approximate-LFU
// result cache keyed by canonical NormQuery text (§4.7.3).
package cache

import (
	"sort"
)

// Ref is one phrase reference within a RawRefResult: a phrase id and its
// frequency. Refs within a RawRefResult are always kept sorted ascending
// by PhraseID, which is what lets disjoint_with and merge work as cheap
// range/set operations instead of full scans.
type Ref struct {
	PhraseID  uint64
	Frequency uint64
}

func (a Ref) less(b Ref) bool { return a.PhraseID < b.PhraseID }

// RawRefResult is the raw retrieval result for one NormQuery: its phrase
// refs (ascending by id) and the words it could not resolve.
type RawRefResult struct {
	Refs         []Ref
	UnknownWords []string
}

// Empty reports whether this result has no refs.
func (r RawRefResult) Empty() bool { return len(r.Refs) == 0 }

// DisjointWith reports whether r and other cannot share any phrase id,
// under the assumption that both are contiguous slices of a common
// underlying postlist (so their ids are each internally sorted runs):
// comparing only the endpoints is then sufficient, exactly as the
// reference does.
func (r RawRefResult) DisjointWith(other RawRefResult) bool {
	if r.Empty() || other.Empty() {
		return true
	}
	thisFirst, thisLast := r.Refs[0], r.Refs[len(r.Refs)-1]
	otherFirst, otherLast := other.Refs[0], other.Refs[len(other.Refs)-1]

	if thisFirst.less(otherFirst) {
		return thisLast.less(otherFirst)
	}
	return otherLast.less(thisFirst)
}

// Merge returns the set-union of r and other's refs (deduplicated,
// ascending by PhraseID) and the sorted, deduplicated union of their
// unknown words.
func (r RawRefResult) Merge(other RawRefResult) RawRefResult {
	refs := unionRefs(r.Refs, other.Refs)
	words := unionWords(r.UnknownWords, other.UnknownWords)
	return RawRefResult{Refs: refs, UnknownWords: words}
}

// unionRefs is a merge-like std::set_union over two ascending slices,
// deduplicating on PhraseID and preferring the first slice's Frequency on
// a tie (the two results are expected to agree on shared ids regardless).
func unionRefs(a, b []Ref) []Ref {
	out := make([]Ref, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].PhraseID < b[j].PhraseID:
			out = append(out, a[i])
			i++
		case b[j].PhraseID < a[i].PhraseID:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func unionWords(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [2][]string{a, b} {
		for _, w := range list {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

// Slice returns the prefix of refs up to maxCount entries whose frequency
// does not exceed maxFrequency, preserving order. It is used both for
// top-K capping and for pruning a cached superset down to a request's
// narrower options (§4.7.3).
func (r RawRefResult) Slice(maxCount int, maxFrequency uint64) RawRefResult {
	out := make([]Ref, 0, maxCount)
	for _, ref := range r.Refs {
		if len(out) >= maxCount {
			break
		}
		if ref.Frequency > maxFrequency {
			continue
		}
		out = append(out, ref)
	}
	return RawRefResult{Refs: out, UnknownWords: r.UnknownWords}
}
