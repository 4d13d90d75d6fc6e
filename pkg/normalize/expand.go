package normalize

import (
	"sort"
	"strings"

	"github.com/netspeak-go/netspeak/internal/lexutil"
	"github.com/netspeak-go/netspeak/pkg/querytree"
)

// partial is one in-progress terminal sequence produced while expanding a
// subtree; a CONCAT at the root of the query turns a list of partials into
// NormQueries once nothing remains to combine.
type partial []querytree.NormTerminal

type expander struct {
	n          *Normalizer
	opts       Options
	regexCache map[string][]string
}

// budgetExhausted reports whether count already reached the soft cap on
// total candidate NormQueries (§4.2.2: "halts and returns the partial set").
func (ex *expander) budgetExhausted(count int) bool {
	return ex.opts.MaxNormQueries > 0 && count >= ex.opts.MaxNormQueries
}

// expand returns every partial terminal sequence u can produce, ignoring
// terminals that belong to sibling subtrees; CONCAT recursively combines
// its children's partials, dropping any prefix that already exceeds
// max_length (§4.2.2).
func (ex *expander) expand(u *querytree.Unit) []partial {
	switch u.Tag {
	case querytree.WORD:
		return []partial{{{IsWord: true, Text: u.Text, Source: querytree.SourceWord}}}

	case querytree.QMARK:
		return []partial{{{IsWord: false, Source: querytree.SourceQmark}}}

	case querytree.STAR:
		return ex.expandRun(querytree.SourceStar, 0)

	case querytree.PLUS:
		return ex.expandRun(querytree.SourcePlus, 1)

	case querytree.REGEX:
		words := ex.matchRegex(u.Text)
		out := make([]partial, 0, len(words))
		for _, w := range words {
			out = append(out, partial{{IsWord: true, Text: w, Source: querytree.SourceRegex}})
		}
		return out

	case querytree.DICTSET:
		return ex.expandDictset(u)

	case querytree.OPTIONSET:
		return ex.expandOptionset(u)

	case querytree.ORDERSET:
		return ex.expandOrderset(u)

	case querytree.ALTERNATION:
		var out []partial
		for _, c := range u.Children {
			out = append(out, ex.expand(c)...)
			if ex.budgetExhausted(len(out)) {
				break
			}
		}
		return out

	case querytree.CONCAT:
		return ex.expandConcat(u.Children)

	default:
		return nil
	}
}

// expandRun produces the STAR/PLUS family: for every k in
// [start, max_length], k QMARK terminals tagged with source.
func (ex *expander) expandRun(source querytree.SourceKind, start int) []partial {
	out := make([]partial, 0, ex.opts.MaxLength-start+1)
	for k := start; k <= ex.opts.MaxLength; k++ {
		p := make(partial, k)
		for i := range p {
			p[i] = querytree.NormTerminal{IsWord: false, Source: source}
		}
		out = append(out, p)
		if ex.budgetExhausted(len(out)) {
			break
		}
	}
	return out
}

func (ex *expander) matchRegex(pattern string) []string {
	if words, ok := ex.regexCache[pattern]; ok {
		return words
	}
	var words []string
	if ex.n.regex != nil {
		if matched, err := ex.n.regex.Match(pattern, ex.opts.MaxRegexMatches, ex.opts.MaxRegexTime); err == nil {
			words = matched
		}
	}
	ex.regexCache[pattern] = words
	return words
}

func (ex *expander) expandDictset(u *querytree.Unit) []partial {
	if len(u.Children) != 1 {
		return nil
	}
	word := u.Children[0].Text
	candidates := []partial{{{IsWord: true, Text: word, Source: querytree.SourceDictset}}}
	if ex.n.synonyms != nil {
		for _, syn := range ex.n.synonyms.Lookup(word) {
			fields := lexutil.SplitASCIISpace(syn)
			if len(fields) == 0 {
				continue
			}
			p := make(partial, len(fields))
			for i, f := range fields {
				p[i] = querytree.NormTerminal{IsWord: true, Text: f, Source: querytree.SourceDictset}
			}
			candidates = append(candidates, p)
		}
	}
	return candidates
}

func (ex *expander) expandOptionset(u *querytree.Unit) []partial {
	var out []partial
	for _, c := range u.Children {
		for _, p := range ex.expand(c) {
			out = append(out, retag(p, querytree.SourceOptionset))
			if ex.budgetExhausted(len(out)) {
				return out
			}
		}
	}
	return out
}

// expandOrderset enumerates every distinct permutation of the children's
// chosen expansions, sorted initially by canonical text and advanced via a
// lexicographic next_permutation walk (§4.2.2).
func (ex *expander) expandOrderset(u *querytree.Unit) []partial {
	childAlts := make([][]partial, len(u.Children))
	for i, c := range u.Children {
		childAlts[i] = ex.expand(c)
		if len(childAlts[i]) == 0 {
			return nil
		}
	}

	var out []partial
	ex.cartesianOrderset(childAlts, 0, make([]partial, 0, len(childAlts)), &out)
	return out
}

func (ex *expander) cartesianOrderset(childAlts [][]partial, idx int, chosen []partial, out *[]partial) {
	if ex.budgetExhausted(len(*out)) {
		return
	}
	if idx == len(childAlts) {
		for _, perm := range permutations(chosen) {
			combined := make(partial, 0)
			for _, group := range perm {
				combined = append(combined, group...)
			}
			*out = append(*out, retag(combined, querytree.SourceOrderset))
			if ex.budgetExhausted(len(*out)) {
				return
			}
		}
		return
	}
	for _, p := range childAlts[idx] {
		ex.cartesianOrderset(childAlts, idx+1, append(chosen, p), out)
		if ex.budgetExhausted(len(*out)) {
			return
		}
	}
}

// expandConcat computes the Cartesian product of children's partials
// left to right, dropping any prefix once it already exceeds max_length.
func (ex *expander) expandConcat(children []*querytree.Unit) []partial {
	if len(children) == 0 {
		return []partial{{}}
	}
	acc := ex.expand(children[0])
	acc = dropOverLength(acc, ex.opts.MaxLength)
	for _, child := range children[1:] {
		if ex.budgetExhausted(len(acc)) {
			break
		}
		childParts := ex.expand(child)
		var next []partial
		for _, a := range acc {
			for _, b := range childParts {
				if len(a)+len(b) > ex.opts.MaxLength {
					continue
				}
				combined := make(partial, 0, len(a)+len(b))
				combined = append(combined, a...)
				combined = append(combined, b...)
				next = append(next, combined)
				if ex.budgetExhausted(len(next)) {
					break
				}
			}
			if ex.budgetExhausted(len(next)) {
				break
			}
		}
		acc = next
	}
	return acc
}

func dropOverLength(parts []partial, maxLength int) []partial {
	out := parts[:0:0]
	for _, p := range parts {
		if len(p) <= maxLength {
			out = append(out, p)
		}
	}
	return out
}

// retag overrides the Source of every terminal still at its "bare" default
// (SourceWord) to newSource; terminals that already carry a more specific
// source (from an inner QMARK/STAR/PLUS/REGEX/DICTSET/OPTIONSET/ORDERSET)
// keep it, per the innermost-wrapping-construct rule.
func retag(p partial, newSource querytree.SourceKind) partial {
	out := make(partial, len(p))
	for i, t := range p {
		if t.Source == querytree.SourceWord {
			t.Source = newSource
		}
		out[i] = t
	}
	return out
}

func canonicalOf(p partial) string {
	var b strings.Builder
	for i, t := range p {
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

// permutations returns every distinct ordering of groups, sorted initially
// by canonical text and then advanced lexicographically; equal canonical
// texts naturally collapse duplicate permutations, matching
// std::next_permutation semantics over the sorted starting sequence.
func permutations(groups []partial) [][]partial {
	n := len(groups)
	if n == 0 {
		return nil
	}
	keys := make([]string, n)
	ordered := make([]partial, n)
	copy(ordered, groups)
	for i, g := range ordered {
		keys[i] = canonicalOf(g)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return keys[idx[i]] < keys[idx[j]] })

	sortedKeys := make([]string, n)
	sortedGroups := make([]partial, n)
	for i, k := range idx {
		sortedKeys[i] = keys[k]
		sortedGroups[i] = ordered[k]
	}

	var out [][]partial
	perm := make([]partial, n)
	copy(perm, sortedGroups)
	permKeys := make([]string, n)
	copy(permKeys, sortedKeys)
	for {
		snapshot := make([]partial, n)
		copy(snapshot, perm)
		out = append(out, snapshot)
		if !nextPermutation(permKeys, perm) {
			break
		}
	}
	return out
}

// nextPermutation advances both keys and parallel in lockstep to the next
// lexicographic arrangement, reporting false once the sequence is back to
// descending (exhausted).
func nextPermutation(keys []string, parallel []partial) bool {
	n := len(keys)
	i := n - 2
	for i >= 0 && keys[i] >= keys[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := n - 1
	for keys[j] <= keys[i] {
		j--
	}
	keys[i], keys[j] = keys[j], keys[i]
	parallel[i], parallel[j] = parallel[j], parallel[i]
	for l, r := i+1, n-1; l < r; l, r = l+1, r-1 {
		keys[l], keys[r] = keys[r], keys[l]
		parallel[l], parallel[r] = parallel[r], parallel[l]
	}
	return true
}
