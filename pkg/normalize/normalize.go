// Package normalize implements the query normalizer (§4.2): complexity
// admission followed by tree-directed expansion of a querytree.Unit into
// NormQueries. Following the design note on listeners, admission and
// expansion are two explicit passes inside Normalize rather than an
// observer list — expansion only ever runs once admission reports no errors.
package normalize

import (
	"time"

	"github.com/netspeak-go/netspeak/pkg/querytree"
)

// Options bounds normalization, mirroring the request-derived parameters
// named in §6.
type Options struct {
	MaxNormQueries  int
	MinLength       int
	MaxLength       int
	MaxRegexMatches int
	MaxRegexTime    time.Duration
}

// RegexMatcher resolves a REGEX unit's literal text against the regex word
// index (§4.3), returning up to k matching words in frequency-descending
// order.
type RegexMatcher interface {
	Match(pattern string, k int, timeout time.Duration) ([]string, error)
}

// SynonymLookup resolves a DICTSET word to its synonym strings (§4.2.2).
// Each returned synonym may itself be multiple ASCII-space-separated words.
type SynonymLookup interface {
	Lookup(word string) []string
}

// Normalizer holds the two lookup dependencies expansion needs.
type Normalizer struct {
	regex    RegexMatcher
	synonyms SynonymLookup
}

// New builds a Normalizer. Either dependency may be nil: a nil regex
// matcher makes every REGEX unit contribute zero matches, and a nil
// synonym lookup makes every DICTSET expand to just its own word.
func New(regex RegexMatcher, synonyms SynonymLookup) *Normalizer {
	return &Normalizer{regex: regex, synonyms: synonyms}
}

// Normalize runs the two-pass admit/expand pipeline over root and returns
// the resulting NormQueries (§4.2.3), or an error if the query is
// inadmissible. An admitted query with no surviving alternatives, or one
// whose expansion yields no candidates, returns a nil slice with a nil
// error: an empty result is a normal outcome (§7), never an error.
func (n *Normalizer) Normalize(root *querytree.Unit, opts Options) ([]*querytree.NormQuery, error) {
	c := complexity(root, opts.MaxRegexMatches)
	if c > maxComplexity {
		return nil, &ErrTooComplex{Computed: c, Max: maxComplexity}
	}

	branches := topLevelBranches(root)
	var admitted []*querytree.Unit
	for _, b := range branches {
		mn, mx := lengthBounds(b)
		if fitsWindow(mn, mx, opts.MinLength, opts.MaxLength) {
			admitted = append(admitted, b)
		}
	}
	if len(admitted) == 0 {
		return nil, nil
	}

	ex := &expander{n: n, opts: opts, regexCache: make(map[string][]string)}
	var out []*querytree.NormQuery
	for _, b := range admitted {
		if ex.budgetExhausted(len(out)) {
			break
		}
		for _, p := range ex.expand(b) {
			if len(p) < opts.MinLength || len(p) > opts.MaxLength {
				continue
			}
			out = append(out, &querytree.NormQuery{Terminals: p})
			if ex.budgetExhausted(len(out)) {
				break
			}
		}
	}
	return out, nil
}

func topLevelBranches(root *querytree.Unit) []*querytree.Unit {
	if root.Tag == querytree.ALTERNATION {
		return root.Children
	}
	return []*querytree.Unit{root}
}
