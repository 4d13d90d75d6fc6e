package regexindex

import "time"

// NormalizeAdapter exposes an Index as a normalize.RegexMatcher without the
// two packages importing each other: normalize depends only on a small
// interface, regexindex never needs to know it exists.
type NormalizeAdapter struct {
	Index *Index
}

func (a NormalizeAdapter) Match(pattern string, k int, timeout time.Duration) ([]string, error) {
	query := ParseRegexToken(pattern)
	return a.Index.Match(query, k, timeout), nil
}
