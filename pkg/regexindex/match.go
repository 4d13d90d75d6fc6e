package regexindex

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Match returns up to maxMatches words from the vocabulary that query can
// produce, in frequency-descending order (the vocabulary's own order),
// following the four-step algorithm of §4.3.4.
func (idx *Index) Match(query Query, maxMatches int, timeout time.Duration) []string {
	if maxMatches <= 0 {
		return nil
	}

	simplified := idx.simplify(query)

	if query.AcceptAllNonEmpty() {
		n := maxMatches
		if n > len(idx.words) {
			n = len(idx.words)
		}
		out := make([]string, n)
		for i := 0; i < n; i++ {
			out[i] = idx.wordAt(uint32(i))
		}
		return out
	}

	if query.RejectAll() {
		return nil
	}

	if simplified.CombinationsUpperBound() < 1000 {
		return idx.matchHashLookup(simplified, maxMatches)
	}

	return idx.matchRegex(simplified, maxMatches, timeout)
}

// simplify rewrites query against the vocabulary's character set (§4.3.4
// step 1): WORD/OPTIONAL_WORD units with an unknown rune are rejected
// (dropped or made reject-all), and CHAR_SETs have unknown runes stripped.
func (idx *Index) simplify(query Query) Query {
	var b QueryBuilder
	for _, u := range query.Units() {
		switch u.Type {
		case UWord:
			if idx.containsUnknownRunes(u.Value) {
				b.Add(CharSet(nil))
			} else {
				b.Add(u)
			}
		case UOptionalWord:
			if idx.containsUnknownRunes(u.Value) {
				// an optional word with an unknown rune can never match;
				// simply omit it rather than rejecting the whole query.
			} else {
				b.Add(u)
			}
		case UCharSet:
			if idx.containsUnknownRunes(u.Value) {
				kept := make([]rune, 0, len(u.Value))
				for _, r := range u.Value {
					if idx.allChars.Contains(uint32(r)) {
						kept = append(kept, r)
					}
				}
				b.Add(CharSet(kept))
			} else {
				b.Add(u)
			}
		default:
			b.Add(u)
		}
	}
	return b.ToQuery()
}

// matchHashLookup enumerates every word the (finite) query can produce via
// DFS over each unit's alternatives and looks each one up in the hash
// table (§4.3.4 step 3).
func (idx *Index) matchHashLookup(query Query, maxMatches int) []string {
	alternatives := make([][]string, len(query.Units()))
	for i, u := range query.Units() {
		switch u.Type {
		case UCharSet:
			alts := make([]string, len(u.Value))
			for j, r := range u.Value {
				alts[j] = string(r)
			}
			alternatives[i] = alts
		case UOptionalWord:
			alternatives[i] = []string{string(u.Value), ""}
		default:
			alternatives[i] = []string{string(u.Value)}
		}
	}

	var found []uint32
	var word strings.Builder
	var walk func(stackIndex int)
	walk = func(stackIndex int) {
		if stackIndex >= len(alternatives) {
			if wordIdx := idx.findWord(word.String()); wordIdx != noEntry {
				found = append(found, wordIdx)
			}
			return
		}
		prefix := word.String()
		for _, alt := range alternatives[stackIndex] {
			word.Reset()
			word.WriteString(prefix)
			word.WriteString(alt)
			walk(stackIndex + 1)
		}
	}
	walk(0)

	sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })

	out := make([]string, 0, maxMatches)
	var lastIndex uint32
	for i, wi := range found {
		if i > 0 && wi == lastIndex {
			continue
		}
		lastIndex = wi
		out = append(out, idx.wordAt(wi))
		if len(out) >= maxMatches {
			break
		}
	}
	return out
}

// matchRegex builds an anchored regexp from query and scans the vocabulary
// in order (§4.3.4 step 4), rejecting by length first and checking the
// wall-clock budget every 256 words.
func (idx *Index) matchRegex(query Query, maxMatches int, timeout time.Duration) []string {
	pattern := createRegexPattern(query)
	re, err := regexp.Compile(pattern)
	if err != nil {
		log.Warnf("failed to compile regex pattern %q: %v", pattern, err)
		return nil
	}

	minLen := query.MinUTF8InputLength()
	maxLen := query.MaxUTF8InputLength()

	start := time.Now()
	var out []string
	for i, entry := range idx.words {
		if entry.length < minLen || (maxLen != sizeMaxLen && entry.length > maxLen) {
			continue
		}
		word := idx.vocabulary[entry.offset : entry.offset+entry.length]
		if re.MatchString(word) {
			out = append(out, word)
			if len(out) >= maxMatches {
				break
			}
		}
		if i%256 == 0 && time.Since(start) > timeout {
			break
		}
	}
	return out
}

// createRegexPattern builds an anchored regexp matching exactly what query
// matches (§4.3.4 step 4). Go's regexp already treats `.` as "one code
// point" over UTF-8 input, so QMARK needs no byte-range expansion.
func createRegexPattern(query Query) string {
	var b strings.Builder
	b.WriteByte('^')
	for _, u := range query.Units() {
		switch u.Type {
		case UQmark:
			b.WriteString(`.`)
		case UStar:
			b.WriteString(`.*`)
		case UCharSet:
			b.WriteString("(?:")
			for i, r := range u.Value {
				if i > 0 {
					b.WriteByte('|')
				}
				b.WriteString(regexp.QuoteMeta(string(r)))
			}
			b.WriteString(")")
		case UOptionalWord:
			b.WriteString("(?:")
			b.WriteString(regexp.QuoteMeta(string(u.Value)))
			b.WriteString(")?")
		default:
			b.WriteString(regexp.QuoteMeta(string(u.Value)))
		}
	}
	b.WriteByte('$')
	return b.String()
}
