package regexindex

// ParseRegexToken turns one regex-token string (already isolated by the
// query parser, §4.1) into a simplified Query, following the reference
// character-by-character mapping: malformed `[`/`{` fragments degrade to a
// literal WORD rather than failing, matching "never fail" (§4.3.1). A `\`
// makes the character after it a literal.
func ParseRegexToken(text string) Query {
	runes := []rune(text)
	var b QueryBuilder

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '\\':
			if i+1 < len(runes) {
				i++
				b.Add(Word([]rune{runes[i]}))
			} else {
				b.Add(Word([]rune{c}))
			}

		case '?':
			b.Add(Qmark())

		case '*':
			b.Add(Star())

		case '+':
			b.Add(Qmark())
			b.Add(Star())

		case '.':
			if i+1 < len(runes) && runes[i+1] == '.' {
				b.Add(Star())
				for i+1 < len(runes) && runes[i+1] == '.' {
					i++
				}
			} else {
				b.Add(Word([]rune{'.'}))
			}

		case '[':
			if content, end, ok := readUntil(runes, i+1, ']'); ok {
				i = end
				if len(content) == 1 {
					b.Add(OptionalWord(content))
				} else {
					b.Add(CharSet(content))
				}
			} else {
				b.Add(Word([]rune{c}))
			}

		case '{':
			if content, end, ok := readUntil(runes, i+1, '}'); ok {
				i = end
				cs := CharSet(content)
				for n := len(content); n > 0; n-- {
					b.Add(cs)
				}
			} else {
				b.Add(Word([]rune{c}))
			}

		default:
			b.Add(Word([]rune{c}))
		}
	}

	return b.ToQuery()
}

// readUntil scans runes[from:] for end, returning the content before it
// (exclusive) and the index of end itself. ok is false if end is never
// found, in which case the caller should treat the opening character as a
// plain literal.
func readUntil(runes []rune, from int, end rune) (content []rune, endIdx int, ok bool) {
	for i := from; i < len(runes); i++ {
		if runes[i] == end {
			return runes[from:i], i, true
		}
	}
	return nil, 0, false
}
