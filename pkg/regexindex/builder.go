package regexindex

// QueryBuilder incrementally assembles a Query, applying the algebraic
// simplifications of §4.3.1 unit by unit as each is added, rather than as a
// separate rewrite pass. Add looks at the previously added unit, and for a
// star at the trailing run of qmarks and optional words, which is enough to
// enforce every rule in the reference: adjacent word concatenation,
// adjacent star collapse, qmark-before-star reordering, and
// star/optional-word absorption.
type QueryBuilder struct {
	units    []Unit
	rejectAll bool
}

// Add appends unit to the query under construction, possibly merging it
// into or eliminating a previously added unit.
func (b *QueryBuilder) Add(unit Unit) {
	if b.rejectAll {
		return
	}

	unit = optimizeUnit(unit)

	if len(unit.Value) == 0 && (unit.Type == UWord || unit.Type == UOptionalWord) {
		return // empty word/optional word concatenates to nothing
	}
	if len(unit.Value) == 0 && unit.Type == UCharSet {
		b.rejectAll = true
		return
	}

	if len(b.units) == 0 {
		b.units = append(b.units, unit)
		return
	}

	prev := b.units[len(b.units)-1]
	switch unit.Type {
	case UWord:
		if prev.Type == UWord {
			concat := make([]rune, 0, len(prev.Value)+len(unit.Value))
			concat = append(concat, prev.Value...)
			concat = append(concat, unit.Value...)
			b.units[len(b.units)-1] = Word(concat)
			return
		}

	case UQmark:
		if prev.Type == UStar {
			// enforce qmark-before-star ordering
			b.units[len(b.units)-1] = unit
			b.units = append(b.units, prev)
			return
		}

	case UStar:
		if prev.Type == UStar {
			return // adjacent stars collapse
		}
		if prev.Type == UOptionalWord || prev.Type == UQmark {
			b.removeTrailingOptionalWords()
			b.units = append(b.units, unit)
			return
		}

	case UOptionalWord:
		if prev.Type == UStar {
			return // star absorbs a following optional word
		}
	}

	b.units = append(b.units, unit)
}

// removeTrailingOptionalWords pops the trailing run of qmarks and optional
// words, then re-pushes only the qmarks: optional words are absorbed by the
// star about to be appended, but qmarks are preserved ahead of it.
func (b *QueryBuilder) removeTrailingOptionalWords() {
	qmarks := 0
	for len(b.units) > 0 {
		t := b.units[len(b.units)-1].Type
		if t == UQmark {
			qmarks++
			b.units = b.units[:len(b.units)-1]
		} else if t == UOptionalWord {
			b.units = b.units[:len(b.units)-1]
		} else {
			break
		}
	}
	for ; qmarks > 0; qmarks-- {
		b.units = append(b.units, Qmark())
	}
}

// ToQuery finalizes the builder into an immutable Query.
func (b *QueryBuilder) ToQuery() Query {
	if b.rejectAll {
		return RejectAllQuery()
	}
	out := make([]Unit, len(b.units))
	copy(out, b.units)
	return newQuery(out)
}

// optimizeUnit deduplicates a CHAR_SET's runes and demotes a single-rune
// CHAR_SET to a WORD (§4.3.1, "a single-character CHAR_SET becomes WORD").
func optimizeUnit(u Unit) Unit {
	if u.Type != UCharSet {
		return u
	}
	deduped := withoutDuplicateRunes(u.Value)
	if len(deduped) == 1 {
		return Word(deduped)
	}
	return CharSet(deduped)
}
