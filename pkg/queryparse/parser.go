// Package queryparse turns netspeak query surface syntax into a
// querytree.Unit, recursive-descent over a hand-written lexer. It follows
// the teacher pack's three-token-lookahead, panic-and-recover-at-the-top
// parser shape rather than a parser generator: errorf panics a *SyntaxError,
// caught once in Parse, so the recursive descent functions stay free of
// error-plumbing noise.
package queryparse

import (
	"github.com/netspeak-go/netspeak/internal/lexutil"
	"github.com/netspeak-go/netspeak/pkg/querytree"
)

// parser holds a small lookahead buffer over the lexer.
type parser struct {
	lex    *lexer
	peeked []item
}

func newParser(input string) *parser {
	return &parser{lex: newLexer(input)}
}

func (p *parser) next() item {
	if len(p.peeked) > 0 {
		it := p.peeked[0]
		p.peeked = p.peeked[1:]
		return it
	}
	return p.lex.nextItem()
}

func (p *parser) peek() item {
	return p.peekN(0)
}

func (p *parser) peekN(n int) item {
	for len(p.peeked) <= n {
		p.peeked = append(p.peeked, p.lex.nextItem())
	}
	return p.peeked[n]
}

func (p *parser) errorf(it item, format string, args ...any) {
	panic(syntaxErrorAt(it, format, args...))
}

// Parse parses a complete query string into a querytree.Unit. It never
// panics: parse errors surface as the returned error, a *SyntaxError.
func Parse(query string) (unit *querytree.Unit, err error) {
	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*SyntaxError); ok {
				err = se
				return
			}
			panic(r)
		}
	}()

	p := newParser(query)
	root := p.parseAlternation()
	if tok := p.next(); tok.typ != itemEOF {
		p.errorf(tok, "unexpected %s", tok)
	}

	if d := root.Depth(); d > querytree.MaxDepth {
		return nil, &SyntaxError{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 1, Message: "query tree exceeds maximum depth"}
	}
	return root, nil
}

func (p *parser) parseAlternation() *querytree.Unit {
	first := p.parseConcat()
	if p.peek().typ != itemPipe {
		return first
	}
	branches := []*querytree.Unit{first}
	for p.peek().typ == itemPipe {
		p.next()
		branches = append(branches, p.parseConcat())
	}
	return querytree.NewComposite(querytree.ALTERNATION, branches...)
}

// parseConcat parses a (possibly empty) run of concatenated units. An
// empty query or an empty alternation branch is valid, producing a CONCAT
// with no children rather than an error.
func (p *parser) parseConcat() *querytree.Unit {
	var units []*querytree.Unit
	for isUnitStart(p.peek().typ) {
		units = append(units, p.parseUnit())
	}
	if len(units) == 1 {
		return units[0]
	}
	return querytree.NewComposite(querytree.CONCAT, units...)
}

func isUnitStart(t itemType) bool {
	switch t {
	case itemWord, itemRegex, itemPhrase, itemQmark, itemStar, itemPlus, itemHash, itemLBracket, itemLBrace:
		return true
	default:
		return false
	}
}

func (p *parser) parseUnit() *querytree.Unit {
	tok := p.next()
	switch tok.typ {
	case itemWord:
		return querytree.NewTerminal(querytree.WORD, tok.val)
	case itemRegex:
		return querytree.NewTerminal(querytree.REGEX, tok.val)
	case itemQmark:
		return querytree.NewTerminal(querytree.QMARK, "")
	case itemStar:
		return querytree.NewTerminal(querytree.STAR, "")
	case itemPlus:
		return querytree.NewTerminal(querytree.PLUS, "")
	case itemPhrase:
		return phraseToUnit(tok.val)
	case itemHash:
		word := p.next()
		if word.typ != itemWord {
			p.errorf(word, "expected a word after '#', found %s", word)
		}
		return querytree.NewComposite(querytree.DICTSET, querytree.NewTerminal(querytree.WORD, word.val))
	case itemLBracket:
		return p.parseSet(querytree.OPTIONSET, itemRBracket, "]")
	case itemLBrace:
		return p.parseSet(querytree.ORDERSET, itemRBrace, "}")
	case itemRBracket:
		p.errorf(tok, "unmatched ']'")
	case itemRBrace:
		p.errorf(tok, "unmatched '}'")
	case itemPipe:
		p.errorf(tok, "unexpected '|'")
	case itemError:
		p.errorf(tok, "%s", tok.val)
	case itemEOF:
		p.errorf(tok, "unexpected end of query")
	}
	p.errorf(tok, "unexpected %s", tok)
	return nil // unreachable
}

// parseSet parses the whitespace-separated alternatives inside `[...]` or
// `{...}`. An empty set (`[ ]`/`{ }`) is valid. Each alternative is
// restricted to a word, a regex, or a forced-concat phrase — no QMARK,
// STAR, PLUS, nested set, or DICTSET is allowed as a set member.
func (p *parser) parseSet(tag querytree.Tag, closeType itemType, closeSym string) *querytree.Unit {
	var items []*querytree.Unit
	for {
		tok := p.peek()
		if tok.typ == closeType {
			p.next()
			break
		}
		if tok.typ == itemEOF {
			p.errorf(tok, "unterminated set, expected '%s'", closeSym)
		}
		items = append(items, p.parseSetMember())
	}
	return querytree.NewComposite(tag, items...)
}

// parseSetMember parses one OPTIONSET/ORDERSET alternative: a word, a
// regex, or a phrase. Anything else (wildcards, nested sets, dictsets) is
// a syntax error here even though parseUnit would otherwise accept it.
func (p *parser) parseSetMember() *querytree.Unit {
	tok := p.next()
	switch tok.typ {
	case itemWord:
		return querytree.NewTerminal(querytree.WORD, tok.val)
	case itemRegex:
		return querytree.NewTerminal(querytree.REGEX, tok.val)
	case itemPhrase:
		return phraseToUnit(tok.val)
	case itemError:
		p.errorf(tok, "%s", tok.val)
	case itemEOF:
		p.errorf(tok, "unexpected end of query")
	}
	p.errorf(tok, "expected a word, regex, or phrase inside a set, found %s", tok)
	return nil // unreachable
}

// phraseToUnit turns a quoted phrase's resolved text into a single unit: a
// lone word if it has one field, otherwise a CONCAT of words that downstream
// treats as one indivisible alternative wherever it was used.
func phraseToUnit(text string) *querytree.Unit {
	fields := lexutil.SplitASCIISpace(text)
	if len(fields) == 0 {
		return querytree.NewTerminal(querytree.WORD, "")
	}
	if len(fields) == 1 {
		return querytree.NewTerminal(querytree.WORD, fields[0])
	}
	children := make([]*querytree.Unit, len(fields))
	for i, f := range fields {
		children[i] = querytree.NewTerminal(querytree.WORD, f)
	}
	return querytree.NewComposite(querytree.CONCAT, children...)
}
