// Package parser recognises token streams with PEG semantics: ordered
// choice, greedy repetition, memoised per rule and position. It is used to
// check that generated programs are accepted by the grammar they came from.
package parser

import (
	"errors"
	"fmt"

	"pegfuzz/internal/grammar"
	"pegfuzz/internal/token"
)

// ErrSyntax wraps every rejected input.
var ErrSyntax = errors.New("syntax error")

// Parser: распознаватель для одной грамматики; безопасен для повторного
// использования, но не для конкурентного.
type Parser struct {
	g *grammar.Grammar
}

// New returns a recogniser for g.
func New(g *grammar.Grammar) *Parser {
	return &Parser{g: g}
}

type memoKey struct {
	sym *grammar.Symbol
	pos int
}

type memoEntry struct {
	end  int
	ok   bool
	busy bool // левая рекурсия: повторный вход считается неудачей
}

// state: состояние одного разбора
type state struct {
	g     *grammar.Grammar
	toks  []token.Token
	memo  map[memoKey]*memoEntry
	far   int // самая дальняя позиция, на которой что-то не сошлось
	wants *grammar.Symbol
}

// Parse reports whether toks is a sentence of the grammar. Skipped tokens
// and EOF tokens in the input are ignored; the start rule must consume
// every remaining token.
func (p *Parser) Parse(toks []token.Token) error {
	s := &state{g: p.g, memo: make(map[memoKey]*memoEntry)}
	for _, t := range toks {
		if t.IsEOF() {
			continue
		}
		if sym, ok := p.g.SymbolFor(t.Kind); ok && sym.Skip {
			continue
		}
		s.toks = append(s.toks, t)
	}

	end, ok := s.symbol(p.g.Start(), 0)
	if ok && end == len(s.toks) {
		return nil
	}
	if ok && end > s.far {
		s.far, s.wants = end, nil
	}
	return s.failure()
}

func (s *state) failure() error {
	where := "end of input"
	if s.far < len(s.toks) {
		t := s.toks[s.far]
		where = fmt.Sprintf("%s %q", s.g.Name(t.Kind), t.Text)
	}
	if s.wants != nil {
		return fmt.Errorf("%w: token %d: unexpected %s, expected %s", ErrSyntax, s.far, where, s.wants.Name)
	}
	return fmt.Errorf("%w: token %d: unexpected %s", ErrSyntax, s.far, where)
}

func (s *state) miss(pos int, sym *grammar.Symbol) {
	if pos > s.far || (pos == s.far && s.wants == nil) {
		s.far, s.wants = pos, sym
	}
}

func (s *state) symbol(sym *grammar.Symbol, pos int) (int, bool) {
	switch {
	case sym.IsEOF():
		if pos == len(s.toks) {
			return pos, true
		}
		s.miss(pos, sym)
		return pos, false
	case sym.IsLexer():
		if pos < len(s.toks) && s.toks[pos].Kind == sym.Token {
			return pos + 1, true
		}
		s.miss(pos, sym)
		return pos, false
	}

	key := memoKey{sym, pos}
	if e, seen := s.memo[key]; seen {
		if e.busy {
			return pos, false
		}
		return e.end, e.ok
	}
	e := &memoEntry{busy: true}
	s.memo[key] = e
	e.end, e.ok = s.alts(sym.Production.Alts, pos)
	e.busy = false
	return e.end, e.ok
}

// alts is PEG ordered choice: the first matching alternative wins.
func (s *state) alts(alts []grammar.Alt, pos int) (int, bool) {
	for _, alt := range alts {
		if end, ok := s.items(alt.Items, pos); ok {
			return end, true
		}
	}
	return pos, false
}

func (s *state) items(items []grammar.Item, pos int) (int, bool) {
	for _, it := range items {
		end, ok := s.item(it, pos)
		if !ok {
			return pos, false
		}
		pos = end
	}
	return pos, true
}

func (s *state) item(it grammar.Item, pos int) (int, bool) {
	switch it.Quant {
	case grammar.QuantOptional:
		if end, ok := s.once(it, pos); ok {
			return end, true
		}
		return pos, true
	case grammar.QuantStar:
		return s.repeat(it, pos), true
	case grammar.QuantPlus:
		end, ok := s.once(it, pos)
		if !ok {
			return pos, false
		}
		return s.repeat(it, end), true
	default:
		return s.once(it, pos)
	}
}

// repeat matches greedily and stops on failure or on a match that
// consumes nothing.
func (s *state) repeat(it grammar.Item, pos int) int {
	for {
		end, ok := s.once(it, pos)
		if !ok || end == pos {
			return pos
		}
		pos = end
	}
}

func (s *state) once(it grammar.Item, pos int) (int, bool) {
	if it.IsGroup() {
		return s.alts(it.Group, pos)
	}
	sym, ok := s.g.Lookup(it.Ref)
	if !ok {
		panic(fmt.Errorf("parser: undefined symbol %q in validated grammar", it.Ref))
	}
	return s.symbol(sym, pos)
}
