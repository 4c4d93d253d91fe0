package grammar

import (
	"fmt"
	"strings"

	"pegfuzz/internal/token"
)

// EOFName is the reserved name of the built-in end-of-input lexer symbol.
const EOFName = "EOF"

// SymbolKind tells lexer symbols apart from parser symbols.
type SymbolKind uint8

const (
	// LexerSymbol is a terminal defined by a pattern.
	LexerSymbol SymbolKind = iota + 1
	// ParserSymbol is a nonterminal defined by a production.
	ParserSymbol
)

func (k SymbolKind) String() string {
	switch k {
	case LexerSymbol:
		return "token"
	case ParserSymbol:
		return "rule"
	default:
		return "unknown"
	}
}

// Quant is the repetition quantifier attached to an item.
type Quant uint8

const (
	QuantNone     Quant = iota // exactly once
	QuantOptional              // ?
	QuantStar                  // *
	QuantPlus                  // +
)

func (q Quant) String() string {
	switch q {
	case QuantOptional:
		return "?"
	case QuantStar:
		return "*"
	case QuantPlus:
		return "+"
	default:
		return ""
	}
}

// IsMandatory reports whether at least one occurrence is required.
func (q Quant) IsMandatory() bool {
	return q == QuantNone || q == QuantPlus
}

// ParseQuant converts "", "?", "*" or "+" into a Quant.
func ParseQuant(s string) (Quant, error) {
	switch strings.TrimSpace(s) {
	case "", "none", "1":
		return QuantNone, nil
	case "?", "optional":
		return QuantOptional, nil
	case "*", "star":
		return QuantStar, nil
	case "+", "plus":
		return QuantPlus, nil
	default:
		return QuantNone, fmt.Errorf("invalid quantifier %q (expected ?, * or +)", s)
	}
}

// Symbol is a named lexer or parser symbol.
type Symbol struct {
	Name  string
	Kind  SymbolKind
	Index int // declaration order, EOF is 0

	// lexer symbols
	Token   token.Kind
	Pattern string // regexp/syntax source, empty for EOF
	Skip    bool   // skipped by the parser (whitespace, comments)

	// parser symbols
	Production *Production
}

// IsLexer reports whether the symbol is a terminal.
func (s *Symbol) IsLexer() bool { return s != nil && s.Kind == LexerSymbol }

// IsEOF reports whether the symbol is the built-in EOF symbol.
func (s *Symbol) IsEOF() bool { return s != nil && s.Kind == LexerSymbol && s.Token == token.EOF }

// HasProduction reports whether the symbol owns a production, i.e. requires
// a non-terminal node in a syntax tree.
func (s *Symbol) HasProduction() bool { return s != nil && s.Production != nil }

func (s *Symbol) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.Name
}

// Production is the ordered list of alternatives of a parser symbol.
type Production struct {
	Alts []Alt
}

// Alt is one weighted alternative: an ordered sequence of items.
type Alt struct {
	Items  []Item
	Weight int
}

// Item references a symbol or groups nested alternatives, with a quantifier.
type Item struct {
	Ref    string
	Group  []Alt
	Quant  Quant
	Weight int
}

// IsGroup reports whether the item is an anonymous group.
func (it Item) IsGroup() bool { return it.Ref == "" }

// Grammar is a validated set of symbols with a start symbol.
type Grammar struct {
	symbols []*Symbol
	byName  map[string]*Symbol
	byKind  []*Symbol
	start   *Symbol
}

// Start returns the start symbol.
func (g *Grammar) Start() *Symbol { return g.start }

// Symbols returns all symbols in declaration order, EOF first.
func (g *Grammar) Symbols() []*Symbol { return g.symbols }

// Lookup finds a symbol by name.
func (g *Grammar) Lookup(name string) (*Symbol, bool) {
	s, ok := g.byName[name]
	return s, ok
}

// SymbolFor returns the lexer symbol with the given token kind.
func (g *Grammar) SymbolFor(kind token.Kind) (*Symbol, bool) {
	if int(kind) >= len(g.byKind) || g.byKind[kind] == nil {
		return nil, false
	}
	return g.byKind[kind], true
}

// LexerSymbols returns the declared lexer symbols (EOF excluded).
func (g *Grammar) LexerSymbols() []*Symbol {
	out := make([]*Symbol, 0, len(g.byKind))
	for _, s := range g.byKind {
		if s != nil && !s.IsEOF() {
			out = append(out, s)
		}
	}
	return out
}

// ParserSymbols returns the parser symbols in declaration order.
func (g *Grammar) ParserSymbols() []*Symbol {
	out := make([]*Symbol, 0, len(g.symbols))
	for _, s := range g.symbols {
		if s.Kind == ParserSymbol {
			out = append(out, s)
		}
	}
	return out
}

// Name returns a printable name for a token kind.
func (g *Grammar) Name(kind token.Kind) string {
	if s, ok := g.SymbolFor(kind); ok {
		return s.Name
	}
	return "<unknown>"
}
