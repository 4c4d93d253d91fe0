package lexer

import (
	"errors"
	"fmt"
	"regexp"
	"regexp/syntax"

	"pegfuzz/internal/grammar"
	"pegfuzz/internal/token"
)

// ErrNoMatch is returned by Lex when no symbol matches at some offset.
var ErrNoMatch = errors.New("no token matches")

type rule struct {
	sym *grammar.Symbol
	re  *regexp.Regexp
	nfa *NFA
}

// Lexer tokenizes text with the lexer symbols of a grammar: longest match
// wins, ties go to the symbol declared first.
type Lexer struct {
	g      *grammar.Grammar
	rules  []*rule
	byKind map[token.Kind]*rule
}

// New compiles every lexer symbol of g.
func New(g *grammar.Grammar) (*Lexer, error) {
	syms := g.LexerSymbols()
	lx := &Lexer{
		g:      g,
		rules:  make([]*rule, 0, len(syms)),
		byKind: make(map[token.Kind]*rule, len(syms)),
	}
	for _, sym := range syms {
		re, err := regexp.Compile(`^(?:` + sym.Pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("token %s: invalid pattern %q: %w", sym.Name, sym.Pattern, err)
		}
		re.Longest()
		if loc := re.FindStringIndex(""); loc != nil {
			return nil, fmt.Errorf("token %s: pattern %q matches the empty string", sym.Name, sym.Pattern)
		}
		parsed, err := syntax.Parse(sym.Pattern, syntax.Perl)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", sym.Name, err)
		}
		nfa, err := buildNFA(parsed)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", sym.Name, err)
		}
		r := &rule{sym: sym, re: re, nfa: nfa}
		lx.rules = append(lx.rules, r)
		lx.byKind[sym.Token] = r
	}
	return lx, nil
}

// Grammar returns the grammar the lexer was built from.
func (lx *Lexer) Grammar() *grammar.Grammar { return lx.g }

// Symbols returns the lexer symbols in declaration order (EOF excluded).
func (lx *Lexer) Symbols() []*grammar.Symbol {
	out := make([]*grammar.Symbol, len(lx.rules))
	for i, r := range lx.rules {
		out[i] = r.sym
	}
	return out
}

// NFA returns the automaton of a lexer symbol.
func (lx *Lexer) NFA(kind token.Kind) (*NFA, bool) {
	r, ok := lx.byKind[kind]
	if !ok {
		return nil, false
	}
	return r.nfa, true
}

// Literal returns the fixed spelling of a lexer symbol, if any.
func (lx *Lexer) Literal(kind token.Kind) (string, bool) {
	r, ok := lx.byKind[kind]
	if !ok {
		return "", false
	}
	return r.nfa.Literal()
}

// IsSkipped reports whether tokens of this kind are dropped by the parser.
func (lx *Lexer) IsSkipped(kind token.Kind) bool {
	r, ok := lx.byKind[kind]
	return ok && r.sym.Skip
}

// Lex splits text into tokens. Skipped tokens are kept only when exact is
// set. No EOF token is appended.
func (lx *Lexer) Lex(text string, exact bool) ([]token.Token, error) {
	var out []token.Token
	for pos := 0; pos < len(text); {
		rest := text[pos:]
		var best *rule
		bestLen := 0
		for _, r := range lx.rules {
			loc := r.re.FindStringIndex(rest)
			if loc != nil && loc[1] > bestLen {
				best = r
				bestLen = loc[1]
			}
		}
		if best == nil {
			return out, fmt.Errorf("%w at offset %d: %q", ErrNoMatch, pos, snippet(rest))
		}
		if exact || !best.sym.Skip {
			out = append(out, token.New(best.sym.Token, rest[:bestLen]))
		}
		pos += bestLen
	}
	return out, nil
}

func snippet(s string) string {
	const maxLen = 16
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
