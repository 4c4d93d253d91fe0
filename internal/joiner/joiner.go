// Package joiner concatenates generated tokens into program text, inserting
// a separator only where plain concatenation would lex differently.
//
// Skipped tokens take part in the checks like any other token. A line
// comment followed by a literal needs a separator that ends the comment,
// so grammars that emit such comments should be joined with "\n".
package joiner

import (
	"strings"

	"pegfuzz/internal/cst"
	"pegfuzz/internal/grammar"
	"pegfuzz/internal/lexer"
	"pegfuzz/internal/token"
)

type pair struct{ first, second token.Kind }

// Joiner decides separators per pair of adjacent tokens. Pairs of kinds
// whose answer does not depend on the token text are decided up front;
// the rest are probed by re-lexing the concatenation.
type Joiner struct {
	lx        *lexer.Lexer
	separator string
	table     map[pair]bool
}

// New precomputes the kind-pair table for lx.
func New(lx *lexer.Lexer, separator string) *Joiner {
	j := &Joiner{lx: lx, separator: separator, table: make(map[pair]bool)}
	j.precompute()
	return j
}

// Separator returns the text inserted between conflicting tokens.
func (j *Joiner) Separator() string { return j.separator }

func (j *Joiner) precompute() {
	syms := j.lx.Symbols()

	for _, first := range syms {
		firstNFA, _ := j.lx.NFA(first.Token)
		firstLit, firstHasLit := firstNFA.Literal()

		if firstHasLit {
			conflict := false
			for _, other := range syms {
				if other == first {
					continue
				}
				if nfa, _ := j.lx.NFA(other.Token); nfa.IsPossiblePrefix(firstLit) {
					conflict = true
					break
				}
			}
			if !conflict {
				for _, second := range syms {
					j.table[pair{first.Token, second.Token}] = false
				}
			} else {
				for _, second := range syms {
					if second == first || second.Skip {
						continue
					}
					if nfa, _ := j.lx.NFA(second.Token); nfa.IsPossiblePrefix(firstLit) {
						j.table[pair{first.Token, second.Token}] = true
					}
				}
			}
		}

		for _, second := range syms {
			key := pair{first.Token, second.Token}
			if _, done := j.table[key]; done || !firstHasLit {
				continue
			}
			if secondLit, ok := j.lx.Literal(second.Token); ok {
				j.table[key] = j.probe(firstLit, secondLit, first.Token, second.Token)
			}
		}
	}

	for _, second := range syms {
		secondLit, ok := j.lx.Literal(second.Token)
		if !ok || j.anyConsumes(syms, second, secondLit) {
			continue
		}
		for _, first := range syms {
			key := pair{first.Token, second.Token}
			if _, done := j.table[key]; !done {
				j.table[key] = false
			}
		}
	}
}

// anyConsumes reports whether some other symbol's automaton, skipped ones
// included, can consume a rune of lit.
func (j *Joiner) anyConsumes(syms []*grammar.Symbol, second *grammar.Symbol, lit string) bool {
	for _, first := range syms {
		if first == second {
			continue
		}
		nfa, _ := j.lx.NFA(first.Token)
		for _, r := range lit {
			if nfa.CanMatchRune(r) {
				return true
			}
		}
	}
	return false
}

// probe re-lexes a+b and requires exactly the two original tokens back.
func (j *Joiner) probe(a, b string, ka, kb token.Kind) bool {
	toks, err := j.lx.Lex(a+b, true)
	if err != nil || len(toks) != 2 {
		return true
	}
	return toks[0].Text != a || !sameKind(toks[0].Kind, ka) || !sameKind(toks[1].Kind, kb)
}

func sameKind(lexed, want token.Kind) bool {
	return want == token.Invalid || lexed == want
}

// NeedsSeparator reports whether b must be separated from a preceding a.
func (j *Joiner) NeedsSeparator(a, b token.Token) bool {
	if b.IsEOF() || a.IsEOF() {
		return false
	}
	if !a.IsKnown() && !b.IsKnown() {
		return true
	}
	if v, ok := j.table[pair{a.Kind, b.Kind}]; ok {
		return v
	}
	return j.probe(a.Text, b.Text, a.Kind, b.Kind)
}

// Join concatenates toks, separating adjacent pairs where needed.
func (j *Joiner) Join(toks []token.Token) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && j.NeedsSeparator(toks[i-1], t) {
			sb.WriteString(j.separator)
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// JoinTree joins the leaves of a generated tree.
func (j *Joiner) JoinTree(root cst.Node) string {
	return j.Join(cst.Tokens(root))
}
