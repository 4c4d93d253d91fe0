// Package tokens produces the text of terminal leaves.
package tokens

import (
	"fmt"

	"pegfuzz/internal/lexer"
	"pegfuzz/internal/rng"
	"pegfuzz/internal/token"
)

// Generator creates a token of a given lexer symbol.
type Generator interface {
	Token(kind token.Kind) token.Token
}

const (
	maxAttempts = 1000
	maxSteps    = 256
)

// Random walks a symbol's automaton to produce text the lexer maps back
// to that symbol. Literal symbols always produce their literal.
type Random struct {
	lx  *lexer.Lexer
	src rng.Source
}

// NewRandom returns a random token generator over lx.
func NewRandom(lx *lexer.Lexer, src rng.Source) *Random {
	return &Random{lx: lx, src: src}
}

// Token implements Generator. It panics when kind is not a lexer symbol or
// when no valid text is found within a bounded number of walks.
func (r *Random) Token(kind token.Kind) token.Token {
	if kind == token.EOF {
		return token.New(token.EOF, "")
	}
	if lit, ok := r.lx.Literal(kind); ok {
		return token.New(kind, lit)
	}
	nfa, ok := r.lx.NFA(kind)
	if !ok {
		panic(fmt.Errorf("tokens: no lexer symbol for kind %d", kind))
	}
	for range maxAttempts {
		text, ok := r.walk(nfa)
		if !ok || text == "" {
			continue
		}
		if r.lexesAs(text, kind) {
			return token.New(kind, text)
		}
	}
	panic(fmt.Errorf("tokens: no valid %s token after %d attempts", r.lx.Grammar().Name(kind), maxAttempts))
}

func (r *Random) lexesAs(text string, kind token.Kind) bool {
	toks, err := r.lx.Lex(text, true)
	return err == nil && len(toks) == 1 && toks[0].Kind == kind
}

func (r *Random) walk(nfa *lexer.NFA) (string, bool) {
	var out []rune
	state := nfa.Start()
	for range maxSteps {
		trans := nfa.Transitions(state)
		if nfa.IsAccepting(state) && (len(trans) == 0 || r.src.Bool()) {
			return string(out), true
		}
		if len(trans) == 0 {
			return "", false
		}
		t := trans[r.src.Intn(len(trans))]
		if !t.IsEpsilon() {
			c, ok := r.pick(t.Set)
			if !ok {
				return "", false
			}
			out = append(out, c)
		}
		state = t.To
	}
	return "", false
}

func (r *Random) pick(set *lexer.CharSet) (rune, bool) {
	if c, ok := set.Single(); ok {
		return c, true
	}
	if set.Inverted {
		var candidates []rune
		for c := ' '; c <= '~'; c++ {
			if set.Matches(c) {
				candidates = append(candidates, c)
			}
		}
		if len(candidates) == 0 {
			return 0, false
		}
		return candidates[r.src.Intn(len(candidates))], true
	}
	pairs := len(set.Ranges) / 2
	if pairs == 0 {
		return 0, false
	}
	i := r.src.Intn(pairs) * 2
	lo, hi := set.Ranges[i], set.Ranges[i+1]
	return lo + rune(r.src.Intn(int(hi-lo)+1)), true
}
