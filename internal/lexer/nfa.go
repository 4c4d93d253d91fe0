package lexer

import (
	"fmt"
	"regexp/syntax"
	"unicode"
)

// CharSet is the label of a non-epsilon transition: a set of rune ranges,
// possibly inverted. A single character is a one-rune range.
type CharSet struct {
	Ranges   []rune // lo/hi pairs, inclusive
	Inverted bool
}

// Matches reports whether r belongs to the set.
func (c *CharSet) Matches(r rune) bool {
	in := false
	for i := 0; i+1 < len(c.Ranges); i += 2 {
		if c.Ranges[i] <= r && r <= c.Ranges[i+1] {
			in = true
			break
		}
	}
	return in != c.Inverted
}

// Single returns the only rune of a non-inverted one-character set.
func (c *CharSet) Single() (rune, bool) {
	if c.Inverted || len(c.Ranges) != 2 || c.Ranges[0] != c.Ranges[1] {
		return 0, false
	}
	return c.Ranges[0], true
}

// Transition leads to state To; a nil Set means epsilon.
type Transition struct {
	To  int
	Set *CharSet
}

// IsEpsilon reports whether the transition consumes no input.
func (t Transition) IsEpsilon() bool { return t.Set == nil }

// NFA is the automaton of one lexer symbol, derived from the compiled
// regexp program of its pattern.
type NFA struct {
	states    [][]Transition
	accepting []bool
	start     int

	literal    string
	hasLiteral bool
}

// Start returns the start state.
func (n *NFA) Start() int { return n.start }

// NumStates returns the number of states.
func (n *NFA) NumStates() int { return len(n.states) }

// Transitions returns the outgoing transitions of a state.
func (n *NFA) Transitions(state int) []Transition { return n.states[state] }

// IsAccepting reports whether the state accepts.
func (n *NFA) IsAccepting(state int) bool { return n.accepting[state] }

// Literal returns the fixed spelling of the symbol, if it has one.
func (n *NFA) Literal() (string, bool) { return n.literal, n.hasLiteral }

// IsPossiblePrefix reports whether s can be extended to a word of the
// automaton's language, i.e. whether the automaton survives reading s.
func (n *NFA) IsPossiblePrefix(s string) bool {
	current := n.closure(map[int]bool{n.start: true})
	for _, r := range s {
		next := make(map[int]bool)
		for st := range current {
			for _, tr := range n.states[st] {
				if !tr.IsEpsilon() && tr.Set.Matches(r) {
					next[tr.To] = true
				}
			}
		}
		if len(next) == 0 {
			return false
		}
		current = n.closure(next)
	}
	return true
}

// CanMatchRune reports whether any transition reachable from the start
// state consumes r.
func (n *NFA) CanMatchRune(r rune) bool {
	visited := make([]bool, len(n.states))
	stack := []int{n.start}
	visited[n.start] = true
	for len(stack) > 0 {
		st := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, tr := range n.states[st] {
			if !tr.IsEpsilon() && tr.Set.Matches(r) {
				return true
			}
			if !visited[tr.To] {
				visited[tr.To] = true
				stack = append(stack, tr.To)
			}
		}
	}
	return false
}

func (n *NFA) closure(set map[int]bool) map[int]bool {
	stack := make([]int, 0, len(set))
	for st := range set {
		stack = append(stack, st)
	}
	for len(stack) > 0 {
		st := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, tr := range n.states[st] {
			if tr.IsEpsilon() && !set[tr.To] {
				set[tr.To] = true
				stack = append(stack, tr.To)
			}
		}
	}
	return set
}

// buildNFA turns a parsed pattern into an automaton. Empty-width
// assertions are treated as epsilon moves.
func buildNFA(re *syntax.Regexp) (*NFA, error) {
	simple := re.Simplify()
	prog, err := syntax.Compile(simple)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}

	n := &NFA{
		states:    make([][]Transition, len(prog.Inst)),
		accepting: make([]bool, len(prog.Inst)),
		start:     prog.Start,
	}
	for i, inst := range prog.Inst {
		out := int(inst.Out)
		switch inst.Op {
		case syntax.InstAlt, syntax.InstAltMatch:
			n.states[i] = []Transition{{To: out}, {To: int(inst.Arg)}}
		case syntax.InstCapture, syntax.InstNop, syntax.InstEmptyWidth:
			n.states[i] = []Transition{{To: out}}
		case syntax.InstMatch:
			n.accepting[i] = true
		case syntax.InstFail:
			// dead state
		case syntax.InstRune:
			fold := syntax.Flags(inst.Arg)&syntax.FoldCase != 0
			n.states[i] = []Transition{{To: out, Set: runeSet(inst.Rune, fold)}}
		case syntax.InstRune1:
			n.states[i] = []Transition{{To: out, Set: &CharSet{Ranges: []rune{inst.Rune[0], inst.Rune[0]}}}}
		case syntax.InstRuneAny:
			n.states[i] = []Transition{{To: out, Set: &CharSet{Inverted: true}}}
		case syntax.InstRuneAnyNotNL:
			n.states[i] = []Transition{{To: out, Set: &CharSet{Ranges: []rune{'\n', '\n'}, Inverted: true}}}
		default:
			return nil, fmt.Errorf("unsupported instruction %v", inst.Op)
		}
	}

	if simple.Op == syntax.OpLiteral && simple.Flags&syntax.FoldCase == 0 && len(simple.Rune) > 0 {
		n.literal = string(simple.Rune)
		n.hasLiteral = true
	}
	return n, nil
}

// runeSet converts instruction ranges into a CharSet. Classes that extend
// to unicode.MaxRune are stored in inverted form.
func runeSet(ranges []rune, fold bool) *CharSet {
	if len(ranges) == 1 {
		r := ranges[0]
		set := &CharSet{Ranges: []rune{r, r}}
		if fold {
			for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
				set.Ranges = append(set.Ranges, f, f)
			}
		}
		return set
	}
	if len(ranges) >= 2 && ranges[len(ranges)-1] == unicode.MaxRune {
		return &CharSet{Ranges: complement(ranges), Inverted: true}
	}
	return &CharSet{Ranges: append([]rune(nil), ranges...)}
}

func complement(ranges []rune) []rune {
	var out []rune
	next := rune(0)
	for i := 0; i+1 < len(ranges); i += 2 {
		lo, hi := ranges[i], ranges[i+1]
		if lo > next {
			out = append(out, next, lo-1)
		}
		next = hi + 1
	}
	if next <= unicode.MaxRune {
		out = append(out, next, unicode.MaxRune)
	}
	return out
}
