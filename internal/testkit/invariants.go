package testkit

import (
	"errors"
	"fmt"

	"pegfuzz/internal/cst"
	"pegfuzz/internal/grammar"
	"pegfuzz/internal/lexer"
	"pegfuzz/internal/token"
)

// CheckTree runs the structural invariants of a generated tree:
// 1) the root expands the start symbol and ends with EOF
// 2) the height does not exceed maxHeight
// 3) every non-terminal's children match one alternative of its production
func CheckTree(g *grammar.Grammar, root cst.Node, maxHeight int) error {
	if g == nil || root == nil {
		return errors.New("nil grammar or tree")
	}
	nt, ok := root.(*cst.NonTerminal)
	if !ok {
		return fmt.Errorf("root is a terminal: %T", root)
	}
	if nt.Symbol != g.Start() {
		return fmt.Errorf("root expands %s, want %s", nt.Symbol, g.Start())
	}
	if h := root.Height(); h > maxHeight {
		return fmt.Errorf("tree height %d exceeds the limit %d", h, maxHeight)
	}
	return checkNode(g, nt)
}

func checkNode(g *grammar.Grammar, n *cst.NonTerminal) error {
	if !n.Symbol.HasProduction() {
		return fmt.Errorf("non-terminal for %s which has no production", n.Symbol)
	}
	if !matchesAny(g, n.Symbol.Production.Alts, n.Children) {
		return fmt.Errorf("children of %s match none of its alternatives", n.Symbol)
	}
	for _, c := range n.Children {
		if child, ok := c.(*cst.NonTerminal); ok {
			if err := checkNode(g, child); err != nil {
				return err
			}
		}
	}
	return nil
}

func matchesAny(g *grammar.Grammar, alts []grammar.Alt, nodes []cst.Node) bool {
	for _, end := range matchAlts(g, alts, nodes, 0) {
		if end == len(nodes) {
			return true
		}
	}
	return false
}

// matchAlts returns every position at which one of alts can stop matching
// when started at pos. Groups are spliced into the parent's child list.
func matchAlts(g *grammar.Grammar, alts []grammar.Alt, nodes []cst.Node, pos int) []int {
	seen := map[int]bool{}
	var out []int
	for _, alt := range alts {
		for _, end := range matchItems(g, alt.Items, nodes, pos) {
			if !seen[end] {
				seen[end] = true
				out = append(out, end)
			}
		}
	}
	return out
}

func matchItems(g *grammar.Grammar, items []grammar.Item, nodes []cst.Node, pos int) []int {
	positions := []int{pos}
	for _, it := range items {
		next := map[int]bool{}
		var list []int
		for _, p := range positions {
			for _, end := range matchItem(g, it, nodes, p) {
				if !next[end] {
					next[end] = true
					list = append(list, end)
				}
			}
		}
		if len(list) == 0 {
			return nil
		}
		positions = list
	}
	return positions
}

func matchItem(g *grammar.Grammar, it grammar.Item, nodes []cst.Node, pos int) []int {
	once := func(p int) []int { return matchOnce(g, it, nodes, p) }
	switch it.Quant {
	case grammar.QuantOptional:
		return union([]int{pos}, once(pos))
	case grammar.QuantStar:
		return closure(pos, once)
	case grammar.QuantPlus:
		var out []int
		for _, p := range once(pos) {
			out = union(out, closure(p, once))
		}
		return out
	default:
		return once(pos)
	}
}

func matchOnce(g *grammar.Grammar, it grammar.Item, nodes []cst.Node, pos int) []int {
	if it.IsGroup() {
		return matchAlts(g, it.Group, nodes, pos)
	}
	if pos >= len(nodes) {
		return nil
	}
	sym, ok := g.Lookup(it.Ref)
	if !ok {
		return nil
	}
	switch n := nodes[pos].(type) {
	case *cst.Terminal:
		if sym.IsLexer() && n.Token.Kind == sym.Token {
			return []int{pos + 1}
		}
	case *cst.NonTerminal:
		if n.Symbol == sym {
			return []int{pos + 1}
		}
	}
	return nil
}

func closure(start int, step func(int) []int) []int {
	seen := map[int]bool{start: true}
	out := []int{start}
	for i := 0; i < len(out); i++ {
		for _, p := range step(out[i]) {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

func union(a, b []int) []int {
	for _, x := range b {
		dup := false
		for _, y := range a {
			if x == y {
				dup = true
				break
			}
		}
		if !dup {
			a = append(a, x)
		}
	}
	return a
}

// CheckTokens verifies that every token text lexes back to exactly one
// token of its own kind. EOF tokens must be empty.
func CheckTokens(lx *lexer.Lexer, toks []token.Token) error {
	for i, t := range toks {
		if t.IsEOF() {
			if t.Text != "" {
				return fmt.Errorf("token %d: EOF with text %q", i, t.Text)
			}
			continue
		}
		got, err := lx.Lex(t.Text, true)
		if err != nil {
			return fmt.Errorf("token %d (%s %q): %w", i, lx.Grammar().Name(t.Kind), t.Text, err)
		}
		if len(got) != 1 || got[0].Kind != t.Kind {
			return fmt.Errorf("token %d (%s %q) lexes as %v", i, lx.Grammar().Name(t.Kind), t.Text, token.Kinds(got))
		}
	}
	return nil
}
