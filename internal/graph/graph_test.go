package graph

import (
	"strings"
	"testing"

	"pegfuzz/internal/grammar"
)

// list : "[" (value ("," value)*)? "]" ;
// value : NUM | list ;
func listGrammar(t *testing.T) *grammar.Grammar {
	t.Helper()
	g, err := grammar.NewBuilder().
		Token("LB", "[").
		Token("RB", "]").
		Token("COMMA", ",").
		Pattern("NUM", "[0-9]+").
		Rule("list", grammar.Seq(
			grammar.Ref("LB"),
			grammar.Group(grammar.QuantOptional, grammar.Seq(
				grammar.Ref("value"),
				grammar.Group(grammar.QuantStar, grammar.Seq(grammar.Ref("COMMA"), grammar.Ref("value"))),
			)),
			grammar.Ref("RB"),
		)).
		Rule("value", grammar.Weighted(3, grammar.Ref("NUM")), grammar.Seq(grammar.Ref("list"))).
		Build("list")
	if err != nil {
		t.Fatalf("build grammar: %v", err)
	}
	return g
}

func TestFromGrammarShape(t *testing.T) {
	gr := listGrammar(t)
	g := FromGrammar(gr)

	// EOF, 4 tokens, 2 rules, 2 helper choices
	choices, seqs := 0, 0
	for id := range g.Nodes() {
		switch g.Node(id).Kind {
		case Choice:
			choices++
		case Sequence:
			seqs++
			if n := len(g.Node(id).InAlts); n != 1 {
				t.Fatalf("sequence %d has %d predecessors", id, n)
			}
		}
	}
	if choices != 9 {
		t.Fatalf("choices = %d, want 9", choices)
	}
	// list:1, value:2, helper(opt):1, helper(star):1
	if seqs != 5 {
		t.Fatalf("sequences = %d, want 5", seqs)
	}
	if g.NumAlts() != 5 {
		t.Fatalf("alternatives = %d, want 5", g.NumAlts())
	}
	if g.NumElems() != 9 {
		t.Fatalf("elements = %d, want 9", g.NumElems())
	}

	list, _ := gr.Lookup("list")
	root, ok := g.ChoiceFor(list)
	if !ok || root != g.Root() {
		t.Fatalf("root = %d, want choice of list (%d)", g.Root(), root)
	}
	if !g.RequiresTreeNode(root) || g.IsTerminal(root) || g.IsLeaf(root) {
		t.Fatalf("root predicates wrong")
	}

	num, _ := gr.Lookup("NUM")
	numID, _ := g.ChoiceFor(num)
	if !g.IsTerminal(numID) || !g.IsLeaf(numID) || g.RequiresTreeNode(numID) {
		t.Fatalf("NUM predicates wrong")
	}
	// NUM is referenced once, from value's first alternative
	if got := len(g.Node(numID).InElems); got != 1 {
		t.Fatalf("NUM has %d incoming elements, want 1", got)
	}

	value, _ := gr.Lookup("value")
	valueID, _ := g.ChoiceFor(value)
	alts := g.Node(valueID).Alts
	if len(alts) != 2 || g.Alt(alts[0]).Weight != 3 || g.Alt(alts[1]).Weight != 1 {
		t.Fatalf("value alternatives wrong: %+v", alts)
	}
	if got := g.AltLabel(alts[1]); got != "value#2" {
		t.Fatalf("AltLabel = %q, want value#2", got)
	}

	// the list sequence: LB, optional helper, RB
	listSeq := g.Alt(g.Node(root).Alts[0]).Seq
	elems := g.Node(listSeq).Elems
	if len(elems) != 3 {
		t.Fatalf("list sequence has %d elements", len(elems))
	}
	helper := g.Elem(elems[1])
	if helper.Quant != grammar.QuantOptional || g.Node(helper.Target).Symbol != nil {
		t.Fatalf("second element should target an optional helper, got %+v", helper)
	}
	if g.RequiresTreeNode(helper.Target) {
		t.Fatalf("helper choices never require tree nodes")
	}
}

func TestFromGrammarIsDeterministic(t *testing.T) {
	gr := listGrammar(t)
	a, b := FromGrammar(gr), FromGrammar(gr)
	if a.NumNodes() != b.NumNodes() {
		t.Fatalf("node counts differ")
	}
	for id := range a.Nodes() {
		if a.Label(id) != b.Label(id) {
			t.Fatalf("node %d: %q vs %q", id, a.Label(id), b.Label(id))
		}
	}
}

func TestWriteDot(t *testing.T) {
	g := FromGrammar(listGrammar(t))
	var sb strings.Builder
	err := g.WriteDot(&sb, func(id NodeID) string {
		if id == g.Root() {
			return "root"
		}
		return ""
	})
	if err != nil {
		t.Fatalf("WriteDot: %v", err)
	}
	out := sb.String()
	for _, want := range []string{"digraph", "list", "value", "w=3", "root"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dot output misses %q:\n%s", want, out)
		}
	}
}
