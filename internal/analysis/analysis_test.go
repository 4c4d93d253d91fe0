package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pegfuzz/internal/grammar"
	"pegfuzz/internal/graph"
)

// program : expr EOF ;
// expr    : term (PLUS term)* ;
// term    : NUM | LP expr RP ;
// dead    : UNUSED ;
func exprGraph(t *testing.T) (*grammar.Grammar, *graph.Graph) {
	t.Helper()
	gr, err := grammar.NewBuilder().
		Token("PLUS", "+").
		Token("LP", "(").
		Token("RP", ")").
		Pattern("NUM", "[0-9]+").
		Token("UNUSED", "?").
		Skip("WS", " +").
		Rule("program", grammar.Seq(grammar.Ref("expr"), grammar.Ref("EOF"))).
		Rule("expr", grammar.Seq(
			grammar.Ref("term"),
			grammar.Group(grammar.QuantStar, grammar.Seq(grammar.Ref("PLUS"), grammar.Ref("term"))),
		)).
		Rule("term", grammar.Seq(grammar.Ref("NUM")), grammar.Seq(grammar.Ref("LP"), grammar.Ref("expr"), grammar.Ref("RP"))).
		Rule("dead", grammar.Seq(grammar.Ref("UNUSED"))).
		Build("program")
	require.NoError(t, err)
	return gr, graph.FromGrammar(gr)
}

func choice(t *testing.T, gr *grammar.Grammar, g *graph.Graph, name string) graph.NodeID {
	t.Helper()
	sym, ok := gr.Lookup(name)
	require.True(t, ok, name)
	id, ok := g.ChoiceFor(sym)
	require.True(t, ok, name)
	return id
}

func TestReachable(t *testing.T) {
	gr, g := exprGraph(t)

	withSkipped := Reachable(g, true)
	withoutSkipped := Reachable(g, false)

	for _, name := range []string{"program", "expr", "term", "PLUS", "LP", "RP", "NUM", "EOF"} {
		assert.True(t, withSkipped[choice(t, gr, g, name)], name)
		assert.True(t, withoutSkipped[choice(t, gr, g, name)], name)
	}
	for _, name := range []string{"dead", "UNUSED"} {
		assert.False(t, withSkipped[choice(t, gr, g, name)], name)
	}
	assert.True(t, withSkipped[choice(t, gr, g, "WS")])
	assert.False(t, withoutSkipped[choice(t, gr, g, "WS")])
}

func TestMinHeights(t *testing.T) {
	gr, g := exprGraph(t)
	h := MinHeights(g)

	want := map[string]int{"NUM": 1, "PLUS": 1, "term": 2, "expr": 3, "program": 4, "dead": 2}
	for name, w := range want {
		assert.Equal(t, w, h[choice(t, gr, g, name)], name)
	}

	// the star helper is spliced into expr and does not add a level
	exprSeq := g.Alt(g.Node(choice(t, gr, g, "expr")).Alts[0]).Seq
	helper := g.Elem(g.Node(exprSeq).Elems[1]).Target
	assert.Equal(t, 2, h[helper])
}

func TestMinSizes(t *testing.T) {
	gr, g := exprGraph(t)
	s := MinSizes(g)

	want := map[string]int{"NUM": 1, "term": 2, "expr": 3, "program": 5}
	for name, w := range want {
		assert.Equal(t, w, s[choice(t, gr, g, name)], name)
	}
	term := g.Node(choice(t, gr, g, "term"))
	assert.Equal(t, 1, s[g.Alt(term.Alts[0]).Seq])
	assert.Equal(t, 5, s[g.Alt(term.Alts[1]).Seq])
}

func TestMinDepths(t *testing.T) {
	gr, g := exprGraph(t)
	d := MinDepths(g)

	want := map[string]int{"program": 0, "EOF": 0, "WS": 0, "expr": 1, "PLUS": 1, "term": 2, "NUM": 2, "LP": 2}
	for name, w := range want {
		assert.Equal(t, w, d[choice(t, gr, g, name)], name)
	}
	assert.Equal(t, Unknown, d[choice(t, gr, g, "dead")])
}

func TestReachableNodes(t *testing.T) {
	gr, g := exprGraph(t)
	h := MinHeights(g)
	rn := ReachableNodes(g, h)

	fromRoot := rn[g.Root()]
	assert.Equal(t, 4, fromRoot[choice(t, gr, g, "NUM")])
	assert.Equal(t, 4, fromRoot[choice(t, gr, g, "PLUS")])
	assert.Equal(t, 6, fromRoot[choice(t, gr, g, "LP")])
	assert.Equal(t, 4, fromRoot[g.Root()])
	_, hasDead := fromRoot[choice(t, gr, g, "dead")]
	assert.False(t, hasDead)

	assert.Equal(t, Distances{choice(t, gr, g, "NUM"): 1}, rn[choice(t, gr, g, "NUM")])
	assert.Equal(t, 6, MinMaxHeight(g, rn))
}

func TestComputePanicsOnSharedSequence(t *testing.T) {
	b := graph.NewBuilder()
	root := b.Choice(nil)
	seq := b.Sequence()
	b.Alternative(root, seq, 1)
	b.Alternative(root, seq, 1)
	g := b.Finish(root)

	assert.Panics(t, func() { MinHeights(g) })
}

func TestUnknownPropagates(t *testing.T) {
	// loop : loop ;  never derives a finite tree
	gr, err := grammar.NewBuilder().
		Token("A", "a").
		Rule("start", grammar.Seq(grammar.Ref("A")), grammar.Seq(grammar.Ref("loop"))).
		Rule("loop", grammar.Seq(grammar.Ref("loop"), grammar.Ref("A"))).
		Build("start")
	require.NoError(t, err)
	g := graph.FromGrammar(gr)

	h := MinHeights(g)
	assert.Equal(t, Unknown, h[choice(t, gr, g, "loop")])
	assert.Equal(t, 2, h[g.Root()])
	assert.Equal(t, Unknown, MinSizes(g)[choice(t, gr, g, "loop")])
	assert.Equal(t, Unknown, Add(Unknown, 1))
	assert.Equal(t, 3, Add(1, 2))
}
