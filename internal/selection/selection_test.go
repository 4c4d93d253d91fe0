package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pegfuzz/internal/coverage"
	"pegfuzz/internal/grammar"
	"pegfuzz/internal/graph"
	"pegfuzz/internal/testkit"
)

// scripted replays fixed draws and records the bounds it was asked for.
type scripted struct {
	ints   []int
	floats []float64
	bounds []int
}

func (s *scripted) Intn(n int) int {
	s.bounds = append(s.bounds, n)
	if len(s.ints) == 0 {
		panic("scripted: out of ints")
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v
}

func (s *scripted) Float64() float64 {
	if len(s.floats) == 0 {
		panic("scripted: out of floats")
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scripted) Bool() bool  { return s.Intn(2) == 1 }
func (s *scripted) Seed(uint64) {}

// recorder always takes the first candidate and logs its name.
type recorder struct {
	name  string
	calls *[]string
}

func (r recorder) ChooseAlternative(alts []graph.AltID, _ int) graph.AltID {
	*r.calls = append(*r.calls, r.name)
	return alts[0]
}

func (r recorder) GenerateMoreElements(graph.ElemID, int, int) bool {
	*r.calls = append(*r.calls, r.name)
	return true
}

func choiceAlts(t *testing.T, gr *grammar.Grammar, g *graph.Graph, name string) []graph.AltID {
	t.Helper()
	sym, ok := gr.Lookup(name)
	require.True(t, ok, name)
	id, ok := g.ChoiceFor(sym)
	require.True(t, ok, name)
	return g.Node(id).Alts
}

func TestRandomCumulativeScan(t *testing.T) {
	gr := testkit.WeightedGrammar()
	g := graph.FromGrammar(gr)
	alts := choiceAlts(t, gr, g, "pick")
	require.Len(t, alts, 3)

	cases := []struct {
		draw int
		want int
	}{
		{0, 0}, {1, 1}, {3, 1}, {4, 2}, {9, 2},
	}
	for _, tc := range cases {
		src := &scripted{ints: []int{tc.draw}}
		got := NewRandom(g, src).ChooseAlternative(alts, 10)
		assert.Equal(t, alts[tc.want], got, "draw %d", tc.draw)
		assert.Equal(t, []int{10}, src.bounds)
	}
}

func TestRandomSingleCandidateDoesNotDraw(t *testing.T) {
	gr := testkit.WeightedGrammar()
	g := graph.FromGrammar(gr)
	alts := choiceAlts(t, gr, g, "pick")

	src := &scripted{}
	assert.Equal(t, alts[2], NewRandom(g, src).ChooseAlternative(alts[2:], 1))
	assert.Empty(t, src.bounds)
}

func TestUniformIgnoresWeights(t *testing.T) {
	gr := testkit.WeightedGrammar()
	g := graph.FromGrammar(gr)
	alts := choiceAlts(t, gr, g, "pick")

	src := &scripted{ints: []int{1}}
	assert.Equal(t, alts[1], NewUniform(g, src).ChooseAlternative(alts, 5))
	assert.Equal(t, []int{3}, src.bounds)
}

func TestRandomRepetition(t *testing.T) {
	gr := testkit.ExprGrammar()
	g := graph.FromGrammar(gr)
	exprSeq := g.Alt(choiceAlts(t, gr, g, "expr")[0]).Seq
	star := g.Node(exprSeq).Elems[1]

	src := &scripted{ints: []int{1, 0}}
	s := NewRandom(g, src)
	assert.True(t, s.GenerateMoreElements(star, 0, 5))
	assert.False(t, s.GenerateMoreElements(star, 1, 5))
	assert.Equal(t, []int{2, 2}, src.bounds)
}

func TestSmallestRestrictsToMinimalSize(t *testing.T) {
	gr := testkit.ExprGrammar()
	g := graph.FromGrammar(gr)
	term := choiceAlts(t, gr, g, "term")

	src := &scripted{floats: []float64{0.3}}
	s := NewSmallest(g, src, 0.5, NewRandom(g, src))
	assert.Equal(t, term[0], s.ChooseAlternative(term, 4))
	assert.Empty(t, src.bounds)

	src = &scripted{floats: []float64{0.7}, ints: []int{1}}
	s = NewSmallest(g, src, 0.5, NewRandom(g, src))
	assert.Equal(t, term[1], s.ChooseAlternative(term, 4))
}

func TestSmallestRepetition(t *testing.T) {
	gr := testkit.StmtGrammar()
	g := graph.FromGrammar(gr)
	unitSeq := g.Alt(choiceAlts(t, gr, g, "unit")[0]).Seq
	plus := g.Node(unitSeq).Elems[0]

	src := &scripted{ints: []int{0}}
	assert.False(t, NewSmallest(g, src, 1, NewRandom(g, src)).GenerateMoreElements(plus, 1, 5))
	assert.Equal(t, []int{1}, src.bounds)

	// optional elements continue when the small coin says no
	stmtSeq := g.Alt(choiceAlts(t, gr, g, "stmt")[1]).Seq
	semi := g.Node(stmtSeq).Elems[2]
	require.Equal(t, grammar.QuantOptional, g.Elem(semi).Quant)
	src = &scripted{floats: []float64{0.9}}
	assert.True(t, NewSmallest(g, src, 0.5, NewRandom(g, src)).GenerateMoreElements(semi, 0, 5))
}

func TestPreferUncovered(t *testing.T) {
	gr := testkit.ExprGrammar()
	g := graph.FromGrammar(gr)
	cov := coverage.New(g)
	term := choiceAlts(t, gr, g, "term")

	var calls []string
	s := NewPreferUncovered(cov, recorder{"u", &calls}, recorder{"c", &calls})

	cov.Covered(term[0])
	assert.Equal(t, term[1], s.ChooseAlternative(term, 4))
	cov.Covered(term[1])
	assert.Equal(t, term[0], s.ChooseAlternative(term, 4))
	s.GenerateMoreElements(0, 0, 4)
	assert.Equal(t, []string{"u", "c", "c"}, calls)
}

func TestPreferReachesUncovered(t *testing.T) {
	gr := testkit.ExprGrammar()
	g := graph.FromGrammar(gr)
	cov := coverage.New(g)
	term := choiceAlts(t, gr, g, "term")
	for _, alt := range cov.Missing() {
		if alt != term[1] {
			cov.Covered(alt)
		}
	}
	program := choiceAlts(t, gr, g, "program")

	var calls []string
	s := NewPreferReachesUncovered(g, cov, recorder{"u", &calls}, recorder{"c", &calls}, true)

	s.ChooseAlternative(program, 3)
	s.ChooseAlternative(program, 2)
	assert.Equal(t, []string{"u", "c"}, calls)

	exprSeq := g.Alt(choiceAlts(t, gr, g, "expr")[0]).Seq
	star := g.Node(exprSeq).Elems[1]
	calls = nil
	s.GenerateMoreElements(star, 0, 2)
	s.GenerateMoreElements(star, 0, 1)
	assert.Equal(t, []string{"u", "c"}, calls)

	calls = nil
	lax := NewPreferReachesUncovered(g, cov, recorder{"u", &calls}, recorder{"c", &calls}, false)
	lax.GenerateMoreElements(star, 0, 2)
	assert.Equal(t, []string{"c"}, calls)
}

func TestParse(t *testing.T) {
	gr := testkit.ExprGrammar()
	g := graph.FromGrammar(gr)
	env := Env{Graph: g, Coverage: coverage.New(g), Source: &scripted{}}

	cases := []struct {
		expr  string
		check func(t *testing.T, s Strategy)
	}{
		{"random", func(t *testing.T, s Strategy) { assert.False(t, s.(*Random).uniform) }},
		{"RAND()", func(t *testing.T, s Strategy) { assert.IsType(t, &Random{}, s) }},
		{"Uniform ( )", func(t *testing.T, s Strategy) { assert.True(t, s.(*Random).uniform) }},
		{"smallest", func(t *testing.T, s Strategy) {
			sm := s.(*Smallest)
			assert.InDelta(t, 1.0, sm.p, 1e-9)
			assert.IsType(t, &Random{}, sm.base)
		}},
		{"smallest()", func(t *testing.T, s Strategy) { assert.IsType(t, &Smallest{}, s) }},
		{"small(0.25, uniform)", func(t *testing.T, s Strategy) {
			sm := s.(*Smallest)
			assert.InDelta(t, 0.25, sm.p, 1e-9)
			assert.True(t, sm.base.(*Random).uniform)
		}},
		{"smallest(uncov(random, random))", func(t *testing.T, s Strategy) {
			assert.IsType(t, &PreferUncovered{}, s.(*Smallest).base)
		}},
		{"uncovered(smallest(0.5, random), uniform)", func(t *testing.T, s Strategy) {
			assert.IsType(t, &Smallest{}, s.(*PreferUncovered).uncovered)
		}},
		{"reachesUncovered(rand, rand)", func(t *testing.T, s Strategy) { assert.True(t, s.(*PreferReachesUncovered).strict) }},
		{"REACHESUNCOV(rand, rand, False)", func(t *testing.T, s Strategy) { assert.False(t, s.(*PreferReachesUncovered).strict) }},
		{" reachesuncov(\n\trand , rand , true ) ", func(t *testing.T, s Strategy) { assert.True(t, s.(*PreferReachesUncovered).strict) }},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			s, err := Parse(tc.expr, env)
			require.NoError(t, err)
			tc.check(t, s)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	gr := testkit.ExprGrammar()
	g := graph.FromGrammar(gr)
	env := Env{Graph: g, Coverage: coverage.New(g), Source: &scripted{}}

	for _, expr := range []string{
		"",
		"   ",
		"bogus",
		"random(",
		"random random",
		"smallest(1.5, random)",
		"smallest(0.5 random)",
		"uncovered(random)",
		"reachesUncovered(random, random, maybe)",
	} {
		_, err := Parse(expr, env)
		assert.ErrorIs(t, err, ErrMalformedStrategy, "%q", expr)
	}

	_, err := Parse("uncov(random, random)", Env{Graph: g, Source: &scripted{}})
	assert.ErrorIs(t, err, ErrMalformedStrategy)
}
