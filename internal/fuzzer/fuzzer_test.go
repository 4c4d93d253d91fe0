package fuzzer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pegfuzz/internal/coverage"
	"pegfuzz/internal/cst"
	"pegfuzz/internal/grammar"
	"pegfuzz/internal/graph"
	"pegfuzz/internal/lexer"
	"pegfuzz/internal/rng"
	"pegfuzz/internal/selection"
	"pegfuzz/internal/testkit"
	"pegfuzz/internal/tokens"
)

type rig struct {
	gr  *grammar.Grammar
	g   *graph.Graph
	lx  *lexer.Lexer
	src *rng.PCG
	cov *coverage.Alternatives
	fz  *Fuzzer
}

func newRig(t *testing.T, gr *grammar.Grammar, maxHeight int, strategy string) *rig {
	t.Helper()
	r := &rig{gr: gr, g: graph.FromGrammar(gr), src: rng.New(0)}
	var err error
	r.lx, err = lexer.New(gr)
	require.NoError(t, err)
	r.cov = coverage.New(r.g)
	strat, err := selection.Parse(strategy, selection.Env{Graph: r.g, Coverage: r.cov, Source: r.src})
	require.NoError(t, err)
	r.fz, err = New(r.g, maxHeight, Options{
		Tokens:   tokens.NewRandom(r.lx, r.src),
		Strategy: strat,
		Coverage: r.cov,
	})
	require.NoError(t, err)
	return r
}

func dump(t *testing.T, gr *grammar.Grammar, n cst.Node) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, cst.Dump(&sb, n, gr.Name))
	return sb.String()
}

func TestMaxHeightBelowMinimum(t *testing.T) {
	gr := testkit.ExprGrammar()
	g := graph.FromGrammar(gr)
	lx, err := lexer.New(gr)
	require.NoError(t, err)
	src := rng.New(1)
	opts := Options{Tokens: tokens.NewRandom(lx, src), Strategy: selection.NewRandom(g, src)}

	_, err = New(g, 3, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxHeightTooSmall))
	var cfg *ConfigError
	require.ErrorAs(t, err, &cfg)
	assert.Equal(t, 4, cfg.Required)
	assert.Contains(t, err.Error(), "at least 4")

	_, err = New(g, 4, opts)
	assert.NoError(t, err)
}

func TestStartWithoutFiniteTree(t *testing.T) {
	gr, err := grammar.NewBuilder().
		Token("X", "x").
		Rule("loop", grammar.Seq(grammar.Ref("loop"), grammar.Ref("X"))).
		Build("loop")
	require.NoError(t, err)
	g := graph.FromGrammar(gr)
	lx, err := lexer.New(gr)
	require.NoError(t, err)
	src := rng.New(1)

	_, err = New(g, 100, Options{Tokens: tokens.NewRandom(lx, src), Strategy: selection.NewRandom(g, src)})
	assert.ErrorIs(t, err, ErrNoFiniteTree)
}

func TestTreesRespectGrammarAndHeight(t *testing.T) {
	for _, gr := range []*grammar.Grammar{testkit.ExprGrammar(), testkit.StmtGrammar()} {
		for _, maxHeight := range []int{4, 5, 8} {
			r := newRig(t, gr, maxHeight, "random")
			for seed := range uint64(50) {
				r.src.Seed(seed)
				tree := r.fz.Generate()
				require.NoError(t, testkit.CheckTree(gr, tree, maxHeight), dump(t, gr, tree))
				toks := cst.Tokens(tree)
				require.NoError(t, testkit.CheckTokens(r.lx, toks))
				require.True(t, toks[len(toks)-1].IsEOF())
			}
		}
	}
}

func TestTokenModeMatchesTreeLeaves(t *testing.T) {
	gr := testkit.StmtGrammar()
	r := newRig(t, gr, 6, "random")
	for seed := range uint64(30) {
		r.src.Seed(seed)
		tree := r.fz.Generate()
		r.src.Seed(seed)
		assert.Equal(t, cst.Tokens(tree), r.fz.GenerateTokens())
	}
}

func TestSameSeedSameTree(t *testing.T) {
	gr := testkit.ExprGrammar()
	a := newRig(t, gr, 7, "reachesUncovered(smallest(0.5, random), random)")
	b := newRig(t, gr, 7, "reachesUncovered(smallest(0.5, random), random)")

	run := func(r *rig) []string {
		var out []string
		loop := FixedCount(20, r.fz.Generate, func(attempt int) { r.src.Seed(uint64(100 + attempt)) })
		for tree := range loop.All() {
			out = append(out, dump(t, gr, tree))
		}
		return out
	}
	assert.Equal(t, run(a), run(b))
}

func TestWeightedChoiceFrequency(t *testing.T) {
	gr, err := grammar.NewBuilder().
		Token("A", "a").
		Token("B", "b").
		Rule("root", grammar.Seq(grammar.Ref("pick"), grammar.Ref("EOF"))).
		Rule("pick", grammar.Weighted(1, grammar.Ref("A")), grammar.Weighted(99, grammar.Ref("B"))).
		Build("root")
	require.NoError(t, err)
	r := newRig(t, gr, 3, "random")
	r.src.Seed(2024)

	const draws = 10000
	bs := 0
	for range draws {
		if r.fz.GenerateTokens()[0].Text == "b" {
			bs++
		}
	}
	assert.InDelta(t, 0.99, float64(bs)/draws, 0.02)
}

func TestPreferUncoveredPicksRemaining(t *testing.T) {
	gr := testkit.WeightedGrammar()
	r := newRig(t, gr, 3, "uncovered(random, random)")
	sym, _ := gr.Lookup("pick")
	pick, _ := r.g.ChoiceFor(sym)
	alts := r.g.Node(pick).Alts
	r.cov.Covered(alts[0])
	r.cov.Covered(alts[2])

	assert.Equal(t, "b", r.fz.GenerateTokens()[0].Text)
	assert.True(t, r.cov.IsCovered(alts[1]))
}

func TestCoverageGrowsMonotonically(t *testing.T) {
	r := newRig(t, testkit.ExprGrammar(), 6, "reachesUncovered(random, random)")
	prev := 0
	for seed := range uint64(200) {
		r.src.Seed(seed)
		r.fz.Generate()
		require.GreaterOrEqual(t, r.cov.CoveredCount(), prev)
		prev = r.cov.CoveredCount()
	}
	assert.True(t, r.cov.IsFullyCovered())
	assert.Equal(t, r.cov.TotalCount(), r.cov.CoveredCount())
}
