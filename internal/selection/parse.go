package selection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"pegfuzz/internal/coverage"
	"pegfuzz/internal/graph"
	"pegfuzz/internal/rng"
)

// Strategy expressions:
//
//	strategy := random | uniform
//	          | smallest [ "(" [ prob [ "," strategy ] | strategy ] ")" ]
//	          | uncovered "(" strategy "," strategy ")"
//	          | reachesUncovered "(" strategy "," strategy [ "," bool ] ")"
//
// Keywords are case-insensitive; rand, small, uncov and reachesUncov are
// accepted as short forms. random and uniform may be followed by "()".
type strategyExpr struct {
	Random   bool           `  @( "random" | "rand" ) ( "(" ")" )?`
	Uniform  bool           `| @"uniform" ( "(" ")" )?`
	Smallest *smallestExpr  `| @@`
	Uncov    *uncoveredExpr `| @@`
	Reaches  *reachesExpr   `| @@`
}

type smallestExpr struct {
	Keyword string        `@( "smallest" | "small" ) ( "("`
	Prob    *string       `  ( @Probability`
	Base    *strategyExpr `    ( "," @@ )? | @@ )? ")" )?`
}

type uncoveredExpr struct {
	Keyword   string        `@( "uncovered" | "uncov" ) "("`
	Uncovered *strategyExpr `@@ ","`
	Covered   *strategyExpr `@@ ")"`
}

type reachesExpr struct {
	Keyword   string        `@( "reachesUncovered" | "reachesUncov" ) "("`
	Uncovered *strategyExpr `@@ ","`
	Covered   *strategyExpr `@@`
	Strict    *string       `( "," @( "true" | "false" ) )? ")"`
}

var strategyLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Probability", Pattern: `1\.0|0\.[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z]+`},
	{Name: "Punct", Pattern: `[(),]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

var strategyParser = participle.MustBuild[strategyExpr](
	participle.Lexer(strategyLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Ident"),
	participle.UseLookahead(2),
)

// Env carries what strategies need to be built.
type Env struct {
	Graph    *graph.Graph
	Coverage *coverage.Alternatives // required by the coverage-guided forms
	Source   rng.Source
}

// Parse builds the strategy described by expr.
func Parse(expr string, env Env) (Strategy, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrMalformedStrategy)
	}
	if env.Graph == nil || env.Source == nil {
		return nil, errors.New("selection: graph and random source are required")
	}
	ast, err := strategyParser.ParseString("", expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrMalformedStrategy, expr, err)
	}
	return env.build(ast)
}

func (env Env) build(e *strategyExpr) (Strategy, error) {
	switch {
	case e.Random:
		return NewRandom(env.Graph, env.Source), nil
	case e.Uniform:
		return NewUniform(env.Graph, env.Source), nil
	case e.Smallest != nil:
		return env.buildSmallest(e.Smallest)
	case e.Uncov != nil:
		if env.Coverage == nil {
			return nil, fmt.Errorf("%w: %s needs coverage tracking", ErrMalformedStrategy, e.Uncov.Keyword)
		}
		u, c, err := env.buildPair(e.Uncov.Uncovered, e.Uncov.Covered)
		if err != nil {
			return nil, err
		}
		return NewPreferUncovered(env.Coverage, u, c), nil
	case e.Reaches != nil:
		if env.Coverage == nil {
			return nil, fmt.Errorf("%w: %s needs coverage tracking", ErrMalformedStrategy, e.Reaches.Keyword)
		}
		u, c, err := env.buildPair(e.Reaches.Uncovered, e.Reaches.Covered)
		if err != nil {
			return nil, err
		}
		strict := e.Reaches.Strict == nil || strings.EqualFold(*e.Reaches.Strict, "true")
		return NewPreferReachesUncovered(env.Graph, env.Coverage, u, c, strict), nil
	default:
		return nil, fmt.Errorf("%w: empty strategy", ErrMalformedStrategy)
	}
}

func (env Env) buildSmallest(e *smallestExpr) (Strategy, error) {
	p := 1.0
	if e.Prob != nil {
		v, err := strconv.ParseFloat(*e.Prob, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: probability %q: %w", ErrMalformedStrategy, *e.Prob, err)
		}
		p = v
	}
	var base Strategy = NewRandom(env.Graph, env.Source)
	if e.Base != nil {
		b, err := env.build(e.Base)
		if err != nil {
			return nil, err
		}
		base = b
	}
	return NewSmallest(env.Graph, env.Source, p, base), nil
}

func (env Env) buildPair(a, b *strategyExpr) (Strategy, Strategy, error) {
	u, err := env.build(a)
	if err != nil {
		return nil, nil, err
	}
	c, err := env.build(b)
	if err != nil {
		return nil, nil, err
	}
	return u, c, nil
}
