// Package fuzzer generates random programs from a grammar graph within a
// fixed tree-height budget.
package fuzzer

import (
	"errors"
	"fmt"

	"pegfuzz/internal/analysis"
	"pegfuzz/internal/coverage"
	"pegfuzz/internal/cst"
	"pegfuzz/internal/grammar"
	"pegfuzz/internal/graph"
	"pegfuzz/internal/selection"
	"pegfuzz/internal/token"
	"pegfuzz/internal/tokens"
	"pegfuzz/internal/trace"
)

// Options are the collaborators of a Fuzzer.
type Options struct {
	Tokens   tokens.Generator
	Strategy selection.Strategy
	Coverage *coverage.Alternatives // optional
	Tracer   trace.Tracer           // optional; choices are traced at LevelDebug
}

// Fuzzer expands the root choice of a graph into random trees whose height
// never exceeds maxHeight. Only alternatives whose minimal height fits the
// remaining budget are offered to the strategy, so generation always
// terminates.
type Fuzzer struct {
	g          *graph.Graph
	maxHeight  int
	minHeights []int
	opts       Options

	traceChoices bool
}

// New validates maxHeight against the grammar's minimal tree height.
func New(g *graph.Graph, maxHeight int, opts Options) (*Fuzzer, error) {
	if opts.Tokens == nil || opts.Strategy == nil {
		return nil, errors.New("fuzzer: token generator and selection strategy are required")
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	minHeights := analysis.MinHeights(g)
	required := minHeights[g.Root()]
	if required == analysis.Unknown {
		return nil, &ConfigError{MaxHeight: maxHeight}
	}
	if maxHeight < required {
		return nil, &ConfigError{MaxHeight: maxHeight, Required: required}
	}
	return &Fuzzer{
		g:            g,
		maxHeight:    maxHeight,
		minHeights:   minHeights,
		opts:         opts,
		traceChoices: opts.Tracer.Level().ShouldEmit(trace.ScopeChoice),
	}, nil
}

// MaxHeight returns the height budget.
func (f *Fuzzer) MaxHeight() int { return f.maxHeight }

// Generate builds one concrete syntax tree.
func (f *Fuzzer) Generate() cst.Node {
	out := expand[cst.Node](f, treeShape{}, f.g.Root(), f.maxHeight, nil)
	if len(out) != 1 {
		panic(fmt.Errorf("fuzzer: root expanded to %d nodes", len(out)))
	}
	return out[0]
}

// GenerateTokens produces the leaves of one tree without building it.
func (f *Fuzzer) GenerateTokens() []token.Token {
	return expand[token.Token](f, tokenShape{}, f.g.Root(), f.maxHeight, nil)
}

// shape abstracts over what generation produces: trees or flat tokens.
type shape[T any] interface {
	leaf(tok token.Token) T
	// node appends the result of a production to out.
	node(out []T, sym *grammar.Symbol, children []T) []T
}

type treeShape struct{}

func (treeShape) leaf(tok token.Token) cst.Node { return &cst.Terminal{Token: tok} }

func (treeShape) node(out []cst.Node, sym *grammar.Symbol, children []cst.Node) []cst.Node {
	return append(out, &cst.NonTerminal{Symbol: sym, Children: children})
}

type tokenShape struct{}

func (tokenShape) leaf(tok token.Token) token.Token { return tok }

func (tokenShape) node(out []token.Token, _ *grammar.Symbol, children []token.Token) []token.Token {
	return append(out, children...)
}

// expand generates choice with the given budget and appends the result to
// out. Helper choices splice their children into out directly.
func expand[T any](f *Fuzzer, s shape[T], choice graph.NodeID, budget int, out []T) []T {
	n := f.g.Node(choice)
	if f.g.IsTerminal(choice) {
		return append(out, s.leaf(f.opts.Tokens.Token(n.Symbol.Token)))
	}

	production := f.g.RequiresTreeNode(choice)
	childBudget := budget
	if production {
		childBudget--
	}

	alt := f.choose(choice, childBudget)
	seq := f.g.Node(f.g.Alt(alt).Seq)

	children := out
	if production {
		children = nil
	}
	for _, eid := range seq.Elems {
		target := f.g.Elem(eid).Target
		for count := 0; f.generateMore(eid, count, childBudget); count++ {
			children = expand(f, s, target, childBudget, children)
		}
	}

	if production {
		return s.node(out, n.Symbol, children)
	}
	return children
}

func (f *Fuzzer) choose(choice graph.NodeID, budget int) graph.AltID {
	var viable []graph.AltID
	for _, a := range f.g.Node(choice).Alts {
		if f.minHeights[f.g.Alt(a).Seq] <= budget {
			viable = append(viable, a)
		}
	}
	if len(viable) == 0 {
		panic(fmt.Errorf("fuzzer: no viable alternative for %s with budget %d", f.g.Label(choice), budget))
	}
	alt := f.opts.Strategy.ChooseAlternative(viable, budget)
	if f.opts.Coverage != nil {
		f.opts.Coverage.Covered(alt)
	}
	if f.traceChoices {
		trace.Point(f.opts.Tracer, trace.ScopeChoice, f.g.AltLabel(alt), fmt.Sprintf("budget %d, %d viable", budget, len(viable)), 0)
	}
	return alt
}

func (f *Fuzzer) generateMore(eid graph.ElemID, count, budget int) bool {
	e := f.g.Elem(eid)
	if f.minHeights[e.Target] > budget {
		if count == 0 && e.Quant.IsMandatory() {
			panic(fmt.Errorf("fuzzer: mandatory element %s does not fit budget %d", f.g.Label(e.Target), budget))
		}
		return false
	}
	switch e.Quant {
	case grammar.QuantNone:
		return count == 0
	case grammar.QuantPlus:
		if count == 0 {
			return true
		}
	case grammar.QuantOptional:
		if count > 0 {
			return false
		}
	}
	return f.opts.Strategy.GenerateMoreElements(eid, count, budget)
}
