package analysis

import (
	"pegfuzz/internal/graph"
)

// isSeedRoot tells whether a choice is a root of the derivation forest:
// the start choice, EOF, and optionally skipped tokens (which the parser
// accepts anywhere).
func isSeedRoot(g *graph.Graph, id graph.NodeID, withSkipped bool) bool {
	if id == g.Root() {
		return true
	}
	node := g.Node(id)
	if node.Kind != graph.Choice || !node.Symbol.IsLexer() {
		return false
	}
	return node.Symbol.IsEOF() || (withSkipped && node.Symbol.Skip)
}

// Reachable marks nodes reachable from the root. EOF is always considered
// reachable; skipped tokens are when considerSkipped is set.
func Reachable(g *graph.Graph, considerSkipped bool) []bool {
	return Compute(g, Analysis[bool]{
		Direction: Forwards,
		Init: func(n graph.NodeID) bool {
			return isSeedRoot(g, n, considerSkipped)
		},
		Transfer: func(n graph.NodeID, in bool) bool {
			return in || isSeedRoot(g, n, considerSkipped)
		},
		Confluence: func(_ graph.NodeID, in []Input[bool]) bool {
			for _, v := range in {
				if v.Value {
					return true
				}
			}
			return false
		},
		Equal: equalBools,
	})
}

// MinHeights computes the minimum height of a tree fully expanding each
// node with mandatory elements only. Terminals have height 1 and every
// choice owning a production adds one level.
func MinHeights(g *graph.Graph) []int {
	return Compute(g, Analysis[int]{
		Direction: Backwards,
		Init:      leafOne(g),
		Transfer:  productionAddsOne(g),
		Confluence: func(n graph.NodeID, in []Input[int]) int {
			if g.IsChoice(n) {
				return minInput(in)
			}
			height := 0
			for _, v := range in {
				if !g.Elem(v.Elem).Quant.IsMandatory() {
					continue
				}
				if v.Value == Unknown {
					return Unknown
				}
				height = max(height, v.Value)
			}
			return height
		},
		Equal: equalInts,
	})
}

// MinSizes computes the minimum number of tree nodes (terminals plus
// non-terminals) needed to expand each node with mandatory elements only.
func MinSizes(g *graph.Graph) []int {
	return Compute(g, Analysis[int]{
		Direction: Backwards,
		Init:      leafOne(g),
		Transfer:  productionAddsOne(g),
		Confluence: func(n graph.NodeID, in []Input[int]) int {
			if g.IsChoice(n) {
				return minInput(in)
			}
			size := 0
			for _, v := range in {
				if !g.Elem(v.Elem).Quant.IsMandatory() {
					continue
				}
				size = Add(size, v.Value)
				if size == Unknown {
					return Unknown
				}
			}
			return size
		},
		Equal: equalInts,
	})
}

// MinDepths computes the minimum number of production levels between the
// root and each node. EOF and skipped tokens count as roots.
func MinDepths(g *graph.Graph) []int {
	return Compute(g, Analysis[int]{
		Direction: Forwards,
		Init: func(n graph.NodeID) int {
			if isSeedRoot(g, n, true) {
				return 0
			}
			return Unknown
		},
		Transfer: func(n graph.NodeID, in int) int {
			if !g.IsChoice(n) {
				return in
			}
			if isSeedRoot(g, n, true) {
				return 0
			}
			if g.RequiresTreeNode(n) {
				return Add(in, 1)
			}
			return in
		},
		Confluence: func(_ graph.NodeID, in []Input[int]) int {
			return minInput(in)
		},
		Equal: equalInts,
	})
}

func leafOne(g *graph.Graph) func(graph.NodeID) int {
	return func(n graph.NodeID) int {
		if g.IsLeaf(n) {
			return 1
		}
		return Unknown
	}
}

func productionAddsOne(g *graph.Graph) func(graph.NodeID, int) int {
	return func(n graph.NodeID, in int) int {
		switch {
		case !g.IsChoice(n):
			return in
		case g.IsLeaf(n):
			return 1
		case g.RequiresTreeNode(n):
			return Add(in, 1)
		default:
			return in
		}
	}
}

func minInput(in []Input[int]) int {
	best := Unknown
	for _, v := range in {
		best = min(best, v.Value)
	}
	return best
}
