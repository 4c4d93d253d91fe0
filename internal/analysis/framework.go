package analysis

import (
	"fmt"
	"math"

	"pegfuzz/internal/graph"
)

// Unknown marks an integer property that is not (yet) computable, e.g. the
// height of a symbol that never derives a finite tree.
const Unknown = math.MaxInt

// Add sums two property values; Unknown is absorbing.
func Add(a, b int) int {
	if a == Unknown || b == Unknown {
		return Unknown
	}
	return a + b
}

// Direction selects which way values flow along the edges.
type Direction uint8

const (
	// Forwards propagates from the root along Alternative/Element edges.
	Forwards Direction = iota + 1
	// Backwards propagates from the leaves against the edges.
	Backwards
)

func (d Direction) String() string {
	switch d {
	case Forwards:
		return "forwards"
	case Backwards:
		return "backwards"
	default:
		return "unknown"
	}
}

// Input is the value flowing into a node along one edge. For choices in
// forward direction and sequences in backward direction the edge is an
// element; otherwise it is an alternative.
type Input[T any] struct {
	Alt   graph.AltID
	Elem  graph.ElemID
	Value T
}

// Analysis describes a dataflow problem over the grammar graph. The
// functions receive the node id and switch on its kind themselves.
//
// Every node is evaluated as Transfer(n, Confluence(n, inputs)), including
// nodes without incoming edges (they see an empty input list). Seed values
// returned by Init must therefore be reproduced by Transfer.
type Analysis[T any] struct {
	Direction  Direction
	Init       func(n graph.NodeID) T
	Transfer   func(n graph.NodeID, in T) T
	Confluence func(n graph.NodeID, in []Input[T]) T
	Equal      func(a, b T) bool
}

// Compute runs a worklist iteration to the fixpoint and returns the value
// of every node, indexed by NodeID. It panics on a structurally broken
// graph (a sequence without exactly one incoming alternative).
func Compute[T any](g *graph.Graph, a Analysis[T]) []T {
	checkSequences(g)

	n := g.NumNodes()
	values := make([]T, n)
	queue := make([]graph.NodeID, 0, n)
	queued := make([]bool, n)
	for id := range g.Nodes() {
		values[id] = a.Init(id)
		queue = append(queue, id)
		queued[id] = true
	}

	var in []Input[T]
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queued[id] = false

		in = collect(g, a.Direction, id, values, in[:0])
		out := a.Transfer(id, a.Confluence(id, in))
		if a.Equal(out, values[id]) {
			continue
		}
		values[id] = out

		for _, dep := range dependents(g, a.Direction, id) {
			if !queued[dep] {
				queued[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return values
}

func checkSequences(g *graph.Graph) {
	for id := range g.Nodes() {
		node := g.Node(id)
		if node.Kind == graph.Sequence && len(node.InAlts) != 1 {
			panic(fmt.Errorf("sequence %s has %d incoming alternatives, want exactly 1", g.Label(id), len(node.InAlts)))
		}
	}
}

func collect[T any](g *graph.Graph, dir Direction, id graph.NodeID, values []T, buf []Input[T]) []Input[T] {
	node := g.Node(id)
	switch {
	case dir == Forwards && node.Kind == graph.Choice:
		for _, e := range node.InElems {
			buf = append(buf, Input[T]{Elem: e, Value: values[g.Elem(e).Seq]})
		}
	case dir == Forwards:
		for _, a := range node.InAlts {
			buf = append(buf, Input[T]{Alt: a, Value: values[g.Alt(a).Choice]})
		}
	case node.Kind == graph.Choice:
		for _, a := range node.Alts {
			buf = append(buf, Input[T]{Alt: a, Value: values[g.Alt(a).Seq]})
		}
	default:
		for _, e := range node.Elems {
			buf = append(buf, Input[T]{Elem: e, Value: values[g.Elem(e).Target]})
		}
	}
	return buf
}

func dependents(g *graph.Graph, dir Direction, id graph.NodeID) []graph.NodeID {
	node := g.Node(id)
	var out []graph.NodeID
	switch {
	case dir == Forwards && node.Kind == graph.Choice:
		for _, a := range node.Alts {
			out = append(out, g.Alt(a).Seq)
		}
	case dir == Forwards:
		for _, e := range node.Elems {
			out = append(out, g.Elem(e).Target)
		}
	case node.Kind == graph.Choice:
		for _, e := range node.InElems {
			out = append(out, g.Elem(e).Seq)
		}
	default:
		for _, a := range node.InAlts {
			out = append(out, g.Alt(a).Choice)
		}
	}
	return out
}

func equalInts(a, b int) bool   { return a == b }
func equalBools(a, b bool) bool { return a == b }
