package graph

import (
	"fmt"
	"iter"

	"pegfuzz/internal/grammar"
)

type (
	// NodeID indexes Graph nodes.
	NodeID uint32
	// AltID indexes Alternative edges.
	AltID uint32
	// ElemID indexes Element edges.
	ElemID uint32
)

// Kind distinguishes the two node types of the bipartite graph.
type Kind uint8

const (
	// Choice is a decision point for a symbol or an anonymous group.
	Choice Kind = iota + 1
	// Sequence is the ordered right-hand side of one alternative.
	Sequence
)

func (k Kind) String() string {
	switch k {
	case Choice:
		return "choice"
	case Sequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Node is a Choice or a Sequence. Only the fields of its kind are used.
type Node struct {
	Kind   Kind
	Symbol *grammar.Symbol // nil for helper choices and sequences

	Alts    []AltID  // choice: outgoing alternatives
	InElems []ElemID // choice: incoming elements

	Elems  []ElemID // sequence: outgoing elements
	InAlts []AltID  // sequence: incoming alternatives, exactly one
}

// Alternative is a weighted Choice -> Sequence edge.
type Alternative struct {
	Choice NodeID
	Seq    NodeID
	Weight int
}

// Element is a quantified, weighted Sequence -> Choice edge.
type Element struct {
	Seq    NodeID
	Target NodeID
	Quant  grammar.Quant
	Weight int
}

// Graph is the immutable grammar graph. Nodes and edges live in slices and
// are addressed by index.
type Graph struct {
	nodes    []Node
	alts     []Alternative
	elems    []Element
	root     NodeID
	bySymbol map[*grammar.Symbol]NodeID
}

// Root returns the choice of the start symbol.
func (g *Graph) Root() NodeID { return g.root }

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) *Node { return &g.nodes[id] }

// Alt returns the alternative edge with the given id.
func (g *Graph) Alt(id AltID) *Alternative { return &g.alts[id] }

// Elem returns the element edge with the given id.
func (g *Graph) Elem(id ElemID) *Element { return &g.elems[id] }

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumAlts returns the number of alternative edges.
func (g *Graph) NumAlts() int { return len(g.alts) }

// NumElems returns the number of element edges.
func (g *Graph) NumElems() int { return len(g.elems) }

// Nodes iterates over every node id in creation order.
func (g *Graph) Nodes() iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		for i := range g.nodes {
			if !yield(NodeID(i)) {
				return
			}
		}
	}
}

// Alternatives iterates over every alternative id.
func (g *Graph) Alternatives() iter.Seq[AltID] {
	return func(yield func(AltID) bool) {
		for i := range g.alts {
			if !yield(AltID(i)) {
				return
			}
		}
	}
}

// ChoiceFor returns the choice node of a grammar symbol.
func (g *Graph) ChoiceFor(sym *grammar.Symbol) (NodeID, bool) {
	id, ok := g.bySymbol[sym]
	return id, ok
}

// IsChoice reports whether id is a Choice node.
func (g *Graph) IsChoice(id NodeID) bool { return g.nodes[id].Kind == Choice }

// IsTerminal reports whether id is the choice of a lexer symbol.
func (g *Graph) IsTerminal(id NodeID) bool {
	n := &g.nodes[id]
	return n.Kind == Choice && n.Symbol.IsLexer()
}

// IsLeaf reports whether id is a choice without alternatives.
func (g *Graph) IsLeaf(id NodeID) bool {
	n := &g.nodes[id]
	return n.Kind == Choice && len(n.Alts) == 0
}

// RequiresTreeNode reports whether id is the choice of a symbol with a
// production. Such choices become non-terminals and consume one level of
// height; helper choices are spliced into their parent.
func (g *Graph) RequiresTreeNode(id NodeID) bool {
	n := &g.nodes[id]
	return n.Kind == Choice && n.Symbol.HasProduction()
}

// Label returns a human readable node name.
func (g *Graph) Label(id NodeID) string {
	n := &g.nodes[id]
	switch {
	case n.Symbol != nil:
		return n.Symbol.Name
	case n.Kind == Choice:
		return fmt.Sprintf("(group#%d)", id)
	default:
		return fmt.Sprintf("seq#%d", id)
	}
}

// AltLabel names an alternative as "symbol#index".
func (g *Graph) AltLabel(id AltID) string {
	a := &g.alts[id]
	owner := &g.nodes[a.Choice]
	for i, alt := range owner.Alts {
		if alt == id {
			return fmt.Sprintf("%s#%d", g.Label(a.Choice), i+1)
		}
	}
	return g.Label(a.Choice)
}
