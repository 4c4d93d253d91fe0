package graph

import (
	"fmt"
	"io"
	"strconv"

	"github.com/emicklei/dot"
)

// Annotation adds a line to a node label in the DOT dump, e.g. "h=3".
type Annotation func(id NodeID) string

// WriteDot renders the graph in Graphviz format. Choices are ellipses
// (terminals are doubled), sequences are boxes, element edges carry their
// quantifier and alternative edges their weight when it is not 1.
func (g *Graph) WriteDot(w io.Writer, notes ...Annotation) error {
	out := dot.NewGraph(dot.Directed)
	out.Attr("rankdir", "TB")

	nodes := make([]dot.Node, len(g.nodes))
	for id := range g.Nodes() {
		label := g.Label(id)
		for _, note := range notes {
			if extra := note(id); extra != "" {
				label += "\n" + extra
			}
		}
		n := out.Node("n" + strconv.Itoa(int(id))).Label(label)
		switch {
		case g.IsTerminal(id):
			n.Attr("shape", "doublecircle")
		case g.Node(id).Kind == Sequence:
			n.Attr("shape", "box")
		case g.Node(id).Symbol == nil:
			n.Attr("shape", "ellipse").Attr("style", "dashed")
		default:
			n.Attr("shape", "ellipse")
		}
		if id == g.root {
			n.Attr("penwidth", "2")
		}
		nodes[id] = n
	}
	for _, a := range g.alts {
		e := out.Edge(nodes[a.Choice], nodes[a.Seq])
		if a.Weight != 1 {
			e.Label(fmt.Sprintf("w=%d", a.Weight))
		}
	}
	for _, el := range g.elems {
		e := out.Edge(nodes[el.Seq], nodes[el.Target])
		label := el.Quant.String()
		if el.Weight != 1 {
			label += fmt.Sprintf(" w=%d", el.Weight)
		}
		if label != "" {
			e.Label(label)
		}
		e.Attr("style", "dotted")
	}

	if _, err := io.WriteString(w, out.String()); err != nil {
		return fmt.Errorf("write dot: %w", err)
	}
	return nil
}
