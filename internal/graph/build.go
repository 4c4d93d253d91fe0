package graph

import (
	"fmt"

	"fortio.org/safecast"

	"pegfuzz/internal/grammar"
)

// Builder assembles a Graph node by node. FromGrammar is the usual entry
// point; the builder is exposed for hand-made graphs in tests.
type Builder struct {
	g      *Graph
	byName map[string]NodeID
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		g:      &Graph{bySymbol: make(map[*grammar.Symbol]NodeID)},
		byName: make(map[string]NodeID),
	}
}

func (b *Builder) addNode(n Node) NodeID {
	id, err := safecast.Conv[NodeID](len(b.g.nodes))
	if err != nil {
		panic(fmt.Errorf("node id overflow: %w", err))
	}
	b.g.nodes = append(b.g.nodes, n)
	return id
}

// Choice adds a choice node; sym is nil for helper choices.
func (b *Builder) Choice(sym *grammar.Symbol) NodeID {
	id := b.addNode(Node{Kind: Choice, Symbol: sym})
	if sym != nil {
		b.g.bySymbol[sym] = id
		b.byName[sym.Name] = id
	}
	return id
}

// Sequence adds a sequence node.
func (b *Builder) Sequence() NodeID {
	return b.addNode(Node{Kind: Sequence})
}

// Alternative links a choice to a sequence.
func (b *Builder) Alternative(choice, seq NodeID, weight int) AltID {
	id, err := safecast.Conv[AltID](len(b.g.alts))
	if err != nil {
		panic(fmt.Errorf("alternative id overflow: %w", err))
	}
	b.g.alts = append(b.g.alts, Alternative{Choice: choice, Seq: seq, Weight: weight})
	b.g.nodes[choice].Alts = append(b.g.nodes[choice].Alts, id)
	b.g.nodes[seq].InAlts = append(b.g.nodes[seq].InAlts, id)
	return id
}

// Element links a sequence to a choice.
func (b *Builder) Element(seq, target NodeID, q grammar.Quant, weight int) ElemID {
	id, err := safecast.Conv[ElemID](len(b.g.elems))
	if err != nil {
		panic(fmt.Errorf("element id overflow: %w", err))
	}
	b.g.elems = append(b.g.elems, Element{Seq: seq, Target: target, Quant: q, Weight: weight})
	b.g.nodes[seq].Elems = append(b.g.nodes[seq].Elems, id)
	b.g.nodes[target].InElems = append(b.g.nodes[target].InElems, id)
	return id
}

// Finish returns the graph rooted at root. The builder must not be reused.
func (b *Builder) Finish(root NodeID) *Graph {
	b.g.root = root
	g := b.g
	b.g = nil
	return g
}

// FromGrammar builds the graph of a validated grammar: one choice per
// symbol in declaration order, then sequences and helper choices while
// walking the productions.
func FromGrammar(gr *grammar.Grammar) *Graph {
	b := NewBuilder()
	for _, sym := range gr.Symbols() {
		b.Choice(sym)
	}
	for _, sym := range gr.Symbols() {
		if !sym.HasProduction() {
			continue
		}
		b.addAlts(b.g.bySymbol[sym], sym.Production.Alts)
	}
	return b.Finish(b.g.bySymbol[gr.Start()])
}

func (b *Builder) addAlts(choice NodeID, alts []grammar.Alt) {
	for _, alt := range alts {
		seq := b.Sequence()
		b.Alternative(choice, seq, alt.Weight)
		for _, it := range alt.Items {
			var target NodeID
			if it.IsGroup() {
				target = b.Choice(nil)
				b.addAlts(target, it.Group)
			} else {
				ref, ok := b.byName[it.Ref]
				if !ok {
					panic(fmt.Errorf("unresolved symbol %q in validated grammar", it.Ref))
				}
				target = ref
			}
			b.Element(seq, target, it.Quant, it.Weight)
		}
	}
}
