package analysis

import (
	"maps"

	"pegfuzz/internal/graph"
)

// Distances maps reachable nodes to the height budget needed to reach and
// fully expand them. A nil map means "unknown".
type Distances map[graph.NodeID]int

// ReachableNodes computes, for every node, the nodes reachable below it
// together with the minimum height budget that node must be given so the
// target can be reached within it. minHeights must come from MinHeights.
func ReachableNodes(g *graph.Graph, minHeights []int) []Distances {
	return Compute(g, Analysis[Distances]{
		Direction: Backwards,
		Init: func(n graph.NodeID) Distances {
			if g.IsLeaf(n) {
				return Distances{n: 1}
			}
			return nil
		},
		Transfer: func(n graph.NodeID, in Distances) Distances {
			if g.IsChoice(n) {
				if in == nil {
					return nil
				}
				step := 0
				if g.RequiresTreeNode(n) {
					step = 1
				}
				out := make(Distances, len(in)+1)
				for target, h := range in {
					out[target] = Add(h, step)
				}
				out[n] = minHeights[n]
				return out
			}
			out := make(Distances, len(in)+1)
			maps.Copy(out, in)
			out[n] = minHeights[n]
			return out
		},
		Confluence: func(n graph.NodeID, in []Input[Distances]) Distances {
			out := make(Distances)
			for _, v := range in {
				if v.Value == nil {
					continue
				}
				floor := 0
				if !g.IsChoice(n) {
					floor = max(minHeights[n], minHeights[g.Elem(v.Elem).Target])
				}
				for target, h := range v.Value {
					h = max(h, floor)
					if cur, ok := out[target]; !ok || h < cur {
						out[target] = h
					}
				}
			}
			return out
		},
		Equal: func(a, b Distances) bool {
			return (a == nil) == (b == nil) && maps.Equal(a, b)
		},
	})
}

// MinMaxHeight returns the smallest height budget from which every node
// reachable from the root can actually be generated. Unknown entries
// (symbols without a finite derivation) are ignored.
func MinMaxHeight(g *graph.Graph, reachable []Distances) int {
	best := 0
	for _, h := range reachable[g.Root()] {
		if h != Unknown && h > best {
			best = h
		}
	}
	return best
}
