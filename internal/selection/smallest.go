package selection

import (
	"pegfuzz/internal/analysis"
	"pegfuzz/internal/grammar"
	"pegfuzz/internal/graph"
	"pegfuzz/internal/rng"
)

// Smallest biases generation towards small trees: with probability p it
// narrows the candidates to those with the smallest minimal tree size and
// hands them to base.
type Smallest struct {
	g        *graph.Graph
	src      rng.Source
	p        float64
	base     Strategy
	minSizes []int
}

// NewSmallest returns a Smallest strategy. p is clamped to [0, 1].
func NewSmallest(g *graph.Graph, src rng.Source, p float64, base Strategy) *Smallest {
	return &Smallest{
		g:        g,
		src:      src,
		p:        min(max(p, 0), 1),
		base:     base,
		minSizes: analysis.MinSizes(g),
	}
}

func (s *Smallest) chooseSmall() bool { return s.src.Float64() < s.p }

// ChooseAlternative implements Strategy.
func (s *Smallest) ChooseAlternative(alts []graph.AltID, budget int) graph.AltID {
	mustHaveCandidates(alts)
	if !s.chooseSmall() {
		return s.base.ChooseAlternative(alts, budget)
	}
	best := analysis.Unknown
	for _, a := range alts {
		best = min(best, s.minSizes[s.g.Alt(a).Seq])
	}
	smallest := filter(alts, func(a graph.AltID) bool {
		return s.minSizes[s.g.Alt(a).Seq] == best
	})
	return s.base.ChooseAlternative(smallest, budget)
}

// GenerateMoreElements implements Strategy.
func (s *Smallest) GenerateMoreElements(elem graph.ElemID, _, _ int) bool {
	e := s.g.Elem(elem)
	if e.Quant == grammar.QuantOptional {
		return !s.chooseSmall()
	}
	adjusted := int((1 - s.p) * float64(e.Weight))
	return continueWith(s.src, adjusted)
}
