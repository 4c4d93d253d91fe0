package selection

import (
	"fmt"

	"pegfuzz/internal/graph"
	"pegfuzz/internal/rng"
)

// Random picks alternatives proportionally to their weights and repeats an
// element with probability w/(w+1).
type Random struct {
	g       *graph.Graph
	src     rng.Source
	uniform bool
}

// NewRandom returns the weighted random strategy.
func NewRandom(g *graph.Graph, src rng.Source) *Random {
	return &Random{g: g, src: src}
}

// NewUniform returns a random strategy that treats every weight as 1.
func NewUniform(g *graph.Graph, src rng.Source) *Random {
	return &Random{g: g, src: src, uniform: true}
}

func (s *Random) altWeight(a graph.AltID) int {
	if s.uniform {
		return 1
	}
	return s.g.Alt(a).Weight
}

func (s *Random) elemWeight(e graph.ElemID) int {
	if s.uniform {
		return 1
	}
	return s.g.Elem(e).Weight
}

// ChooseAlternative implements Strategy.
func (s *Random) ChooseAlternative(alts []graph.AltID, _ int) graph.AltID {
	mustHaveCandidates(alts)
	if len(alts) == 1 {
		return alts[0]
	}
	total := 0
	for _, a := range alts {
		total += s.altWeight(a)
	}
	draw := s.src.Intn(total) + 1
	sum := 0
	for _, a := range alts {
		sum += s.altWeight(a)
		if sum >= draw {
			return a
		}
	}
	panic(fmt.Errorf("selection: draw %d beyond total weight %d", draw, total))
}

// GenerateMoreElements implements Strategy.
func (s *Random) GenerateMoreElements(elem graph.ElemID, _, _ int) bool {
	return continueWith(s.src, s.elemWeight(elem))
}

// continueWith is the shared repetition rule: go on unless a uniform draw
// from [0, weight] hits zero.
func continueWith(src rng.Source, weight int) bool {
	return src.Intn(weight+1) != 0
}
