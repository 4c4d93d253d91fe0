package selection

import (
	"pegfuzz/internal/analysis"
	"pegfuzz/internal/coverage"
	"pegfuzz/internal/graph"
)

// PreferUncovered chooses among uncovered alternatives with one strategy
// and falls back to another when every candidate is covered.
type PreferUncovered struct {
	cov       *coverage.Alternatives
	uncovered Strategy
	covered   Strategy
}

// NewPreferUncovered returns a PreferUncovered strategy.
func NewPreferUncovered(cov *coverage.Alternatives, uncovered, covered Strategy) *PreferUncovered {
	return &PreferUncovered{cov: cov, uncovered: uncovered, covered: covered}
}

// ChooseAlternative implements Strategy.
func (s *PreferUncovered) ChooseAlternative(alts []graph.AltID, budget int) graph.AltID {
	mustHaveCandidates(alts)
	fresh := filter(alts, func(a graph.AltID) bool { return !s.cov.IsCovered(a) })
	if len(fresh) > 0 {
		return s.uncovered.ChooseAlternative(fresh, budget)
	}
	return s.covered.ChooseAlternative(alts, budget)
}

// GenerateMoreElements implements Strategy.
func (s *PreferUncovered) GenerateMoreElements(elem graph.ElemID, count, budget int) bool {
	return s.covered.GenerateMoreElements(elem, count, budget)
}

// PreferReachesUncovered prefers alternatives that are uncovered or from
// which an uncovered alternative can still be reached within the budget.
// With strict quantifiers, repetition decisions follow the same preference
// for the element's target.
type PreferReachesUncovered struct {
	g          *graph.Graph
	cov        *coverage.Alternatives
	uncovered  Strategy
	covered    Strategy
	strict     bool
	minHeights []int
	reachable  []analysis.Distances
}

// NewPreferReachesUncovered returns a PreferReachesUncovered strategy.
func NewPreferReachesUncovered(g *graph.Graph, cov *coverage.Alternatives, uncovered, covered Strategy, strict bool) *PreferReachesUncovered {
	minHeights := analysis.MinHeights(g)
	return &PreferReachesUncovered{
		g:          g,
		cov:        cov,
		uncovered:  uncovered,
		covered:    covered,
		strict:     strict,
		minHeights: minHeights,
		reachable:  analysis.ReachableNodes(g, minHeights),
	}
}

// reachesUncovered reports whether expanding alt with the given budget can
// still cover something new.
func (s *PreferReachesUncovered) reachesUncovered(alt graph.AltID, budget int) bool {
	if !s.cov.IsCovered(alt) {
		return true
	}
	for m, need := range s.reachable[s.g.Alt(alt).Seq] {
		if need > budget || !s.g.IsChoice(m) {
			continue
		}
		for _, a := range s.g.Node(m).Alts {
			if !s.cov.IsCovered(a) {
				return true
			}
		}
	}
	return false
}

func (s *PreferReachesUncovered) choiceReachesUncovered(choice graph.NodeID, budget int) bool {
	if s.g.RequiresTreeNode(choice) {
		budget--
	}
	for _, a := range s.g.Node(choice).Alts {
		if s.minHeights[s.g.Alt(a).Seq] <= budget && s.reachesUncovered(a, budget) {
			return true
		}
	}
	return false
}

// ChooseAlternative implements Strategy.
func (s *PreferReachesUncovered) ChooseAlternative(alts []graph.AltID, budget int) graph.AltID {
	mustHaveCandidates(alts)
	preferred := filter(alts, func(a graph.AltID) bool { return s.reachesUncovered(a, budget) })
	if len(preferred) > 0 {
		return s.uncovered.ChooseAlternative(preferred, budget)
	}
	return s.covered.ChooseAlternative(alts, budget)
}

// GenerateMoreElements implements Strategy.
func (s *PreferReachesUncovered) GenerateMoreElements(elem graph.ElemID, count, budget int) bool {
	if s.strict && s.choiceReachesUncovered(s.g.Elem(elem).Target, budget) {
		return s.uncovered.GenerateMoreElements(elem, count, budget)
	}
	return s.covered.GenerateMoreElements(elem, count, budget)
}
