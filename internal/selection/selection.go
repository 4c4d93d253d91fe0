// Package selection implements the policies that decide which alternative a
// choice expands to and how often a quantified element repeats.
//
// Strategies compose: the coverage-guided ones delegate to an inner strategy
// for the preferred candidates and to another one for the rest. Every random
// draw comes from a shared rng.Source, so a strategy is deterministic for a
// fixed draw sequence.
package selection

import (
	"errors"

	"pegfuzz/internal/graph"
)

// ErrMalformedStrategy reports an unparsable strategy expression.
var ErrMalformedStrategy = errors.New("malformed selection strategy")

// Strategy decides between viable alternatives and repetition counts.
type Strategy interface {
	// ChooseAlternative picks one of alts, all of which fit budget.
	// alts is never empty.
	ChooseAlternative(alts []graph.AltID, budget int) graph.AltID
	// GenerateMoreElements reports whether another instance of elem should
	// be generated after count instances at the given budget.
	GenerateMoreElements(elem graph.ElemID, count, budget int) bool
}

func mustHaveCandidates(alts []graph.AltID) {
	if len(alts) == 0 {
		panic(errors.New("selection: no alternatives to choose from"))
	}
}

func filter(alts []graph.AltID, keep func(graph.AltID) bool) []graph.AltID {
	var out []graph.AltID
	for _, a := range alts {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}
