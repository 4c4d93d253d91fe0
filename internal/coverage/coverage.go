package coverage

import (
	"pegfuzz/internal/analysis"
	"pegfuzz/internal/graph"
)

// Alternatives tracks which alternatives have been chosen during a session.
// The universe is fixed at construction to alternatives whose choice is
// reachable from the root; anything outside it is ignored.
//
// Not safe for concurrent use: only the running generation call marks
// alternatives.
type Alternatives struct {
	g        *graph.Graph
	universe []bool // indexed by AltID
	covered  []bool // indexed by AltID
	total    int
	count    int
}

// New creates an empty tracker over the reachable alternatives of g.
func New(g *graph.Graph) *Alternatives {
	reachable := analysis.Reachable(g, true)
	c := &Alternatives{
		g:        g,
		universe: make([]bool, g.NumAlts()),
		covered:  make([]bool, g.NumAlts()),
	}
	for alt := range g.Alternatives() {
		if reachable[g.Alt(alt).Choice] {
			c.universe[alt] = true
			c.total++
		}
	}
	return c
}

// Covered marks alt as exercised. Repeated calls are no-ops.
func (c *Alternatives) Covered(alt graph.AltID) {
	if !c.universe[alt] || c.covered[alt] {
		return
	}
	c.covered[alt] = true
	c.count++
}

// IsCovered reports whether alt has been exercised.
func (c *Alternatives) IsCovered(alt graph.AltID) bool { return c.covered[alt] }

// InUniverse reports whether alt can be covered at all.
func (c *Alternatives) InUniverse(alt graph.AltID) bool { return c.universe[alt] }

// TotalCount returns the size of the coverable universe.
func (c *Alternatives) TotalCount() int { return c.total }

// CoveredCount returns the number of exercised alternatives.
func (c *Alternatives) CoveredCount() int { return c.count }

// MissingCount returns the number of alternatives not exercised yet.
func (c *Alternatives) MissingCount() int { return c.total - c.count }

// IsFullyCovered reports whether every coverable alternative was exercised.
func (c *Alternatives) IsFullyCovered() bool { return c.count == c.total }

// Missing lists the coverable alternatives not exercised yet.
func (c *Alternatives) Missing() []graph.AltID {
	out := make([]graph.AltID, 0, c.MissingCount())
	for alt := range c.g.Alternatives() {
		if c.universe[alt] && !c.covered[alt] {
			out = append(out, alt)
		}
	}
	return out
}

// Reset clears the covered set and keeps the universe.
func (c *Alternatives) Reset() {
	clear(c.covered)
	c.count = 0
}
