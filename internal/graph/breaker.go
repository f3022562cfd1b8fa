package graph

import (
	"log/slog"

	"github.com/roach88/graphload/internal/links"
)

// Stash records the links withheld from initial creation.
type Stash struct {
	// Tokens maps a source record id to the tokens of its stashed links,
	// in the order they were stashed.
	Tokens map[string][]string

	// Links lists the stashed links in the order they were stashed.
	Links []*links.Link

	has map[string]bool
}

func newStash() *Stash {
	return &Stash{Tokens: make(map[string][]string), has: make(map[string]bool)}
}

func (s *Stash) add(l *links.Link) {
	if s.has[l.Token] {
		return
	}
	s.has[l.Token] = true
	s.Tokens[l.Source] = append(s.Tokens[l.Source], l.Token)
	s.Links = append(s.Links, l)
}

// Has reports whether the link with this token is stashed.
func (s *Stash) Has(token string) bool {
	return s != nil && s.has[token]
}

// Len returns the number of stashed links.
func (s *Stash) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Links)
}

// BreakCycles stashes links until the core is empty.
//
// Each round enumerates simple cycles. For every cycle that is still intact,
// the candidate edges are all live edges between consecutive cycle nodes;
// the one with the lowest out-degree(source) + in-degree(target) is chosen,
// and an equal cost goes to the edge that comes first in enumeration order.
// Degrees count every edge of the graph, peeled nodes included, except
// those of links already stashed. The chosen edge's whole link is stashed,
// dropping its other edges as well. The core is then peeled again.
func BreakCycles(c *Core) *Stash {
	stash := newStash()
	for !c.Empty() {
		cycles := c.v.simpleCycles(maxCyclesPerRound)
		if len(cycles) == 0 {
			// A non-empty peeled core always holds a cycle.
			break
		}

		for _, cyc := range cycles {
			idx, cost := c.cheapestEdge(cyc)
			if idx < 0 {
				continue
			}
			e := &c.g.edges[idx]
			slog.Debug("stashing link",
				"source", e.Source,
				"target", e.Target,
				"property", e.Link.Property,
				"kind", e.Link.Kind,
				"token", e.Link.Token,
				"cost", cost,
				"cycle_length", len(cyc),
			)
			c.v.dropLink(e.Link.Token)
			c.degrees.dropLink(e.Link.Token)
			stash.add(e.Link)
		}

		c.peel()
	}
	return stash
}

// cheapestEdge returns the minimum-cost live edge along cyc, or -1 if some
// step of the cycle has no live edge left (an earlier stash in the same
// round already broke it).
func (c *Core) cheapestEdge(cyc []int) (int, int) {
	v, d := c.v, c.degrees
	best, bestCost := -1, 0
	for i, u := range cyc {
		w := cyc[(i+1)%len(cyc)]
		step := false
		for _, idx := range v.g.outAdj[u] {
			if !v.live[idx] || v.g.edges[idx].dst != w {
				continue
			}
			step = true
			cost := d.out[u] + d.in[w]
			if best < 0 || cost < bestCost || (cost == bestCost && idx < best) {
				best, bestCost = idx, cost
			}
		}
		if !step {
			return -1, 0
		}
	}
	return best, bestCost
}
