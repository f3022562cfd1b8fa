package graph

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/graphload/internal/links"
)

// Plan is the resolved upload plan of a batch.
type Plan struct {
	// Order lists every record id exactly once. A record comes after every
	// record it references through a link that is not stashed.
	Order []string `json:"order"`

	// Stash maps a record id to the tokens withheld from its creation.
	Stash map[string][]string `json:"stash"`

	// Stashed lists the withheld links in the order they were chosen.
	Stashed []*links.Link `json:"stashed"`

	// Peeled lists the ids removed while isolating the cyclic core.
	Peeled []string `json:"peeled"`
}

// Resolve runs core isolation, cycle breaking and ordering on g.
func Resolve(g *Graph) (*Plan, error) {
	core := IsolateCore(g)
	slog.Debug("core isolated", "records", g.Len(), "peeled", len(core.removed), "core", core.v.size)

	stash := BreakCycles(core)

	order, err := UploadOrder(g, stash)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Order:   order,
		Stash:   stash.Tokens,
		Stashed: stash.Links,
		Peeled:  core.Removed(),
	}
	if plan.Stashed == nil {
		plan.Stashed = []*links.Link{}
	}
	slog.Debug("upload plan ready", "records", len(order), "stashed_links", stash.Len())
	return plan, nil
}

// UploadOrder peels sinks off the graph without the stashed links. Every
// round takes all nodes whose remaining out-degree is 0, in batch order;
// later rounds are appended after earlier ones.
//
// Returns a STILL_CYCLIC error if nodes remain that never become sinks.
func UploadOrder(g *Graph, stash *Stash) ([]string, error) {
	v := newView(g, func(e *Edge) bool { return stash.Has(e.Link.Token) })

	marked := make([]bool, len(g.nodes))
	var round []int
	for _, n := range v.nodes() {
		if v.out[n] == 0 {
			round = append(round, n)
			marked[n] = true
		}
	}

	order := make([]int, 0, len(g.nodes))
	for len(round) > 0 {
		order = append(order, round...)

		var next []int
		for _, n := range round {
			for _, idx := range g.inAdj[n] {
				if !v.live[idx] {
					continue
				}
				src := g.edges[idx].src
				v.removeEdge(idx)
				if v.alive[src] && !marked[src] && v.out[src] == 0 {
					next = append(next, src)
					marked[src] = true
				}
			}
			v.removeNode(n)
		}
		slices.Sort(next)
		round = next
	}

	if v.size > 0 {
		return nil, &GraphError{
			Code:    ErrCodeStillCyclic,
			Message: fmt.Sprintf("%d records still depend on each other: %v", v.size, g.names(v.nodes())),
		}
	}
	return g.names(order), nil
}

// CheckOrder verifies a plan against its graph: every id appears exactly
// once and every edge that is not stashed points at an earlier record.
func CheckOrder(g *Graph, p *Plan) error {
	position := make(map[string]int, len(p.Order))
	for i, id := range p.Order {
		if _, dup := position[id]; dup {
			return fmt.Errorf("record %q appears twice in the upload order", id)
		}
		position[id] = i
	}
	for _, id := range g.nodes {
		if _, ok := position[id]; !ok {
			return fmt.Errorf("record %q is missing from the upload order", id)
		}
	}
	if len(position) != len(g.nodes) {
		return fmt.Errorf("upload order has %d records, graph has %d", len(position), len(g.nodes))
	}

	stashed := make(map[string]bool)
	for _, tokens := range p.Stash {
		for _, t := range tokens {
			stashed[t] = true
		}
	}
	for _, e := range g.edges {
		if stashed[e.Link.Token] {
			continue
		}
		if position[e.Target] >= position[e.Source] {
			return fmt.Errorf("edge %s -> %s (token %s) is not satisfied by the upload order", e.Source, e.Target, e.Link.Token)
		}
	}
	return nil
}
