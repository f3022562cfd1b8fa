package graph

// Core is the part of a graph that may still contain cycles, together with
// the nodes peeled away on the way there.
type Core struct {
	g       *Graph
	v       *view
	removed []int

	// degrees covers the whole graph minus the stashed links. Peeling
	// never touches it.
	degrees *view
}

// IsolateCore strips every node that cannot lie on a cycle: nodes with
// in-degree 0 or out-degree 0, repeated until none is left.
//
// Removal order is kept. The peel uses a worklist, so it runs in time linear
// in the size of the graph and never recurses.
func IsolateCore(g *Graph) *Core {
	c := &Core{g: g, v: newView(g, nil), degrees: newView(g, nil)}
	c.peel()
	return c
}

// peel removes nodes until every alive node has both an incoming and an
// outgoing live edge.
func (c *Core) peel() {
	v := c.v
	removable := func(n int) bool { return v.in[n] == 0 || v.out[n] == 0 }

	queued := make([]bool, len(v.alive))
	var queue []int
	for _, n := range v.nodes() {
		if removable(n) {
			queue = append(queue, n)
			queued[n] = true
		}
	}

	// Degrees only decrease, so a queued node stays removable.
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		adjacent := v.neighbors(n)
		v.removeNode(n)
		c.removed = append(c.removed, n)

		for _, m := range adjacent {
			if v.alive[m] && !queued[m] && removable(m) {
				queue = append(queue, m)
				queued[m] = true
			}
		}
	}
}

// Nodes returns the ids still in the core, in batch order.
func (c *Core) Nodes() []string {
	return c.g.names(c.v.nodes())
}

// Removed returns the peeled ids in removal order.
func (c *Core) Removed() []string {
	return c.g.names(c.removed)
}

// Empty reports whether the core has no nodes left.
func (c *Core) Empty() bool {
	return c.v.size == 0
}

// Edges returns the edges still in the core, in enumeration order.
func (c *Core) Edges() []Edge {
	var out []Edge
	for i, ok := range c.v.live {
		if ok {
			out = append(out, c.g.edges[i])
		}
	}
	return out
}
