package graph

// view is a mutable working copy of a Graph: a subset of its nodes and
// edges, with degrees kept current as both shrink.
type view struct {
	g     *Graph
	alive []bool
	live  []bool
	out   []int
	in    []int
	size  int
}

// newView starts with every node and every edge for which skip returns false.
func newView(g *Graph, skip func(e *Edge) bool) *view {
	v := &view{
		g:     g,
		alive: make([]bool, len(g.nodes)),
		live:  make([]bool, len(g.edges)),
		out:   make([]int, len(g.nodes)),
		in:    make([]int, len(g.nodes)),
		size:  len(g.nodes),
	}
	for n := range v.alive {
		v.alive[n] = true
	}
	for i := range g.edges {
		e := &g.edges[i]
		if skip != nil && skip(e) {
			continue
		}
		v.live[i] = true
		v.out[e.src]++
		v.in[e.dst]++
	}
	return v
}

func (v *view) removeEdge(idx int) {
	if !v.live[idx] {
		return
	}
	v.live[idx] = false
	e := &v.g.edges[idx]
	v.out[e.src]--
	v.in[e.dst]--
}

func (v *view) removeNode(n int) {
	if !v.alive[n] {
		return
	}
	for _, idx := range v.g.outAdj[n] {
		v.removeEdge(idx)
	}
	for _, idx := range v.g.inAdj[n] {
		v.removeEdge(idx)
	}
	v.alive[n] = false
	v.size--
}

// dropLink removes every live edge owned by the link with the given token,
// including edges whose targets lie outside the cycle being broken.
func (v *view) dropLink(token string) {
	for i := range v.g.edges {
		if v.g.edges[i].Link.Token == token {
			v.removeEdge(i)
		}
	}
}

// nodes returns the alive nodes in batch order.
func (v *view) nodes() []int {
	out := make([]int, 0, v.size)
	for n, ok := range v.alive {
		if ok {
			out = append(out, n)
		}
	}
	return out
}

// neighbors returns the alive nodes adjacent to n over live edges.
func (v *view) neighbors(n int) []int {
	var out []int
	for _, idx := range v.g.outAdj[n] {
		if v.live[idx] {
			out = append(out, v.g.edges[idx].dst)
		}
	}
	for _, idx := range v.g.inAdj[n] {
		if v.live[idx] {
			out = append(out, v.g.edges[idx].src)
		}
	}
	return out
}

// successors returns the distinct targets of n's live out-edges that
// satisfy keep, in edge order.
func (v *view) successors(n int, keep func(int) bool) []int {
	var out []int
	seen := make(map[int]bool)
	for _, idx := range v.g.outAdj[n] {
		if !v.live[idx] {
			continue
		}
		w := v.g.edges[idx].dst
		if seen[w] || !keep(w) {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
