package graph

import "slices"

// maxCyclesPerRound bounds cycle enumeration in one breaker round. Dense
// cores can hold exponentially many simple cycles; the breaker re-enumerates
// after every round, so a bound only spreads the work over more rounds.
const maxCyclesPerRound = 4096

// Cycles returns up to limit simple cycles of the core. Each cycle lists its
// nodes starting at the one earliest in batch order; a self-loop is a cycle
// of one node.
func (c *Core) Cycles(limit int) [][]string {
	cycles := c.v.simpleCycles(limit)
	out := make([][]string, len(cycles))
	for i, cyc := range cycles {
		out[i] = c.g.names(cyc)
	}
	return out
}

// simpleCycles enumerates simple cycles component by component.
//
// Within a strongly connected component, cycles are grouped by their
// earliest node s: a depth-first search from s through later nodes of the
// component reports every path that closes back on s. Each simple cycle is
// therefore found exactly once.
func (v *view) simpleCycles(limit int) [][]int {
	var cycles [][]int
	for _, comp := range v.cyclicComponents() {
		slices.Sort(comp)
		member := make(map[int]bool, len(comp))
		for _, n := range comp {
			member[n] = true
		}

		for _, s := range comp {
			found := v.cyclesThrough(s, func(w int) bool { return member[w] && w >= s }, limit-len(cycles))
			cycles = append(cycles, found...)
			if len(cycles) >= limit {
				return cycles
			}
		}
	}
	return cycles
}

type dfsFrame struct {
	node int
	succ []int
	next int
}

// cyclesThrough finds simple cycles starting and ending at s using only
// nodes accepted by keep. The search is iterative.
func (v *view) cyclesThrough(s int, keep func(int) bool, limit int) [][]int {
	var cycles [][]int
	onPath := map[int]bool{s: true}
	path := []int{s}
	stack := []dfsFrame{{node: s, succ: v.successors(s, keep)}}

	for len(stack) > 0 && len(cycles) < limit {
		top := &stack[len(stack)-1]
		if top.next >= len(top.succ) {
			delete(onPath, top.node)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
			continue
		}

		w := top.succ[top.next]
		top.next++

		switch {
		case w == s:
			cycles = append(cycles, slices.Clone(path))
		case onPath[w]:
		default:
			onPath[w] = true
			path = append(path, w)
			stack = append(stack, dfsFrame{node: w, succ: v.successors(w, keep)})
		}
	}
	return cycles
}

// cyclicComponents returns the strongly connected components of the view
// that contain a cycle: more than one node, or a single node with a
// self-loop. Components are found with Tarjan's algorithm, driven by an
// explicit stack of dfsFrames instead of recursion.
func (v *view) cyclicComponents() [][]int {
	var (
		index   = 0
		stack   []int
		indices = make(map[int]int)
		lowlink = make(map[int]int)
		onStack = make(map[int]bool)
		sccs    [][]int
	)
	all := func(int) bool { return true }

	visit := func(n int) dfsFrame {
		indices[n] = index
		lowlink[n] = index
		index++
		stack = append(stack, n)
		onStack[n] = true
		return dfsFrame{node: n, succ: v.successors(n, all)}
	}

	for _, root := range v.nodes() {
		if _, visited := indices[root]; visited {
			continue
		}
		frames := []dfsFrame{visit(root)}

		for len(frames) > 0 {
			top := &frames[len(frames)-1]
			n := top.node

			if top.next < len(top.succ) {
				w := top.succ[top.next]
				top.next++
				if _, visited := indices[w]; !visited {
					frames = append(frames, visit(w))
				} else if onStack[w] {
					lowlink[n] = min(lowlink[n], indices[w])
				}
				continue
			}

			// All successors done: close n's component if it is a root,
			// then hand its lowlink to the caller frame.
			if lowlink[n] == indices[n] {
				var scc []int
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					scc = append(scc, w)
					if w == n {
						break
					}
				}
				if len(scc) > 1 || v.hasSelfLoop(scc[0]) {
					sccs = append(sccs, scc)
				}
			}
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].node
				lowlink[parent] = min(lowlink[parent], lowlink[n])
			}
		}
	}

	// Tarjan emits components in reverse topological order; report them by
	// their earliest node instead so enumeration follows batch order.
	slices.SortFunc(sccs, func(a, b []int) int { return slices.Min(a) - slices.Min(b) })
	return sccs
}

func (v *view) hasSelfLoop(n int) bool {
	for _, idx := range v.g.outAdj[n] {
		if v.live[idx] && v.g.edges[idx].dst == n {
			return true
		}
	}
	return false
}
