package graph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/graphload/internal/links"
)

// Edge is one physical edge of the multigraph. A text link with k targets
// owns k edges sharing its token.
type Edge struct {
	// Index is the edge's position in enumeration order: direct links
	// first, then text links, each in batch order.
	Index  int
	Source string
	Target string
	Link   *links.Link

	src, dst int
}

// Graph is a directed multigraph over record ids. Parallel edges and
// self-loops are allowed. A Graph is never modified after Build.
type Graph struct {
	nodes  []string
	pos    map[string]int
	edges  []Edge
	outAdj [][]int
	inAdj  [][]int
}

// Build assembles every record id and every link into a graph.
//
// ids must contain all records, including those without links. Every link
// target must be one of ids; all violations are reported together as a
// joined error and no graph is returned.
func Build(ids []string, found links.Result) (*Graph, error) {
	g := &Graph{
		nodes:  slices.Clone(ids),
		pos:    make(map[string]int, len(ids)),
		outAdj: make([][]int, len(ids)),
		inAdj:  make([][]int, len(ids)),
	}

	var errs []error
	for i, id := range ids {
		if _, dup := g.pos[id]; dup {
			errs = append(errs, &GraphError{
				Code:    ErrCodeDuplicateID,
				Message: fmt.Sprintf("record id %q appears more than once", id),
			})
			continue
		}
		g.pos[id] = i
	}

	for _, l := range found.Direct {
		errs = append(errs, g.addLink(l)...)
	}
	for _, l := range found.Text {
		errs = append(errs, g.addLink(l)...)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return g, nil
}

func (g *Graph) addLink(l *links.Link) []error {
	src, ok := g.pos[l.Source]
	if !ok {
		return []error{&GraphError{
			Code:     ErrCodeUnknownSource,
			Message:  fmt.Sprintf("link owned by %q, which is not in the batch", l.Source),
			Source:   l.Source,
			Property: l.Property,
		}}
	}

	var errs []error
	for _, target := range l.Targets {
		dst, ok := g.pos[target]
		if !ok {
			errs = append(errs, unknownTarget(l.Source, l.Property, target))
			continue
		}
		idx := len(g.edges)
		g.edges = append(g.edges, Edge{
			Index:  idx,
			Source: l.Source,
			Target: target,
			Link:   l,
			src:    src,
			dst:    dst,
		})
		g.outAdj[src] = append(g.outAdj[src], idx)
		g.inAdj[dst] = append(g.inAdj[dst], idx)
	}
	return errs
}

// Nodes returns the record ids in batch order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.nodes)
}

// Edges returns all edges in enumeration order.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

func (g *Graph) names(idx []int) []string {
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = g.nodes[n]
	}
	return out
}
