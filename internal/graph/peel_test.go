package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/graphload/internal/record"
)

func TestIsolateCore_Acyclic(t *testing.T) {
	g := buildGraph(t,
		rec("A", link("to", "B")),
		rec("B", link("to", "C")),
		rec("C"),
		rec("D"),
	)

	core := IsolateCore(g)

	assert.True(t, core.Empty())
	assert.Empty(t, core.Nodes())
	assert.Equal(t, []string{"A", "C", "D", "B"}, core.Removed())
}

func TestIsolateCore_KeepsCycleDropsTails(t *testing.T) {
	// X -> A -> B -> A, B -> Y
	g := buildGraph(t,
		rec("X", link("to", "A")),
		rec("A", link("to", "B")),
		rec("B", link("back", "A"), link("out", "Y")),
		rec("Y"),
	)

	core := IsolateCore(g)

	assert.Equal(t, []string{"A", "B"}, core.Nodes())
	assert.ElementsMatch(t, []string{"X", "Y"}, core.Removed())
	for _, e := range core.Edges() {
		assert.Contains(t, []string{"A", "B"}, e.Source)
		assert.Contains(t, []string{"A", "B"}, e.Target)
	}
}

func TestIsolateCore_SelfLoopStays(t *testing.T) {
	g := buildGraph(t, rec("A", link("self", "A")), rec("B"))

	core := IsolateCore(g)

	assert.Equal(t, []string{"A"}, core.Nodes())
	assert.Equal(t, []string{"B"}, core.Removed())
}

func TestIsolateCore_EmptyGraph(t *testing.T) {
	g := buildGraph(t)
	core := IsolateCore(g)
	assert.True(t, core.Empty())
	assert.Empty(t, core.Removed())
}

func TestIsolateCore_LongChainDoesNotRecurse(t *testing.T) {
	const n = 50000
	records := make([]record.Record, n)
	for i := range records {
		records[i] = rec(fmt.Sprintf("r%d", i))
		if i > 0 {
			records[i].Values = []record.Value{link("prev", fmt.Sprintf("r%d", i-1))}
		}
	}
	g := buildGraph(t, records...)

	core := IsolateCore(g)

	assert.True(t, core.Empty())
	assert.Len(t, core.Removed(), n)
}
