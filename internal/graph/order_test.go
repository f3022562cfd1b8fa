package graph

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphload/internal/links"
	"github.com/roach88/graphload/internal/record"
)

func TestResolve_Golden(t *testing.T) {
	_, plan := resolve(t,
		rec("A", link("hasB", "B")),
		rec("B", text("body", "C", "D")),
		rec("C", link("hasA", "A")),
		rec("D"),
	)

	data, err := json.MarshalIndent(plan, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "worked_example", data)
}

func TestUploadOrder_RoundsKeepBatchOrder(t *testing.T) {
	// Three independent sinks listed out of dependency order.
	g := buildGraph(t,
		rec("top", link("a", "mid2"), link("b", "mid1")),
		rec("leaf2"),
		rec("mid1", link("a", "leaf1")),
		rec("mid2", link("a", "leaf2")),
		rec("leaf1"),
	)

	order, err := UploadOrder(g, newStash())

	require.NoError(t, err)
	assert.Equal(t, []string{"leaf2", "leaf1", "mid1", "mid2", "top"}, order)
}

func TestUploadOrder_CycleWithoutStashFails(t *testing.T) {
	g := buildGraph(t,
		rec("A", link("to", "B")),
		rec("B", link("to", "A")),
		rec("C"),
	)

	_, err := UploadOrder(g, newStash())

	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ErrCodeStillCyclic, ge.Code)
}

func TestCheckOrder_DetectsViolations(t *testing.T) {
	g := buildGraph(t, rec("A", link("to", "B")), rec("B"))

	assert.NoError(t, CheckOrder(g, &Plan{Order: []string{"B", "A"}}))
	assert.Error(t, CheckOrder(g, &Plan{Order: []string{"A", "B"}}))
	assert.Error(t, CheckOrder(g, &Plan{Order: []string{"B"}}))
	assert.Error(t, CheckOrder(g, &Plan{Order: []string{"B", "A", "A"}}))
	assert.NoError(t, CheckOrder(g, &Plan{Order: []string{"A", "B"}, Stash: map[string][]string{"A": {"t-1"}}}))
}

// randomBatch builds a batch of n records with random direct and text links.
func randomBatch(r *rand.Rand, n int) []record.Record {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("r%02d", i)
	}
	records := make([]record.Record, n)
	for i, id := range ids {
		records[i] = rec(id)
		for range r.IntN(3) {
			records[i].Values = append(records[i].Values, link("l", ids[r.IntN(n)]))
		}
		if r.IntN(3) == 0 {
			var targets []string
			for range 1 + r.IntN(3) {
				targets = append(targets, ids[r.IntN(n)])
			}
			records[i].Values = append(records[i].Values, text("t", targets...))
		}
	}
	return records
}

func TestResolve_RandomBatchesAreSoundAndComplete(t *testing.T) {
	r := rand.New(rand.NewPCG(20, 24))

	for i := range 200 {
		records := randomBatch(r, 2+r.IntN(12))
		t.Run(fmt.Sprintf("batch-%03d", i), func(t *testing.T) {
			found := links.ExtractAll(records, links.NewSequenceGenerator("t"))
			g, err := Build(record.IDs(records), found)
			require.NoError(t, err)

			plan, err := Resolve(g)
			require.NoError(t, err)
			require.NoError(t, CheckOrder(g, plan))
			assert.ElementsMatch(t, record.IDs(records), plan.Order)

			// Every stashed link is listed under its own source.
			for _, l := range plan.Stashed {
				assert.Contains(t, plan.Stash[l.Source], l.Token)
			}

			// Same input, same plan.
			again, err := Resolve(g)
			require.NoError(t, err)
			assert.Equal(t, plan, again)
		})
	}
}
