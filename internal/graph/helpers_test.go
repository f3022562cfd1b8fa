package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/graphload/internal/links"
	"github.com/roach88/graphload/internal/record"
)

func rec(id string, values ...record.Value) record.Record {
	return record.Record{ID: id, Type: "Thing", Label: id, Values: values}
}

func link(property, target string) record.Value {
	return record.Value{Property: property, Kind: record.KindLink, Target: target}
}

func text(property string, targets ...string) record.Value {
	var b strings.Builder
	b.WriteString("<p>")
	for _, id := range targets {
		b.WriteString(`<a class="salsah-link" href="` + record.Marker(id) + `">` + id + `</a>`)
	}
	b.WriteString("</p>")
	return record.Value{Property: property, Kind: record.KindText, Text: b.String()}
}

// buildGraph extracts links with tokens t-1, t-2, ... and builds the graph.
func buildGraph(t *testing.T, records ...record.Record) *Graph {
	t.Helper()
	found := links.ExtractAll(records, links.NewSequenceGenerator("t"))
	g, err := Build(record.IDs(records), found)
	require.NoError(t, err)
	return g
}

func resolve(t *testing.T, records ...record.Record) (*Graph, *Plan) {
	t.Helper()
	g := buildGraph(t, records...)
	plan, err := Resolve(g)
	require.NoError(t, err)
	require.NoError(t, CheckOrder(g, plan))
	return g, plan
}
