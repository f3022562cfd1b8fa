package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphload/internal/record"
)

func TestExtract_NoReferences(t *testing.T) {
	rec := record.Record{ID: "a", Values: []record.Value{
		{Property: "title", Kind: record.KindPlain, Text: "hello"},
		{Property: "body", Kind: record.KindText, Text: "<p>no links</p>"},
	}}

	res := Extract(&rec, NewFixedGenerator())

	assert.Empty(t, res.Direct)
	assert.Empty(t, res.Text)
	assert.Empty(t, rec.Values[1].Token, "text without markers is not tagged")
}

func TestExtract_DirectAndText(t *testing.T) {
	rec := record.Record{ID: "b", Values: []record.Value{
		{Property: "author", Kind: record.KindLink, Target: "a"},
		{Property: "body", Kind: record.KindText, Text: `IRI:c:IRI and IRI:d:IRI and IRI:c:IRI`},
	}}

	res := Extract(&rec, NewFixedGenerator("t1", "t2"))

	require.Len(t, res.Direct, 1)
	require.Len(t, res.Text, 1)
	assert.Equal(t, &Link{Kind: Direct, Source: "b", Property: "author", Targets: []string{"a"}, Token: "t1"}, res.Direct[0])
	assert.Equal(t, []string{"c", "d"}, res.Text[0].Targets)
	assert.Equal(t, "t2", res.Text[0].Token)

	assert.Equal(t, "t1", rec.Values[0].Token)
	assert.Equal(t, "t2", rec.Values[1].Token)
}

func TestExtract_HandleTargetIsNotALink(t *testing.T) {
	rec := record.Record{ID: "a", Values: []record.Value{
		{Property: "seeAlso", Kind: record.KindLink, Target: "http://rdfh.ch/0001/xyz"},
	}}

	res := Extract(&rec, NewFixedGenerator())

	assert.Zero(t, res.Len())
}

func TestExtract_TokensAreFresh(t *testing.T) {
	rec := record.Record{ID: "a", Values: []record.Value{
		{Property: "p", Kind: record.KindLink, Target: "b", Token: "stale"},
	}}

	Extract(&rec, NewFixedGenerator("fresh"))

	assert.Equal(t, "fresh", rec.Values[0].Token)
}

func TestExtractAll_DirectBeforeText(t *testing.T) {
	records := []record.Record{
		{ID: "a", Values: []record.Value{{Property: "t", Kind: record.KindText, Text: "IRI:b:IRI"}}},
		{ID: "b", Values: []record.Value{{Property: "l", Kind: record.KindLink, Target: "a"}}},
	}

	res := ExtractAll(records, NewSequenceGenerator("tok"))

	require.Len(t, res.Direct, 1)
	require.Len(t, res.Text, 1)
	assert.Equal(t, "b", res.Direct[0].Source)
	assert.Equal(t, "a", res.Text[0].Source)
	assert.Equal(t, "tok-1", records[0].Values[0].Token)
	assert.Equal(t, "tok-2", records[1].Values[0].Token)
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestFixedGenerator_PanicsWhenExhausted(t *testing.T) {
	gen := NewFixedGenerator("only")
	assert.Equal(t, "only", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
