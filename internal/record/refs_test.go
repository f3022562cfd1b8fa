package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextRefs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"no markers", "plain prose", nil},
		{"single", `see <a class="salsah-link" href="IRI:book_1:IRI">book</a>`, []string{"book_1"}},
		{
			"duplicates count once",
			`<a href="IRI:a:IRI">x</a> and <a href="IRI:b:IRI">y</a> and <a href="IRI:a:IRI">z</a>`,
			[]string{"a", "b"},
		},
		{"external link ignored", `<a href="https://example.org">x</a>`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TextRefs(tt.text))
		})
	}
}

func TestRewriteRefs(t *testing.T) {
	resolved := map[string]string{"a": "http://rdf.example/a"}
	lookup := func(id string) (string, bool) {
		h, ok := resolved[id]
		return h, ok
	}

	out, missing := RewriteRefs(`<a href="IRI:a:IRI">1</a><a href="IRI:b:IRI">2</a><a href="IRI:b:IRI">3</a>`, lookup)

	assert.Equal(t, `<a href="http://rdf.example/a">1</a><a href="IRI:b:IRI">2</a><a href="IRI:b:IRI">3</a>`, out)
	assert.Equal(t, []string{"b"}, missing)
}

func TestRewriteRefs_AllResolved(t *testing.T) {
	out, missing := RewriteRefs(`x IRI:a:IRI y`, func(id string) (string, bool) { return "H-" + id, true })
	assert.Equal(t, "x H-a y", out)
	assert.Empty(t, missing)
}

func TestIsHandle(t *testing.T) {
	assert.True(t, IsHandle("http://rdfh.ch/0001/abc"))
	assert.True(t, IsHandle("https://rdfh.ch/0001/abc"))
	assert.False(t, IsHandle("book_1"))
	assert.False(t, IsHandle(""))
}

func TestValueByToken(t *testing.T) {
	rec := Record{ID: "a", Values: []Value{
		{Property: "p", Kind: KindPlain, Text: "x"},
		{Property: "q", Kind: KindLink, Target: "b", Token: "tok-1"},
	}}

	v, ok := rec.ValueByToken("tok-1")
	assert.True(t, ok)
	assert.Equal(t, "q", v.Property)

	_, ok = rec.ValueByToken("")
	assert.False(t, ok, "empty token must never match untokenized values")
}
