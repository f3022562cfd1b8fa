// Package links extracts typed link descriptors from batch records.
//
// A direct link references exactly one record and yields one graph edge.
// A text link is one rich-text value referencing a set of records; it yields
// one edge per target and is stashed or kept as a whole.
package links

import (
	"github.com/roach88/graphload/internal/record"
)

// Kind distinguishes direct links from text links.
type Kind string

const (
	Direct Kind = "direct"
	Text   Kind = "text"
)

// Link is one reference occurrence inside a record.
type Link struct {
	Kind     Kind     `json:"kind"`
	Source   string   `json:"source"`
	Property string   `json:"property"`
	Targets  []string `json:"targets"`
	Token    string   `json:"token"`
}

// Result holds the links extracted from one or more records.
type Result struct {
	Direct []*Link
	Text   []*Link
}

// Len returns the total number of links.
func (r Result) Len() int {
	return len(r.Direct) + len(r.Text)
}

// Extract walks one record and returns its links.
//
// Every link occurrence gets a fresh token from gen, which is also written
// into the originating value so serialization can find and omit it later.
// Direct links whose target already is a remote handle and text values
// without markers produce no link.
func Extract(rec *record.Record, gen TokenGenerator) Result {
	var res Result
	for i := range rec.Values {
		v := &rec.Values[i]
		switch v.Kind {
		case record.KindLink:
			if v.Target == "" || record.IsHandle(v.Target) {
				continue
			}
			v.Token = gen.Generate()
			res.Direct = append(res.Direct, &Link{
				Kind:     Direct,
				Source:   rec.ID,
				Property: v.Property,
				Targets:  []string{v.Target},
				Token:    v.Token,
			})
		case record.KindText:
			targets := record.TextRefs(v.Text)
			if len(targets) == 0 {
				continue
			}
			v.Token = gen.Generate()
			res.Text = append(res.Text, &Link{
				Kind:     Text,
				Source:   rec.ID,
				Property: v.Property,
				Targets:  targets,
				Token:    v.Token,
			})
		}
	}
	return res
}

// ExtractAll extracts the links of every record in batch order.
// Records are modified in place.
func ExtractAll(records []record.Record, gen TokenGenerator) Result {
	var all Result
	for i := range records {
		res := Extract(&records[i], gen)
		all.Direct = append(all.Direct, res.Direct...)
		all.Text = append(all.Text, res.Text...)
	}
	return all
}
