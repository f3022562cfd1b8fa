package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/graphload/internal/record"
	"github.com/roach88/graphload/internal/upload"
)

// createTestStore opens a store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestState returns a state in the middle of a run: A created, F
// failed, C and B pending, one stashed link.
func createTestState() *upload.State {
	return &upload.State{
		Config: upload.Config{
			Server:         "https://api.example.org",
			SaveDir:        ".graphload",
			InterruptAfter: 10,
			Fingerprint:    "abc123",
		},
		Pending: []record.Record{
			{ID: "C", Type: "Thing", Label: "c", Values: []record.Value{
				{Property: "hasA", Kind: record.KindLink, Target: "A", Token: "t-3"},
			}},
			{ID: "B", Type: "Thing", Label: "b", Values: []record.Value{
				{Property: "body", Kind: record.KindText, Text: `<a href="IRI:C:IRI">c</a> & more`, Token: "t-2"},
			}},
		},
		Resolved: map[string]string{"A": "http://rdf.test/A"},
		Failed:   []string{"F"},
		Stash: upload.Stash{Items: []upload.StashItem{{
			RecordID:   "A",
			RecordType: "Thing",
			Property:   "hasB",
			Kind:       record.KindLink,
			Token:      "t-1",
			Target:     "B",
		}}},
		Uncertain: "C",
		Total:     4,
		Attempts:  2,
	}
}
