package upload

import (
	"fmt"
	"slices"

	"github.com/roach88/graphload/internal/graph"
	"github.com/roach88/graphload/internal/record"
)

// Config is the part of the run configuration that is saved with the state.
type Config struct {
	Server         string `json:"server"`
	SaveDir        string `json:"save_dir"`
	InterruptAfter int    `json:"interrupt_after"` // 0 = never stop early
	Fingerprint    string `json:"fingerprint"`
}

// StashItem is one deferred link occurrence.
type StashItem struct {
	RecordID   string      `json:"record_id"`
	RecordType string      `json:"record_type"`
	Property   string      `json:"property"`
	Kind       record.Kind `json:"kind"`
	Token      string      `json:"token"`
	Target     string      `json:"target,omitempty"` // record.KindLink
	Text       string      `json:"text,omitempty"`   // record.KindText, markers unresolved
}

// Stash is the ordered list of deferred link occurrences.
type Stash struct {
	Items []StashItem `json:"items"`
}

// Len returns the number of items.
func (s *Stash) Len() int {
	return len(s.Items)
}

// Tokens returns the tokens stashed for one record, as the omit set handed
// to the serializer.
func (s *Stash) Tokens(id string) map[string]bool {
	var out map[string]bool
	for _, it := range s.Items {
		if it.RecordID != id {
			continue
		}
		if out == nil {
			out = make(map[string]bool)
		}
		out[it.Token] = true
	}
	return out
}

// State is everything needed to continue a run: pending records in upload
// order, created handles, failures, the remaining stash and the config.
type State struct {
	Config   Config            `json:"config"`
	Pending  []record.Record   `json:"pending"`
	Resolved map[string]string `json:"resolved"`
	Failed   []string          `json:"failed"`
	Stash    Stash             `json:"stash"`

	// Uncertain is the id of a record whose creation was in flight when the
	// previous run aborted. It is still the first pending record.
	Uncertain string `json:"uncertain,omitempty"`

	// Total is the number of records in the batch.
	Total int `json:"total"`

	// Attempts counts record attempts over all invocations.
	Attempts int `json:"attempts"`
}

// NewState orders the records by plan and materializes its stash.
//
// Every record must appear in the plan order and every stashed token must
// belong to a value of its record.
func NewState(records []record.Record, plan *graph.Plan, cfg Config) (*State, error) {
	byID := make(map[string]record.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	if len(plan.Order) != len(byID) {
		return nil, fmt.Errorf("new state: plan orders %d records, batch has %d", len(plan.Order), len(byID))
	}

	st := &State{
		Config:   cfg,
		Pending:  make([]record.Record, 0, len(plan.Order)),
		Resolved: make(map[string]string),
		Failed:   []string{},
		Stash:    Stash{Items: []StashItem{}},
		Total:    len(plan.Order),
	}

	for _, id := range plan.Order {
		r, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("new state: plan references unknown record %q", id)
		}
		st.Pending = append(st.Pending, r)

		for _, token := range plan.Stash[id] {
			v, ok := r.ValueByToken(token)
			if !ok {
				return nil, fmt.Errorf("new state: record %q has no value with token %q", id, token)
			}
			st.Stash.Items = append(st.Stash.Items, StashItem{
				RecordID:   r.ID,
				RecordType: r.Type,
				Property:   v.Property,
				Kind:       v.Kind,
				Token:      token,
				Target:     v.Target,
				Text:       v.Text,
			})
		}
	}
	return st, nil
}

// Created returns the number of created records.
func (st *State) Created() int {
	return len(st.Resolved)
}

// SkipUncertain marks the record of unknown status as failed and drops it
// from the pending list. The operator has checked that it either exists
// already or should not be created.
func (st *State) SkipUncertain() error {
	if st.Uncertain == "" {
		return nil
	}
	if len(st.Pending) == 0 || st.Pending[0].ID != st.Uncertain {
		return fmt.Errorf("skip %q: not the first pending record", st.Uncertain)
	}
	st.Pending = st.Pending[1:]
	st.Failed = append(st.Failed, st.Uncertain)
	st.Uncertain = ""
	return nil
}

// RetryUncertain keeps the record of unknown status pending so that it is
// attempted again.
func (st *State) RetryUncertain() {
	st.Uncertain = ""
}

// PendingIDs returns the ids of pending records in order.
func (st *State) PendingIDs() []string {
	return record.IDs(st.Pending)
}

// Clone returns a deep copy of the state.
func (st *State) Clone() *State {
	c := *st
	c.Pending = slices.Clone(st.Pending)
	for i := range c.Pending {
		c.Pending[i].Values = slices.Clone(c.Pending[i].Values)
	}
	c.Resolved = make(map[string]string, len(st.Resolved))
	for k, v := range st.Resolved {
		c.Resolved[k] = v
	}
	c.Failed = slices.Clone(st.Failed)
	c.Stash.Items = slices.Clone(st.Stash.Items)
	return &c
}
