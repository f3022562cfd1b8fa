// Package serialize renders records into the JSON payload the remote
// service creates resources from.
package serialize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/graphload/internal/record"
)

// UnresolvedError reports references that have no handle yet.
type UnresolvedError struct {
	RecordID string
	Property string
	IDs      []string
}

// Error implements the error interface.
func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("record %q property %q references records that were not created: %s",
		e.RecordID, e.Property, strings.Join(e.IDs, ", "))
}

// Resource is the create payload.
type Resource struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	Label  string  `json:"label"`
	Asset  string  `json:"asset,omitempty"`
	Values []Value `json:"values"`
}

// Value is one serialized property value. Links carry the target handle,
// text carries markup with markers replaced by handles.
type Value struct {
	Property string      `json:"property"`
	Kind     record.Kind `json:"kind"`
	Target   string      `json:"target,omitempty"`
	Text     string      `json:"text,omitempty"`
}

// JSON is the default serializer.
type JSON struct{}

// Serialize implements upload.Serializer.
//
// Values whose token is in omit are left out. Any other reference must
// already have a handle in resolved.
func (JSON) Serialize(rec record.Record, resolved map[string]string, omit map[string]bool, asset string) ([]byte, error) {
	res := Resource{
		ID:     rec.ID,
		Type:   nfc(rec.Type),
		Label:  nfc(rec.Label),
		Asset:  asset,
		Values: make([]Value, 0, len(rec.Values)),
	}

	for _, v := range rec.Values {
		if v.Token != "" && omit[v.Token] {
			continue
		}
		out := Value{Property: v.Property, Kind: v.Kind}
		switch v.Kind {
		case record.KindLink:
			target, ok := lookup(v.Target, resolved)
			if !ok {
				return nil, &UnresolvedError{RecordID: rec.ID, Property: v.Property, IDs: []string{v.Target}}
			}
			out.Target = target
		case record.KindText:
			text, missing := record.RewriteRefs(v.Text, func(id string) (string, bool) {
				h, ok := resolved[id]
				return h, ok
			})
			if len(missing) > 0 {
				return nil, &UnresolvedError{RecordID: rec.ID, Property: v.Property, IDs: missing}
			}
			out.Text = nfc(text)
		default:
			out.Text = nfc(v.Text)
		}
		res.Values = append(res.Values, out)
	}

	return marshal(res)
}

func lookup(target string, resolved map[string]string) (string, bool) {
	if record.IsHandle(target) {
		return target, true
	}
	h, ok := resolved[target]
	return h, ok
}

func nfc(s string) string {
	return norm.NFC.String(s)
}

// marshal encodes without HTML escaping so markup in text values survives
// unchanged.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
