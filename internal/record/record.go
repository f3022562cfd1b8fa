package record

import "strings"

// Kind tags a property value.
type Kind string

const (
	// KindPlain is a value without references.
	KindPlain Kind = "plain"

	// KindLink is a direct reference to exactly one record.
	KindLink Kind = "link"

	// KindText is rich text that may embed references to several records.
	KindText Kind = "text"
)

// ValidKinds lists the accepted value kinds.
var ValidKinds = map[Kind]bool{
	KindPlain: true,
	KindLink:  true,
	KindText:  true,
}

// Value is one property value of a record.
type Value struct {
	Property string `json:"property" yaml:"property"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	Target   string `json:"target,omitempty" yaml:"target,omitempty"` // KindLink only
	Text     string `json:"text,omitempty" yaml:"text,omitempty"`     // KindPlain and KindText

	// Token is the correlation token written by link extraction. It ties
	// this exact occurrence to an edge of the dependency graph.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
}

// Record is one data item to be created remotely.
type Record struct {
	ID     string  `json:"id" yaml:"id"`
	Type   string  `json:"type" yaml:"type"`
	Label  string  `json:"label" yaml:"label"`
	Asset  string  `json:"asset,omitempty" yaml:"asset,omitempty"` // path of an attached binary
	Values []Value `json:"values,omitempty" yaml:"values,omitempty"`
}

// ValueByToken returns the value carrying the given correlation token.
func (r *Record) ValueByToken(token string) (*Value, bool) {
	if token == "" {
		return nil, false
	}
	for i := range r.Values {
		if r.Values[i].Token == token {
			return &r.Values[i], true
		}
	}
	return nil, false
}

// IsHandle reports whether a link target already is a remote handle
// rather than the id of a record in the batch.
func IsHandle(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// IDs returns the record ids in batch order.
func IDs(records []Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
