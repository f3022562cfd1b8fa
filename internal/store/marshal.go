package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/graphload/internal/record"
)

// marshalRecord converts a record to JSON TEXT for storage.
// HTML escaping is disabled so markup in text values is stored as is.
func marshalRecord(r record.Record) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("marshal record %q: %w", r.ID, err)
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

func unmarshalRecord(data string) (record.Record, error) {
	var r record.Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return record.Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return r, nil
}
