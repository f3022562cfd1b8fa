package batch

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/graphload/internal/record"
)

// yamlBatch is the document layout of a YAML batch.
type yamlBatch struct {
	Records []record.Record `yaml:"records"`
}

func loadYAML(path string) ([]record.Record, []location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("failed to read batch file: %v", err)}
	}

	// Unknown fields are rejected to catch typos like "value:" for "values:".
	var doc yamlBatch
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("failed to parse YAML: %v", err), Where: path}
	}
	return doc.Records, nil, nil
}
