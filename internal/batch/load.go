// Package batch reads a batch of records from a YAML, CUE or Excel file and
// checks its structure.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/graphload/internal/record"
)

// Load reads the batch at path. The format follows the file extension:
// .yaml/.yml, .cue or .xlsx.
//
// Structural problems are returned as a joined error of *LoadError values.
func Load(path string) ([]record.Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("batch file not found: %s", path)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}

	var (
		records []record.Record
		pos     []location
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		records, pos, err = loadYAML(path)
	case ".cue":
		records, pos, err = loadCUE(path)
	case ".xlsx":
		records, pos, err = loadExcel(path)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported batch format %q", ext)}
	}
	if err != nil {
		return nil, err
	}

	if err := validate(records, pos); err != nil {
		return nil, err
	}
	return records, nil
}

// location points at the source of one record.
type location struct {
	pos   token.Pos
	where string
}

func (l location) errorf(code, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Message: fmt.Sprintf(format, args...), Pos: l.pos, Where: l.where}
}

// Validate checks ids, types and values of records.
func Validate(records []record.Record) error {
	return validate(records, nil)
}

// validate is Validate with the source location of each record, if known.
func validate(records []record.Record, pos []location) error {
	var errs []error
	seen := make(map[string]bool, len(records))

	for i, r := range records {
		loc := location{where: fmt.Sprintf("records[%d]", i)}
		if i < len(pos) {
			loc = pos[i]
		}

		if strings.TrimSpace(r.ID) == "" {
			errs = append(errs, loc.errorf(ErrCodeMissingID, "record has no id"))
		} else if seen[r.ID] {
			errs = append(errs, loc.errorf(ErrCodeDuplicateID, "duplicate record id %q", r.ID))
		}
		seen[r.ID] = true

		if strings.TrimSpace(r.Type) == "" {
			errs = append(errs, loc.errorf(ErrCodeMissingType, "record %q has no type", r.ID))
		}

		for _, v := range r.Values {
			if !record.ValidKinds[v.Kind] {
				errs = append(errs, loc.errorf(ErrCodeInvalidKind, "record %q property %q: unknown kind %q", r.ID, v.Property, v.Kind))
				continue
			}
			if v.Kind == record.KindLink && strings.TrimSpace(v.Target) == "" {
				errs = append(errs, loc.errorf(ErrCodeMissingTarget, "record %q property %q: link has no target", r.ID, v.Property))
			}
		}
	}
	return errors.Join(errs...)
}
