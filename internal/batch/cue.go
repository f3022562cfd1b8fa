package batch

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/graphload/internal/record"
)

// loadCUE evaluates a single CUE file and decodes its "records" list.
// Definitions and references inside the file are resolved by CUE, so a
// batch may share defaults between records.
func loadCUE(path string) ([]record.Record, []location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("failed to read batch file: %v", err)}
	}

	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	list := value.LookupPath(cue.ParsePath("records"))
	if !list.Exists() {
		return nil, nil, &LoadError{Code: ErrCodeParse, Message: "no records field", Pos: value.Pos()}
	}
	iter, err := list.List()
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("records must be a list: %v", err), Pos: list.Pos()}
	}

	var (
		records []record.Record
		pos     []location
	)
	for i := 0; iter.Next(); i++ {
		v := iter.Value()
		if err := v.Validate(cue.Concrete(true)); err != nil {
			return nil, nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("records[%d]: %v", i, err), Pos: v.Pos()}
		}
		var r record.Record
		if err := v.Decode(&r); err != nil {
			return nil, nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("records[%d]: %v", i, err), Pos: v.Pos()}
		}
		records = append(records, r)
		pos = append(pos, location{pos: v.Pos(), where: fmt.Sprintf("records[%d]", i)})
	}
	return records, pos, nil
}
