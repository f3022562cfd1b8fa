package batch

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// Error codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeParse       = "E006" // File could not be parsed
	ErrCodeUnsupported = "E008" // Unknown file extension

	ErrCodeMissingID     = "E201" // Record without id
	ErrCodeDuplicateID   = "E202" // Two records with the same id
	ErrCodeInvalidKind   = "E203" // Unknown value kind
	ErrCodeMissingTarget = "E204" // Link value without target
	ErrCodeMissingType   = "E205" // Record without type
	ErrCodeUnknownRecord = "E206" // Excel value row for a record that does not exist
	ErrCodeBadSheet      = "E207" // Missing sheet or unexpected header
)

// LoadError is a problem found while reading a batch file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available

	// Where locates the problem in formats without CUE positions,
	// e.g. "records[3]" or "values!A7".
	Where string
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Where != "" {
		return fmt.Sprintf("%s: %s: %s", e.Where, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Problems returns every LoadError contained in err.
func Problems(err error) []*LoadError {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*LoadError
		for _, e := range joined.Unwrap() {
			out = append(out, Problems(e)...)
		}
		return out
	}
	var le *LoadError
	if errors.As(err, &le) {
		return []*LoadError{le}
	}
	return nil
}

// HasCode reports whether err contains a LoadError with the given code.
func HasCode(err error, code string) bool {
	for _, p := range Problems(err) {
		if p.Code == code {
			return true
		}
	}
	return false
}
