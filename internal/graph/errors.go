package graph

import "fmt"

// ErrorCode categorizes graph construction errors.
type ErrorCode string

const (
	// ErrCodeUnknownTarget indicates a link to an id that is not in the batch.
	ErrCodeUnknownTarget ErrorCode = "UNKNOWN_TARGET"

	// ErrCodeUnknownSource indicates a link whose owning record is not in the batch.
	ErrCodeUnknownSource ErrorCode = "UNKNOWN_SOURCE"

	// ErrCodeDuplicateID indicates two records with the same id.
	ErrCodeDuplicateID ErrorCode = "DUPLICATE_ID"

	// ErrCodeStillCyclic indicates that ordering found a cycle the breaker missed.
	ErrCodeStillCyclic ErrorCode = "STILL_CYCLIC"
)

// GraphError describes one problem found while building or ordering a graph.
type GraphError struct {
	Code     ErrorCode
	Message  string
	Source   string
	Property string
	Target   string
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.Source != "" && e.Property != "" {
		return fmt.Sprintf("%s: %s (record=%s, property=%s)", e.Code, e.Message, e.Source, e.Property)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownTarget reports whether err, or any error joined into it,
// is a link to an id outside the batch.
func IsUnknownTarget(err error) bool {
	for _, ge := range Problems(err) {
		if ge.Code == ErrCodeUnknownTarget {
			return true
		}
	}
	return false
}

// Problems flattens a joined error returned by Build into its GraphErrors.
// Errors wrapping a joined error are unwrapped first.
func Problems(err error) []*GraphError {
	switch e := err.(type) {
	case nil:
		return nil
	case *GraphError:
		return []*GraphError{e}
	case interface{ Unwrap() []error }:
		var out []*GraphError
		for _, inner := range e.Unwrap() {
			out = append(out, Problems(inner)...)
		}
		return out
	case interface{ Unwrap() error }:
		return Problems(e.Unwrap())
	}
	return nil
}

func unknownTarget(source, property, target string) *GraphError {
	return &GraphError{
		Code:     ErrCodeUnknownTarget,
		Message:  fmt.Sprintf("reference to %q, which is not in the batch", target),
		Source:   source,
		Property: property,
		Target:   target,
	}
}
