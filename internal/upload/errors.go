package upload

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failed remote call.
type ErrorKind string

const (
	// KindConnection means the server could not be reached.
	KindConnection ErrorKind = "connection"

	// KindTimeout means the call did not finish in time. Whether it took
	// effect on the server is unknown.
	KindTimeout ErrorKind = "timeout"

	// KindRejected means the server refused this one request.
	KindRejected ErrorKind = "rejected"
)

// RemoteError is returned by Remote implementations.
type RemoteError struct {
	Kind ErrorKind
	Op   string // "create", "update" or "ingest"
	Err  error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError creates a RemoteError.
func NewRemoteError(kind ErrorKind, op string, err error) *RemoteError {
	return &RemoteError{Kind: kind, Op: op, Err: err}
}

// IsConnectionLost reports whether err means the server is unreachable.
func IsConnectionLost(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind == KindConnection
	}
	return false
}

// IsTimeout reports whether err is a timeout.
func IsTimeout(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind == KindTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// AbortReason tells why a run stopped early.
type AbortReason string

const (
	ReasonConnectionLost AbortReason = "connection_lost"
	ReasonTimeout        AbortReason = "timeout"
	ReasonInterrupted    AbortReason = "interrupted"

	// ReasonCheckpoint means progress could not be saved. Every outcome
	// known so far is still in the state snapshot written at the end of
	// the run.
	ReasonCheckpoint AbortReason = "checkpoint"

	// ReasonThreshold is the configured stop after N records. It is a clean
	// stop, not a failure.
	ReasonThreshold AbortReason = "threshold"
)

// AbortError stops the whole run. It is distinct from a record failure,
// which is recorded and skipped.
type AbortError struct {
	Reason AbortReason

	// RecordID is the record whose creation was in flight. Its status is
	// unknown. Empty when no creation was in flight.
	RecordID string

	Err error
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	msg := fmt.Sprintf("upload aborted (%s)", e.Reason)
	if e.RecordID != "" {
		msg += fmt.Sprintf(" while creating %q", e.RecordID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// AsAbort extracts an AbortError from err.
func AsAbort(err error) (*AbortError, bool) {
	var ae *AbortError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func checkpointAbort(err error) *AbortError {
	return &AbortError{Reason: ReasonCheckpoint, Err: err}
}

// IsCleanStop reports whether err is the configured stop after N records.
func IsCleanStop(err error) bool {
	ae, ok := AsAbort(err)
	return ok && ae.Reason == ReasonThreshold
}

// ErrUncertainRecord is returned by Run when a previous run left a record
// of unknown status and neither SkipUncertain nor RetryUncertain was called.
var ErrUncertainRecord = errors.New("a record of unknown status must be skipped or retried before resuming")

// classify turns a remote failure into an abort, or returns nil when the
// failure only concerns the current record.
func classify(ctx context.Context, err error, inFlight string) *AbortError {
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		return &AbortError{Reason: ReasonInterrupted, RecordID: inFlight, Err: err}
	case IsTimeout(err):
		return &AbortError{Reason: ReasonTimeout, RecordID: inFlight, Err: err}
	case IsConnectionLost(err):
		return &AbortError{Reason: ReasonConnectionLost, RecordID: inFlight, Err: err}
	}
	return nil
}
