package upload

import (
	"context"

	"github.com/roach88/graphload/internal/record"
)

// Remote is the remote graph-data service.
//
// Implementations must return a *RemoteError so the orchestrator can tell a
// rejected request from an unreachable server.
type Remote interface {
	// Create creates one record from its serialized form and returns its handle.
	Create(ctx context.Context, payload []byte) (string, error)

	// Update attaches one deferred value to an existing record.
	Update(ctx context.Context, u Update) error

	// Ingest uploads an attached binary and returns its handle.
	Ingest(ctx context.Context, asset string) (string, error)
}

// Update is a deferred value to attach to a created record.
type Update struct {
	Handle   string      `json:"handle"`
	Type     string      `json:"type"`
	Property string      `json:"property"`
	Kind     record.Kind `json:"kind"`

	// Value is the target's handle for a link, or the text with every
	// marker replaced by a handle.
	Value string `json:"value"`
}

// Serializer renders a record into the payload Remote.Create accepts.
//
// resolved maps record ids to handles. Values whose token is in omit are
// left out. asset is the handle of the ingested binary, or empty.
type Serializer interface {
	Serialize(rec record.Record, resolved map[string]string, omit map[string]bool, asset string) ([]byte, error)
}

// Checkpointer persists progress so a run can be resumed.
type Checkpointer interface {
	// RecordCreated is called after every successful creation.
	RecordCreated(ctx context.Context, id, handle string) error

	// RecordFailed is called after every permanently failed record.
	RecordFailed(ctx context.Context, id, reason string) error

	// StashApplied is called after every stash item accepted by the remote.
	StashApplied(ctx context.Context, token string) error

	// SaveState writes a full snapshot of the state.
	SaveState(ctx context.Context, st *State) error
}

// Reporter writes the diagnostic files of a run.
type Reporter interface {
	// WriteHandleMap writes the id to handle map and returns its location.
	WriteHandleMap(resolved map[string]string) (string, error)

	// WritePendingStash writes stash items that could not be applied and
	// returns the location.
	WritePendingStash(items []StashItem) (string, error)
}
