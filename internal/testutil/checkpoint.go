package testutil

import (
	"context"
	"sync"

	"github.com/roach88/graphload/internal/upload"
)

// MemoryCheckpoint records progress in memory.
type MemoryCheckpoint struct {
	mu        sync.Mutex
	Created   []string
	Failed    map[string]string
	Applied   []string
	Snapshots []*upload.State

	// Errors maps a record id or stash token to the errors returned by
	// the next calls for it, one per call. Nothing is recorded for a call
	// that fails.
	Errors map[string][]error
}

// NewMemoryCheckpoint creates an empty checkpoint.
func NewMemoryCheckpoint() *MemoryCheckpoint {
	return &MemoryCheckpoint{
		Failed: make(map[string]string),
		Errors: make(map[string][]error),
	}
}

// nextError pops the next configured error for key. Callers hold mu.
func (c *MemoryCheckpoint) nextError(key string) error {
	errs := c.Errors[key]
	if len(errs) == 0 {
		return nil
	}
	c.Errors[key] = errs[1:]
	return errs[0]
}

// RecordCreated implements upload.Checkpointer.
func (c *MemoryCheckpoint) RecordCreated(_ context.Context, id, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.nextError(id); err != nil {
		return err
	}
	c.Created = append(c.Created, id)
	return nil
}

// RecordFailed implements upload.Checkpointer.
func (c *MemoryCheckpoint) RecordFailed(_ context.Context, id, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.nextError(id); err != nil {
		return err
	}
	c.Failed[id] = reason
	return nil
}

// StashApplied implements upload.Checkpointer.
func (c *MemoryCheckpoint) StashApplied(_ context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.nextError(token); err != nil {
		return err
	}
	c.Applied = append(c.Applied, token)
	return nil
}

// SaveState implements upload.Checkpointer. It keeps a deep copy.
func (c *MemoryCheckpoint) SaveState(_ context.Context, st *upload.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Snapshots = append(c.Snapshots, st.Clone())
	return nil
}

// Last returns the latest snapshot, or nil.
func (c *MemoryCheckpoint) Last() *upload.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Snapshots) == 0 {
		return nil
	}
	return c.Snapshots[len(c.Snapshots)-1]
}

// MemoryReporter keeps the diagnostics it is asked to write.
type MemoryReporter struct {
	mu         sync.Mutex
	HandleMaps []map[string]string
	Stashes    [][]upload.StashItem
}

// WriteHandleMap implements upload.Reporter.
func (r *MemoryReporter) WriteHandleMap(resolved map[string]string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := make(map[string]string, len(resolved))
	for k, v := range resolved {
		m[k] = v
	}
	r.HandleMaps = append(r.HandleMaps, m)
	return "memory://id2handle", nil
}

// WritePendingStash implements upload.Reporter.
func (r *MemoryReporter) WritePendingStash(items []upload.StashItem) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Stashes = append(r.Stashes, append([]upload.StashItem{}, items...))
	return "memory://stash", nil
}
