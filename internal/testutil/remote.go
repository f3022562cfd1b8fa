package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/roach88/graphload/internal/upload"
)

// FakeRemote is a scripted in-memory remote service.
//
// Failures are queued per key with FailCreate, FailIngest and FailUpdate.
// Every call pops the next queued error for its key; with an empty queue
// the call succeeds. Handles are "http://rdf.test/<id>".
//
// Create expects a JSON payload with an "id" field.
type FakeRemote struct {
	mu sync.Mutex

	createErrs map[string][]error
	ingestErrs map[string][]error
	updateErrs map[string][]error
	idByHandle map[string]string

	// AfterCreate runs after every successful creation, e.g. to cancel a
	// context mid-run.
	AfterCreate func(id string)

	Created  []string
	Payloads map[string][]byte
	Updates  []upload.Update
	Ingested []string
	Calls    int
}

// NewFakeRemote creates a remote that accepts everything.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		createErrs: make(map[string][]error),
		ingestErrs: make(map[string][]error),
		updateErrs: make(map[string][]error),
		idByHandle: make(map[string]string),
		Payloads:   make(map[string][]byte),
	}
}

// Handle returns the handle the fake assigns to a record id.
func Handle(id string) string {
	return "http://rdf.test/" + id
}

// FailCreate queues errors for creations of the record id.
func (f *FakeRemote) FailCreate(id string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErrs[id] = append(f.createErrs[id], errs...)
}

// FailIngest queues errors for ingestion of the asset path.
func (f *FakeRemote) FailIngest(asset string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingestErrs[asset] = append(f.ingestErrs[asset], errs...)
}

// FailUpdate queues errors for updates of property on record id.
func (f *FakeRemote) FailUpdate(id, property string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := id + "." + property
	f.updateErrs[key] = append(f.updateErrs[key], errs...)
}

func pop(queue map[string][]error, key string) error {
	errs := queue[key]
	if len(errs) == 0 {
		return nil
	}
	queue[key] = errs[1:]
	return errs[0]
}

// Create implements upload.Remote.
func (f *FakeRemote) Create(ctx context.Context, payload []byte) (string, error) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", upload.NewRemoteError(upload.KindRejected, "create", err)
	}

	f.mu.Lock()
	f.Calls++
	if err := ctx.Err(); err != nil {
		f.mu.Unlock()
		return "", err
	}
	if err := pop(f.createErrs, body.ID); err != nil {
		f.mu.Unlock()
		return "", err
	}
	handle := Handle(body.ID)
	f.idByHandle[handle] = body.ID
	f.Created = append(f.Created, body.ID)
	f.Payloads[body.ID] = payload
	hook := f.AfterCreate
	f.mu.Unlock()

	if hook != nil {
		hook(body.ID)
	}
	return handle, nil
}

// Update implements upload.Remote.
func (f *FakeRemote) Update(ctx context.Context, u upload.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	id, ok := f.idByHandle[u.Handle]
	if !ok {
		return upload.NewRemoteError(upload.KindRejected, "update", fmt.Errorf("no record with handle %s", u.Handle))
	}
	if err := pop(f.updateErrs, id+"."+u.Property); err != nil {
		return err
	}
	f.Updates = append(f.Updates, u)
	return nil
}

// Ingest implements upload.Remote.
func (f *FakeRemote) Ingest(ctx context.Context, asset string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := pop(f.ingestErrs, asset); err != nil {
		return "", err
	}
	f.Ingested = append(f.Ingested, asset)
	return "asset:" + asset, nil
}

// Rejected returns a permanent per-record failure.
func Rejected(op string) error {
	return upload.NewRemoteError(upload.KindRejected, op, fmt.Errorf("400 Bad Request"))
}

// ConnectionLost returns an unreachable-server failure.
func ConnectionLost(op string) error {
	return upload.NewRemoteError(upload.KindConnection, op, fmt.Errorf("connection refused"))
}

// Timeout returns a timeout failure.
func Timeout(op string) error {
	return upload.NewRemoteError(upload.KindTimeout, op, fmt.Errorf("read timeout"))
}
