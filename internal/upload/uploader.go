package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Options configures an Uploader. Remote, Serializer and Checkpoint are
// required.
type Options struct {
	Remote     Remote
	Serializer Serializer
	Checkpoint Checkpointer
	Reporter   Reporter
	Logger     *slog.Logger
}

// Uploader runs the upload state machine.
type Uploader struct {
	remote     Remote
	serializer Serializer
	checkpoint Checkpointer
	reporter   Reporter
	logger     *slog.Logger
}

// New creates an Uploader.
func New(opts Options) *Uploader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		remote:     opts.Remote,
		serializer: opts.Serializer,
		checkpoint: opts.Checkpoint,
		reporter:   opts.Reporter,
		logger:     logger,
	}
}

// Summary is the outcome of one invocation of Run.
type Summary struct {
	Created       int         `json:"created"`
	Total         int         `json:"total"`
	Failed        []string    `json:"failed"`
	Pending       int         `json:"pending"`
	PendingStash  []StashItem `json:"pending_stash"`
	HandleMapPath string      `json:"handle_map_path,omitempty"`
	StashPath     string      `json:"stash_path,omitempty"`
	Aborted       *AbortError `json:"-"`
	AbortReason   AbortReason `json:"abort_reason,omitempty"`
	Uncertain     string      `json:"uncertain,omitempty"`
}

// Complete reports whether every record was created and every stashed link
// applied.
func (s *Summary) Complete() bool {
	return s.Aborted == nil && s.Pending == 0 && len(s.Failed) == 0 && len(s.PendingStash) == 0
}

// Run processes the pending records of st, then replays its stash.
//
// st is modified in place. The summary is always returned, together with an
// *AbortError when the run stopped early (use IsCleanStop to tell the
// configured threshold from a failure) or with any error raised while
// writing the final snapshot and diagnostics.
func (u *Uploader) Run(ctx context.Context, st *State) (*Summary, error) {
	if st.Uncertain != "" {
		return nil, fmt.Errorf("record %q: %w", st.Uncertain, ErrUncertainRecord)
	}
	runErr := u.run(ctx, st)
	return u.finish(ctx, st, runErr)
}

func (u *Uploader) run(ctx context.Context, st *State) error {
	attempts := 0
	for len(st.Pending) > 0 {
		if err := ctx.Err(); err != nil {
			return &AbortError{Reason: ReasonInterrupted, Err: err}
		}

		if err := u.uploadRecord(ctx, st); err != nil {
			return err
		}
		attempts++

		limit := st.Config.InterruptAfter
		if limit > 0 && attempts >= limit && (len(st.Pending) > 0 || st.Stash.Len() > 0) {
			u.logger.Info("stopping after configured number of records", "records", attempts)
			return &AbortError{
				Reason: ReasonThreshold,
				Err:    fmt.Errorf("maximum number of records per invocation reached (%d)", limit),
			}
		}
	}
	return u.applyStash(ctx, st)
}

// uploadRecord attempts the first pending record. Once its outcome is known
// the record leaves Pending, before progress is saved. It returns nil when
// the record was created or failed, and an error only when the run must
// stop.
func (u *Uploader) uploadRecord(ctx context.Context, st *State) error {
	rec := st.Pending[0]

	asset := ""
	if rec.Asset != "" {
		h, err := u.remote.Ingest(ctx, rec.Asset)
		if err != nil {
			// Nothing was created yet, so the record stays plainly pending.
			if abort := classify(ctx, err, ""); abort != nil {
				return abort
			}
			return u.fail(ctx, st, rec.ID, fmt.Errorf("ingest %s: %w", rec.Asset, err))
		}
		asset = h
	}

	payload, err := u.serializer.Serialize(rec, st.Resolved, st.Stash.Tokens(rec.ID), asset)
	if err != nil {
		return u.fail(ctx, st, rec.ID, fmt.Errorf("serialize: %w", err))
	}

	handle, err := u.remote.Create(ctx, payload)
	if err != nil {
		if abort := classify(ctx, err, rec.ID); abort != nil {
			return abort
		}
		return u.fail(ctx, st, rec.ID, err)
	}

	st.Resolved[rec.ID] = handle
	st.Pending = st.Pending[1:]
	st.Attempts++
	if err := u.checkpoint.RecordCreated(context.WithoutCancel(ctx), rec.ID, handle); err != nil {
		return checkpointAbort(fmt.Errorf("save progress for %q: %w", rec.ID, err))
	}
	u.logger.Info(fmt.Sprintf("Created record %d/%d", st.Created(), st.Total), "id", rec.ID, "handle", handle)
	return nil
}

func (u *Uploader) fail(ctx context.Context, st *State, id string, cause error) error {
	u.logger.Warn("record failed", "id", id, "error", cause)
	st.Failed = append(st.Failed, id)
	st.Pending = st.Pending[1:]
	st.Attempts++
	if err := u.checkpoint.RecordFailed(context.WithoutCancel(ctx), id, cause.Error()); err != nil {
		return checkpointAbort(fmt.Errorf("save progress for %q: %w", id, err))
	}
	return nil
}

// finish is the single exit point of a run. It writes the diagnostics and
// the state snapshot exactly once, whatever the outcome.
func (u *Uploader) finish(ctx context.Context, st *State, runErr error) (*Summary, error) {
	// Snapshots must be written even after an interrupt.
	ctx = context.WithoutCancel(ctx)

	abort, aborted := AsAbort(runErr)
	if aborted && abort.RecordID != "" {
		st.Uncertain = abort.RecordID
	}

	sum := &Summary{
		Created:      st.Created(),
		Total:        st.Total,
		Failed:       append([]string{}, st.Failed...),
		Pending:      len(st.Pending),
		PendingStash: []StashItem{},
		Uncertain:    st.Uncertain,
	}
	if aborted {
		sum.Aborted = abort
		sum.AbortReason = abort.Reason
	}

	errs := []error{runErr}
	if u.reporter != nil {
		path, err := u.reporter.WriteHandleMap(st.Resolved)
		if err != nil {
			errs = append(errs, fmt.Errorf("write handle map: %w", err))
		}
		sum.HandleMapPath = path

		// Items are only reported as unresolvable once nothing is pending.
		if len(st.Pending) == 0 && st.Stash.Len() > 0 && !aborted {
			path, err := u.reporter.WritePendingStash(st.Stash.Items)
			if err != nil {
				errs = append(errs, fmt.Errorf("write pending stash: %w", err))
			}
			sum.StashPath = path
		}
	}
	if len(st.Pending) == 0 && !aborted {
		sum.PendingStash = append(sum.PendingStash, st.Stash.Items...)
	}

	if err := u.checkpoint.SaveState(ctx, st); err != nil {
		errs = append(errs, fmt.Errorf("save state: %w", err))
	}

	u.logSummary(sum)
	return sum, errors.Join(errs...)
}

func (u *Uploader) logSummary(sum *Summary) {
	attrs := []any{
		"created", sum.Created,
		"total", sum.Total,
		"failed", len(sum.Failed),
		"pending", sum.Pending,
		"pending_stash", len(sum.PendingStash),
	}
	switch {
	case sum.Aborted != nil && sum.AbortReason == ReasonThreshold:
		u.logger.Info("upload paused", attrs...)
	case sum.Aborted != nil:
		u.logger.Error("upload aborted", append(attrs, "reason", sum.AbortReason, "uncertain", sum.Uncertain)...)
	case sum.Complete():
		u.logger.Info("upload finished", attrs...)
	default:
		u.logger.Warn("upload finished with problems", attrs...)
	}
}
