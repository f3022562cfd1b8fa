package upload

import (
	"context"
	"fmt"

	"github.com/roach88/graphload/internal/record"
)

// resolveValue computes the value of a stash item from the handles known so
// far. It reports false while any target is missing.
func resolveValue(it StashItem, resolved map[string]string) (string, bool) {
	switch it.Kind {
	case record.KindLink:
		if record.IsHandle(it.Target) {
			return it.Target, true
		}
		h, ok := resolved[it.Target]
		return h, ok
	case record.KindText:
		text, missing := record.RewriteRefs(it.Text, func(id string) (string, bool) {
			h, ok := resolved[id]
			return h, ok
		})
		return text, len(missing) == 0
	}
	return "", false
}

// applyStash replays every stash item whose record and targets exist.
// Items that cannot be applied stay in the stash. An applied item leaves the
// stash before progress is saved.
func (u *Uploader) applyStash(ctx context.Context, st *State) error {
	if st.Stash.Len() == 0 {
		return nil
	}
	u.logger.Info("applying stashed links", "items", st.Stash.Len())

	items := st.Stash.Items
	remaining := make([]StashItem, 0, len(items))
	applied := 0

	for i, it := range items {
		if err := ctx.Err(); err != nil {
			st.Stash.Items = append(remaining, items[i:]...)
			return &AbortError{Reason: ReasonInterrupted, Err: err}
		}

		handle, ok := st.Resolved[it.RecordID]
		if !ok {
			u.logger.Warn("stashed link kept: record was not created", "id", it.RecordID, "property", it.Property)
			remaining = append(remaining, it)
			continue
		}
		value, ok := resolveValue(it, st.Resolved)
		if !ok {
			u.logger.Warn("stashed link kept: target was not created", "id", it.RecordID, "property", it.Property)
			remaining = append(remaining, it)
			continue
		}

		err := u.remote.Update(ctx, Update{
			Handle:   handle,
			Type:     it.RecordType,
			Property: it.Property,
			Kind:     it.Kind,
			Value:    value,
		})
		if err != nil {
			if abort := classify(ctx, err, ""); abort != nil {
				st.Stash.Items = append(remaining, items[i:]...)
				return abort
			}
			u.logger.Warn("stashed link rejected", "id", it.RecordID, "property", it.Property, "error", err)
			remaining = append(remaining, it)
			continue
		}
		if err := u.checkpoint.StashApplied(context.WithoutCancel(ctx), it.Token); err != nil {
			st.Stash.Items = append(remaining, items[i+1:]...)
			return checkpointAbort(fmt.Errorf("save progress for stashed link %s: %w", it.Token, err))
		}
		applied++
		u.logger.Debug("stashed link applied", "id", it.RecordID, "property", it.Property, "token", it.Token)
	}

	st.Stash.Items = remaining
	u.logger.Info("stashed links applied", "applied", applied, "pending", len(remaining))
	return nil
}
