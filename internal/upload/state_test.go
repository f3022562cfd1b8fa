package upload

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphload/internal/record"
)

func TestSkipUncertain(t *testing.T) {
	st := &State{
		Pending:   []record.Record{{ID: "C"}, {ID: "B"}},
		Resolved:  map[string]string{},
		Uncertain: "C",
	}

	require.NoError(t, st.SkipUncertain())
	assert.Equal(t, []string{"B"}, st.PendingIDs())
	assert.Equal(t, []string{"C"}, st.Failed)
	assert.Empty(t, st.Uncertain)

	// Nothing to do the second time.
	require.NoError(t, st.SkipUncertain())
	assert.Equal(t, []string{"B"}, st.PendingIDs())
}

func TestSkipUncertain_NotFirstPending(t *testing.T) {
	st := &State{Pending: []record.Record{{ID: "B"}}, Uncertain: "C"}
	assert.Error(t, st.SkipUncertain())
}

func TestClone_IsIndependent(t *testing.T) {
	st := &State{
		Pending:  []record.Record{{ID: "A", Values: []record.Value{{Property: "p", Kind: record.KindPlain, Text: "x"}}}},
		Resolved: map[string]string{"B": "h"},
		Failed:   []string{"F"},
		Stash:    Stash{Items: []StashItem{{RecordID: "A", Token: "t-1"}}},
	}
	c := st.Clone()

	c.Pending[0].Values[0].Text = "changed"
	c.Resolved["C"] = "h2"
	c.Failed[0] = "G"
	c.Stash.Items[0].Token = "t-2"

	assert.Equal(t, "x", st.Pending[0].Values[0].Text)
	assert.NotContains(t, st.Resolved, "C")
	assert.Equal(t, "F", st.Failed[0])
	assert.Equal(t, "t-1", st.Stash.Items[0].Token)
}

func TestResolveValue(t *testing.T) {
	resolved := map[string]string{"B": "http://h/B"}

	v, ok := resolveValue(StashItem{Kind: record.KindLink, Target: "B"}, resolved)
	assert.True(t, ok)
	assert.Equal(t, "http://h/B", v)

	v, ok = resolveValue(StashItem{Kind: record.KindLink, Target: "https://elsewhere/x"}, resolved)
	assert.True(t, ok)
	assert.Equal(t, "https://elsewhere/x", v)

	_, ok = resolveValue(StashItem{Kind: record.KindLink, Target: "C"}, resolved)
	assert.False(t, ok)

	v, ok = resolveValue(StashItem{Kind: record.KindText, Text: `<a href="IRI:B:IRI">b</a>`}, resolved)
	assert.True(t, ok)
	assert.Equal(t, `<a href="http://h/B">b</a>`, v)

	_, ok = resolveValue(StashItem{Kind: record.KindText, Text: `IRI:B:IRI IRI:C:IRI`}, resolved)
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, classify(ctx, NewRemoteError(KindRejected, "create", errors.New("bad")), "A"))

	abort := classify(ctx, NewRemoteError(KindConnection, "create", errors.New("refused")), "A")
	require.NotNil(t, abort)
	assert.Equal(t, ReasonConnectionLost, abort.Reason)
	assert.Equal(t, "A", abort.RecordID)

	abort = classify(ctx, fmt.Errorf("wrapped: %w", context.DeadlineExceeded), "A")
	require.NotNil(t, abort)
	assert.Equal(t, ReasonTimeout, abort.Reason)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	abort = classify(canceled, NewRemoteError(KindRejected, "create", errors.New("bad")), "")
	require.NotNil(t, abort)
	assert.Equal(t, ReasonInterrupted, abort.Reason)
	assert.Empty(t, abort.RecordID)
}

func TestAbortError_Message(t *testing.T) {
	err := &AbortError{Reason: ReasonTimeout, RecordID: "C", Err: errors.New("read timeout")}
	assert.Equal(t, `upload aborted (timeout) while creating "C": read timeout`, err.Error())

	wrapped := fmt.Errorf("run: %w", &AbortError{Reason: ReasonThreshold})
	assert.True(t, IsCleanStop(wrapped))
	assert.False(t, IsCleanStop(err))
}
