package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphload/internal/links"
	"github.com/roach88/graphload/internal/testutil"
	"github.com/roach88/graphload/internal/upload"
)

// cyclicBatch is A -> B (direct), B -> {C, D} (text), C -> A (direct) and
// D with an asset. It uploads in the order A, D, C, B with A.hasB stashed.
const cyclicBatch = `
records:
  - id: A
    type: Thing
    label: a
    values:
      - property: hasB
        kind: link
        target: B
  - id: B
    type: Thing
    label: b
    values:
      - property: body
        kind: text
        text: '<a href="IRI:C:IRI">c</a> <a href="IRI:D:IRI">d</a>'
  - id: C
    type: Thing
    label: c
    values:
      - property: hasA
        kind: link
        target: A
  - id: D
    type: Image
    label: d
    asset: d.png
`

var envVars = []string{
	"GRAPHLOAD_SERVER",
	"GRAPHLOAD_TOKEN",
	"GRAPHLOAD_SAVE_DIR",
	"GRAPHLOAD_TIMEOUT",
	"GRAPHLOAD_INTERRUPT_AFTER",
	"GRAPHLOAD_STATE",
}

// cliHarness runs commands in an isolated directory against one fake
// remote shared by every invocation.
type cliHarness struct {
	t      *testing.T
	dir    string
	remote *testutil.FakeRemote
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range envVars {
		t.Setenv(key, "")
	}
	return &cliHarness{t: t, dir: dir, remote: testutil.NewFakeRemote()}
}

func (h *cliHarness) writeBatch(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (h *cliHarness) statePath() string {
	return filepath.Join(h.dir, "state.db")
}

func (h *cliHarness) saveDir() string {
	return filepath.Join(h.dir, "out")
}

func (h *cliHarness) newRemote(server, token string, timeout time.Duration) (upload.Remote, error) {
	return h.remote, nil
}

func (h *cliHarness) command(name, format string) *cobra.Command {
	root := &RootOptions{Format: format}
	flags := RunFlags{NewRemote: h.newRemote}
	gen := links.NewSequenceGenerator("t")

	switch name {
	case "plan":
		return newPlanCommand(&PlanOptions{RootOptions: root, TokenGenerator: gen})
	case "upload":
		return newUploadCommand(&UploadOptions{RootOptions: root, RunFlags: flags, TokenGenerator: gen})
	case "resume":
		return newResumeCommand(&ResumeOptions{RootOptions: root, RunFlags: flags})
	case "status":
		return newStatusCommand(&StatusOptions{RootOptions: root})
	}
	h.t.Fatalf("unknown command %q", name)
	return nil
}

// run executes a command and returns its standard output.
func (h *cliHarness) run(name, format string, args ...string) (string, error) {
	h.t.Helper()
	cmd := h.command(name, format)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

// runArgs returns the flags every upload or resume invocation needs.
func (h *cliHarness) runArgs(extra ...string) []string {
	return append([]string{
		"--server", "http://rdf.test",
		"--state", h.statePath(),
		"--save-dir", h.saveDir(),
	}, extra...)
}
