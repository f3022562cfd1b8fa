package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/graphload/internal/links"
	"github.com/roach88/graphload/internal/record"
	"github.com/roach88/graphload/internal/store"
	"github.com/roach88/graphload/internal/upload"
)

// UploadOptions holds flags for the upload command.
type UploadOptions struct {
	*RootOptions
	RunFlags

	// TokenGenerator allows overriding the correlation token generator
	// (for testing). If nil, defaults to UUIDv7Generator.
	TokenGenerator links.TokenGenerator
}

// NewUploadCommand creates the upload command.
func NewUploadCommand(rootOpts *RootOptions) *cobra.Command {
	return newUploadCommand(&UploadOptions{RootOptions: rootOpts})
}

func newUploadCommand(opts *UploadOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <batch>",
		Short: "Upload a batch of records",
		Long: `Upload every record of a batch to the server.

Records are created so that every record exists before the records that
reference it. Links that close a cycle are left out on creation and
attached once all records exist. Progress is saved to the state database
after every record, so an interrupted upload can be continued with
"graphload resume".

Example:
  graphload upload ./batch.yaml --server https://api.example.org
  GRAPHLOAD_SERVER=http://localhost:3333 graphload upload ./batch.xlsx --interrupt-after 500`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(opts, args[0], cmd)
		},
	}

	opts.RunFlags.register(cmd)

	return cmd
}

func runUpload(opts *UploadOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := opts.RunFlags.config(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if cfg.Server == "" {
		return NewExitError(ExitCommandError, "server is required (--server or GRAPHLOAD_SERVER)")
	}

	records, plan, err := prepareBatch(path, opts.TokenGenerator, formatter)
	if err != nil {
		return err
	}
	fingerprint, err := record.Fingerprint(records)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fingerprint batch", err)
	}

	st, err := upload.NewState(records, plan, upload.Config{
		Server:         cfg.Server,
		SaveDir:        cfg.SaveDir,
		InterruptAfter: cfg.InterruptAfter,
		Fingerprint:    fingerprint,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to plan upload", err)
	}
	formatter.VerboseLog("Planned %d records with %d stashed links", len(st.Pending), st.Stash.Len())

	statePath := cfg.StatePath()
	if err := os.MkdirAll(filepath.Dir(statePath), 0o755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create state directory", err)
	}
	db, err := store.Open(statePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmd.PrintErrln("error closing database:", closeErr)
		}
	}()

	if err := checkNoUnfinishedRun(cmd.Context(), db); err != nil {
		return err
	}
	if err := db.SaveState(context.Background(), st); err != nil {
		return WrapExitError(ExitCommandError, "failed to save upload state", err)
	}

	ctx, stop := withSignals(cmd)
	defer stop()

	return executeRun(ctx, &opts.RunFlags, cfg, st, db, formatter)
}

// checkNoUnfinishedRun refuses to overwrite a run that still has work left.
func checkNoUnfinishedRun(ctx context.Context, db *store.Store) error {
	if ctx == nil {
		ctx = context.Background()
	}
	status, err := db.Status(ctx)
	if errors.Is(err, store.ErrNoState) {
		return nil
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read state database", err)
	}
	if status.Pending > 0 || status.StashItems > 0 || status.Uncertain != "" {
		return NewExitError(ExitCommandError, fmt.Sprintf(
			"state database %s holds an unfinished upload (%d pending records, %d stashed links); use \"graphload resume\" or choose another --state",
			db.Path(), status.Pending, status.StashItems))
	}
	return nil
}
