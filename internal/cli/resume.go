package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/graphload/internal/batch"
	"github.com/roach88/graphload/internal/record"
	"github.com/roach88/graphload/internal/store"
)

// ResumeOptions holds flags for the resume command.
type ResumeOptions struct {
	*RootOptions
	RunFlags
	SkipFirst  bool
	RetryFirst bool
	Batch      string
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	return newResumeCommand(&ResumeOptions{RootOptions: rootOpts})
}

func newResumeCommand(opts *ResumeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Continue a saved upload",
		Long: `Continue an upload from its state database.

If the previous run stopped while a record was being created, that record
may or may not exist on the server. Check it, then either skip it with
--skip-first or create it again with --retry-first.

Example:
  graphload resume --state .graphload/state.db
  graphload resume --retry-first --batch ./batch.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(opts, cmd)
		},
	}

	opts.RunFlags.register(cmd)
	cmd.Flags().BoolVar(&opts.SkipFirst, "skip-first", false, "mark the record of unknown status as failed and continue")
	cmd.Flags().BoolVar(&opts.RetryFirst, "retry-first", false, "create the record of unknown status again")
	cmd.Flags().StringVar(&opts.Batch, "batch", "", "batch file to check against the saved run")
	cmd.MarkFlagsMutuallyExclusive("skip-first", "retry-first")

	return cmd
}

func runResume(opts *ResumeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := opts.RunFlags.config(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	statePath := cfg.StatePath()
	if _, err := os.Stat(statePath); err != nil {
		return WrapExitError(ExitCommandError, "state database not found", err)
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

	ctx, stop := withSignals(cmd)
	defer stop()

	st, err := db.LoadState(ctx)
	if errors.Is(err, store.ErrNoState) {
		return NewExitError(ExitCommandError, "state database holds no upload")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load upload state", err)
	}

	if opts.Batch != "" {
		records, err := batch.Load(opts.Batch)
		if err != nil {
			return batchError(formatter, err)
		}
		fingerprint, err := record.Fingerprint(records)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to fingerprint batch", err)
		}
		if fingerprint != st.Config.Fingerprint {
			_ = formatter.Error("BATCH_MISMATCH", "the batch differs from the one the saved upload was started with", nil)
			return NewExitError(ExitCommandError, "batch does not match saved upload")
		}
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		st.Config.Server = cfg.Server
	}
	if flags.Changed("save-dir") {
		st.Config.SaveDir = cfg.SaveDir
	}
	if flags.Changed("interrupt-after") {
		st.Config.InterruptAfter = cfg.InterruptAfter
	}

	if st.Uncertain != "" {
		switch {
		case opts.SkipFirst:
			formatter.VerboseLog("Skipping record %s", st.Uncertain)
			if err := st.SkipUncertain(); err != nil {
				return WrapExitError(ExitCommandError, "cannot skip record", err)
			}
		case opts.RetryFirst:
			formatter.VerboseLog("Retrying record %s", st.Uncertain)
			st.RetryUncertain()
		}
	}

	return executeRun(ctx, &opts.RunFlags, cfg, st, db, formatter)
}
