package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/graphload/internal/config"
	"github.com/roach88/graphload/internal/store"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	State string
}

// StatusResult is the JSON output of the status command.
type StatusResult struct {
	*store.Status
	FailureReasons map[string]string `json:"failure_reasons,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return newStatusCommand(&StatusOptions{RootOptions: rootOpts})
}

func newStatusCommand(opts *StatusOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the progress of a saved upload",
		Long: `Show how many records of a saved upload were created, failed or are
still pending, and how many stashed links remain.

Example:
  graphload status --state .graphload/state.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.State, "state", "", "path to the state database (env GRAPHLOAD_STATE, default <save-dir>/state.db)")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	statePath := opts.State
	if statePath == "" {
		cfg, err := config.Load()
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		statePath = cfg.StatePath()
	}
	if _, err := os.Stat(statePath); err != nil {
		return WrapExitError(ExitCommandError, "state database not found", err)
	}

	db, err := store.Open(statePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	status, err := db.Status(ctx)
	if errors.Is(err, store.ErrNoState) {
		return NewExitError(ExitCommandError, "state database holds no upload")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read status", err)
	}
	reasons, err := db.FailureReasons(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read status", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(StatusResult{Status: status, FailureReasons: reasons})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Server:  %s\n", status.Server)
	fmt.Fprintf(w, "Records: %d total, %d created, %d failed, %d pending\n",
		status.Total, status.Created, status.Failed, status.Pending)
	fmt.Fprintf(w, "Stash:   %d links to attach\n", status.StashItems)
	if status.Uncertain != "" {
		fmt.Fprintf(w, "Unknown: %s\n", uncertainHint(status.Uncertain))
	}
	if opts.Verbose {
		for _, id := range slices.Sorted(maps.Keys(reasons)) {
			fmt.Fprintf(w, "  failed %s: %s\n", id, reasons[id])
		}
	}
	return nil
}
