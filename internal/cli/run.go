package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/graphload/internal/config"
	"github.com/roach88/graphload/internal/diagnostics"
	"github.com/roach88/graphload/internal/remote"
	"github.com/roach88/graphload/internal/serialize"
	"github.com/roach88/graphload/internal/store"
	"github.com/roach88/graphload/internal/upload"
)

// RemoteFactory creates the client of the remote service.
type RemoteFactory func(server, token string, timeout time.Duration) (upload.Remote, error)

// DefaultRemote creates an HTTP client.
func DefaultRemote(server, token string, timeout time.Duration) (upload.Remote, error) {
	return remote.New(server, token, timeout)
}

// RunFlags are the flags shared by upload and resume. Flags that are set
// override the environment configuration.
type RunFlags struct {
	Server         string
	Token          string
	State          string
	SaveDir        string
	Timeout        time.Duration
	InterruptAfter int

	// NewRemote allows overriding the remote client (for testing).
	// If nil, defaults to DefaultRemote.
	NewRemote RemoteFactory
}

func (f *RunFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Server, "server", "", "server URL (env GRAPHLOAD_SERVER)")
	cmd.Flags().StringVar(&f.Token, "token", "", "access token (env GRAPHLOAD_TOKEN)")
	cmd.Flags().StringVar(&f.State, "state", "", "path to the state database (env GRAPHLOAD_STATE, default <save-dir>/state.db)")
	cmd.Flags().StringVar(&f.SaveDir, "save-dir", "", "directory for diagnostic files (env GRAPHLOAD_SAVE_DIR)")
	cmd.Flags().DurationVar(&f.Timeout, "timeout", 0, "timeout of one request (env GRAPHLOAD_TIMEOUT)")
	cmd.Flags().IntVar(&f.InterruptAfter, "interrupt-after", 0, "stop cleanly after this many records (env GRAPHLOAD_INTERRUPT_AFTER)")
}

// config loads the environment configuration and applies the flags that
// were set.
func (f *RunFlags) config(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Server = f.Server
	}
	if flags.Changed("token") {
		cfg.Token = f.Token
	}
	if flags.Changed("state") {
		cfg.State = f.State
	}
	if flags.Changed("save-dir") {
		cfg.SaveDir = f.SaveDir
	}
	if flags.Changed("timeout") {
		cfg.Timeout = f.Timeout
	}
	if flags.Changed("interrupt-after") {
		cfg.InterruptAfter = f.InterruptAfter
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *RunFlags) remoteFactory() RemoteFactory {
	if f.NewRemote != nil {
		return f.NewRemote
	}
	return DefaultRemote
}

// setupLogging installs the default logger. --verbose switches to debug
// level.
func setupLogging(opts *RootOptions, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// withSignals returns a context that is canceled on SIGINT or SIGTERM.
// The command's context is used as parent if set (for testing).
func withSignals(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping after the current request", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// SummaryResult is the JSON output of upload and resume.
type SummaryResult struct {
	*upload.Summary
	StatePath string `json:"state_path"`
}

// executeRun runs the uploader on st and reports the outcome.
func executeRun(ctx context.Context, flags *RunFlags, cfg *config.Config, st *upload.State, db *store.Store, formatter *OutputFormatter) error {
	client, err := flags.remoteFactory()(st.Config.Server, cfg.Token, cfg.Timeout)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create remote client", err)
	}

	uploader := upload.New(upload.Options{
		Remote:     client,
		Serializer: serialize.JSON{},
		Checkpoint: db,
		Reporter:   diagnostics.NewWriter(st.Config.SaveDir, st.Config.Server),
		Logger:     slog.Default(),
	})

	slog.Info("upload starting", "server", st.Config.Server, "pending", len(st.Pending), "stash", st.Stash.Len(), "state", db.Path())
	sum, err := uploader.Run(ctx, st)
	if errors.Is(err, upload.ErrUncertainRecord) {
		_ = formatter.Error("UNCERTAIN_RECORD", uncertainHint(st.Uncertain), nil)
		return WrapExitError(ExitCommandError, "cannot resume", err)
	}
	if sum == nil {
		return WrapExitError(ExitFailure, "upload failed", err)
	}

	if outErr := outputSummary(formatter, sum, db.Path()); outErr != nil {
		return outErr
	}

	if other := nonAbortErrors(err); other != nil {
		return WrapExitError(ExitFailure, "failed to save progress", other)
	}
	switch {
	case sum.Aborted != nil && sum.AbortReason == upload.ReasonThreshold:
		return nil
	case sum.Aborted != nil:
		return WrapExitError(ExitFailure, "upload aborted", sum.Aborted)
	case !sum.Complete():
		return NewExitError(ExitFailure, fmt.Sprintf("upload incomplete: %d failed records, %d stashed links not applied", len(sum.Failed), len(sum.PendingStash)))
	}
	return nil
}

// nonAbortErrors drops the AbortError from an error returned by Run.
func nonAbortErrors(err error) error {
	if err == nil {
		return nil
	}
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	var rest []error
	for _, e := range errs {
		if _, ok := upload.AsAbort(e); !ok {
			rest = append(rest, e)
		}
	}
	return errors.Join(rest...)
}

func uncertainHint(id string) string {
	return fmt.Sprintf("record %q may or may not exist on the server; check it and resume with --skip-first or --retry-first", id)
}

func outputSummary(formatter *OutputFormatter, sum *upload.Summary, statePath string) error {
	if formatter.Format == "json" {
		return formatter.Success(SummaryResult{Summary: sum, StatePath: statePath})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Created %d/%d records\n", sum.Created, sum.Total)
	if len(sum.Failed) > 0 {
		fmt.Fprintf(w, "Failed records (%d): %s\n", len(sum.Failed), strings.Join(sum.Failed, ", "))
	}
	if sum.Pending > 0 {
		fmt.Fprintf(w, "Pending records: %d\n", sum.Pending)
	}
	if len(sum.PendingStash) > 0 {
		fmt.Fprintf(w, "Stashed links not applied (%d):\n", len(sum.PendingStash))
		for _, it := range sum.PendingStash {
			fmt.Fprintf(w, "  %s.%s\n", it.RecordID, it.Property)
		}
	}
	if sum.HandleMapPath != "" {
		fmt.Fprintf(w, "Handle map: %s\n", sum.HandleMapPath)
	}
	if sum.StashPath != "" {
		fmt.Fprintf(w, "Pending stash: %s\n", sum.StashPath)
	}
	fmt.Fprintf(w, "State: %s\n", statePath)

	switch {
	case sum.Aborted != nil && sum.AbortReason == upload.ReasonThreshold:
		fmt.Fprintln(w, `Upload paused; run "graphload resume" to continue.`)
	case sum.Aborted != nil:
		fmt.Fprintf(w, "Upload aborted (%s).\n", sum.AbortReason)
		if sum.Uncertain != "" {
			fmt.Fprintln(w, uncertainHint(sum.Uncertain))
		}
	case sum.Complete():
		fmt.Fprintln(w, "Upload complete.")
	}
	return nil
}
