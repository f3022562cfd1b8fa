package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/graphload/internal/batch"
	"github.com/roach88/graphload/internal/graph"
	"github.com/roach88/graphload/internal/links"
	"github.com/roach88/graphload/internal/record"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions

	// TokenGenerator allows overriding the correlation token generator
	// (for testing). If nil, defaults to UUIDv7Generator.
	TokenGenerator links.TokenGenerator
}

// PlanResult is the JSON output of the plan command.
type PlanResult struct {
	Records int           `json:"records"`
	Order   []string      `json:"order"`
	Stashed []*links.Link `json:"stashed"`
	Peeled  []string      `json:"peeled"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	return newPlanCommand(&PlanOptions{RootOptions: rootOpts})
}

func newPlanCommand(opts *PlanOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <batch>",
		Short: "Show the upload order of a batch",
		Long: `Load a batch, resolve its reference graph and print the upload order
together with the links that will be attached after all records exist.

No request is sent to the server.

Example:
  graphload plan ./batch.yaml
  graphload plan ./batch.xlsx --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], cmd)
		},
	}

	return cmd
}

func runPlan(opts *PlanOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())

	records, plan, err := prepareBatch(path, opts.TokenGenerator, formatter)
	if err != nil {
		return err
	}

	if formatter.Format == "json" {
		return formatter.Success(PlanResult{
			Records: len(records),
			Order:   plan.Order,
			Stashed: plan.Stashed,
			Peeled:  plan.Peeled,
		})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Upload order (%d records):\n", len(plan.Order))
	for i, id := range plan.Order {
		fmt.Fprintf(w, "  %d. %s\n", i+1, id)
	}
	if len(plan.Stashed) == 0 {
		fmt.Fprintln(w, "No stashed links.")
		return nil
	}
	fmt.Fprintf(w, "Stashed links (%d):\n", len(plan.Stashed))
	for _, l := range plan.Stashed {
		fmt.Fprintf(w, "  %s.%s -> %s\n", l.Source, l.Property, strings.Join(l.Targets, ", "))
	}
	return nil
}

// prepareBatch loads and resolves a batch. Problems are written through the
// formatter and returned as an ExitError.
func prepareBatch(path string, gen links.TokenGenerator, formatter *OutputFormatter) ([]record.Record, *graph.Plan, error) {
	if gen == nil {
		gen = links.UUIDv7Generator{}
	}

	records, err := batch.Load(path)
	if err != nil {
		return nil, nil, batchError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d records from %s", len(records), path)

	found := links.ExtractAll(records, gen)
	formatter.VerboseLog("Found %d direct and %d text links", len(found.Direct), len(found.Text))

	g, err := graph.Build(record.IDs(records), found)
	if err != nil {
		return nil, nil, graphError(formatter, err)
	}
	plan, err := graph.Resolve(g)
	if err != nil {
		return nil, nil, graphError(formatter, err)
	}
	return records, plan, nil
}

func batchError(formatter *OutputFormatter, err error) error {
	problems := batch.Problems(err)
	if len(problems) == 0 {
		_ = formatter.Error(batch.ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load batch", err)
	}
	details := make([]string, len(problems))
	for i, p := range problems {
		details[i] = p.Error()
	}
	_ = formatter.Problems(problems[0].Code, fmt.Sprintf("invalid batch (%d problems)", len(problems)), details)
	return WrapExitError(ExitCommandError, "failed to load batch", err)
}

func graphError(formatter *OutputFormatter, err error) error {
	problems := graph.Problems(err)
	if len(problems) == 0 {
		_ = formatter.Error(batch.ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to resolve batch", err)
	}
	details := make([]string, len(problems))
	for i, p := range problems {
		details[i] = p.Error()
	}
	_ = formatter.Problems(string(problems[0].Code), fmt.Sprintf("invalid references (%d problems)", len(problems)), details)
	return WrapExitError(ExitCommandError, "failed to resolve batch", err)
}
