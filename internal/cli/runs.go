package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/msgstats/internal/report"
)

func NewRunsCommand(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run]",
		Short: "List stored runs",
		Long:  `List stored ingestion runs, newest first. With a run id (or 'latest') list the export files stored with it.`,
		Example: `  # List recent runs
  msgstats runs --limit 5

  # Show the sources of a run by id prefix
  msgstats runs 3f2a`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := NewValidator().ValidateLimit(limit); err != nil {
				return err
			}
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return app.runRuns(cmd.Context(), cmd.OutOrStdout(), ref, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")

	return cmd
}

func (a *App) runRuns(ctx context.Context, out io.Writer, ref string, limit int) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	r := report.New(out)

	if ref != "" {
		run, err := store.GetRun(ctx, runRef(ref))
		if err != nil {
			return err
		}
		sources, err := store.ListSources(ctx, run.ID)
		if err != nil {
			return err
		}
		return r.Sources(run.ID, sources)
	}

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if err := r.Runs(runs); err != nil {
		return err
	}

	stats, err := store.GetStats(ctx)
	if err != nil {
		return err
	}
	return r.StoreStats(store.Path(), stats)
}
