package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/msgstats/internal/capture"
	"github.com/jasperwreed/msgstats/internal/errs"
	"github.com/jasperwreed/msgstats/internal/models"
	"github.com/jasperwreed/msgstats/internal/scanner"
	"github.com/jasperwreed/msgstats/internal/storage"
)

func NewIngestCommand(app *App) *cobra.Command {
	var replay string
	var dryRun bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Scan the export and store it as a run",
		Long: `Scan messages/inbox/<conversation>/message_*.json under the export root, build the
unified message table and store it in the database as a new run. Stored runs can be
analyzed later with --from-db without the export on disk.`,
		Example: `  # Ingest the export in ./facebook with pseudonymized names
  msgstats ingest --owner "Jane Doe" --dir ./facebook --hide-names

  # See what would be stored
  msgstats ingest --dry-run --verbose

  # Rebuild a run from its stored sources with new options
  msgstats ingest --replay latest --tz Europe/Paris`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runIngest(cmd.Context(), cmd.OutOrStdout(), replay, dryRun, verbose)
		},
	}

	cmd.Flags().StringVar(&replay, "replay", "", "Re-ingest the stored sources of a run ('latest' or a run id)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build the table without storing it")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "List skipped exports")

	return cmd
}

func (a *App) runIngest(ctx context.Context, out io.Writer, replay string, dryRun, verbose bool) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var ds *dataset
	if replay != "" {
		ds, err = a.replayDataset(ctx, store, replay)
	} else {
		ds, err = a.scanDataset(ctx, nil)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Scanned %s: %d export(s), %d loaded, %d skipped\n",
		ds.Scan.Source, ds.Scan.ExportsFound, ds.Scan.Loaded, ds.Scan.Skipped)
	if verbose {
		for _, msg := range ds.Scan.Errors {
			fmt.Fprintf(out, "  • %s\n", msg)
		}
	}

	if dryRun {
		fmt.Fprintf(out, "\n(Dry run - no changes made)\nWould store %d messages in %d conversations\n",
			ds.Table.Len(), len(ds.Table.Conversations()))
		return nil
	}

	run, err := a.saveRun(ctx, store, ds)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Stored run %s: %d messages in %d conversations\n", run.ID, run.Messages, run.Conversations)
	fmt.Fprintf(out, "  Database: %s\n", store.Path())
	return nil
}

// replayDataset rebuilds a dataset from the raw exports stored with a run.
// The stored owner is used unless one is configured.
func (a *App) replayDataset(ctx context.Context, store *storage.SQLiteStore, ref string) (*dataset, error) {
	run, err := store.GetRun(ctx, runRef(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to load run %q: %w", ref, err)
	}
	if run.HideNames && !a.Config.HideNames {
		return nil, errs.NewConfigurationError(
			fmt.Sprintf("run %s was stored with hidden names; replay it with --hide-names", run.ID), nil)
	}
	if a.Config.Owner == "" {
		a.Config.Owner = run.Owner
	}

	raws, err := store.RawSources(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, errs.NewEmptyResultError(fmt.Sprintf("run %s has no stored sources", run.ID))
	}

	var batches []*models.RawBatch
	var skipped []error
	for _, src := range raws {
		batch, err := capture.NewMessengerParserWithPath(src.Path).Parse(bytes.NewReader(src.Raw))
		if err != nil {
			skipped = append(skipped, errs.NewSkippableBatchError(src.Path, "unreadable stored source", err))
			continue
		}
		batches = append(batches, batch)
	}

	return a.build(batches, skipped, scanner.ScanResult{
		Source:       "run " + run.ID,
		ExportsFound: len(raws),
	}, nil)
}
