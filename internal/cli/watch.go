package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jasperwreed/msgstats/internal/daemon"
	"github.com/jasperwreed/msgstats/internal/errs"
	"github.com/jasperwreed/msgstats/internal/ingest"
	"github.com/jasperwreed/msgstats/internal/logging"
	"github.com/jasperwreed/msgstats/internal/scanner"
	"github.com/jasperwreed/msgstats/internal/watcher"
)

func NewWatchCommand(app *App) *cobra.Command {
	var debounce time.Duration
	var save bool
	var statusFile string
	var showStatus bool
	var limit int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the report whenever the export changes",
		Long: `Print the conversation report, then watch the inbox and its conversation directories
and print it again each time message_*.json files are added, rewritten or removed.`,
		Example: `  # Refresh after changes settle for 5s and keep every refresh as a run
  msgstats watch --debounce 5s --save --status-file /tmp/msgstats.status

  # Check on a running watcher from another terminal
  msgstats watch --status --status-file /tmp/msgstats.status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showStatus {
				return printWatchStatus(cmd.OutOrStdout(), statusFile)
			}
			if err := app.Config.RequireMessageDir(); err != nil {
				return err
			}
			if err := NewValidator().ValidateLimit(limit); err != nil {
				return err
			}

			s := scanner.NewMessengerScanner(app.Config.MessageDirectory, app.Logger)
			inbox, err := s.InboxDir()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var aliases *ingest.Pseudonymizer

			refresh := func(ctx context.Context, events []watcher.Event) error {
				if len(events) > 0 {
					fmt.Fprintf(out, "\n%d export file(s) changed, refreshing\n\n", len(events))
				}

				ds, err := app.scanDataset(ctx, aliases)
				if errs.IsEmptyResult(err) || (errs.IsConfiguration(err) && len(events) > 0) {
					app.Logger.Warn("nothing to report", zap.Error(err))
					fmt.Fprintf(out, "No conversations to report: %v\n", err)
					return nil
				}
				if err != nil {
					return err
				}
				aliases = ds.Ingest.Aliases

				if save {
					store, err := app.openStore()
					if err != nil {
						return err
					}
					run, err := app.saveRun(ctx, store, ds)
					store.Close()
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "✓ Stored run %s\n", run.ID)
				}

				return app.renderSummaries(cmd, ds, limit)
			}

			d, err := daemon.New(daemon.Config{
				Inbox:      inbox,
				Pattern:    scanner.ExportPattern,
				Debounce:   debounce,
				StatusFile: statusFile,
			}, refresh, logging.Named(app.Logger, "watch"))
			if err != nil {
				return err
			}

			return d.Run(cmd.Context())
		},
	}

	addLimitFlag(cmd, &limit)
	cmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultDebounce, "Quiet period before a refresh")
	cmd.Flags().BoolVar(&save, "save", false, "Store every refresh as a run")
	cmd.Flags().StringVar(&statusFile, "status-file", "", "Write daemon status JSON to this file while running")
	cmd.Flags().BoolVar(&showStatus, "status", false, "Print the status of the watcher writing --status-file and exit")

	return cmd
}

func printWatchStatus(out io.Writer, statusFile string) error {
	if statusFile == "" {
		return errs.NewConfigurationError("--status requires --status-file", nil)
	}

	status, err := daemon.ReadStatus(statusFile)
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	if status.Status == "stopped" {
		fmt.Fprintln(out, "Watcher status: stopped")
		return nil
	}

	fmt.Fprintf(out, "Watcher status: %s\n", status.Status)
	fmt.Fprintf(out, "PID: %d\n", status.PID)
	fmt.Fprintf(out, "Updated: %s\n", status.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Inbox: %s\n", status.Config.Inbox)

	m := status.Metrics
	fmt.Fprintln(out, "\nMetrics:")
	fmt.Fprintf(out, "  Events received: %d\n", m.EventsReceived)
	fmt.Fprintf(out, "  Events coalesced: %d\n", m.EventsCoalesced)
	fmt.Fprintf(out, "  Refreshes: %d (%d failed)\n", m.Refreshes, m.RefreshFailures)
	fmt.Fprintf(out, "  Running since: %s\n", m.StartTime.Format("2006-01-02 15:04:05"))
	if !m.LastRefresh.IsZero() {
		fmt.Fprintf(out, "  Last refresh: %s\n", m.LastRefresh.Format("2006-01-02 15:04:05"))
	}
	if m.LastError != "" {
		fmt.Fprintf(out, "  Last error: %s\n", m.LastError)
	}
	return nil
}
