package cli

import (
	"github.com/spf13/cobra"

	"github.com/jasperwreed/msgstats/internal/tui"
)

func NewBrowseCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse conversation summaries in a TUI",
		Long:  `Open an interactive terminal UI listing every conversation with its summary and daily counts.`,
		Example: `  # Browse the export
  msgstats browse

  # Browse a stored run
  msgstats browse --from-db latest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := app.loadDataset(cmd.Context())
			if err != nil {
				return err
			}

			analyzer := ds.analyzer()
			summaries, err := analyzer.Summarize(ds.Table, app.Config.GhostLimit)
			if err != nil {
				return err
			}

			browser := tui.NewBrowser("Conversations ("+ds.label()+")", summaries, analyzer.MessageCounts(ds.Table))
			return browser.Run()
		},
	}

	return cmd
}
