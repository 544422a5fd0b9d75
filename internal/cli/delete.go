package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func NewDeleteRunCommand(app *App) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "delete-run <run>",
		Short: "Delete a stored run",
		Long:  `Delete a stored run with its messages and sources.`,
		Example: `  # Delete a run with confirmation
  msgstats delete-run 3f2a

  # Delete the latest run without confirmation prompt
  msgstats delete-run latest --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runDeleteRun(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), args[0], confirm)
		},
	}

	cmd.Flags().BoolVar(&confirm, "yes", false, "Skip confirmation prompt")

	return cmd
}

func (a *App) runDeleteRun(ctx context.Context, in io.Reader, out io.Writer, ref string, skipConfirm bool) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(ctx, runRef(ref))
	if err != nil {
		return fmt.Errorf("run not found: %w", err)
	}

	if !skipConfirm {
		fmt.Fprintf(out, "Delete run %s (%s, %d messages)? [y/N]: ",
			run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"), run.Messages)
		response, _ := bufio.NewReader(in).ReadString('\n')
		response = strings.TrimSpace(response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	id, err := store.DeleteRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	fmt.Fprintf(out, "✓ Deleted run %s\n", id)
	return nil
}
