package cli

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/msgstats/internal/report"
	"github.com/jasperwreed/msgstats/internal/search"
	"github.com/jasperwreed/msgstats/internal/storage"
)

type searchFlags struct {
	limit        int
	run          string
	conversation string
	sender       string
	prefix       bool
}

func NewSearchCommand(app *App) *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over a stored run",
		Long:  `Search message content of a stored run (the latest by default). Every term must match.`,
		Example: `  # Search the latest run
  msgstats search "road trip"

  # Prefix search within one conversation
  msgstats search photo --prefix --conversation "['Bob', 'Jane Doe']"

  # Search an older run
  msgstats search birthday --run 3f2a --limit 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			v := NewValidator()
			if err := v.ValidateQuery(query); err != nil {
				return err
			}
			if err := v.ValidateLimit(flags.limit); err != nil {
				return err
			}
			return app.runSearch(cmd.Context(), cmd.OutOrStdout(), query, flags)
		},
	}

	cmd.Flags().IntVar(&flags.limit, "limit", 10, "Maximum number of results")
	cmd.Flags().StringVar(&flags.run, "run", LatestRun, "Run to search ('latest' or a run id)")
	cmd.Flags().StringVar(&flags.conversation, "conversation", "", "Only this conversation")
	cmd.Flags().StringVar(&flags.sender, "sender", "", "Only messages from this sender")
	cmd.Flags().BoolVar(&flags.prefix, "prefix", false, "Match terms as prefixes")

	return cmd
}

func (a *App) runSearch(ctx context.Context, out io.Writer, query string, flags searchFlags) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	opts := storage.SearchOptions{
		RunID:        runRef(flags.run),
		Conversation: flags.conversation,
		Sender:       flags.sender,
		Limit:        flags.limit,
	}

	searcher := search.NewSearcher(store)
	find := searcher.Search
	if flags.prefix {
		find = searcher.SearchPrefix
	}

	results, err := find(ctx, query, opts)
	if err != nil {
		return err
	}
	return report.New(out).SearchResults(results)
}
