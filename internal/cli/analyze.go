package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/msgstats/internal/analytics"
	"github.com/jasperwreed/msgstats/internal/models"
	"github.com/jasperwreed/msgstats/internal/report"
)

const (
	RankingComedian  = "comedian"
	RankingProfessor = "professor"
)

func (a *App) renderer(cmd *cobra.Command, limit int) *report.Renderer {
	r := report.New(cmd.OutOrStdout())
	r.Limit = limit
	return r
}

func addLimitFlag(cmd *cobra.Command, limit *int) {
	cmd.Flags().IntVar(limit, "limit", 0, "Maximum number of rows to show (0 shows all)")
}

func NewCountsCommand(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "counts",
		Short: "Messages per day and conversation",
		Example: `  # Daily counts from the export
  msgstats counts --owner "Jane Doe" --dir ./facebook

  # Daily counts of the latest stored run
  msgstats counts --from-db latest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := NewValidator().ValidateLimit(limit); err != nil {
				return err
			}
			ds, err := app.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			return app.renderer(cmd, limit).Counts(ds.analyzer().MessageCounts(ds.Table))
		},
	}

	addLimitFlag(cmd, &limit)
	return cmd
}

func NewResponseTimesCommand(app *App) *cobra.Command {
	var limit int
	var toMe bool

	cmd := &cobra.Command{
		Use:   "response-times",
		Short: "How long replies take",
		Long: `List how long you took to answer each message from the other side, or with --to-me
how long they took to answer you. Times are in minutes.`,
		Example: `  msgstats response-times --limit 20
  msgstats response-times --to-me`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := NewValidator().ValidateLimit(limit); err != nil {
				return err
			}
			ds, err := app.loadDataset(cmd.Context())
			if err != nil {
				return err
			}

			analyzer := ds.analyzer()
			if toMe {
				return app.renderer(cmd, limit).ResponseTimes("Response times to me", analyzer.ResponseTimesToMe(ds.Table))
			}
			return app.renderer(cmd, limit).ResponseTimes("Response times from me", analyzer.ResponseTimesFromMe(ds.Table))
		},
	}

	addLimitFlag(cmd, &limit)
	cmd.Flags().BoolVar(&toMe, "to-me", false, "Measure replies to your messages instead of yours")
	return cmd
}

func NewGhostCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ghost",
		Short: "Share of your replies slower than the ghost limit",
		Example: `  # Replies slower than a week (default)
  msgstats ghost

  # Replies slower than a day
  msgstats ghost --ghost-limit 1440`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := app.loadDataset(cmd.Context())
			if err != nil {
				return err
			}

			responses := ds.analyzer().ResponseTimesFromMe(ds.Table)
			fraction, err := analytics.GhostPercentage(responses, app.Config.GhostLimit)
			if err != nil {
				return err
			}
			return app.renderer(cmd, 0).Ghost(fraction, app.Config.GhostLimit, len(responses))
		},
	}

	return cmd
}

func NewRankCommand(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "rank <comedian|professor>",
		Short: "Rank conversations by laughter or questions",
		Long: `Rank conversations by the share of your messages that laugh (comedian: lol, lmao,
haha) or ask something (professor: contains '?'). Conversations with fewer than
100 messages score 0.`,
		Example: `  msgstats rank comedian
  msgstats rank professor --limit 10`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{RankingComedian, RankingProfessor},
		RunE: func(cmd *cobra.Command, args []string) error {
			v := NewValidator()
			if err := v.ValidateRanking(args[0]); err != nil {
				return err
			}
			if err := v.ValidateLimit(limit); err != nil {
				return err
			}

			ds, err := app.loadDataset(cmd.Context())
			if err != nil {
				return err
			}

			var rankings []models.Ranking
			var title string
			switch args[0] {
			case RankingComedian:
				title = "Comedian rankings"
				rankings, err = ds.analyzer().ComedianRankings(ds.Table)
			case RankingProfessor:
				title = "Professor rankings"
				rankings, err = ds.analyzer().ProfessorRankings(ds.Table)
			}
			if err != nil {
				return err
			}
			return app.renderer(cmd, limit).Rankings(title, rankings)
		},
	}

	addLimitFlag(cmd, &limit)
	return cmd
}

func NewReportCommand(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "One summary row per conversation",
		Example: `  msgstats report --no-group-chats
  msgstats report --from-db latest --limit 25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := NewValidator().ValidateLimit(limit); err != nil {
				return err
			}
			ds, err := app.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			return app.renderSummaries(cmd, ds, limit)
		},
	}

	addLimitFlag(cmd, &limit)
	return cmd
}

func (a *App) renderSummaries(cmd *cobra.Command, ds *dataset, limit int) error {
	summaries, err := ds.analyzer().Summarize(ds.Table, a.Config.GhostLimit)
	if err != nil {
		return fmt.Errorf("failed to summarize %s: %w", ds.label(), err)
	}
	return a.renderer(cmd, limit).Summaries(summaries)
}
