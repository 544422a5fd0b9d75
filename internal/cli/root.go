package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jasperwreed/msgstats/internal/config"
	"github.com/jasperwreed/msgstats/internal/logging"
)

// App carries what every command needs once flags are parsed.
type App struct {
	Config *config.Config
	Logger *zap.Logger
}

func NewRootCommand() *cobra.Command {
	app := &App{Logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "msgstats",
		Short: "Statistics over Messenger chat exports",
		Long: `msgstats - Turn an extracted Messenger data export into per-conversation statistics:
daily message counts, response times, ghosting, and who makes you laugh or ask questions.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = app.Logger.Sync()
		},
	}

	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		NewIngestCommand(app),
		NewCountsCommand(app),
		NewResponseTimesCommand(app),
		NewGhostCommand(app),
		NewRankCommand(app),
		NewReportCommand(app),
		NewBrowseCommand(app),
		NewWatchCommand(app),
		NewRunsCommand(app),
		NewSearchCommand(app),
		NewDeleteRunCommand(app),
	)

	return rootCmd
}

func (a *App) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	opts := logging.DefaultOptions()
	opts.Level = cfg.Log.Level
	opts.Format = cfg.Log.Format
	opts.File = cfg.Log.File
	opts.Writer = cmd.ErrOrStderr()

	logger, err := logging.New(opts)
	if err != nil {
		return err
	}

	dbPath, err := NewValidator().ResolvePath(cfg.DBPath)
	if err != nil {
		return err
	}
	cfg.DBPath = dbPath

	a.Config = cfg
	a.Logger = logger
	return nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
