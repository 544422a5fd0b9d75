package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jasperwreed/msgstats/internal/analytics"
	"github.com/jasperwreed/msgstats/internal/config"
	"github.com/jasperwreed/msgstats/internal/errs"
	"github.com/jasperwreed/msgstats/internal/ingest"
	"github.com/jasperwreed/msgstats/internal/models"
	"github.com/jasperwreed/msgstats/internal/scanner"
	"github.com/jasperwreed/msgstats/internal/storage"
)

// LatestRun selects the most recent stored run.
const LatestRun = "latest"

// dataset is a unified message table plus where it came from. Exactly one
// of Run and Ingest is set.
type dataset struct {
	Table  *models.Table
	Owner  string
	Run    *models.Run
	Ingest *ingest.Result
	Scan   scanner.ScanResult
}

func (d *dataset) analyzer() *analytics.Analyzer {
	return analytics.New(d.Owner)
}

func (d *dataset) label() string {
	if d.Run != nil {
		return "run " + d.Run.ID
	}
	return d.Scan.Source
}

func (a *App) openStore() (*storage.SQLiteStore, error) {
	cfg := storage.DefaultConfig()
	cfg.Path = a.Config.DBPath
	cfg.StoreRawSources = a.Config.StoreRaw

	store, err := storage.NewSQLiteStoreWithConfig(cfg, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// runRef maps the user-facing "latest" keyword to the store's empty reference.
func runRef(ref string) string {
	if ref == LatestRun {
		return ""
	}
	return ref
}

// loadDataset reads a stored run when --from-db is set and scans the export
// directory otherwise. A stored run can drop its group chats but keeps the
// names and dates it was stored with.
func (a *App) loadDataset(ctx context.Context) (*dataset, error) {
	if a.Config.FromDB != "" {
		return a.storedDataset(ctx, a.Config.FromDB)
	}
	return a.scanDataset(ctx, nil)
}

func (a *App) storedDataset(ctx context.Context, ref string) (*dataset, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	table, run, err := store.LoadTable(ctx, runRef(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to load run %q: %w", ref, err)
	}

	a.Logger.Debug("loaded stored run",
		zap.String("run_id", run.ID),
		zap.Int("messages", run.Messages))

	if !a.Config.IncludeGroupChats() && run.IncludeGroupChats {
		table = table.Filter(func(m models.Message) bool {
			return len(m.Sendees) == 1
		})
	}
	if a.Config.HideNames && !run.HideNames {
		a.Logger.Warn("stored run keeps real names, --hide-names ignored; use ingest --replay --hide-names",
			zap.String("run_id", run.ID))
	}
	if a.Config.Timezone != config.DefaultTimezone && a.Config.Timezone != run.Location {
		a.Logger.Warn("stored run dates use the run's time zone, --tz ignored",
			zap.String("run_id", run.ID),
			zap.String("location", run.Location),
			zap.String("tz", a.Config.Timezone))
	}

	return &dataset{Table: table, Owner: run.Owner, Run: run}, nil
}

// scanDataset discovers, decodes and ingests the configured export. aliases,
// when set, keeps pseudonyms stable across repeated scans.
func (a *App) scanDataset(ctx context.Context, aliases *ingest.Pseudonymizer) (*dataset, error) {
	if err := a.Config.RequireOwner(); err != nil {
		return nil, err
	}
	if err := a.Config.RequireMessageDir(); err != nil {
		return nil, err
	}

	s := scanner.NewMessengerScanner(a.Config.MessageDirectory, a.Logger)
	exports, err := s.ScanForExports()
	if err != nil {
		return nil, err
	}

	loaded, err := scanner.LoadBatches(ctx, s, exports)
	if err != nil {
		return nil, err
	}
	for _, skip := range loaded.Skipped {
		a.Logger.Warn("skipping unreadable export",
			zap.String("code", errs.Code(skip)),
			zap.Error(skip))
	}

	return a.build(loaded.Batches, loaded.Skipped, scanner.ScanResult{
		Source:       s.Name(),
		ExportsFound: len(exports),
	}, aliases)
}

func (a *App) build(batches []*models.RawBatch, skipped []error, summary scanner.ScanResult, aliases *ingest.Pseudonymizer) (*dataset, error) {
	loc, err := a.Config.Location()
	if err != nil {
		return nil, err
	}

	in := ingest.New(ingest.Options{
		Owner:             a.Config.Owner,
		HideNames:         a.Config.HideNames,
		IncludeGroupChats: a.Config.IncludeGroupChats(),
		Location:          loc,
		Aliases:           aliases,
	}, a.Logger)

	result, err := in.Build(batches)
	if err != nil {
		return nil, err
	}
	result.Skipped = append(skipped, result.Skipped...)

	summary.Loaded = len(result.Accepted)
	summary.Skipped = len(result.Skipped)
	for _, skip := range result.Skipped {
		summary.Errors = append(summary.Errors, skip.Error())
	}

	return &dataset{
		Table:  result.Table,
		Owner:  a.Config.Owner,
		Ingest: result,
		Scan:   summary,
	}, nil
}

// saveRun persists a scanned dataset as a new run. Runs built with hidden
// names keep neither raw exports nor export paths; the pseudonymized
// conversation key stands in for the path.
func (a *App) saveRun(ctx context.Context, store *storage.SQLiteStore, ds *dataset) (*models.Run, error) {
	run := &models.Run{
		Owner:             ds.Owner,
		HideNames:         a.Config.HideNames,
		IncludeGroupChats: a.Config.IncludeGroupChats(),
		Location:          a.Config.Timezone,
		CreatedAt:         time.Now().UTC(),
	}

	sources := make([]storage.Source, 0, len(ds.Ingest.Accepted))
	for _, acc := range ds.Ingest.Accepted {
		src := storage.Source{
			Path:             acc.Source,
			ConversationName: acc.ConversationName,
			Messages:         acc.Messages,
			Raw:              acc.Raw,
		}
		if run.HideNames {
			src.Path = acc.ConversationName
			src.Raw = nil
		}
		sources = append(sources, src)
	}

	if err := store.SaveRun(ctx, run, ds.Table, sources); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}
	return run, nil
}
