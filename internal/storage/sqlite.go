package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/jasperwreed/msgstats/internal/models"
	"github.com/jasperwreed/msgstats/internal/storage/migrations"
)

// ErrRunNotFound is returned when no stored run matches a reference.
var ErrRunNotFound = errors.New("run not found")

// Source is one accepted export file of a run.
type Source struct {
	Path             string
	ConversationName string
	Messages         int
	Raw              []byte
}

type SourceInfo struct {
	ID               int64  `db:"id"`
	Path             string `db:"source_path"`
	ConversationName string `db:"conversation_name"`
	Messages         int    `db:"messages"`
	RawSize          int64  `db:"raw_size"`
	StoredSize       int64  `db:"stored_size"`
}

// RawSource is a stored export, decompressed.
type RawSource struct {
	Path string
	Raw  []byte
}

type Stats struct {
	Runs          int
	Messages      int
	Conversations int
	Sources       int
	RawBytes      int64
	StoredBytes   int64
}

type SearchOptions struct {
	RunID        string
	Conversation string
	Sender       string
	Limit        int
}

type runRow struct {
	ID                string    `db:"id"`
	Owner             string    `db:"owner"`
	HideNames         bool      `db:"hide_names"`
	IncludeGroupChats bool      `db:"include_group_chats"`
	Location          string    `db:"location"`
	CreatedAt         time.Time `db:"created_at"`
	Conversations     int       `db:"conversations"`
	Messages          int       `db:"messages"`
}

func (r runRow) toModel() models.Run {
	return models.Run{
		ID:                r.ID,
		Owner:             r.Owner,
		HideNames:         r.HideNames,
		IncludeGroupChats: r.IncludeGroupChats,
		Location:          r.Location,
		Conversations:     r.Conversations,
		Messages:          r.Messages,
		CreatedAt:         r.CreatedAt,
	}
}

type messageRow struct {
	ID               int64          `db:"id"`
	ConversationName string         `db:"conversation_name"`
	SenderName       string         `db:"sender_name"`
	TimestampMs      int64          `db:"timestamp_ms"`
	Content          sql.NullString `db:"content"`
	Sendees          string         `db:"sendees"`
	Date             string         `db:"date"`
}

func (r messageRow) toModel(loc *time.Location) (models.Message, error) {
	m := models.Message{
		SenderName:       r.SenderName,
		TimestampMs:      r.TimestampMs,
		ConversationName: r.ConversationName,
		Datetime:         time.UnixMilli(r.TimestampMs).In(loc),
		Date:             r.Date,
	}
	if r.Content.Valid {
		content := r.Content.String
		m.Content = &content
	}
	if err := json.Unmarshal([]byte(r.Sendees), &m.Sendees); err != nil {
		return m, fmt.Errorf("failed to decode sendees of message %d: %w", r.ID, err)
	}
	return m, nil
}

type SQLiteStore struct {
	writeDB *sqlx.DB // Single connection for writes
	readDB  *sqlx.DB // Pool of connections for reads
	dbPath  string
	config  *Config
	logger  *zap.Logger
}

func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	config := DefaultConfig()
	config.Path = dbPath
	return NewSQLiteStoreWithConfig(config, logger)
}

func NewSQLiteStoreWithConfig(config *Config, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dbPath := config.Path
	if dbPath == "" {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		dbPath = path
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	writeDB, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open write database: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)
	writeDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	readDB, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(config.MaxOpenConns)
	readDB.SetMaxIdleConns(config.MaxIdleConns)
	readDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &SQLiteStore{
		writeDB: writeDB,
		readDB:  readDB,
		dbPath:  dbPath,
		config:  config,
		logger:  logger.Named("storage"),
	}

	if err := store.initializeDB(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := store.applyMigrations(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	store.logger.Debug("database ready", zap.String("path", dbPath))
	return store, nil
}

func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) initializeDB() error {
	for _, pragma := range s.config.pragmas() {
		if _, err := s.writeDB.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set %s: %w", pragma, err)
		}
	}

	return nil
}

func (s *SQLiteStore) applyMigrations() error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create embed source driver: %w", err)
	}

	dbDriver, err := migratesqlite.WithInstance(s.writeDB.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return err
	}

	version, _, _ := migrator.Version()
	s.logger.Info("database migrations applied", zap.Uint("version", version))
	return nil
}

// SaveRun stores an ingestion run with its message table and, when enabled,
// compressed copies of its source exports. Empty ID and CreatedAt are
// filled in; Conversations and Messages are set from the table.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *models.Run, table *models.Table, sources []Source) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Location == "" {
		run.Location = time.UTC.String()
	}
	run.Messages = table.Len()
	run.Conversations = len(table.Conversations())

	tx, err := s.writeDB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, queryInsertRun, runRow{
		ID:                run.ID,
		Owner:             run.Owner,
		HideNames:         run.HideNames,
		IncludeGroupChats: run.IncludeGroupChats,
		Location:          run.Location,
		CreatedAt:         run.CreatedAt,
	}); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, queryInsertMessage)
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range table.Rows() {
		sendees, err := json.Marshal(m.Sendees)
		if err != nil {
			return err
		}

		var content sql.NullString
		if text, ok := m.Text(); ok {
			content = sql.NullString{String: text, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			run.ID, i, m.ConversationName, m.SenderName, m.TimestampMs, content, string(sendees), m.Date,
		); err != nil {
			return fmt.Errorf("failed to insert message %d: %w", i, err)
		}
	}

	for _, src := range sources {
		var raw interface{}
		if s.config.StoreRawSources && src.Raw != nil {
			raw = snappy.Encode(nil, src.Raw)
		}
		if _, err := tx.ExecContext(ctx, queryInsertSource,
			run.ID, src.Path, src.ConversationName, src.Messages, raw, len(src.Raw),
		); err != nil {
			return fmt.Errorf("failed to insert source %s: %w", src.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info("run saved",
		zap.String("run_id", run.ID),
		zap.Int("messages", run.Messages),
		zap.Int("conversations", run.Conversations),
		zap.Int("sources", len(sources)))
	return nil
}

// ResolveRunID maps a full id, a unique id prefix, or "" (latest run) to a
// stored run id.
func (s *SQLiteStore) ResolveRunID(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		var id string
		err := s.readDB.GetContext(ctx, &id, queryLatestRunID)
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrRunNotFound
		}
		return id, err
	}

	var ids []string
	if err := s.readDB.SelectContext(ctx, &ids, queryResolveRunPrefix, ref); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, ref)
	case 1:
		return ids[0], nil
	default:
		for _, id := range ids {
			if id == ref {
				return id, nil
			}
		}
		return "", fmt.Errorf("run reference %q is ambiguous", ref)
	}
}

func (s *SQLiteStore) GetRun(ctx context.Context, ref string) (*models.Run, error) {
	id, err := s.ResolveRunID(ctx, ref)
	if err != nil {
		return nil, err
	}

	var row runRow
	if err := s.readDB.GetContext(ctx, &row, querySelectRun, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, ref)
		}
		return nil, err
	}

	run := row.toModel()
	return &run, nil
}

// LoadTable rebuilds the message table of a stored run in its original row
// order.
func (s *SQLiteStore) LoadTable(ctx context.Context, ref string) (*models.Table, *models.Run, error) {
	run, err := s.GetRun(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	loc, err := time.LoadLocation(run.Location)
	if err != nil {
		s.logger.Warn("unknown stored location, using UTC",
			zap.String("location", run.Location), zap.Error(err))
		loc = time.UTC
	}

	var rows []messageRow
	if err := s.readDB.SelectContext(ctx, &rows, querySelectMessages, run.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to load messages: %w", err)
	}

	messages := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		m, err := row.toModel(loc)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, m)
	}

	return models.NewTable(messages), run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = -1
	}

	var rows []runRow
	if err := s.readDB.SelectContext(ctx, &rows, queryListRuns, limit); err != nil {
		return nil, err
	}

	runs := make([]models.Run, len(rows))
	for i, row := range rows {
		runs[i] = row.toModel()
	}
	return runs, nil
}

func (s *SQLiteStore) ListSources(ctx context.Context, ref string) ([]SourceInfo, error) {
	id, err := s.ResolveRunID(ctx, ref)
	if err != nil {
		return nil, err
	}

	var sources []SourceInfo
	if err := s.readDB.SelectContext(ctx, &sources, querySelectSources, id); err != nil {
		return nil, err
	}
	return sources, nil
}

// RawSources returns the decompressed exports stored with a run.
func (s *SQLiteStore) RawSources(ctx context.Context, ref string) ([]RawSource, error) {
	id, err := s.ResolveRunID(ctx, ref)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Path    string `db:"source_path"`
		Raw     []byte `db:"raw"`
		RawSize int64  `db:"raw_size"`
	}
	if err := s.readDB.SelectContext(ctx, &rows, querySelectRawSources, id); err != nil {
		return nil, err
	}

	sources := make([]RawSource, 0, len(rows))
	for _, row := range rows {
		raw, err := snappy.Decode(nil, row.Raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress %s: %w", row.Path, err)
		}
		if int64(len(raw)) != row.RawSize {
			return nil, fmt.Errorf("stored source %s is %d bytes, expected %d", row.Path, len(raw), row.RawSize)
		}
		sources = append(sources, RawSource{Path: row.Path, Raw: raw})
	}
	return sources, nil
}

// SearchMessages runs a full-text query over message content of one run
// (the latest when opts.RunID is empty), best matches first.
func (s *SQLiteStore) SearchMessages(ctx context.Context, match string, opts SearchOptions) ([]models.SearchResult, error) {
	run, err := s.GetRun(ctx, opts.RunID)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(run.Location)
	if err != nil {
		loc = time.UTC
	}

	query := querySearchMessages
	args := []interface{}{match, run.ID}

	if opts.Conversation != "" {
		query += " AND m.conversation_name = ?"
		args = append(args, opts.Conversation)
	}
	if opts.Sender != "" {
		query += " AND m.sender_name = ?"
		args = append(args, opts.Sender)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " ORDER BY score, m.timestamp_ms LIMIT ?"
	args = append(args, limit)

	var rows []struct {
		messageRow
		Snippet string  `db:"snippet"`
		Score   float64 `db:"score"`
	}
	if err := s.readDB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]models.SearchResult, 0, len(rows))
	for _, row := range rows {
		m, err := row.toModel(loc)
		if err != nil {
			return nil, err
		}
		results = append(results, models.SearchResult{
			RunID:   run.ID,
			Message: m,
			Snippet: row.Snippet,
			// bm25 is lower-is-better; flip it so callers can compare upward.
			Score: -row.Score,
		})
	}
	return results, nil
}

func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.readDB.GetContext(ctx, &stats.Runs, queryCountRuns); err != nil {
		return nil, err
	}
	if err := s.readDB.GetContext(ctx, &stats.Messages, queryCountMessages); err != nil {
		return nil, err
	}
	if err := s.readDB.GetContext(ctx, &stats.Conversations, queryCountConversations); err != nil {
		return nil, err
	}

	var sizes struct {
		Sources     int   `db:"sources"`
		RawBytes    int64 `db:"raw_bytes"`
		StoredBytes int64 `db:"stored_bytes"`
	}
	if err := s.readDB.GetContext(ctx, &sizes, querySourceSizes); err != nil {
		return nil, err
	}
	stats.Sources = sizes.Sources
	stats.RawBytes = sizes.RawBytes
	stats.StoredBytes = sizes.StoredBytes

	return stats, nil
}

// DeleteRun removes a run with all of its messages and sources.
func (s *SQLiteStore) DeleteRun(ctx context.Context, ref string) (string, error) {
	id, err := s.ResolveRunID(ctx, ref)
	if err != nil {
		return "", err
	}

	tx, err := s.writeDB.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	for _, query := range []string{queryDeleteRunMessages, queryDeleteRunSources} {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return "", err
		}
	}

	result, err := tx.ExecContext(ctx, queryDeleteRun, id)
	if err != nil {
		return "", err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, ref)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	s.logger.Info("run deleted", zap.String("run_id", id))
	return id, nil
}

func (s *SQLiteStore) Close() error {
	var errs []error

	// Run PRAGMA optimize before closing for better long-term performance
	if _, err := s.writeDB.Exec("PRAGMA optimize"); err != nil {
		errs = append(errs, fmt.Errorf("failed to optimize: %w", err))
	}

	if err := s.readDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close read db: %w", err))
	}

	if err := s.writeDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close write db: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}

	return nil
}
