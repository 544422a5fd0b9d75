package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jasperwreed/msgstats/internal/capture"
	"github.com/jasperwreed/msgstats/internal/errs"
	"github.com/jasperwreed/msgstats/internal/models"
)

const (
	// InboxPath is where a Messenger download keeps one directory per
	// conversation.
	InboxPath = "messages/inbox"

	// ExportPattern matches the per-conversation export files.
	ExportPattern = "message_*.json"
)

type MessengerScanner struct {
	root   string
	logger *zap.Logger
}

func NewMessengerScanner(root string, logger *zap.Logger) *MessengerScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessengerScanner{
		root:   root,
		logger: logger.Named("scanner"),
	}
}

func (s *MessengerScanner) Name() string {
	return "Messenger"
}

// ScanPaths lists the candidate inbox locations in preference order: the
// download layout first, then the root itself for an already-extracted inbox.
func (s *MessengerScanner) ScanPaths() []string {
	if s.root == "" {
		return []string{}
	}

	return []string{
		filepath.Join(s.root, filepath.FromSlash(InboxPath)),
		s.root,
	}
}

// InboxDir returns the first existing scan path.
func (s *MessengerScanner) InboxDir() (string, error) {
	if s.root == "" {
		return "", errs.NewConfigurationError("message directory is not set", nil)
	}
	if !DirExists(s.root) {
		return "", errs.NewConfigurationError(fmt.Sprintf("message directory %s does not exist", s.root), nil)
	}

	for _, path := range s.ScanPaths() {
		if DirExists(path) {
			return path, nil
		}
	}

	return s.root, nil
}

func (s *MessengerScanner) ScanForExports() ([]ExportInfo, error) {
	inbox, err := s.InboxDir()
	if err != nil {
		return nil, err
	}

	conversations, err := os.ReadDir(inbox)
	if err != nil {
		return nil, errs.NewConfigurationError(fmt.Sprintf("cannot read inbox %s", inbox), err)
	}

	var exports []ExportInfo
	dirs := 0

	for _, conversation := range conversations {
		if !conversation.IsDir() {
			continue
		}

		conversationPath := filepath.Join(inbox, conversation.Name())
		files, err := os.ReadDir(conversationPath)
		if err != nil {
			s.logger.Warn("skipping unreadable conversation directory",
				zap.String("path", conversationPath), zap.Error(err))
			continue
		}
		dirs++

		for _, file := range files {
			if file.IsDir() || !matchesPattern(file.Name(), ExportPattern) {
				continue
			}

			info, err := file.Info()
			if err != nil {
				continue
			}

			exports = append(exports, ExportInfo{
				Path:         filepath.Join(conversationPath, file.Name()),
				Conversation: conversation.Name(),
				Size:         info.Size(),
				ModTime:      info.ModTime().Format("2006-01-02 15:04"),
			})
		}
	}

	if dirs == 0 {
		return nil, errs.NewConfigurationError(fmt.Sprintf("no readable conversation directories in %s", inbox), nil)
	}

	sort.Slice(exports, func(i, j int) bool {
		return exports[i].Path < exports[j].Path
	})

	s.logger.Debug("scan complete",
		zap.String("inbox", inbox),
		zap.Int("conversations", dirs),
		zap.Int("exports", len(exports)))

	return exports, nil
}

func (s *MessengerScanner) ParseExport(path string) (*models.RawBatch, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer file.Close()

	parser := capture.NewMessengerParserWithPath(path)
	return parser.Parse(file)
}

// LoadResult holds decoded batches in discovery order and the exports that
// could not be decoded.
type LoadResult struct {
	Batches []*models.RawBatch
	Skipped []error
}

// LoadBatches decodes exports concurrently. A file that cannot be read or
// decoded becomes a SkippableBatchError; only context cancellation fails the
// whole load.
func LoadBatches(ctx context.Context, s Scanner, exports []ExportInfo) (*LoadResult, error) {
	batches := make([]*models.RawBatch, len(exports))
	failures := make([]error, len(exports))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, export := range exports {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			batch, err := s.ParseExport(export.Path)
			if err != nil {
				failures[i] = errs.NewSkippableBatchError(export.Path, "unreadable export", err)
				return nil
			}
			batches[i] = batch
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &LoadResult{}
	for i := range exports {
		if failures[i] != nil {
			result.Skipped = append(result.Skipped, failures[i])
			continue
		}
		result.Batches = append(result.Batches, batches[i])
	}

	return result, nil
}
