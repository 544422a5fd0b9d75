package scanner

import (
	"os"
	"path/filepath"

	"github.com/jasperwreed/msgstats/internal/models"
)

type Scanner interface {
	Name() string
	ScanPaths() []string
	ScanForExports() ([]ExportInfo, error)
	ParseExport(path string) (*models.RawBatch, error)
}

type ExportInfo struct {
	Path         string
	Conversation string
	Size         int64
	ModTime      string
}

type ScanResult struct {
	Source       string
	ExportsFound int
	Loaded       int
	Skipped      int
	Errors       []string
}

func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func matchesPattern(path, pattern string) bool {
	matched, _ := filepath.Match(pattern, filepath.Base(path))
	return matched
}
