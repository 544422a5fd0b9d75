package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Validator provides methods for validating CLI inputs
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateRanking checks the ranking kind given to rank
func (v *Validator) ValidateRanking(kind string) error {
	switch kind {
	case RankingComedian, RankingProfessor:
		return nil
	default:
		return fmt.Errorf("unknown ranking %q, want %s or %s", kind, RankingComedian, RankingProfessor)
	}
}

// ValidateLimit rejects negative row limits; zero means no limit
func (v *Validator) ValidateLimit(limit int) error {
	if limit < 0 {
		return fmt.Errorf("--limit must not be negative, got %d", limit)
	}
	return nil
}

// ValidateQuery checks that a search query has at least one term
func (v *Validator) ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("search query cannot be empty")
	}
	return nil
}

// ResolvePath resolves a path to an absolute path, expanding a leading ~
func (v *Validator) ResolvePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, strings.TrimPrefix(path, "~")), nil
	}

	if path == "." {
		return os.Getwd()
	}

	if filepath.IsAbs(path) {
		return path, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	return filepath.Join(cwd, path), nil
}
