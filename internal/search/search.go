package search

import (
	"context"
	"errors"
	"strings"

	"github.com/jasperwreed/msgstats/internal/models"
	"github.com/jasperwreed/msgstats/internal/storage"
)

// ErrEmptyQuery is returned when a query has no searchable terms.
var ErrEmptyQuery = errors.New("search query is empty")

type Searcher struct {
	store *storage.SQLiteStore
}

func NewSearcher(store *storage.SQLiteStore) *Searcher {
	return &Searcher{store: store}
}

// Search matches every term of query against message content. Terms are
// quoted so punctuation in user input never reaches the FTS parser.
func (s *Searcher) Search(ctx context.Context, query string, opts storage.SearchOptions) ([]models.SearchResult, error) {
	match := BuildMatch(query, false)
	if match == "" {
		return nil, ErrEmptyQuery
	}
	return s.store.SearchMessages(ctx, match, opts)
}

// SearchPrefix is like Search but treats each term as a prefix.
func (s *Searcher) SearchPrefix(ctx context.Context, query string, opts storage.SearchOptions) ([]models.SearchResult, error) {
	match := BuildMatch(query, true)
	if match == "" {
		return nil, ErrEmptyQuery
	}
	return s.store.SearchMessages(ctx, match, opts)
}

// BuildMatch turns free text into an FTS5 expression of quoted terms joined
// by AND.
func BuildMatch(query string, prefix bool) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ReplaceAll(term, `"`, `""`)
		q := `"` + term + `"`
		if prefix {
			q += "*"
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, " AND ")
}
