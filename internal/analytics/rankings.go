package analytics

import (
	"sort"
	"strings"

	"github.com/jasperwreed/msgstats/internal/models"
)

// Predicate tests a message's text content.
type Predicate func(content string) bool

// LaughterMarkers are matched as lower-cased substrings.
var LaughterMarkers = []string{"lol", "lmao", "haha"}

func ContainsLaughter(content string) bool {
	lower := strings.ToLower(content)
	for _, marker := range LaughterMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func ContainsQuestion(content string) bool {
	return strings.Contains(content, "?")
}

// ComedianRankings ranks conversations by the share of owner messages that
// laugh.
func (a *Analyzer) ComedianRankings(table *models.Table) ([]models.Ranking, error) {
	return a.RankConversations(table, ContainsLaughter)
}

// ProfessorRankings ranks conversations by the share of owner messages that
// ask a question.
func (a *Analyzer) ProfessorRankings(table *models.Table) ([]models.Ranking, error) {
	return a.RankConversations(table, ContainsQuestion)
}

// RankConversations scores every conversation as 100 × owner messages
// matching match / all messages, zero below MinRankingMessages. Rows are
// sorted by score descending, then by name.
func (a *Analyzer) RankConversations(table *models.Table, match Predicate) ([]models.Ranking, error) {
	if err := requireRows(table, "ranking"); err != nil {
		return nil, err
	}

	names, groups := sortedConversations(table)
	rankings := make([]models.Ranking, 0, len(names))
	for _, name := range names {
		rankings = append(rankings, a.rank(name, groups[name], match))
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		if rankings[i].Score != rankings[j].Score {
			return rankings[i].Score > rankings[j].Score
		}
		return rankings[i].ConversationName < rankings[j].ConversationName
	})

	return rankings, nil
}

func (a *Analyzer) rank(name string, rows []models.Message, match Predicate) models.Ranking {
	r := models.Ranking{ConversationName: name, Total: len(rows)}
	for _, m := range rows {
		if !a.isOwner(m) {
			continue
		}
		if text, ok := m.Text(); ok && match(text) {
			r.Matches++
		}
	}

	if r.Total >= MinRankingMessages {
		r.Score = 100 * float64(r.Matches) / float64(r.Total)
	}
	return r
}
