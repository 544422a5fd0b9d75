// Package analytics computes read-only statistics over the unified message
// table.
package analytics

import (
	"sort"

	"github.com/jasperwreed/msgstats/internal/errs"
	"github.com/jasperwreed/msgstats/internal/models"
)

const (
	// MinutesInAWeek is the default ghosting threshold.
	MinutesInAWeek = 7 * 24 * 60

	// MinRankingMessages is the conversation size below which ranking scores
	// are forced to zero.
	MinRankingMessages = 100
)

// Analyzer evaluates the table from the owner's point of view.
type Analyzer struct {
	owner string
}

func New(owner string) *Analyzer {
	return &Analyzer{owner: owner}
}

func (a *Analyzer) Owner() string {
	return a.owner
}

func (a *Analyzer) isOwner(m models.Message) bool {
	return m.SenderName == a.owner
}

// MessageCounts groups rows by (date, conversation) and counts them by side.
// Rows are sorted by date, then conversation name.
func (a *Analyzer) MessageCounts(table *models.Table) []models.MessageCount {
	type key struct {
		date         string
		conversation string
	}

	index := make(map[key]int)
	var counts []models.MessageCount

	for _, m := range table.Rows() {
		k := key{date: m.Date, conversation: m.ConversationName}
		i, ok := index[k]
		if !ok {
			i = len(counts)
			index[k] = i
			counts = append(counts, models.MessageCount{
				Date:             m.Date,
				ConversationName: m.ConversationName,
			})
		}

		counts[i].Total++
		if a.isOwner(m) {
			counts[i].MessagesFromMe++
		}
	}

	for i := range counts {
		counts[i].MessagesFromOther = counts[i].Total - counts[i].MessagesFromMe
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Date != counts[j].Date {
			return counts[i].Date < counts[j].Date
		}
		return counts[i].ConversationName < counts[j].ConversationName
	})

	return counts
}

// sortedConversations returns the table's per-conversation groups in
// conversation name order.
func sortedConversations(table *models.Table) ([]string, map[string][]models.Message) {
	groups := table.ByConversation()
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, groups
}

func requireRows(table *models.Table, what string) error {
	if table.Len() == 0 {
		return errs.NewEmptyResultError(what + " needs at least one message")
	}
	return nil
}
