package analytics

import (
	"sort"

	"github.com/jasperwreed/msgstats/internal/models"
)

// Summarize builds one summary row per conversation, sorted by total
// messages descending, then by name.
func (a *Analyzer) Summarize(table *models.Table, ghostLimitMinutes float64) ([]models.ConversationSummary, error) {
	if err := requireRows(table, "summary"); err != nil {
		return nil, err
	}

	names, groups := sortedConversations(table)
	summaries := make([]models.ConversationSummary, 0, len(names))

	for _, name := range names {
		rows := groups[name]
		s := models.ConversationSummary{
			ConversationName: name,
			Total:            len(rows),
			FirstDate:        rows[0].Date,
			LastDate:         rows[len(rows)-1].Date,
		}

		days := make(map[string]struct{})
		for _, m := range rows {
			days[m.Date] = struct{}{}
			if a.isOwner(m) {
				s.MessagesFromMe++
			}
		}
		s.MessagesFromOther = s.Total - s.MessagesFromMe
		s.ActiveDays = len(days)

		fromMe := minutes(a.conversationResponses(rows, true))
		toMe := minutes(a.conversationResponses(rows, false))
		s.MeanResponseFromMe, s.MedianResponseFromMe = mean(fromMe), median(fromMe)
		s.MeanResponseToMe, s.MedianResponseToMe = mean(toMe), median(toMe)

		if len(fromMe) > 0 {
			ghosted := 0
			for _, v := range fromMe {
				if v > ghostLimitMinutes {
					ghosted++
				}
			}
			fraction := float64(ghosted) / float64(len(fromMe))
			s.GhostFraction = &fraction
		}

		s.ComedianScore = a.rank(name, rows, ContainsLaughter).Score
		s.ProfessorScore = a.rank(name, rows, ContainsQuestion).Score

		summaries = append(summaries, s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Total != summaries[j].Total {
			return summaries[i].Total > summaries[j].Total
		}
		return summaries[i].ConversationName < summaries[j].ConversationName
	})

	return summaries, nil
}

func minutes(responses []models.ResponseTime) []float64 {
	out := make([]float64, len(responses))
	for i, r := range responses {
		out[i] = r.ResponseMinutes
	}
	return out
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	return &m
}

func median(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	m := sorted[mid]
	if len(sorted)%2 == 0 {
		m = (sorted[mid-1] + sorted[mid]) / 2
	}
	return &m
}
