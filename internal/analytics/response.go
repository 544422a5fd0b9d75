package analytics

import (
	"fmt"

	"github.com/jasperwreed/msgstats/internal/errs"
	"github.com/jasperwreed/msgstats/internal/models"
)

const responseOffsetMs = 1

// ResponseTimesFromMe measures how long the owner took to answer each turn of
// the other side. One row per owner turn-start that follows a turn of
// someone else.
func (a *Analyzer) ResponseTimesFromMe(table *models.Table) []models.ResponseTime {
	return a.responseTimes(table, true)
}

// ResponseTimesToMe is the mirror of ResponseTimesFromMe: one row per
// non-owner turn-start that answers a previous turn.
func (a *Analyzer) ResponseTimesToMe(table *models.Table) []models.ResponseTime {
	return a.responseTimes(table, false)
}

func (a *Analyzer) responseTimes(table *models.Table, fromMe bool) []models.ResponseTime {
	names, groups := sortedConversations(table)

	var out []models.ResponseTime
	for _, name := range names {
		out = append(out, a.conversationResponses(groups[name], fromMe)...)
	}
	return out
}

// conversationResponses expects rows of one conversation in chronological
// order.
func (a *Analyzer) conversationResponses(rows []models.Message, fromMe bool) []models.ResponseTime {
	responder := func(m models.Message) bool {
		return a.isOwner(m) == fromMe
	}

	var selected []models.Message
	for i, m := range rows {
		turnStart := i == 0 || rows[i-1].SenderName != m.SenderName
		turnEnd := i == len(rows)-1 || rows[i+1].SenderName != m.SenderName

		if (responder(m) && turnStart) || (!responder(m) && turnEnd) {
			selected = append(selected, m)
		}
	}

	var out []models.ResponseTime
	for i := 1; i < len(selected); i++ {
		if !responder(selected[i]) {
			continue
		}
		out = append(out, models.ResponseTime{
			Message:         selected[i],
			ResponseMinutes: elapsedMinutes(selected[i-1].TimestampMs, selected[i].TimestampMs),
		})
	}
	return out
}

func elapsedMinutes(fromMs, toMs int64) float64 {
	return float64(toMs-fromMs+responseOffsetMs) / 1000 / 60
}

// GhostPercentage returns the fraction of responses slower than limitMinutes.
func GhostPercentage(responses []models.ResponseTime, limitMinutes float64) (float64, error) {
	if len(responses) == 0 {
		return 0, errs.NewEmptyResultError("ghost percentage needs at least one response")
	}
	if limitMinutes < 0 {
		return 0, errs.NewConfigurationError(fmt.Sprintf("ghost limit must not be negative, got %v", limitMinutes), nil)
	}

	ghosted := 0
	for _, r := range responses {
		if r.ResponseMinutes > limitMinutes {
			ghosted++
		}
	}

	return float64(ghosted) / float64(len(responses)), nil
}
