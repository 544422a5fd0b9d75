package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasperwreed/msgstats/internal/models"
)

func sampleModel() model {
	ghost := 0.5
	mean, median := 4.0, 3.0
	summaries := []models.ConversationSummary{
		{ConversationName: "['Bob', 'Me']", Total: 12, MessagesFromMe: 5, MessagesFromOther: 7,
			FirstDate: "2024-01-01", LastDate: "2024-01-09", ActiveDays: 3,
			MeanResponseFromMe: &mean, MedianResponseFromMe: &median, GhostFraction: &ghost},
		{ConversationName: "['Eve', 'Me']", Total: 2, FirstDate: "2024-02-01", LastDate: "2024-02-01", ActiveDays: 1},
	}
	counts := []models.MessageCount{
		{Date: "2024-01-01", ConversationName: "['Bob', 'Me']", Total: 12, MessagesFromMe: 5, MessagesFromOther: 7},
	}
	return initialModel("Conversations", summaries, counts)
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	updated, ok := next.(model)
	require.True(t, ok)
	return updated
}

func TestModel_InitializingUntilSized(t *testing.T) {
	m := sampleModel()
	assert.Contains(t, m.View(), "Initializing")

	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.True(t, m.ready)
	assert.Contains(t, m.View(), "['Bob', 'Me']")
}

func TestModel_SelectShowsDetail(t *testing.T) {
	m := update(t, sampleModel(), tea.WindowSizeMsg{Width: 160, Height: 40})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, m.selected)
	assert.Equal(t, "['Bob', 'Me']", m.selected.ConversationName)
}

func TestRenderDetail(t *testing.T) {
	m := sampleModel()
	bob := m.list.Items()[0].(listItem).summary

	out := renderDetail(bob, m.counts[bob.ConversationName])
	assert.Contains(t, out, "12 (me 5, other 7)")
	assert.Contains(t, out, "mean 4.00 min, median 3.00 min")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "2024-01-01")

	eve := m.list.Items()[1].(listItem).summary
	out = renderDetail(eve, nil)
	assert.Contains(t, out, "Ghosting:")
	assert.NotContains(t, out, "Date        Total")
}

func TestModel_Quit(t *testing.T) {
	m := sampleModel()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestListItem(t *testing.T) {
	item := listItem{summary: models.ConversationSummary{ConversationName: "c", Total: 3, FirstDate: "a", LastDate: "b"}}
	assert.Equal(t, "c", item.FilterValue())
	assert.Equal(t, "c", item.Title())
	assert.Equal(t, "3 messages | a → b", item.Description())
}
