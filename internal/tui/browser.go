package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jasperwreed/msgstats/internal/models"
	"github.com/jasperwreed/msgstats/internal/report"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00BFFF"))

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

// Browser shows conversation summaries in a list with a detail pane.
type Browser struct {
	summaries []models.ConversationSummary
	counts    []models.MessageCount
	title     string
}

func NewBrowser(title string, summaries []models.ConversationSummary, counts []models.MessageCount) *Browser {
	return &Browser{summaries: summaries, counts: counts, title: title}
}

func (b *Browser) Run() error {
	m := initialModel(b.title, b.summaries, b.counts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

type listItem struct {
	summary models.ConversationSummary
}

func (i listItem) FilterValue() string {
	return i.summary.ConversationName
}

func (i listItem) Title() string {
	return i.summary.ConversationName
}

func (i listItem) Description() string {
	return fmt.Sprintf("%d messages | %s → %s", i.summary.Total, i.summary.FirstDate, i.summary.LastDate)
}

type model struct {
	list     list.Model
	viewport viewport.Model
	counts   map[string][]models.MessageCount
	selected *models.ConversationSummary
	width    int
	height   int
	ready    bool
}

func initialModel(title string, summaries []models.ConversationSummary, counts []models.MessageCount) model {
	items := make([]list.Item, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, listItem{summary: s})
	}

	byConversation := make(map[string][]models.MessageCount)
	for _, c := range counts {
		byConversation[c.ConversationName] = append(byConversation[c.ConversationName], c)
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New(items, delegate, 0, 0)
	l.Title = title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	vp := viewport.New(0, 0)
	vp.SetContent("Select a conversation to view")

	return model{
		list:     l,
		viewport: vp,
		counts:   byConversation,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		listWidth := m.width / 3
		m.list.SetSize(listWidth, m.height-2)

		m.viewport.Width = m.width - listWidth - 4
		m.viewport.Height = m.height - 4

	case tea.KeyMsg:
		filtering := m.list.FilterState() == list.Filtering

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if !filtering {
				return m, tea.Quit
			}

		case "enter":
			if !filtering {
				if item, ok := m.list.SelectedItem().(listItem); ok {
					summary := item.summary
					m.selected = &summary
					m.updateViewport()
				}
			}

		case "pgdown", "pgup":
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *model) updateViewport() {
	m.viewport.SetContent(renderDetail(*m.selected, m.counts[m.selected.ConversationName]))
	m.viewport.GotoTop()
}

func renderDetail(s models.ConversationSummary, counts []models.MessageCount) string {
	var content strings.Builder

	content.WriteString(titleStyle.Render(s.ConversationName))
	content.WriteString("\n\n")

	field := func(label, value string) {
		content.WriteString(labelStyle.Render(label+":") + " " + value + "\n")
	}

	field("Messages", fmt.Sprintf("%d (me %d, other %d)", s.Total, s.MessagesFromMe, s.MessagesFromOther))
	field("Active", fmt.Sprintf("%d days, %s → %s", s.ActiveDays, s.FirstDate, s.LastDate))
	field("My replies", responseLine(s.MeanResponseFromMe, s.MedianResponseFromMe))
	field("Their replies", responseLine(s.MeanResponseToMe, s.MedianResponseToMe))
	if s.GhostFraction != nil {
		field("Ghosting", report.Percent(*s.GhostFraction))
	} else {
		field("Ghosting", "-")
	}
	field("Comedian", fmt.Sprintf("%.2f", s.ComedianScore))
	field("Professor", fmt.Sprintf("%.2f", s.ProfessorScore))

	if len(counts) > 0 {
		content.WriteString("\n" + strings.Repeat("─", 40) + "\n\n")
		content.WriteString(labelStyle.Render("Date        Total  Me  Other") + "\n")
		for _, c := range counts {
			content.WriteString(fmt.Sprintf("%-10s  %5d  %2d  %5d\n", c.Date, c.Total, c.MessagesFromMe, c.MessagesFromOther))
		}
	}

	return content.String()
}

func responseLine(mean, median *float64) string {
	if mean == nil || median == nil {
		return "-"
	}
	return fmt.Sprintf("mean %s min, median %s min", report.Minutes(*mean), report.Minutes(*median))
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	listView := paneStyle.
		Width(m.width/3 - 2).
		Height(m.height - 2).
		Render(m.list.View())

	contentView := paneStyle.
		Width(m.width - m.width/3 - 2).
		Height(m.height - 2).
		Render(m.viewport.View())

	help := helpStyle.Render("  j/k: navigate • enter: select • /: filter • pgup/pgdown: scroll • q: quit")

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		listView,
		contentView,
	) + "\n" + help
}
