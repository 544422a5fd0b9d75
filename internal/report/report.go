// Package report renders analytics results as terminal tables.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jasperwreed/msgstats/internal/models"
	"github.com/jasperwreed/msgstats/internal/storage"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	numberStyle = cellStyle.Align(lipgloss.Right)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// Renderer writes tables to an output stream. Limit caps the number of rows
// of every table; zero means no cap.
type Renderer struct {
	out   io.Writer
	Limit int
}

func New(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// newTable builds a table whose columns listed in numeric are right aligned.
func newTable(headers []string, numeric ...int) *table.Table {
	right := make(map[int]bool, len(numeric))
	for _, col := range numeric {
		right[col] = true
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case right[col]:
				return numberStyle
			default:
				return cellStyle
			}
		})
}

func (r *Renderer) write(title string, t *table.Table, shown, total int) error {
	out := titleStyle.Render(title) + "\n" + t.Render() + "\n"
	if shown < total {
		out += mutedStyle.Render(fmt.Sprintf("showing %d of %d rows", shown, total)) + "\n"
	}
	_, err := io.WriteString(r.out, out)
	return err
}

func (r *Renderer) cap(n int) int {
	if r.Limit > 0 && n > r.Limit {
		return r.Limit
	}
	return n
}

// Counts renders the per-day message counts.
func (r *Renderer) Counts(counts []models.MessageCount) error {
	if len(counts) == 0 {
		return r.empty("Message counts")
	}

	t := newTable([]string{"Date", "Conversation", "Total", "From me", "From other"}, 2, 3, 4)
	n := r.cap(len(counts))
	for _, c := range counts[:n] {
		t.Row(c.Date, c.ConversationName,
			strconv.Itoa(c.Total), strconv.Itoa(c.MessagesFromMe), strconv.Itoa(c.MessagesFromOther))
	}
	return r.write("Message counts", t, n, len(counts))
}

// ResponseTimes renders response rows under the given title.
func (r *Renderer) ResponseTimes(title string, responses []models.ResponseTime) error {
	if len(responses) == 0 {
		return r.empty(title)
	}

	t := newTable([]string{"Date", "Conversation", "Sender", "Minutes"}, 3)
	n := r.cap(len(responses))
	for _, rt := range responses[:n] {
		t.Row(rt.Datetime.Format("2006-01-02 15:04"), rt.ConversationName, rt.SenderName, Minutes(rt.ResponseMinutes))
	}
	return r.write(title, t, n, len(responses))
}

// Rankings renders a ranked score table.
func (r *Renderer) Rankings(title string, rankings []models.Ranking) error {
	if len(rankings) == 0 {
		return r.empty(title)
	}

	t := newTable([]string{"#", "Conversation", "Score", "Matches", "Total"}, 0, 2, 3, 4)
	n := r.cap(len(rankings))
	for i, rk := range rankings[:n] {
		t.Row(strconv.Itoa(i+1), rk.ConversationName,
			strconv.FormatFloat(rk.Score, 'f', 2, 64), strconv.Itoa(rk.Matches), strconv.Itoa(rk.Total))
	}
	return r.write(title, t, n, len(rankings))
}

// Ghost renders the ghosting percentage line.
func (r *Renderer) Ghost(fraction, limitMinutes float64, responses int) error {
	line := fmt.Sprintf("%s of %d responses took longer than %s",
		Percent(fraction), responses, Minutes(limitMinutes)+" min")
	_, err := io.WriteString(r.out, titleStyle.Render("Ghosting")+"\n"+line+"\n")
	return err
}

// Summaries renders one row per conversation.
func (r *Renderer) Summaries(summaries []models.ConversationSummary) error {
	if len(summaries) == 0 {
		return r.empty("Conversations")
	}

	t := newTable([]string{
		"Conversation", "Total", "Me", "Other", "Active days", "First", "Last",
		"My reply (med)", "Their reply (med)", "Ghost", "Comedian", "Professor",
	}, 1, 2, 3, 4, 7, 8, 9, 10, 11)

	n := r.cap(len(summaries))
	for _, s := range summaries[:n] {
		t.Row(s.ConversationName,
			strconv.Itoa(s.Total), strconv.Itoa(s.MessagesFromMe), strconv.Itoa(s.MessagesFromOther),
			strconv.Itoa(s.ActiveDays), s.FirstDate, s.LastDate,
			optionalMinutes(s.MedianResponseFromMe), optionalMinutes(s.MedianResponseToMe),
			optionalPercent(s.GhostFraction),
			strconv.FormatFloat(s.ComedianScore, 'f', 2, 64),
			strconv.FormatFloat(s.ProfessorScore, 'f', 2, 64))
	}
	return r.write("Conversations", t, n, len(summaries))
}

// Runs renders persisted ingestion runs.
func (r *Renderer) Runs(runs []models.Run) error {
	if len(runs) == 0 {
		return r.empty("Runs")
	}

	t := newTable([]string{"ID", "Created", "Owner", "Hidden names", "Group chats", "Conversations", "Messages"}, 5, 6)
	n := r.cap(len(runs))
	for _, run := range runs[:n] {
		t.Row(run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"), run.Owner,
			yesNo(run.HideNames), yesNo(run.IncludeGroupChats),
			strconv.Itoa(run.Conversations), strconv.Itoa(run.Messages))
	}
	return r.write("Runs", t, n, len(runs))
}

// Sources renders the export files stored with one run.
func (r *Renderer) Sources(runID string, sources []storage.SourceInfo) error {
	title := "Sources of run " + runID
	if len(sources) == 0 {
		return r.empty(title)
	}

	t := newTable([]string{"Path", "Conversation", "Messages", "Raw bytes", "Stored bytes"}, 2, 3, 4)
	n := r.cap(len(sources))
	for _, src := range sources[:n] {
		stored := "-"
		if src.StoredSize > 0 {
			stored = strconv.FormatInt(src.StoredSize, 10)
		}
		t.Row(src.Path, src.ConversationName, strconv.Itoa(src.Messages),
			strconv.FormatInt(src.RawSize, 10), stored)
	}
	return r.write(title, t, n, len(sources))
}

// StoreStats renders database totals.
func (r *Renderer) StoreStats(path string, stats *storage.Stats) error {
	line := fmt.Sprintf("%d runs, %d messages in %d conversations, %d sources (%d bytes raw, %d stored)",
		stats.Runs, stats.Messages, stats.Conversations, stats.Sources, stats.RawBytes, stats.StoredBytes)
	_, err := io.WriteString(r.out, titleStyle.Render("Database "+path)+"\n"+line+"\n")
	return err
}

// SearchResults renders full-text search hits.
func (r *Renderer) SearchResults(results []models.SearchResult) error {
	if len(results) == 0 {
		return r.empty("Search results")
	}

	t := newTable([]string{"Date", "Conversation", "Sender", "Match"})
	n := r.cap(len(results))
	for _, res := range results[:n] {
		t.Row(res.Message.Datetime.Format("2006-01-02 15:04"), res.Message.ConversationName,
			res.Message.SenderName, res.Snippet)
	}
	return r.write("Search results", t, n, len(results))
}

func (r *Renderer) empty(title string) error {
	_, err := io.WriteString(r.out, titleStyle.Render(title)+"\n"+mutedStyle.Render("no rows")+"\n")
	return err
}

// Minutes formats a duration in minutes with two decimals.
func Minutes(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Percent formats a 0..1 fraction as a percentage.
func Percent(fraction float64) string {
	return strconv.FormatFloat(fraction*100, 'f', 1, 64) + "%"
}

func optionalMinutes(v *float64) string {
	if v == nil {
		return "-"
	}
	return Minutes(*v)
}

func optionalPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return Percent(*v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
