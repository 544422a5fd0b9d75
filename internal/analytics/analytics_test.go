package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasperwreed/msgstats/internal/errs"
	"github.com/jasperwreed/msgstats/internal/models"
)

const me = "Me"

func msg(conversation, sender string, tsMs int64, content ...string) models.Message {
	when := time.UnixMilli(tsMs).UTC()
	m := models.Message{
		SenderName:       sender,
		TimestampMs:      tsMs,
		ConversationName: conversation,
		Datetime:         when,
		Date:             when.Format(time.DateOnly),
	}
	if len(content) > 0 {
		c := content[0]
		m.Content = &c
	}
	return m
}

func TestMessageCounts(t *testing.T) {
	day := int64(24 * 60 * 60 * 1000)
	table := models.NewTable([]models.Message{
		msg("b", me, day+5),
		msg("a", "Bob", 0),
		msg("a", me, 10),
		msg("a", "Bob", day),
		msg("b", "Eve", day+6),
		msg("b", "Eve", day+7),
	})

	counts := New(me).MessageCounts(table)

	require.Len(t, counts, 3)
	assert.Equal(t, models.MessageCount{Date: "1970-01-01", ConversationName: "a", Total: 2, MessagesFromMe: 1, MessagesFromOther: 1}, counts[0])
	assert.Equal(t, models.MessageCount{Date: "1970-01-02", ConversationName: "a", Total: 1, MessagesFromMe: 0, MessagesFromOther: 1}, counts[1])
	assert.Equal(t, models.MessageCount{Date: "1970-01-02", ConversationName: "b", Total: 3, MessagesFromMe: 1, MessagesFromOther: 2}, counts[2])

	for _, c := range counts {
		assert.Equal(t, c.Total-c.MessagesFromMe, c.MessagesFromOther)
		assert.GreaterOrEqual(t, c.MessagesFromMe, 0)
		assert.GreaterOrEqual(t, c.MessagesFromOther, 0)
	}
}

func TestMessageCounts_Empty(t *testing.T) {
	assert.Empty(t, New(me).MessageCounts(models.NewTable(nil)))
}

func TestResponseTimes_OwnerOpensOtherReplies(t *testing.T) {
	table := models.NewTable([]models.Message{
		msg("c", me, 0, "hi"),
		msg("c", "Bob", 120000, "hey"),
	})
	a := New(me)

	assert.Empty(t, a.ResponseTimesFromMe(table))

	toMe := a.ResponseTimesToMe(table)
	require.Len(t, toMe, 1)
	assert.Equal(t, "Bob", toMe[0].SenderName)
	assert.InDelta(t, 2.0, toMe[0].ResponseMinutes, 0.001)
	assert.Greater(t, toMe[0].ResponseMinutes, 2.0)
}

func TestResponseTimes_Turns(t *testing.T) {
	// Bob: 0, 60s | me: 120s, 180s | Bob: 300s | me: 300s
	table := models.NewTable([]models.Message{
		msg("c", "Bob", 60000),
		msg("c", me, 180000),
		msg("c", "Bob", 0),
		msg("c", me, 120000),
		msg("c", "Bob", 300000),
		msg("c", me, 300000),
	})
	a := New(me)

	fromMe := a.ResponseTimesFromMe(table)
	require.Len(t, fromMe, 2)
	assert.Equal(t, int64(120000), fromMe[0].TimestampMs)
	assert.InDelta(t, 1.0, fromMe[0].ResponseMinutes, 0.001)
	assert.Equal(t, int64(300000), fromMe[1].TimestampMs)
	assert.InDelta(t, 1.0/60000, fromMe[1].ResponseMinutes, 1e-9)

	toMe := a.ResponseTimesToMe(table)
	require.Len(t, toMe, 1)
	assert.Equal(t, int64(300000), toMe[0].TimestampMs)
	assert.InDelta(t, 2.0, toMe[0].ResponseMinutes, 0.001)

	for _, r := range append(fromMe, toMe...) {
		assert.Greater(t, r.ResponseMinutes, 0.0)
	}
}

func TestResponseTimes_SingleSender(t *testing.T) {
	table := models.NewTable([]models.Message{
		msg("solo", me, 0),
		msg("solo", me, 1000),
		msg("quiet", "Bob", 5),
	})
	a := New(me)

	assert.Empty(t, a.ResponseTimesFromMe(table))
	assert.Empty(t, a.ResponseTimesToMe(table))
}

func TestResponseTimes_NoCrossConversationLeakage(t *testing.T) {
	table := models.NewTable([]models.Message{
		msg("a", "Bob", 0),
		msg("b", me, 60000),
		msg("a", me, 600000),
	})

	fromMe := New(me).ResponseTimesFromMe(table)
	require.Len(t, fromMe, 1)
	assert.Equal(t, "a", fromMe[0].ConversationName)
	assert.InDelta(t, 10.0, fromMe[0].ResponseMinutes, 0.001)
}

func TestResponseTimes_SortedByConversationThenTime(t *testing.T) {
	table := models.NewTable([]models.Message{
		msg("z", "Bob", 0),
		msg("z", me, 10),
		msg("a", "Eve", 0),
		msg("a", me, 20),
		msg("a", "Eve", 30),
		msg("a", me, 40),
	})

	fromMe := New(me).ResponseTimesFromMe(table)
	require.Len(t, fromMe, 3)
	assert.Equal(t, "a", fromMe[0].ConversationName)
	assert.Equal(t, int64(20), fromMe[0].TimestampMs)
	assert.Equal(t, int64(40), fromMe[1].TimestampMs)
	assert.Equal(t, "z", fromMe[2].ConversationName)
}

func TestGhostPercentage(t *testing.T) {
	responses := []models.ResponseTime{
		{ResponseMinutes: 1},
		{ResponseMinutes: MinutesInAWeek},
		{ResponseMinutes: MinutesInAWeek + 1},
		{ResponseMinutes: 20000},
	}

	tests := []struct {
		name  string
		limit float64
		want  float64
	}{
		{"default week", MinutesInAWeek, 0.5},
		{"zero", 0, 1},
		{"huge", 1e9, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GhostPercentage(responses, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestGhostPercentage_Errors(t *testing.T) {
	_, err := GhostPercentage(nil, MinutesInAWeek)
	require.Error(t, err)
	assert.True(t, errs.IsEmptyResult(err))

	_, err = GhostPercentage([]models.ResponseTime{{ResponseMinutes: 1}}, -1)
	assert.True(t, errs.IsConfiguration(err))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		content  string
		laughter bool
		question bool
	}{
		{"LOL that's great", true, false},
		{"hahaha", true, false},
		{"lmao?", true, true},
		{"school", false, false},
		{"really?", false, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			assert.Equal(t, tt.laughter, ContainsLaughter(tt.content))
			assert.Equal(t, tt.question, ContainsQuestion(tt.content))
		})
	}
}

func bigConversation(name string, total, ownerQuestions int) []models.Message {
	rows := make([]models.Message, 0, total)
	for i := 0; i < total; i++ {
		switch {
		case i < ownerQuestions:
			rows = append(rows, msg(name, me, int64(i), fmt.Sprintf("question %d?", i)))
		case i%3 == 0:
			rows = append(rows, msg(name, "Bob", int64(i), "why? haha"))
		case i%3 == 1:
			rows = append(rows, msg(name, me, int64(i)))
		default:
			rows = append(rows, msg(name, me, int64(i), "ok"))
		}
	}
	return rows
}

func TestProfessorRankings(t *testing.T) {
	var rows []models.Message
	rows = append(rows, bigConversation("big", 200, 50)...)
	rows = append(rows, bigConversation("bigger", 100, 50)...)
	rows = append(rows, msg("small", me, 0, "a?"), msg("small", me, 1, "b?"), msg("small", "Bob", 2, "c"))

	rankings, err := New(me).ProfessorRankings(models.NewTable(rows))
	require.NoError(t, err)
	require.Len(t, rankings, 3)

	assert.Equal(t, "bigger", rankings[0].ConversationName)
	assert.InDelta(t, 50.0, rankings[0].Score, 1e-9)
	assert.Equal(t, "big", rankings[1].ConversationName)
	assert.InDelta(t, 25.0, rankings[1].Score, 1e-9)

	assert.Equal(t, "small", rankings[2].ConversationName)
	assert.Equal(t, 0.0, rankings[2].Score)
	assert.Equal(t, 2, rankings[2].Matches)
	assert.Equal(t, 3, rankings[2].Total)
}

func TestProfessorRankings_ThresholdBoundary(t *testing.T) {
	var rows []models.Message
	rows = append(rows, bigConversation("ninety-nine", MinRankingMessages-1, 30)...)
	rows = append(rows, bigConversation("hundred", MinRankingMessages, 30)...)

	rankings, err := New(me).ProfessorRankings(models.NewTable(rows))
	require.NoError(t, err)
	require.Len(t, rankings, 2)

	assert.Equal(t, "hundred", rankings[0].ConversationName)
	assert.InDelta(t, 30.0, rankings[0].Score, 1e-9)

	assert.Equal(t, "ninety-nine", rankings[1].ConversationName)
	assert.Equal(t, 99, rankings[1].Total)
	assert.Equal(t, 30, rankings[1].Matches)
	assert.Equal(t, 0.0, rankings[1].Score)
}

func TestProfessorRankings_SmallConversationWithoutQuestions(t *testing.T) {
	table := models.NewTable([]models.Message{
		msg("c", me, 0, "a"),
		msg("c", "Bob", 1, "b"),
		msg("c", me, 2, "c"),
	})

	rankings, err := New(me).ProfessorRankings(table)
	require.NoError(t, err)
	require.Len(t, rankings, 1)
	assert.Equal(t, 0.0, rankings[0].Score)
}

func TestComedianRankings_IgnoresOtherSendersAndMissingContent(t *testing.T) {
	rows := bigConversation("c", 120, 0)

	rankings, err := New(me).ComedianRankings(models.NewTable(rows))
	require.NoError(t, err)
	require.Len(t, rankings, 1)
	assert.Equal(t, 0, rankings[0].Matches)
	assert.Equal(t, 0.0, rankings[0].Score)
}

func TestRankings_TiesByName(t *testing.T) {
	table := models.NewTable([]models.Message{
		msg("b", me, 0, "x"),
		msg("a", me, 0, "y"),
	})

	rankings, err := New(me).ComedianRankings(table)
	require.NoError(t, err)
	assert.Equal(t, "a", rankings[0].ConversationName)
	assert.Equal(t, "b", rankings[1].ConversationName)
}

func TestRankings_EmptyTable(t *testing.T) {
	_, err := New(me).ComedianRankings(models.NewTable(nil))
	require.Error(t, err)
	assert.True(t, errs.IsEmptyResult(err))

	_, err = New(me).ProfessorRankings(nil)
	assert.True(t, errs.IsEmptyResult(err))
}

func TestSummarize(t *testing.T) {
	day := int64(24 * 60 * 60 * 1000)
	table := models.NewTable([]models.Message{
		msg("pair", "Bob", 0, "lol?"),
		msg("pair", me, 60000, "haha"),
		msg("pair", "Bob", 2*day, "ok"),
		msg("pair", me, 2*day+180000, "sure?"),
		msg("quiet", me, 5, "hello"),
	})

	summaries, err := New(me).Summarize(table, 2)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	pair := summaries[0]
	assert.Equal(t, "pair", pair.ConversationName)
	assert.Equal(t, 4, pair.Total)
	assert.Equal(t, 2, pair.MessagesFromMe)
	assert.Equal(t, 2, pair.MessagesFromOther)
	assert.Equal(t, "1970-01-01", pair.FirstDate)
	assert.Equal(t, "1970-01-03", pair.LastDate)
	assert.Equal(t, 2, pair.ActiveDays)

	require.NotNil(t, pair.MeanResponseFromMe)
	assert.InDelta(t, 2.0, *pair.MeanResponseFromMe, 0.001)
	assert.InDelta(t, 2.0, *pair.MedianResponseFromMe, 0.001)
	require.NotNil(t, pair.MeanResponseToMe)
	assert.InDelta(t, float64(2*day-60000)/60000, *pair.MeanResponseToMe, 0.001)
	require.NotNil(t, pair.GhostFraction)
	assert.Equal(t, 0.5, *pair.GhostFraction)
	assert.Equal(t, 0.0, pair.ComedianScore)

	quiet := summaries[1]
	assert.Equal(t, 1, quiet.Total)
	assert.Nil(t, quiet.MeanResponseFromMe)
	assert.Nil(t, quiet.MedianResponseToMe)
	assert.Nil(t, quiet.GhostFraction)
}

func TestSummarize_Empty(t *testing.T) {
	_, err := New(me).Summarize(models.NewTable(nil), MinutesInAWeek)
	assert.True(t, errs.IsEmptyResult(err))
}

func TestMedian(t *testing.T) {
	assert.Nil(t, median(nil))
	assert.Equal(t, 2.0, *median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, *median([]float64{4, 1, 3, 2}))
}
