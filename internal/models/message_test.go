package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawMessageText(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantText  string
		wantOK    bool
		wantField bool
	}{
		{"string content", `{"sender_name":"a","timestamp_ms":1,"content":"hi lol"}`, "hi lol", true, true},
		{"null content", `{"sender_name":"a","timestamp_ms":1,"content":null}`, "", false, true},
		{"numeric content", `{"sender_name":"a","timestamp_ms":1,"content":42}`, "", false, true},
		{"missing content", `{"sender_name":"a","timestamp_ms":1}`, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m RawMessage
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &m))

			text, ok := m.Text()
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantField, m.HasContentField())
		})
	}
}

func TestParticipantNamesDeduplicates(t *testing.T) {
	b := RawBatch{Participants: []Participant{{"Bob"}, {"Me"}, {"Bob"}}}
	assert.Equal(t, []string{"Bob", "Me"}, b.ParticipantNames())
}

func TestTableRowsAreCopies(t *testing.T) {
	table := NewTable([]Message{{SenderName: "a"}, {SenderName: "b"}})

	rows := table.Rows()
	rows[0].SenderName = "changed"

	assert.Equal(t, "a", table.Rows()[0].SenderName)
}

func TestTableByConversationSortsStably(t *testing.T) {
	table := NewTable([]Message{
		{ConversationName: "x", SenderName: "late", TimestampMs: 30},
		{ConversationName: "y", SenderName: "other", TimestampMs: 5},
		{ConversationName: "x", SenderName: "tie-first", TimestampMs: 10},
		{ConversationName: "x", SenderName: "tie-second", TimestampMs: 10},
	})

	groups := table.ByConversation()
	require.Len(t, groups, 2)

	var senders []string
	for _, m := range groups["x"] {
		senders = append(senders, m.SenderName)
	}
	assert.Equal(t, []string{"tie-first", "tie-second", "late"}, senders)
	assert.Equal(t, []string{"x", "y"}, table.Conversations())
}

func TestTableFilter(t *testing.T) {
	table := NewTable([]Message{
		{SenderName: "a", Sendees: []string{"b"}},
		{SenderName: "a", Sendees: []string{"b", "c"}},
	})

	pairs := table.Filter(func(m Message) bool { return len(m.Sendees) == 1 })
	assert.Equal(t, 1, pairs.Len())
	assert.Equal(t, 2, table.Len())
}
