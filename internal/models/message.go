package models

import (
	"encoding/json"
	"sort"
	"time"
)

// UnknownParticipant is the placeholder name exports use for deleted or
// unresolvable accounts. Conversations containing it are dropped.
const UnknownParticipant = "Facebook user"

// RawMessage is one entry of an export's "messages" list.
type RawMessage struct {
	SenderName  string          `json:"sender_name"`
	TimestampMs *int64          `json:"timestamp_ms"`
	Content     json.RawMessage `json:"content,omitempty"`
}

// HasContentField reports whether the export carried a "content" member for
// this entry, whatever its type.
func (m RawMessage) HasContentField() bool {
	return len(m.Content) > 0
}

// Text returns the content when it is a JSON string.
func (m RawMessage) Text() (string, bool) {
	if len(m.Content) == 0 || m.Content[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err != nil {
		return "", false
	}
	return s, true
}

type Participant struct {
	Name string `json:"name"`
}

// RawBatch is one decoded export file: a conversation's messages in file
// order plus its participant list.
type RawBatch struct {
	Source       string        `json:"-"`
	Title        string        `json:"title"`
	Participants []Participant `json:"participants"`
	Messages     []RawMessage  `json:"messages"`
	Raw          []byte        `json:"-"`
}

// ParticipantNames returns the distinct participant names in file order.
func (b *RawBatch) ParticipantNames() []string {
	seen := make(map[string]bool, len(b.Participants))
	names := make([]string, 0, len(b.Participants))
	for _, p := range b.Participants {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		names = append(names, p.Name)
	}
	return names
}

// Message is one row of the unified message table.
type Message struct {
	SenderName       string    `json:"sender_name"`
	TimestampMs      int64     `json:"timestamp_ms"`
	Content          *string   `json:"content,omitempty"`
	Sendees          []string  `json:"sendees"`
	ConversationName string    `json:"conversation_name"`
	Datetime         time.Time `json:"datetime"`
	Date             string    `json:"date"`
}

// Text returns the message content and whether there is any.
func (m Message) Text() (string, bool) {
	if m.Content == nil {
		return "", false
	}
	return *m.Content, true
}

// HasSendee reports whether name is one of the message's recipients.
func (m Message) HasSendee(name string) bool {
	for _, s := range m.Sendees {
		if s == name {
			return true
		}
	}
	return false
}

// Table is the unified, immutable message table. Accessors hand out copies
// of the row slice so callers can reorder freely.
type Table struct {
	messages []Message
}

func NewTable(messages []Message) *Table {
	return &Table{messages: messages}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.messages)
}

// Rows returns a copy of the rows in table order.
func (t *Table) Rows() []Message {
	if t == nil {
		return nil
	}
	rows := make([]Message, len(t.messages))
	copy(rows, t.messages)
	return rows
}

// Filter returns a new table holding the rows keep accepts.
func (t *Table) Filter(keep func(Message) bool) *Table {
	var rows []Message
	for _, m := range t.Rows() {
		if keep(m) {
			rows = append(rows, m)
		}
	}
	return NewTable(rows)
}

// Conversations returns the distinct conversation names, sorted.
func (t *Table) Conversations() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range t.Rows() {
		if !seen[m.ConversationName] {
			seen[m.ConversationName] = true
			names = append(names, m.ConversationName)
		}
	}
	sort.Strings(names)
	return names
}

// ByConversation groups rows per conversation, each group stably sorted by
// timestamp.
func (t *Table) ByConversation() map[string][]Message {
	groups := make(map[string][]Message)
	for _, m := range t.Rows() {
		groups[m.ConversationName] = append(groups[m.ConversationName], m)
	}
	for _, rows := range groups {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].TimestampMs < rows[j].TimestampMs
		})
	}
	return groups
}
