package models

import "time"

// MessageCount is one (date, conversation) row of the per-day counts.
type MessageCount struct {
	Date              string `json:"date"`
	ConversationName  string `json:"conversation_name"`
	Total             int    `json:"total"`
	MessagesFromMe    int    `json:"messages_from_me"`
	MessagesFromOther int    `json:"messages_from_other"`
}

// ResponseTime is a message that answered the other side's turn, with the
// minutes elapsed since that turn ended.
type ResponseTime struct {
	Message
	ResponseMinutes float64 `json:"response_time_in_min"`
}

type Ranking struct {
	ConversationName string  `json:"conversation_name"`
	Score            float64 `json:"score"`
	Matches          int     `json:"matches"`
	Total            int     `json:"total"`
}

// ConversationSummary collects every per-conversation measure in one row.
// Response fields are nil when the conversation has no such responses.
type ConversationSummary struct {
	ConversationName     string   `json:"conversation_name"`
	Total                int      `json:"total"`
	MessagesFromMe       int      `json:"messages_from_me"`
	MessagesFromOther    int      `json:"messages_from_other"`
	FirstDate            string   `json:"first_date"`
	LastDate             string   `json:"last_date"`
	ActiveDays           int      `json:"active_days"`
	MeanResponseFromMe   *float64 `json:"mean_response_from_me,omitempty"`
	MedianResponseFromMe *float64 `json:"median_response_from_me,omitempty"`
	MeanResponseToMe     *float64 `json:"mean_response_to_me,omitempty"`
	MedianResponseToMe   *float64 `json:"median_response_to_me,omitempty"`
	GhostFraction        *float64 `json:"ghost_fraction,omitempty"`
	ComedianScore        float64  `json:"comedian_score"`
	ProfessorScore       float64  `json:"professor_score"`
}

// Run describes one persisted ingestion run.
type Run struct {
	ID                string    `json:"id"`
	Owner             string    `json:"owner"`
	HideNames         bool      `json:"hide_names"`
	IncludeGroupChats bool      `json:"include_group_chats"`
	Location          string    `json:"location"`
	Conversations     int       `json:"conversations"`
	Messages          int       `json:"messages"`
	CreatedAt         time.Time `json:"created_at"`
}

type SearchResult struct {
	RunID   string  `json:"run_id"`
	Message Message `json:"message"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}
