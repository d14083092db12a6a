// Package models defines the domain types for Ansuz.
package models

import "time"

// Note is a free-text record owned by exactly one user.
//
// Summary, SummaryLength and AIModelUsed form a consistent triple: either all
// are nil (no summarization has succeeded yet) or all were set by the same
// summarization call. SummaryLength records the requested maximum length, not
// the character count of the stored summary.
type Note struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"user_id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Summary        *string   `json:"summary"`
	SummaryLength  *int      `json:"summary_length"`
	AIModelUsed    *string   `json:"ai_model_used"`
	IsConversation bool      `json:"is_conversation"`
	ConversationID string    `json:"conversation_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ConversationHead is one entry in a conversation listing. The grouping keys
// on (conversation_id, title, created_at), so a thread whose member notes
// differ in title or creation time produces one entry per distinct combination.
type ConversationHead struct {
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
}
