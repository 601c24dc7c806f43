package models

import "time"

// ConversationMessage is a stored turn with its local token estimate.
type ConversationMessage struct {
	Role          Role      `json:"role"`
	Content       string    `json:"content"`
	Timestamp     time.Time `json:"timestamp"`
	TokenEstimate int       `json:"token_estimate"`
}

// Conversation is a bounded per-session message history. TotalTokens
// always equals the sum of the current messages' token estimates.
type Conversation struct {
	ID           string                `json:"id"`
	Messages     []ConversationMessage `json:"messages"`
	CreatedAt    time.Time             `json:"created_at"`
	LastActiveAt time.Time             `json:"last_active_at"`
	TotalTokens  int                   `json:"total_tokens"`
}

// ConversationStats summarizes the live conversations in the store.
type ConversationStats struct {
	ActiveConversations            int     `json:"active_conversations"`
	TotalMessages                  int     `json:"total_messages"`
	TotalTokens                    int     `json:"total_tokens"`
	AverageMessagesPerConversation float64 `json:"average_messages_per_conversation"`
}
