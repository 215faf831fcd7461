package repo

import "github.com/chaqqon/chatgate/internal/biz/domain"

// ContextRepo keeps a bounded, ordered message history per conversation
type ContextRepo interface {
	// Append adds messages to the tail as one atomic step, evicting the oldest
	// entries once capacity is exceeded
	Append(conversationID string, msgs ...domain.Message)

	// Get returns a copy of the current history, empty if unseen
	Get(conversationID string) []domain.Message

	// Clear drops all history of a conversation; clearing an unknown one is a no-op
	Clear(conversationID string)
}
