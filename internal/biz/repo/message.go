package repo

import "context"

// MessageRepo is the chat transport boundary
type MessageRepo interface {
	// Reply answers a message in a conversation. msgID may be empty, in which
	// case the text is posted to the conversation without quoting.
	Reply(ctx context.Context, conversationID, msgID, text string) error

	// SendTyping signals that a reply is being prepared
	SendTyping(ctx context.Context, conversationID, msgID string) error

	// GetAdministrators returns the set of administrator user ids of a conversation.
	// This usually costs a round trip to the chat platform.
	GetAdministrators(ctx context.Context, conversationID string) (map[string]bool, error)
}
