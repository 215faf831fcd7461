package data

import (
	"context"

	"github.com/chaqqon/chatgate/internal/biz/repo"
	"github.com/chaqqon/chatgate/internal/infra/feishu"
)

// typingReaction is the emoji shown on a message while its reply is prepared
const typingReaction = "OnIt"

// feishuAPI is the subset of the Feishu client the repository uses
type feishuAPI interface {
	Reply(ctx context.Context, messageID, text string) error
	SendText(ctx context.Context, chatID, text string) error
	AddReaction(ctx context.Context, messageID, emojiType string) error
	GetAdministrators(ctx context.Context, chatID string) (map[string]bool, error)
}

var _ feishuAPI = (*feishu.Client)(nil)

// feishuRepo implements the Feishu message repository
type feishuRepo struct {
	client feishuAPI
}

// NewFeishuRepo creates a new Feishu repository
func NewFeishuRepo(client *feishu.Client) repo.MessageRepo {
	return &feishuRepo{client: client}
}

// Reply quotes the message when msgID is known, otherwise posts to the chat
func (r *feishuRepo) Reply(ctx context.Context, conversationID, msgID, text string) error {
	if msgID == "" {
		return r.client.SendText(ctx, conversationID, text)
	}
	return r.client.Reply(ctx, msgID, text)
}

// SendTyping marks the message with a reaction; Feishu has no typing indicator
func (r *feishuRepo) SendTyping(ctx context.Context, conversationID, msgID string) error {
	if msgID == "" {
		return nil
	}
	return r.client.AddReaction(ctx, msgID, typingReaction)
}

func (r *feishuRepo) GetAdministrators(ctx context.Context, conversationID string) (map[string]bool, error) {
	return r.client.GetAdministrators(ctx, conversationID)
}
