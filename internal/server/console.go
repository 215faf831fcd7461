package server

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/chaqqon/chatgate/internal/biz/domain"
	"github.com/chaqqon/chatgate/internal/infra/console"
	"github.com/chaqqon/chatgate/internal/service"
)

// ConsoleConversationID is the single conversation of a console session
const ConsoleConversationID = "console"

// ConsoleServer feeds console lines into the dispatcher, one at a time
type ConsoleServer struct {
	client   *console.Client
	handler  MessageHandler
	chatType domain.ChatType
}

// NewConsoleServer creates a console server. group makes every line a group
// message so the trigger policy applies.
func NewConsoleServer(client *console.Client, handler MessageHandler, group bool) *ConsoleServer {
	chatType := domain.ChatTypeP2P
	if group {
		chatType = domain.ChatTypeGroup
	}
	return &ConsoleServer{client: client, handler: handler, chatType: chatType}
}

// Run processes lines until input ends or ctx is done
func (s *ConsoleServer) Run(ctx context.Context) error {
	log.Info().Str("component", "server").Str("chat_type", string(s.chatType)).Msg("Console session started")
	for {
		line, err := s.client.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.handler.HandleMessage(ctx, &service.MessageRequest{
			ConversationID: ConsoleConversationID,
			MsgID:          line.MsgID,
			Text:           line.Text,
			SenderID:       line.Sender,
			SenderName:     line.Sender,
			ChatType:       s.chatType,
			IsReplyToBot:   line.IsReplyToBot,
		})
	}
}
