package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chaqqon/chatgate/internal/biz/domain"
	"github.com/chaqqon/chatgate/internal/infra/clock"
	"github.com/chaqqon/chatgate/internal/infra/feishu"
	"github.com/chaqqon/chatgate/internal/service"
)

// dedupWindow is how long a delivered message id is remembered
const dedupWindow = 5 * time.Minute

// MessageHandler consumes normalized inbound messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, req *service.MessageRequest)
}

// FeishuServer feeds Feishu messages into the dispatcher
type FeishuServer struct {
	feishuClient *feishu.Client
	handler      MessageHandler
	clock        clock.Clock

	// Feishu redelivers events it considers unacknowledged
	seenMsgsMu sync.Mutex
	seenMsgs   map[string]time.Time // msgID -> first delivery
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(feishuClient *feishu.Client, handler MessageHandler, clk clock.Clock) *FeishuServer {
	return &FeishuServer{
		feishuClient: feishuClient,
		handler:      handler,
		clock:        clk,
		seenMsgs:     make(map[string]time.Time),
	}
}

// Start blocks receiving messages until ctx is done
func (s *FeishuServer) Start(ctx context.Context) error {
	s.feishuClient.OnMessage(func(msg *feishu.Message) {
		s.handleMessage(ctx, msg)
	})
	return s.feishuClient.Start(ctx)
}

// Stop stops the server
func (s *FeishuServer) Stop() {
	s.feishuClient.Stop()
}

// handleMessage runs on the client's per-event goroutine
func (s *FeishuServer) handleMessage(ctx context.Context, msg *feishu.Message) {
	if !s.markFirstSeen(msg.MsgID) {
		log.Debug().Str("component", "server").Str("msg_id", msg.MsgID).Msg("Duplicate message ignored")
		return
	}
	s.handler.HandleMessage(ctx, toRequest(msg))
}

func toRequest(msg *feishu.Message) *service.MessageRequest {
	chatType := domain.ChatTypeP2P
	if msg.ChatType == "group" {
		chatType = domain.ChatTypeGroup
	}
	return &service.MessageRequest{
		ConversationID: msg.ChatID,
		MsgID:          msg.MsgID,
		Text:           msg.Content,
		SenderID:       msg.SenderID,
		ChatType:       chatType,
		ThreadID:       msg.ThreadID(),
		IsReplyToBot:   msg.ReplyToBot,
		MentionsBot:    msg.MentionsBot,
	}
}

// markFirstSeen records msgID and reports whether this is its first delivery.
// Expired records are dropped on the way.
func (s *FeishuServer) markFirstSeen(msgID string) bool {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()

	now := s.clock.Now()
	cutoff := now.Add(-dedupWindow)
	for id, ts := range s.seenMsgs {
		if ts.Before(cutoff) {
			delete(s.seenMsgs, id)
		}
	}

	if _, ok := s.seenMsgs[msgID]; ok {
		return false
	}
	s.seenMsgs[msgID] = now
	return true
}
