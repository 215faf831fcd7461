package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaqqon/chatgate/internal/biz/domain"
	"github.com/chaqqon/chatgate/internal/infra/clock"
	"github.com/chaqqon/chatgate/internal/infra/feishu"
	"github.com/chaqqon/chatgate/internal/service"
)

type recordingHandler struct {
	mu   sync.Mutex
	reqs []*service.MessageRequest
}

func (h *recordingHandler) HandleMessage(ctx context.Context, req *service.MessageRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reqs = append(h.reqs, req)
}

func (h *recordingHandler) requests() []*service.MessageRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*service.MessageRequest(nil), h.reqs...)
}

func TestFeishuServer_Dedup(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	h := &recordingHandler{}
	s := NewFeishuServer(nil, h, clk)
	msg := &feishu.Message{ChatID: "oc_1", MsgID: "om_1", ChatType: "group", Content: "hi"}

	s.handleMessage(context.Background(), msg)
	s.handleMessage(context.Background(), msg)
	assert.Len(t, h.requests(), 1)

	clk.Advance(dedupWindow + time.Second)
	s.handleMessage(context.Background(), msg)
	assert.Len(t, h.requests(), 2)
}

func TestFeishuServer_ConcurrentRedeliveryHandledOnce(t *testing.T) {
	h := &recordingHandler{}
	s := NewFeishuServer(nil, h, clock.Real())
	msg := &feishu.Message{ChatID: "oc_1", MsgID: "om_dup", ChatType: "p2p", Content: "hi"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(context.Background(), msg)
		}()
	}
	wg.Wait()

	assert.Len(t, h.requests(), 1)
}

func TestToRequest(t *testing.T) {
	msg := &feishu.Message{
		ChatID:      "oc_1",
		MsgID:       "om_2",
		ChatType:    "group",
		Content:     "@Chaqqon AI help",
		SenderID:    "ou_ali",
		ParentID:    "om_1",
		RootID:      "om_0",
		MentionsBot: true,
		ReplyToBot:  true,
	}

	req := toRequest(msg)

	require.NotNil(t, req)
	assert.Equal(t, domain.ChatTypeGroup, req.ChatType)
	assert.Equal(t, "om_0", req.ThreadID)
	assert.True(t, req.MentionsBot)
	assert.True(t, req.IsReplyToBot)
	assert.Equal(t, "ou_ali", req.SenderID)

	assert.Equal(t, domain.ChatTypeP2P, toRequest(&feishu.Message{ChatType: "p2p"}).ChatType)
}
