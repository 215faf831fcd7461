// Package feishu is the Feishu (Lark) chat transport: websocket event
// receive plus the IM calls the router needs.
package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"github.com/rs/zerolog/log"
)

// sentCacheSize bounds how many of our own message ids are remembered
const sentCacheSize = 2048

const defaultOpenAPIBase = "https://open.feishu.cn/open-apis"

// Message represents a received Feishu text message
type Message struct {
	ChatID      string
	MsgID       string
	ChatType    string // p2p, group
	Content     string // plain text, mention placeholders resolved
	SenderID    string // open_id
	ParentID    string // message this one replies to
	RootID      string // first message of the reply thread
	MentionsBot bool
	ReplyToBot  bool
	CreateTime  int64 // milliseconds Unix timestamp
}

// ThreadID returns the id of the reply thread, empty for top-level messages
func (m *Message) ThreadID() string {
	return m.RootID
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	onMessage MessageHandler
	ctx       context.Context
	cancel    context.CancelFunc
	botOpenID string
	apiBase   string

	sentMu    sync.Mutex
	sent      map[string]struct{}
	sentOrder []string
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
		apiBase:   defaultOpenAPIBase,
		sent:      make(map[string]struct{}),
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// Start connects to Feishu via WebSocket and blocks until ctx is done
func (c *Client) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.fetchBotOpenID(c.ctx); err != nil {
		log.Warn().Err(err).Str("component", "feishu").Msg("Failed to fetch bot open_id, mentions will not be detected")
	}

	// Handlers must return quickly so the SDK can ACK, otherwise Feishu redelivers
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	log.Info().Str("component", "feishu").Msg("Starting WebSocket connection")
	return c.wsCli.Start(c.ctx)
}

// Stop disconnects from Feishu
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// fetchBotOpenID learns the bot's own open_id so mentions of it can be recognised
func (c *Client) fetchBotOpenID(ctx context.Context) error {
	tokenReq := fmt.Sprintf(`{"app_id":%q,"app_secret":%q}`, c.appID, c.appSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/auth/v3/tenant_access_token/internal",
		strings.NewReader(tokenReq))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	tokenResp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	defer tokenResp.Body.Close()

	var tokenResult struct {
		Code              int    `json:"code"`
		TenantAccessToken string `json:"tenant_access_token"`
	}
	if err := json.NewDecoder(tokenResp.Body).Decode(&tokenResult); err != nil {
		return fmt.Errorf("decode token: %w", err)
	}
	if tokenResult.Code != 0 {
		return fmt.Errorf("token API error: code %d", tokenResult.Code)
	}

	infoReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/bot/v3/info", nil)
	if err != nil {
		return fmt.Errorf("build bot info request: %w", err)
	}
	infoReq.Header.Set("Authorization", "Bearer "+tokenResult.TenantAccessToken)

	resp, err := http.DefaultClient.Do(infoReq)
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}
	defer resp.Body.Close()

	var botResult struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Bot  struct {
			OpenID  string `json:"open_id"`
			AppName string `json:"app_name"`
		} `json:"bot"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&botResult); err != nil {
		return fmt.Errorf("decode bot info: %w", err)
	}
	if botResult.Code != 0 {
		return fmt.Errorf("API error: %s", botResult.Msg)
	}

	c.botOpenID = botResult.Bot.OpenID
	log.Info().Str("component", "feishu").
		Str("open_id", c.botOpenID).
		Str("name", botResult.Bot.AppName).
		Msg("Bot identity resolved")
	return nil
}

// handleMessage converts a receive event into a Message
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	if event.Event == nil || event.Event.Message == nil {
		return
	}
	rawMsg := event.Event.Message

	// Our own messages come back as events too
	if s := event.Event.Sender; s != nil && s.SenderType != nil && *s.SenderType == "app" {
		return
	}

	msg := &Message{
		ChatID:   deref(rawMsg.ChatId),
		MsgID:    deref(rawMsg.MessageId),
		ChatType: deref(rawMsg.ChatType),
		ParentID: deref(rawMsg.ParentId),
		RootID:   deref(rawMsg.RootId),
	}
	if ts, err := strconv.ParseInt(deref(rawMsg.CreateTime), 10, 64); err == nil {
		msg.CreateTime = ts
	}
	if s := event.Event.Sender; s != nil && s.SenderId != nil {
		msg.SenderID = deref(s.SenderId.OpenId)
	}

	mentionMap := make(map[string]string)
	for _, mention := range rawMsg.Mentions {
		if mention.Id != nil && mention.Id.OpenId != nil && c.botOpenID != "" && *mention.Id.OpenId == c.botOpenID {
			msg.MentionsBot = true
		}
		if mention.Key != nil && mention.Name != nil {
			mentionMap[*mention.Key] = *mention.Name
		}
	}
	msg.ReplyToBot = msg.ParentID != "" && c.IsOwnMessage(msg.ParentID)

	switch msgType := deref(rawMsg.MessageType); msgType {
	case "text":
		msg.Content = parseTextContent(deref(rawMsg.Content), mentionMap)
	case "post":
		msg.Content = parsePostContent(deref(rawMsg.Content), mentionMap)
	default:
		log.Debug().Str("component", "feishu").Str("type", msgType).Msg("Unsupported message type")
		return
	}

	log.Debug().Str("component", "feishu").
		Str("chat_id", msg.ChatID).
		Str("chat_type", msg.ChatType).
		Str("text", truncate(msg.Content, 50)).
		Msg("Received message")

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// parseTextContent extracts text from a text message and resolves
// mention placeholders (@_user_1) to real names
func parseTextContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return replaceMentions(parsed.Text, mentionMap)
}

// parsePostContent flattens a rich text message to plain text
func parsePostContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag    string `json:"tag"`
			Text   string `json:"text,omitempty"`
			UserID string `json:"user_id,omitempty"` // for "at" tags
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}

	var lines []string
	if parsed.Title != "" {
		lines = append(lines, parsed.Title)
	}
	for _, line := range parsed.Content {
		var b strings.Builder
		for _, elem := range line {
			switch elem.Tag {
			case "text", "a":
				b.WriteString(elem.Text)
			case "at":
				if name, ok := mentionMap[elem.UserID]; ok {
					b.WriteString("@" + name)
				} else if elem.UserID != "" {
					b.WriteString("@" + elem.UserID)
				}
			}
		}
		if b.Len() > 0 {
			lines = append(lines, b.String())
		}
	}
	return replaceMentions(strings.Join(lines, "\n"), mentionMap)
}

// replaceMentions replaces mention placeholders with @RealName
func replaceMentions(text string, mentionMap map[string]string) string {
	for key, name := range mentionMap {
		text = strings.ReplaceAll(text, key, "@"+name)
	}
	return text
}

func textContent(text string) string {
	contentJSON, _ := json.Marshal(map[string]string{"text": text})
	return string(contentJSON)
}

// Reply quotes a message with a text reply
func (c *Client) Reply(ctx context.Context, messageID, text string) error {
	req := larkim.NewReplyMessageReqBuilder().
		MessageId(messageID).
		Body(larkim.NewReplyMessageReqBodyBuilder().
			MsgType(larkim.MsgTypeText).
			Content(textContent(text)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Reply(ctx, req)
	if err != nil {
		return fmt.Errorf("reply message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("reply message error: %s", resp.Msg)
	}
	if resp.Data != nil {
		c.rememberSent(deref(resp.Data.MessageId))
	}
	return nil
}

// SendText sends a text message to a chat
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkim.MsgTypeText).
			Content(textContent(text)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send message error: %s", resp.Msg)
	}
	if resp.Data != nil {
		c.rememberSent(deref(resp.Data.MessageId))
	}
	return nil
}

// AddReaction adds an emoji reaction to a message
func (c *Client) AddReaction(ctx context.Context, messageID, emojiType string) error {
	req := larkim.NewCreateMessageReactionReqBuilder().
		MessageId(messageID).
		Body(larkim.NewCreateMessageReactionReqBodyBuilder().
			ReactionType(larkim.NewEmojiBuilder().EmojiType(emojiType).Build()).
			Build()).
		Build()

	resp, err := c.larkCli.Im.MessageReaction.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("add reaction failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("add reaction error: %s", resp.Msg)
	}
	return nil
}

// GetAdministrators returns the open_ids of the chat owner and its managers
func (c *Client) GetAdministrators(ctx context.Context, chatID string) (map[string]bool, error) {
	req := larkim.NewGetChatReqBuilder().
		ChatId(chatID).
		UserIdType("open_id").
		Build()

	resp, err := c.larkCli.Im.Chat.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get chat info failed: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get chat info error: %s", resp.Msg)
	}

	admins := make(map[string]bool)
	if resp.Data == nil {
		return admins, nil
	}
	if owner := deref(resp.Data.OwnerId); owner != "" {
		admins[owner] = true
	}
	for _, id := range resp.Data.UserManagerIdList {
		admins[id] = true
	}
	return admins, nil
}

// IsOwnMessage reports whether messageID was sent by this client recently
func (c *Client) IsOwnMessage(messageID string) bool {
	c.sentMu.Lock()
	defer c.sentMu.Unlock()
	_, ok := c.sent[messageID]
	return ok
}

func (c *Client) rememberSent(messageID string) {
	if messageID == "" {
		return
	}
	c.sentMu.Lock()
	defer c.sentMu.Unlock()
	if _, ok := c.sent[messageID]; ok {
		return
	}
	c.sent[messageID] = struct{}{}
	c.sentOrder = append(c.sentOrder, messageID)
	if len(c.sentOrder) > sentCacheSize {
		delete(c.sent, c.sentOrder[0])
		c.sentOrder = c.sentOrder[1:]
	}
}

// Helper functions

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
