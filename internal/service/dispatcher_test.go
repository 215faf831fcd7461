package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaqqon/chatgate/internal/biz/domain"
	"github.com/chaqqon/chatgate/internal/biz/repo"
	"github.com/chaqqon/chatgate/internal/biz/usecase"
	"github.com/chaqqon/chatgate/internal/data"
	"github.com/chaqqon/chatgate/internal/infra/clock"
)

// Mock implementations

type sentReply struct {
	conversationID string
	msgID          string
	text           string
}

type mockMessageRepo struct {
	mu       sync.Mutex
	replies  []sentReply
	typing   int
	replyErr error
}

func (m *mockMessageRepo) Reply(ctx context.Context, conversationID, msgID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, sentReply{conversationID, msgID, text})
	return m.replyErr
}

func (m *mockMessageRepo) SendTyping(ctx context.Context, conversationID, msgID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typing++
	return errors.New("typing not supported")
}

func (m *mockMessageRepo) GetAdministrators(ctx context.Context, conversationID string) (map[string]bool, error) {
	return nil, nil
}

func (m *mockMessageRepo) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.replies))
	for _, r := range m.replies {
		out = append(out, r.text)
	}
	return out
}

type mockCompletionRepo struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (m *mockCompletionRepo) Complete(ctx context.Context, messages []domain.Message, temperature float32, maxTokens int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, messages[len(messages)-1].Content)
	return m.answer, m.err
}

func (m *mockCompletionRepo) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

var testPhrases = Phrases{
	Welcome:         "Welcome, {{name}}!",
	ResetDone:       "Context cleared.",
	Apology:         "Service unavailable, try later.",
	AskUsage:        "Usage: /ask <question>",
	CodeReminder:    "(answer without code)",
	SummarizePrompt: "Summarize our talk.",
	Tips:            []string{"Read every day.", "Speak every day."},
	Banter:          []string{"😄 nice one"},
}

type fixture struct {
	dispatcher  *Dispatcher
	messages    *mockMessageRepo
	completions *mockCompletionRepo
	history     repo.ContextRepo
	clock       *clock.Fake
}

func newFixture(t *testing.T, answer string) *fixture {
	t.Helper()

	clk := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	history := data.NewContextRepo(data.DefaultHistoryCapacity)
	throttle := data.NewThrottleRepo(data.EscalationConfig{TriggerCount: 2}, clk, rand.New(rand.NewSource(7)))
	messages := &mockMessageRepo{}
	completions := &mockCompletionRepo{answer: answer}

	topic := usecase.NewTopicFilter(usecase.TopicConfig{
		DomainTerms:        []string{"grammar", "tense"},
		CodeRequestPhrases: []string{"write code"},
		TriggerKeywords:    []string{"explain"},
		BanterKeywords:     []string{"haha"},
		IdentityPhrases:    []string{"who are you"},
	})
	policy := usecase.NewTriggerPolicy(usecase.PolicyConfig{
		BotHandle:   "chaqqon_bot",
		CooldownMin: 45 * time.Second,
		CooldownMax: 90 * time.Second,
	}, topic, throttle, messages)

	completionCfg := usecase.DefaultCompletionConfig()
	completionCfg.SystemPrompt = "You are a tutor."
	completion := usecase.NewCompletionUsecase(completionCfg, history, completions, clk)
	sanitizer := usecase.NewReplySanitizer(usecase.SanitizerConfig{
		CodeRefusal:        "(no code)",
		SelfIdentification: "I am an AI language model.",
		EmptyReply:         "(empty reply)",
	}, topic)

	d := NewDispatcher(DispatcherConfig{
		BotHandle:     "chaqqon_bot",
		UserWindow:    20 * time.Second,
		ReplyMaxChars: 350,
		Phrases:       testPhrases,
	}, policy, topic, completion, sanitizer, history, throttle, messages, rand.New(rand.NewSource(1)))

	return &fixture{
		dispatcher:  d,
		messages:    messages,
		completions: completions,
		history:     history,
		clock:       clk,
	}
}

func privateReq(text string) *MessageRequest {
	return &MessageRequest{
		ConversationID: "oc_dm",
		MsgID:          "om_1",
		Text:           text,
		SenderID:       "ou_ali",
		SenderName:     "Ali",
		ChatType:       domain.ChatTypeP2P,
	}
}

func groupReq(sender, text string) *MessageRequest {
	return &MessageRequest{
		ConversationID: "oc_group",
		MsgID:          "om_" + sender,
		Text:           text,
		SenderID:       "ou_" + sender,
		SenderName:     sender,
		ChatType:       domain.ChatTypeGroup,
	}
}

func TestHandleMessage_Start(t *testing.T) {
	f := newFixture(t, "")

	f.dispatcher.HandleMessage(context.Background(), privateReq("/start"))

	assert.Equal(t, []string{"Welcome, Ali!"}, f.messages.texts())
	assert.Zero(t, f.completions.calls())
}

func TestHandleMessage_Reset(t *testing.T) {
	f := newFixture(t, "")
	f.history.Append("oc_dm", domain.UserMessage("q"), domain.AssistantMessage("a"))

	f.dispatcher.HandleMessage(context.Background(), privateReq("/reset@chaqqon_bot"))

	assert.Empty(t, f.history.Get("oc_dm"))
	assert.Equal(t, []string{"Context cleared."}, f.messages.texts())
}

func TestHandleMessage_CommandForAnotherBot(t *testing.T) {
	f := newFixture(t, "")
	f.history.Append("oc_group", domain.UserMessage("q"), domain.AssistantMessage("a"))

	f.dispatcher.HandleMessage(context.Background(), groupReq("ali", "/reset@other_bot"))

	assert.Len(t, f.history.Get("oc_group"), 2)
	assert.Empty(t, f.messages.texts())
}

func TestHandleMessage_AskForAnotherBot(t *testing.T) {
	f := newFixture(t, "should not be sent")

	f.dispatcher.HandleMessage(context.Background(), groupReq("ali", "/ask@other_bot q"))

	assert.Zero(t, f.completions.calls())
	assert.Empty(t, f.messages.texts())
}

func TestHandleMessage_Tip(t *testing.T) {
	f := newFixture(t, "")

	f.dispatcher.HandleMessage(context.Background(), privateReq("/tip"))

	texts := f.messages.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, testPhrases.Tips, texts[0])
	assert.Zero(t, f.completions.calls())
}

func TestHandleMessage_PrivateAnswer(t *testing.T) {
	f := newFixture(t, "I am an AI language model. Use present perfect here. It links past and now. Easy. Done.")

	f.dispatcher.HandleMessage(context.Background(), privateReq("which tense?"))

	assert.Equal(t, []string{"Use present perfect here. It links past and now. Easy."}, f.messages.texts())
	assert.Equal(t, 1, f.messages.typing)
	assert.Equal(t, []string{"which tense?"}, f.completions.prompts)
	assert.Len(t, f.history.Get("oc_dm"), 2)
}

func TestHandleMessage_GroupOffTopicIgnored(t *testing.T) {
	f := newFixture(t, "answer")

	f.dispatcher.HandleMessage(context.Background(), groupReq("ali", "who won the match?"))

	assert.Empty(t, f.messages.texts())
	assert.Zero(t, f.completions.calls())
}

func TestHandleMessage_MentionAnswered(t *testing.T) {
	f := newFixture(t, "Sunny.")

	f.dispatcher.HandleMessage(context.Background(), groupReq("ali", "@chaqqon_bot weather?"))

	assert.Equal(t, []string{"Sunny."}, f.messages.texts())
}

func TestHandleMessage_UserThrottle(t *testing.T) {
	f := newFixture(t, "ok")
	ctx := context.Background()

	f.dispatcher.HandleMessage(ctx, privateReq("first"))
	f.dispatcher.HandleMessage(ctx, privateReq("second"))
	assert.Equal(t, 1, f.completions.calls())

	f.clock.Advance(21 * time.Second)
	f.dispatcher.HandleMessage(ctx, privateReq("third"))
	assert.Equal(t, 2, f.completions.calls())
	assert.Len(t, f.messages.texts(), 2)
}

func TestHandleMessage_ServiceErrorApologizes(t *testing.T) {
	f := newFixture(t, "")
	f.completions.err = errors.New("upstream 500")

	f.dispatcher.HandleMessage(context.Background(), privateReq("hello"))

	assert.Equal(t, []string{testPhrases.Apology}, f.messages.texts())
	assert.Empty(t, f.history.Get("oc_dm"))
}

func TestHandleMessage_CodeRequest(t *testing.T) {
	f := newFixture(t, "Sure:\n```go\nfmt.Println(1)\n```")

	f.dispatcher.HandleMessage(context.Background(), privateReq("write code for hello"))

	require.Len(t, f.completions.prompts, 1)
	assert.Equal(t, "write code for hello\n\n(answer without code)", f.completions.prompts[0])
	texts := f.messages.texts()
	require.Len(t, texts, 1)
	assert.NotContains(t, texts[0], "```")
	assert.Contains(t, texts[0], "(no code)")
}

func TestHandleMessage_AskCommand(t *testing.T) {
	f := newFixture(t, "Football is a sport.")
	ctx := context.Background()

	f.dispatcher.HandleMessage(ctx, groupReq("ali", "/ask"))
	assert.Equal(t, []string{testPhrases.AskUsage}, f.messages.texts())

	f.dispatcher.HandleMessage(ctx, groupReq("vali", "/ask@chaqqon_bot what is football"))
	assert.Equal(t, []string{"what is football"}, f.completions.prompts)
}

func TestHandleMessage_Summarize(t *testing.T) {
	f := newFixture(t, "We talked about tenses.")

	f.dispatcher.HandleMessage(context.Background(), groupReq("ali", "Xulosa"))

	assert.Equal(t, []string{"Summarize our talk."}, f.completions.prompts)
	assert.Equal(t, []string{"We talked about tenses."}, f.messages.texts())
}

func TestHandleMessage_Banter(t *testing.T) {
	f := newFixture(t, "")

	f.dispatcher.HandleMessage(context.Background(), groupReq("ali", "haha"))

	assert.Equal(t, []string{"😄 nice one"}, f.messages.texts())
	assert.Zero(t, f.completions.calls())
}

func TestHandleMessage_ReplyCapped(t *testing.T) {
	f := newFixture(t, strings.Repeat("word ", 200))

	f.dispatcher.HandleMessage(context.Background(), privateReq("long please"))

	texts := f.messages.texts()
	require.Len(t, texts, 1)
	assert.LessOrEqual(t, utf8.RuneCountInString(texts[0]), 350)
	assert.True(t, strings.HasSuffix(texts[0], "…"))
}

func TestHandleMessage_ChunkedWhenUncapped(t *testing.T) {
	f := newFixture(t, strings.Repeat("a", 30)+"\n\n"+strings.Repeat("b", 30))
	f.dispatcher.cfg.ReplyMaxChars = 0
	f.dispatcher.cfg.ChunkLimit = 40

	f.dispatcher.HandleMessage(context.Background(), privateReq("two paragraphs"))

	assert.Equal(t, []string{strings.Repeat("a", 30), strings.Repeat("b", 30)}, f.messages.texts())
}

func TestHandleMessage_TransportErrorSwallowed(t *testing.T) {
	f := newFixture(t, "fine")
	f.messages.replyErr = errors.New("network down")

	assert.NotPanics(t, func() {
		f.dispatcher.HandleMessage(context.Background(), privateReq("hello"))
	})
	assert.Len(t, f.history.Get("oc_dm"), 2)
}

func TestHandleMessage_EmptyIgnored(t *testing.T) {
	f := newFixture(t, "x")

	f.dispatcher.HandleMessage(context.Background(), privateReq("   "))

	assert.Empty(t, f.messages.texts())
}
