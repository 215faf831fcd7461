package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chaqqon/chatgate/internal/biz/domain"
	"github.com/chaqqon/chatgate/internal/biz/repo"
	"github.com/chaqqon/chatgate/internal/biz/usecase"
)

// Phrases are the fixed user-visible strings of the dispatcher
type Phrases struct {
	Welcome         string // "{{name}}" is replaced with the sender name
	ResetDone       string
	Apology         string
	AskUsage        string
	CodeReminder    string
	SummarizePrompt string
	Tips            []string
	Banter          []string
}

// DispatcherConfig configures the dispatcher
type DispatcherConfig struct {
	BotHandle     string
	UserWindow    time.Duration
	ReplyMaxChars int // zero or less sends the full reply in chunks
	ChunkLimit    int
	Phrases       Phrases
}

// MessageRequest is one inbound text message, as produced by a transport
type MessageRequest struct {
	ConversationID string
	MsgID          string
	Text           string
	SenderID       string
	SenderName     string
	ChatType       domain.ChatType
	ThreadID       string
	IsReplyToBot   bool
	MentionsBot    bool
}

func (r *MessageRequest) toIncoming() *domain.Incoming {
	return &domain.Incoming{
		MsgID:          r.MsgID,
		Text:           r.Text,
		SenderID:       r.SenderID,
		SenderName:     r.SenderName,
		ConversationID: r.ConversationID,
		ThreadID:       r.ThreadID,
		ChatType:       r.ChatType,
		IsReplyToBot:   r.IsReplyToBot,
		MentionsBot:    r.MentionsBot,
	}
}

// userKey identifies the sender for the per-user throttle
func (r *MessageRequest) userKey() string {
	if r.SenderID != "" {
		return r.SenderID
	}
	return r.SenderName
}

// Dispatcher is the single entry point for inbound messages
type Dispatcher struct {
	cfg         DispatcherConfig
	policy      *usecase.TriggerPolicy
	topic       *usecase.TopicFilter
	completion  *usecase.CompletionUsecase
	sanitizer   *usecase.ReplySanitizer
	contextRepo repo.ContextRepo
	throttle    repo.ThrottleRepo
	messageRepo repo.MessageRepo

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(
	cfg DispatcherConfig,
	policy *usecase.TriggerPolicy,
	topic *usecase.TopicFilter,
	completion *usecase.CompletionUsecase,
	sanitizer *usecase.ReplySanitizer,
	contextRepo repo.ContextRepo,
	throttle repo.ThrottleRepo,
	messageRepo repo.MessageRepo,
	rnd *rand.Rand,
) *Dispatcher {
	if cfg.ChunkLimit <= 0 {
		cfg.ChunkLimit = usecase.DefaultChunkLimit
	}
	return &Dispatcher{
		cfg:         cfg,
		policy:      policy,
		topic:       topic,
		completion:  completion,
		sanitizer:   sanitizer,
		contextRepo: contextRepo,
		throttle:    throttle,
		messageRepo: messageRepo,
		rnd:         rnd,
	}
}

// HandleMessage routes one message. It never fails: model errors become the
// apology phrase and transport errors are logged.
func (d *Dispatcher) HandleMessage(ctx context.Context, req *MessageRequest) {
	logger := log.With().
		Str("component", "dispatcher").
		Str("trace_id", uuid.NewString()).
		Str("chat_id", req.ConversationID).
		Str("msg_id", req.MsgID).
		Logger()
	ctx = logger.WithContext(ctx)

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return
	}

	if cmd, ok := d.parseCommand(text); ok && d.handleCommand(ctx, req, cmd) {
		return
	}

	decision := d.policy.Decide(ctx, req.toIncoming())
	logger.Debug().
		Str("sender", req.SenderName).
		Str("decision", decision.Kind.String()).
		Str("reason", decision.Reason).
		Msg("Routed message")

	switch decision.Kind {
	case domain.DecisionBanter:
		if line := d.pick(d.cfg.Phrases.Banter); line != "" {
			d.reply(ctx, req, line)
		}
	case domain.DecisionRespond:
		prompt := text
		if rest, ok := d.policy.StripAskPrefix(text); ok {
			if rest == "" {
				d.reply(ctx, req, d.cfg.Phrases.AskUsage)
				return
			}
			prompt = rest
		}
		d.answer(ctx, req, prompt)
	}
}

// parseCommand returns the lowercased command of a slash message. Commands
// addressed to another bot ("/reset@other_bot") are not ours.
func (d *Dispatcher) parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		if lower := strings.ToLower(text); lower == "summarize" || lower == "xulosa" {
			return "/" + lower, true
		}
		return "", false
	}
	cmd := strings.ToLower(strings.Fields(text)[0])
	if at := strings.Index(cmd, "@"); at >= 0 {
		target := cmd[at+1:]
		cmd = cmd[:at]
		if d.cfg.BotHandle != "" && !strings.EqualFold(target, d.cfg.BotHandle) {
			return "", false
		}
	}
	return cmd, true
}

// handleCommand reports whether cmd was consumed
func (d *Dispatcher) handleCommand(ctx context.Context, req *MessageRequest, cmd string) bool {
	logger := zerolog.Ctx(ctx)

	switch cmd {
	case "/start":
		name := strings.TrimSpace(req.SenderName)
		if name == "" {
			name = "do'stim"
		}
		d.reply(ctx, req, strings.ReplaceAll(d.cfg.Phrases.Welcome, "{{name}}", name))

	case "/reset":
		d.contextRepo.Clear(req.ConversationID)
		logger.Info().Msg("Context cleared")
		d.reply(ctx, req, d.cfg.Phrases.ResetDone)

	case "/tip":
		if tip := d.pick(d.cfg.Phrases.Tips); tip != "" {
			d.reply(ctx, req, tip)
		}

	case "/xulosa", "/summarize":
		d.answer(ctx, req, d.cfg.Phrases.SummarizePrompt)

	default:
		return false
	}
	return true
}

// answer runs the AI path: throttle, typing indicator, completion, sanitize, reply
func (d *Dispatcher) answer(ctx context.Context, req *MessageRequest, prompt string) {
	logger := zerolog.Ctx(ctx)

	if d.throttle.IsUserThrottled(req.userKey(), d.cfg.UserWindow) {
		logger.Debug().Str("sender", req.userKey()).Msg("User throttled, dropping message")
		return
	}

	if err := d.messageRepo.SendTyping(ctx, req.ConversationID, req.MsgID); err != nil {
		logger.Warn().Err(err).Msg("Failed to send typing indicator")
	}

	modelPrompt := prompt
	if d.cfg.Phrases.CodeReminder != "" && d.topic.IsCodeRequest(prompt) {
		modelPrompt = prompt + "\n\n" + d.cfg.Phrases.CodeReminder
	}

	raw, err := d.completion.Complete(ctx, req.ConversationID, modelPrompt)
	if err != nil {
		logger.Error().Err(err).Msg("Completion failed")
		d.reply(ctx, req, d.cfg.Phrases.Apology)
		return
	}

	text := d.sanitizer.Sanitize(raw, prompt)
	if d.cfg.ReplyMaxChars > 0 {
		d.reply(ctx, req, d.sanitizer.Cap(text, d.cfg.ReplyMaxChars))
		return
	}
	for _, chunk := range usecase.SplitChunks(text, d.cfg.ChunkLimit) {
		d.reply(ctx, req, chunk)
	}
}

func (d *Dispatcher) reply(ctx context.Context, req *MessageRequest, text string) {
	if err := d.messageRepo.Reply(ctx, req.ConversationID, req.MsgID, text); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to send reply")
	}
}

func (d *Dispatcher) pick(items []string) string {
	if len(items) == 0 {
		return ""
	}
	d.rndMu.Lock()
	defer d.rndMu.Unlock()
	return items[d.rnd.Intn(len(items))]
}
