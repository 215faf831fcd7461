package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chaqqon/chatgate/internal/biz/domain"
	"github.com/chaqqon/chatgate/internal/biz/repo"
)

// PolicyConfig configures the trigger policy
type PolicyConfig struct {
	BotHandle         string // without "@"
	AuthorityUsername string // without "@"
	AskPrefix         string
	CooldownMin       time.Duration
	CooldownMax       time.Duration
}

// TriggerPolicy decides whether a message gets a reply
type TriggerPolicy struct {
	cfg         PolicyConfig
	topic       *TopicFilter
	throttle    repo.ThrottleRepo
	messageRepo repo.MessageRepo
}

// NewTriggerPolicy creates a trigger policy
func NewTriggerPolicy(
	cfg PolicyConfig,
	topic *TopicFilter,
	throttle repo.ThrottleRepo,
	messageRepo repo.MessageRepo,
) *TriggerPolicy {
	if cfg.AskPrefix == "" {
		cfg.AskPrefix = "/ask"
	}
	return &TriggerPolicy{
		cfg:         cfg,
		topic:       topic,
		throttle:    throttle,
		messageRepo: messageRepo,
	}
}

// Decide applies the group precedence rules; the first rule that fires wins.
// Private chats always get a reply.
func (p *TriggerPolicy) Decide(ctx context.Context, in *domain.Incoming) domain.Decision {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return ignore(domain.ReasonEmpty)
	}
	if !in.IsGroup() {
		return respond(domain.ReasonPrivate)
	}

	// 1. reply to the bot
	if in.IsReplyToBot {
		return respond(domain.ReasonReplyToBot)
	}

	// 2. direct mention or explicit ask
	if p.MentionsBot(in) {
		return respond(domain.ReasonMention)
	}
	if p.HasAskPrefix(text) {
		return respond(domain.ReasonAskPrefix)
	}

	// Off-topic text skips the rules below, which may need an admin lookup
	if !p.topic.IsInDomain(text) {
		return p.banterOr(in, domain.ReasonOffTopic)
	}

	// 3. authority
	if p.isAuthority(ctx, in) {
		return respond(domain.ReasonAuthority)
	}

	// 4. escalating confusion; the counter moves even when cooldown suppresses
	if p.topic.LooksLikeQuestionOrConfusion(text) &&
		p.throttle.RecordEscalation(in.ConversationID, in.ThreadID, text) {
		if p.cooldownReady(in) {
			return respond(domain.ReasonEscalation)
		}
		return ignore(domain.ReasonCooldown)
	}

	// 5. trigger keyword
	if p.topic.MatchesTrigger(text) {
		if p.cooldownReady(in) {
			return respond(domain.ReasonKeyword)
		}
		return ignore(domain.ReasonCooldown)
	}

	// 6. banter
	return p.banterOr(in, domain.ReasonNoTrigger)
}

// MentionsBot reports whether the message addresses the bot handle
func (p *TriggerPolicy) MentionsBot(in *domain.Incoming) bool {
	if in.MentionsBot {
		return true
	}
	if p.cfg.BotHandle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(in.Text), "@"+strings.ToLower(p.cfg.BotHandle))
}

// HasAskPrefix reports whether text starts with the ask command
func (p *TriggerPolicy) HasAskPrefix(text string) bool {
	_, ok := p.StripAskPrefix(text)
	return ok
}

// StripAskPrefix returns the text after the ask command ("/ask" or "/ask@bot").
// An ask addressed to a different bot handle is not ours.
func (p *TriggerPolicy) StripAskPrefix(text string) (string, bool) {
	text = strings.TrimSpace(text)
	prefix := p.cfg.AskPrefix
	if len(text) < len(prefix) || !strings.EqualFold(text[:len(prefix)], prefix) {
		return "", false
	}
	rest := text[len(prefix):]
	if strings.HasPrefix(rest, "@") {
		end := strings.IndexFunc(rest, isSpace)
		if end < 0 {
			end = len(rest)
		}
		// "/ask@other_bot" belongs to another bot
		if target := rest[1:end]; p.cfg.BotHandle != "" && !strings.EqualFold(target, p.cfg.BotHandle) {
			return "", false
		}
		return strings.TrimSpace(rest[end:]), true
	}
	if rest != "" && !isSpace(rune(rest[0])) {
		// "/asking" is not the ask command
		return "", false
	}
	return strings.TrimSpace(rest), true
}

func (p *TriggerPolicy) isAuthority(ctx context.Context, in *domain.Incoming) bool {
	if p.cfg.AuthorityUsername != "" && in.IsSender(p.cfg.AuthorityUsername) {
		return true
	}
	if p.messageRepo == nil || in.SenderID == "" {
		return false
	}

	admins, err := p.messageRepo.GetAdministrators(ctx, in.ConversationID)
	if err != nil {
		log.Warn().Err(err).
			Str("component", "policy").
			Str("chat_id", in.ConversationID).
			Msg("Administrator lookup failed, treating sender as regular member")
		return false
	}
	return admins[in.SenderID]
}

func (p *TriggerPolicy) banterOr(in *domain.Incoming, reason string) domain.Decision {
	if p.topic.IsBanter(in.Text) && p.cooldownReady(in) {
		return domain.Decision{Kind: domain.DecisionBanter, Reason: domain.ReasonBanter}
	}
	return ignore(reason)
}

func (p *TriggerPolicy) cooldownReady(in *domain.Incoming) bool {
	return p.throttle.IsGroupCooldownReady(in.ConversationID, p.cfg.CooldownMin, p.cfg.CooldownMax)
}

func respond(reason string) domain.Decision {
	return domain.Decision{Kind: domain.DecisionRespond, Reason: reason}
}

func ignore(reason string) domain.Decision {
	return domain.Decision{Kind: domain.DecisionIgnore, Reason: reason}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
