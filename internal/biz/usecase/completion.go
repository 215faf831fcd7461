package usecase

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/chaqqon/chatgate/internal/biz/domain"
	"github.com/chaqqon/chatgate/internal/biz/repo"
	"github.com/chaqqon/chatgate/internal/infra/clock"
)

// CompletionConfig configures the completion client
type CompletionConfig struct {
	SystemPrompt   string
	NoAnswer       string        // used when the model returns empty content
	PreCallDelay   time.Duration // smooths bursts before a slot is taken
	Concurrency    int64         // process-wide in-flight calls
	Temperature    float32
	MaxTokens      int
	MaxAttempts    int // total attempts on rate limit, including the first
	InitialBackoff time.Duration
	BackoffFactor  float64
}

// DefaultCompletionConfig returns default completion configuration
func DefaultCompletionConfig() CompletionConfig {
	return CompletionConfig{
		NoAnswer:       "Uzr, javob topilmadi.",
		PreCallDelay:   120 * time.Millisecond,
		Concurrency:    4,
		Temperature:    0.35,
		MaxTokens:      700,
		MaxAttempts:    3,
		InitialBackoff: 700 * time.Millisecond,
		BackoffFactor:  1.8,
	}
}

// CompletionUsecase wraps the model call with a slot pool and rate-limit retries
type CompletionUsecase struct {
	cfg            CompletionConfig
	contextRepo    repo.ContextRepo
	completionRepo repo.CompletionRepo
	clock          clock.Clock
	slots          *semaphore.Weighted
}

// NewCompletionUsecase creates a new completion usecase
func NewCompletionUsecase(
	cfg CompletionConfig,
	contextRepo repo.ContextRepo,
	completionRepo repo.CompletionRepo,
	clk clock.Clock,
) *CompletionUsecase {
	def := DefaultCompletionConfig()
	if cfg.Concurrency < 1 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = def.BackoffFactor
	}
	if cfg.NoAnswer == "" {
		cfg.NoAnswer = def.NoAnswer
	}
	return &CompletionUsecase{
		cfg:            cfg,
		contextRepo:    contextRepo,
		completionRepo: completionRepo,
		clock:          clk,
		slots:          semaphore.NewWeighted(cfg.Concurrency),
	}
}

// Complete asks the model for a reply to prompt in the context of the conversation.
// On success the prompt and reply are stored as an adjacent pair; on failure
// the history is untouched and a *domain.ServiceError is returned.
func (uc *CompletionUsecase) Complete(ctx context.Context, conversationID, prompt string) (string, error) {
	if err := uc.clock.Sleep(ctx, uc.cfg.PreCallDelay); err != nil {
		return "", &domain.ServiceError{Cause: err}
	}

	if err := uc.slots.Acquire(ctx, 1); err != nil {
		return "", &domain.ServiceError{Cause: err}
	}
	defer uc.slots.Release(1)

	history := uc.contextRepo.Get(conversationID)
	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.SystemMessage(uc.cfg.SystemPrompt))
	messages = append(messages, history...)
	messages = append(messages, domain.UserMessage(prompt))

	backoff := uc.cfg.InitialBackoff
	for attempt := 1; ; attempt++ {
		answer, err := uc.completionRepo.Complete(ctx, messages, uc.cfg.Temperature, uc.cfg.MaxTokens)
		if err == nil {
			if strings.TrimSpace(answer) == "" {
				answer = uc.cfg.NoAnswer
			}
			uc.contextRepo.Append(conversationID, domain.UserMessage(prompt), domain.AssistantMessage(answer))
			return answer, nil
		}

		if !domain.IsRateLimit(err) || attempt >= uc.cfg.MaxAttempts {
			return "", &domain.ServiceError{Attempts: attempt, Cause: err}
		}

		log.Warn().Err(err).
			Str("component", "completion").
			Str("chat_id", conversationID).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Rate limited, retrying")

		if err := uc.clock.Sleep(ctx, backoff); err != nil {
			return "", &domain.ServiceError{Attempts: attempt, Cause: err}
		}
		backoff = time.Duration(math.Round(float64(backoff) * uc.cfg.BackoffFactor))
	}
}
