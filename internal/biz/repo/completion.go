package repo

import (
	"context"

	"github.com/chaqqon/chatgate/internal/biz/domain"
)

// CompletionRepo is the generative model boundary
type CompletionRepo interface {
	// Complete runs one chat completion over the ordered message list.
	// A rejected call due to rate limiting returns *domain.RateLimitError.
	Complete(ctx context.Context, messages []domain.Message, temperature float32, maxTokens int) (string, error)
}
