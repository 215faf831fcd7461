package biz

import (
	"github.com/chaqqon/chatgate/internal/biz/repo"
	"github.com/chaqqon/chatgate/internal/biz/usecase"
	"github.com/chaqqon/chatgate/internal/infra/clock"
)

// UsecaseConfig gathers the configuration of every usecase
type UsecaseConfig struct {
	Topic      usecase.TopicConfig
	Policy     usecase.PolicyConfig
	Completion usecase.CompletionConfig
	Sanitizer  usecase.SanitizerConfig
}

// Usecases contains all usecases
type Usecases struct {
	Topic      *usecase.TopicFilter
	Policy     *usecase.TriggerPolicy
	Completion *usecase.CompletionUsecase
	Sanitizer  *usecase.ReplySanitizer
}

// NewUsecases builds the usecase layer; the topic filter is shared by the
// policy and the sanitizer
func NewUsecases(
	cfg UsecaseConfig,
	contextRepo repo.ContextRepo,
	throttleRepo repo.ThrottleRepo,
	completionRepo repo.CompletionRepo,
	messageRepo repo.MessageRepo,
	clk clock.Clock,
) *Usecases {
	topic := usecase.NewTopicFilter(cfg.Topic)
	return &Usecases{
		Topic:      topic,
		Policy:     usecase.NewTriggerPolicy(cfg.Policy, topic, throttleRepo, messageRepo),
		Completion: usecase.NewCompletionUsecase(cfg.Completion, contextRepo, completionRepo, clk),
		Sanitizer:  usecase.NewReplySanitizer(cfg.Sanitizer, topic),
	}
}
