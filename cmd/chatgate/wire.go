package main

import (
	"math/rand"
	"time"

	"github.com/chaqqon/chatgate/internal/biz"
	"github.com/chaqqon/chatgate/internal/biz/repo"
	"github.com/chaqqon/chatgate/internal/biz/usecase"
	"github.com/chaqqon/chatgate/internal/conf"
	"github.com/chaqqon/chatgate/internal/data"
	"github.com/chaqqon/chatgate/internal/infra/clock"
	"github.com/chaqqon/chatgate/internal/service"
)

// loadConfig reads env and vocabulary; any problem is a *conf.ConfigError
// or a vocabulary load error and stops startup
func loadConfig() (*conf.Config, *conf.Vocabulary, error) {
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	vocab, err := conf.LoadVocabulary(cfg.VocabPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, vocab, nil
}

// wireDispatcher builds the router on top of a transport's message repository
func wireDispatcher(cfg *conf.Config, vocab *conf.Vocabulary, messageRepo repo.MessageRepo, clk clock.Clock) *service.Dispatcher {
	seed := time.Now().UnixNano()

	repos := data.NewRepositories(data.RepositoryConfig{
		HistoryCapacity: cfg.Completion.HistoryCapacity,
		Escalation: data.EscalationConfig{
			TriggerCount:   cfg.Throttle.EscalationTriggerCount,
			HeatedKeywords: vocab.Topic.HeatedKeywords,
		},
		OpenAIKey:     cfg.OpenAI.APIKey,
		OpenAIModel:   cfg.OpenAI.Model,
		OpenAIBaseURL: cfg.OpenAI.BaseURL,
	}, clk, rand.New(rand.NewSource(seed)))

	uc := biz.NewUsecases(biz.UsecaseConfig{
		Topic:      vocab.ToTopicConfig(),
		Policy:     cfg.ToPolicyConfig(),
		Completion: cfg.ToCompletionConfig(vocab),
		Sanitizer:  vocab.ToSanitizerConfig(),
	}, repos.Context, repos.Throttle, repos.Completion, messageRepo, clk)

	return service.NewDispatcher(
		dispatcherConfig(cfg, vocab),
		uc.Policy,
		uc.Topic,
		uc.Completion,
		uc.Sanitizer,
		repos.Context,
		repos.Throttle,
		messageRepo,
		rand.New(rand.NewSource(seed+1)),
	)
}

// dispatcherConfig converts settings and vocabulary to dispatcher configuration
func dispatcherConfig(cfg *conf.Config, vocab *conf.Vocabulary) service.DispatcherConfig {
	return service.DispatcherConfig{
		BotHandle:     cfg.Bot.Handle,
		UserWindow:    cfg.Throttle.UserWindow,
		ReplyMaxChars: cfg.Completion.ReplyMaxChars,
		ChunkLimit:    usecase.DefaultChunkLimit,
		Phrases: service.Phrases{
			Welcome:         vocab.Phrases.Welcome,
			ResetDone:       vocab.Phrases.ResetDone,
			Apology:         vocab.Phrases.Apology,
			AskUsage:        vocab.Phrases.AskUsage,
			CodeReminder:    vocab.Phrases.CodeReminder,
			SummarizePrompt: vocab.Phrases.SummarizePrompt,
			Tips:            vocab.Tips,
			Banter:          vocab.Banter,
		},
	}
}
