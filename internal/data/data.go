package data

import (
	"math/rand"

	"github.com/chaqqon/chatgate/internal/biz/repo"
	"github.com/chaqqon/chatgate/internal/infra/clock"
)

// Repositories contains the transport-independent repositories
type Repositories struct {
	Context    repo.ContextRepo
	Throttle   repo.ThrottleRepo
	Completion repo.CompletionRepo
}

// RepositoryConfig configures NewRepositories
type RepositoryConfig struct {
	HistoryCapacity int
	Escalation      EscalationConfig
	OpenAIKey       string
	OpenAIModel     string
	OpenAIBaseURL   string
}

// NewRepositories creates all transport-independent repositories.
// rnd is owned by the throttle repository from here on.
func NewRepositories(cfg RepositoryConfig, clk clock.Clock, rnd *rand.Rand) *Repositories {
	return &Repositories{
		Context:    NewContextRepo(cfg.HistoryCapacity),
		Throttle:   NewThrottleRepo(cfg.Escalation, clk, rnd),
		Completion: NewOpenAIRepo(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL),
	}
}
