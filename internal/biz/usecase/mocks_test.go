package usecase

import (
	"context"
	"sync"

	"github.com/chaqqon/chatgate/internal/biz/domain"
)

// Mock implementations

type mockMessageRepo struct {
	mu         sync.Mutex
	admins     map[string]bool
	adminErr   error
	adminCalls int
}

func (m *mockMessageRepo) Reply(ctx context.Context, conversationID, msgID, text string) error {
	return nil
}

func (m *mockMessageRepo) SendTyping(ctx context.Context, conversationID, msgID string) error {
	return nil
}

func (m *mockMessageRepo) GetAdministrators(ctx context.Context, conversationID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adminCalls++
	if m.adminErr != nil {
		return nil, m.adminErr
	}
	return m.admins, nil
}

func (m *mockMessageRepo) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adminCalls
}

type completionResult struct {
	answer string
	err    error
}

// mockCompletionRepo replays scripted results; the last one repeats
type mockCompletionRepo struct {
	mu      sync.Mutex
	script  []completionResult
	calls   int
	history [][]domain.Message
}

func (m *mockCompletionRepo) Complete(ctx context.Context, messages []domain.Message, temperature float32, maxTokens int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sent := make([]domain.Message, len(messages))
	copy(sent, messages)
	m.history = append(m.history, sent)

	i := m.calls
	if i >= len(m.script) {
		i = len(m.script) - 1
	}
	m.calls++
	return m.script[i].answer, m.script[i].err
}
