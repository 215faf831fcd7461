package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chaqqon/chatgate/internal/biz/domain"
	"github.com/chaqqon/chatgate/internal/biz/repo"
)

// completionTimeout bounds one backend call; a timeout surfaces as a generic failure
const completionTimeout = 60 * time.Second

// chatCompleter is the subset of *openai.Client used here
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// openaiRepo implements the completion repository on an OpenAI-compatible API
type openaiRepo struct {
	client chatCompleter
	model  string
}

// NewOpenAIRepo creates a completion repository. baseURL may be empty for the
// public OpenAI endpoint.
func NewOpenAIRepo(apiKey, model, baseURL string) repo.CompletionRepo {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &openaiRepo{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Complete runs one chat completion
func (r *openaiRepo) Complete(ctx context.Context, messages []domain.Message, temperature float32, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       r.model,
		Messages:    toChatMessages(messages),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if status := statusCode(err); status == http.StatusTooManyRequests {
			return "", &domain.RateLimitError{StatusCode: status, Err: err}
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}

func toChatMessages(messages []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case domain.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case domain.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

// statusCode extracts the HTTP status of a go-openai error, 0 if none
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
