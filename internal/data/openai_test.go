package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaqqon/chatgate/internal/biz/domain"
)

type fakeCompleter struct {
	req  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestOpenAIRepo_Complete(t *testing.T) {
	fc := &fakeCompleter{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "Salom!"}}},
	}}
	r := &openaiRepo{client: fc, model: "gpt-4o-mini"}

	out, err := r.Complete(context.Background(), []domain.Message{
		domain.SystemMessage("sys"),
		domain.UserMessage("q"),
		domain.AssistantMessage("a"),
	}, 0.35, 700)

	require.NoError(t, err)
	assert.Equal(t, "Salom!", out)
	assert.Equal(t, "gpt-4o-mini", fc.req.Model)
	assert.Equal(t, 700, fc.req.MaxTokens)
	assert.InDelta(t, 0.35, fc.req.Temperature, 1e-6)
	require.Len(t, fc.req.Messages, 3)
	assert.Equal(t, openai.ChatMessageRoleSystem, fc.req.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, fc.req.Messages[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, fc.req.Messages[2].Role)
}

func TestOpenAIRepo_RateLimit(t *testing.T) {
	fc := &fakeCompleter{err: &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}}
	r := &openaiRepo{client: fc, model: "m"}

	_, err := r.Complete(context.Background(), nil, 0, 10)

	assert.True(t, domain.IsRateLimit(err))
}

func TestOpenAIRepo_RequestErrorRateLimit(t *testing.T) {
	fc := &fakeCompleter{err: fmt.Errorf("wrapped: %w", &openai.RequestError{HTTPStatusCode: http.StatusTooManyRequests, Err: errors.New("429")})}
	r := &openaiRepo{client: fc, model: "m"}

	_, err := r.Complete(context.Background(), nil, 0, 10)

	assert.True(t, domain.IsRateLimit(err))
}

func TestOpenAIRepo_OtherError(t *testing.T) {
	fc := &fakeCompleter{err: &openai.APIError{HTTPStatusCode: http.StatusInternalServerError, Message: "boom"}}
	r := &openaiRepo{client: fc, model: "m"}

	_, err := r.Complete(context.Background(), nil, 0, 10)

	require.Error(t, err)
	assert.False(t, domain.IsRateLimit(err))
}

func TestOpenAIRepo_NoChoices(t *testing.T) {
	r := &openaiRepo{client: &fakeCompleter{}, model: "m"}

	_, err := r.Complete(context.Background(), nil, 0, 10)

	assert.Error(t, err)
}
