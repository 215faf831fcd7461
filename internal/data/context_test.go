package data

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaqqon/chatgate/internal/biz/domain"
)

func TestContextRepo_GetUnseen(t *testing.T) {
	r := NewContextRepo(DefaultHistoryCapacity)

	got := r.Get("chat-1")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestContextRepo_FIFOEviction(t *testing.T) {
	r := NewContextRepo(DefaultHistoryCapacity)

	for i := 0; i < 11; i++ {
		r.Append("chat-1", domain.UserMessage(fmt.Sprintf("m%d", i)))
		assert.LessOrEqual(t, len(r.Get("chat-1")), DefaultHistoryCapacity)
	}

	got := r.Get("chat-1")
	require.Len(t, got, 8)
	assert.Equal(t, "m3", got[0].Content, "oldest entries are dropped first")
	assert.Equal(t, "m10", got[7].Content)
}

func TestContextRepo_PairAppendOverflow(t *testing.T) {
	r := NewContextRepo(3)

	r.Append("c", domain.UserMessage("q1"), domain.AssistantMessage("a1"))
	r.Append("c", domain.UserMessage("q2"), domain.AssistantMessage("a2"))

	got := r.Get("c")
	require.Len(t, got, 3)
	assert.Equal(t, []domain.Message{
		domain.AssistantMessage("a1"),
		domain.UserMessage("q2"),
		domain.AssistantMessage("a2"),
	}, got)
}

func TestContextRepo_GetReturnsCopy(t *testing.T) {
	r := NewContextRepo(4)
	r.Append("c", domain.UserMessage("hello"))

	got := r.Get("c")
	got[0].Content = "mutated"

	assert.Equal(t, "hello", r.Get("c")[0].Content)
}

func TestContextRepo_ClearIdempotent(t *testing.T) {
	r := NewContextRepo(4)
	r.Clear("never-seen")

	r.Append("c", domain.UserMessage("hello"))
	r.Clear("c")
	r.Clear("c")

	assert.Empty(t, r.Get("c"))

	r.Append("c", domain.UserMessage("again"))
	assert.Len(t, r.Get("c"), 1)
}

func TestContextRepo_ConversationsIsolated(t *testing.T) {
	r := NewContextRepo(4)
	r.Append("a", domain.UserMessage("for a"))
	r.Append("b", domain.UserMessage("for b"))

	r.Clear("a")

	assert.Empty(t, r.Get("a"))
	assert.Len(t, r.Get("b"), 1)
}

func TestContextRepo_ConcurrentPairsStayAdjacent(t *testing.T) {
	r := NewContextRepo(DefaultHistoryCapacity)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := fmt.Sprintf("q%d", i)
			r.Append("group", domain.UserMessage(q), domain.AssistantMessage("a-"+q))
		}(i)
	}
	wg.Wait()

	got := r.Get("group")
	require.Len(t, got, DefaultHistoryCapacity)
	for i := 0; i < len(got); i += 2 {
		assert.Equal(t, domain.RoleUser, got[i].Role)
		assert.Equal(t, domain.RoleAssistant, got[i+1].Role)
		assert.Equal(t, "a-"+got[i].Content, got[i+1].Content)
	}
}
