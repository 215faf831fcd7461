package data

import (
	"sync"

	"github.com/chaqqon/chatgate/internal/biz/domain"
	"github.com/chaqqon/chatgate/internal/biz/repo"
)

// DefaultHistoryCapacity is the number of messages kept per conversation
const DefaultHistoryCapacity = 8

// contextRepo implements an in-memory bounded history per conversation
type contextRepo struct {
	capacity int

	mu    sync.Mutex
	convs map[string]*history
}

// history is a FIFO ring guarded by its own lock, so appends to one
// conversation never wait on another
type history struct {
	mu   sync.Mutex
	msgs []domain.Message
}

// NewContextRepo creates a context repository keeping capacity messages per conversation
func NewContextRepo(capacity int) repo.ContextRepo {
	if capacity < 0 {
		capacity = 0
	}
	return &contextRepo{
		capacity: capacity,
		convs:    make(map[string]*history),
	}
}

func (r *contextRepo) get(conversationID string, create bool) *history {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.convs[conversationID]
	if !ok && create {
		h = &history{msgs: make([]domain.Message, 0, r.capacity)}
		r.convs[conversationID] = h
	}
	return h
}

// Append adds messages to the tail, evicting the oldest past capacity
func (r *contextRepo) Append(conversationID string, msgs ...domain.Message) {
	if len(msgs) == 0 {
		return
	}
	h := r.get(conversationID, true)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.msgs = append(h.msgs, msgs...)
	if over := len(h.msgs) - r.capacity; over > 0 {
		// shift left in place so the backing array does not grow unbounded
		n := copy(h.msgs, h.msgs[over:])
		h.msgs = h.msgs[:n]
	}
}

// Get returns a copy of the history
func (r *contextRepo) Get(conversationID string) []domain.Message {
	h := r.get(conversationID, false)
	if h == nil {
		return []domain.Message{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]domain.Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

// Clear empties the conversation history. The ring itself is kept so an
// append racing with the clear is never written to a detached buffer.
func (r *contextRepo) Clear(conversationID string) {
	h := r.get(conversationID, false)
	if h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = h.msgs[:0]
}
