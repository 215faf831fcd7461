package data

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/chaqqon/chatgate/internal/biz/repo"
	"github.com/chaqqon/chatgate/internal/infra/clock"
)

// EscalationConfig configures escalation detection
type EscalationConfig struct {
	TriggerCount   int      // running count that signals escalation
	HeatedKeywords []string // any match signals escalation immediately
}

type escalationKey struct {
	conversationID string
	threadID       string
}

// throttleRepo implements in-memory throttle timers.
// One mutex covers every map so each check-and-set is atomic.
type throttleRepo struct {
	clock clock.Clock
	cfg   EscalationConfig

	mu                sync.Mutex
	rnd               *rand.Rand
	lastSeenUser      map[string]time.Time
	lastRespondedConv map[string]time.Time
	escalations       map[escalationKey]int
}

// NewThrottleRepo creates a throttle repository. rnd drives the cooldown draws
// and must not be shared with other goroutines.
func NewThrottleRepo(cfg EscalationConfig, clk clock.Clock, rnd *rand.Rand) repo.ThrottleRepo {
	if cfg.TriggerCount < 1 {
		cfg.TriggerCount = 2
	}
	heated := make([]string, 0, len(cfg.HeatedKeywords))
	for _, kw := range cfg.HeatedKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			heated = append(heated, kw)
		}
	}
	cfg.HeatedKeywords = heated

	return &throttleRepo{
		clock:             clk,
		cfg:               cfg,
		rnd:               rnd,
		lastSeenUser:      make(map[string]time.Time),
		lastRespondedConv: make(map[string]time.Time),
		escalations:       make(map[escalationKey]int),
	}
}

// IsUserThrottled reports whether the user passed this check within window
func (r *throttleRepo) IsUserThrottled(userID string, window time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if last, ok := r.lastSeenUser[userID]; ok && now.Sub(last) < window {
		return true
	}
	setMonotonic(r.lastSeenUser, userID, now)
	return false
}

// IsGroupCooldownReady consumes the conversation cooldown if a freshly drawn
// interval has elapsed
func (r *throttleRepo) IsGroupCooldownReady(conversationID string, min, max time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	threshold := r.draw(min, max)
	now := r.clock.Now()
	if last, ok := r.lastRespondedConv[conversationID]; ok && now.Sub(last) < threshold {
		return false
	}
	setMonotonic(r.lastRespondedConv, conversationID, now)
	return true
}

// draw picks a uniform duration in [min, max]; caller holds r.mu
func (r *throttleRepo) draw(min, max time.Duration) time.Duration {
	if max < min {
		min, max = max, min
	}
	if max == min {
		return min
	}
	return min + time.Duration(r.rnd.Int63n(int64(max-min)+1))
}

// RecordEscalation bumps the thread counter. The counter is never reset while
// the process lives.
func (r *throttleRepo) RecordEscalation(conversationID, threadID, text string) bool {
	r.mu.Lock()
	key := escalationKey{conversationID: conversationID, threadID: threadID}
	r.escalations[key]++
	count := r.escalations[key]
	r.mu.Unlock()

	if count >= r.cfg.TriggerCount {
		return true
	}

	lower := strings.ToLower(text)
	for _, kw := range r.cfg.HeatedKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func setMonotonic(m map[string]time.Time, key string, now time.Time) {
	if last, ok := m[key]; ok && now.Before(last) {
		return
	}
	m[key] = now
}
