package repo

import "time"

// ThrottleRepo holds per-user and per-conversation timers
type ThrottleRepo interface {
	// IsUserThrottled reports true if the user passed this check within window.
	// Otherwise it records now for the user and returns false, in one atomic step.
	IsUserThrottled(userID string, window time.Duration) bool

	// IsGroupCooldownReady draws a fresh interval from [min, max]; if at least that
	// much time passed since the last successful call for the conversation it
	// records now and returns true
	IsGroupCooldownReady(conversationID string, min, max time.Duration) bool

	// RecordEscalation bumps the (conversation, thread) counter and reports whether
	// the exchange looks escalated
	RecordEscalation(conversationID, threadID, text string) bool
}
