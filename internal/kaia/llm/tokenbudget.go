package llm

import (
	"sync"
	"time"
)

// DefaultTokenBudget is the maximum number of model tokens allowed per
// session per UTC day when no explicit budget is configured.
const DefaultTokenBudget = 50_000

// TokenBudget enforces a per-session daily token budget for model calls.
//
// The counter for each session resets at midnight UTC. Callers should:
//  1. Call Allow before issuing a completion request. It returns false when
//     the session has already exhausted today's allocation.
//  2. Call RecordUsage after a successful completion to update the counter.
//
// TokenBudget is safe for concurrent use.
type TokenBudget struct {
	mu     sync.Mutex
	budget int
	usage  map[string]*sessionDailyUsage
}

// sessionDailyUsage tracks cumulative token consumption for one session
// within the current UTC day.
type sessionDailyUsage struct {
	tokens  int
	resetAt time.Time // next midnight UTC
}

// NewTokenBudget returns a TokenBudget that allows at most dailyBudget
// tokens per session per UTC day.
//
// If dailyBudget ≤ 0 it defaults to DefaultTokenBudget.
func NewTokenBudget(dailyBudget int) *TokenBudget {
	if dailyBudget <= 0 {
		dailyBudget = DefaultTokenBudget
	}
	return &TokenBudget{
		budget: dailyBudget,
		usage:  make(map[string]*sessionDailyUsage),
	}
}

// Budget returns the configured daily token limit per session.
func (tb *TokenBudget) Budget() int {
	return tb.budget
}

// Allow returns true when sessionID has not yet exhausted its daily token
// budget. It does NOT consume any tokens; call RecordUsage after a
// successful completion to record actual usage.
func (tb *TokenBudget) Allow(sessionID string) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.resetIfNeeded(sessionID)

	u := tb.usage[sessionID]
	if u == nil {
		return true
	}
	return u.tokens < tb.budget
}

// RecordUsage adds tokens to sessionID's running daily total.
func (tb *TokenBudget) RecordUsage(sessionID string, tokens int) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.resetIfNeeded(sessionID)

	u := tb.usage[sessionID]
	if u == nil {
		u = &sessionDailyUsage{resetAt: nextMidnightUTC()}
		tb.usage[sessionID] = u
	}
	u.tokens += tokens
}

// Remaining returns the number of tokens sessionID may still consume today.
func (tb *TokenBudget) Remaining(sessionID string) int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.resetIfNeeded(sessionID)

	u := tb.usage[sessionID]
	if u == nil {
		return tb.budget
	}
	if rem := tb.budget - u.tokens; rem > 0 {
		return rem
	}
	return 0
}

// resetIfNeeded deletes the sessionID entry when the UTC calendar day has
// rolled over. Must be called with tb.mu held.
func (tb *TokenBudget) resetIfNeeded(sessionID string) {
	u := tb.usage[sessionID]
	if u == nil {
		return
	}
	if time.Now().UTC().After(u.resetAt) {
		delete(tb.usage, sessionID)
	}
}

// nextMidnightUTC returns midnight UTC at the start of the next calendar
// day.
func nextMidnightUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}
