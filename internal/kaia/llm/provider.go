// Package llm provides the generative response layer for Kaia.
//
// The layer sits behind the deterministic tools: utterances the tools cannot
// answer are sent to a chat model together with the session's recent history.
// Providers share one small interface so the orchestrator can fall back
// across them in configured order, and so tests can substitute stubs.
//
// Invariants:
//   - Providers never see other sessions' history. Callers build the request
//     from one session only.
//   - A provider failure is never user-visible on its own; the orchestrator
//     decides whether another provider or a canned response answers instead.
//   - Rate limiting and the daily token budget bound per-session spend.
package llm

import (
	"context"
	"errors"
)

// ErrRateLimit is returned by a Provider when the upstream API reports a
// rate-limiting condition (e.g. HTTP 429 Too Many Requests). The
// orchestrator moves straight to the next provider instead of retrying.
var ErrRateLimit = errors.New("llm: upstream rate limit exceeded")

// ErrEmptyCompletion is returned when the upstream API answers successfully
// but with no usable text.
var ErrEmptyCompletion = errors.New("llm: empty completion from provider")

// ErrProviderUnavailable is returned by the orchestrator when every
// configured provider failed. Callers degrade to a canned response.
var ErrProviderUnavailable = errors.New("llm: no provider available")

// Message is a single prior turn injected into the model's context window so
// the model has continuity across messages.
type Message struct {
	// Role is "user" or "assistant".
	Role string
	// Content is the message text.
	Content string
}

// Request is the input to a single completion call.
//
// The caller populates History from the session's context store on each
// request. History is intentionally not cached inside providers so that
// stale turns are never replayed.
type Request struct {
	// System is the persona and behavior instruction block.
	System string

	// History contains prior turns of the current session, oldest first.
	// May be nil for a fresh session.
	History []Message

	// UserText is the current utterance.
	UserText string

	// MaxTokens caps the completion length. Zero selects the provider
	// default.
	MaxTokens int

	// Temperature controls sampling randomness. Zero selects the provider
	// default.
	Temperature float64
}

// TokenUsage carries the token counts reported by the upstream API for a
// single completion call. Fields are zero-valued when the provider does not
// report usage data.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	// Model is the model name as reported by the provider. May be empty for
	// providers that do not echo it back.
	Model string
	// LatencyMS is the observed HTTP round-trip time in milliseconds.
	LatencyMS int64
}

// Completion is the text produced by a provider for one request.
type Completion struct {
	// Text is the model's reply, verbatim. The composer does not rewrite it.
	Text string

	// Provider names the backend that produced the reply.
	Provider string

	// Usage holds token counts for this call. Nil when the provider does not
	// report usage (e.g. stub implementations in tests). Callers use this to
	// enforce per-session token budgets.
	Usage *TokenUsage
}

// Provider produces a chat completion for one utterance plus history.
//
// Implementations must be safe for concurrent use from multiple goroutines.
// When an implementation is unavailable (e.g. network error), it should
// return a descriptive error; the orchestrator degrades across providers.
type Provider interface {
	// Name identifies the provider in logs and fallback ordering.
	Name() string

	// Complete sends the request to the underlying model and returns its
	// reply.
	Complete(ctx context.Context, req Request) (*Completion, error)
}
