// Package composer assembles the response pipeline: classify the utterance,
// try a deterministic tool, fall back to the model cascade, and guarantee a
// canned response when everything else is down. It owns the per-turn
// bookkeeping: session history, rate and token accounting, and the optional
// transcript archive.
package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aprevost/kaia/internal/kaia/llm"
	"github.com/aprevost/kaia/internal/kaia/nlu"
	"github.com/aprevost/kaia/internal/kaia/session"
	"github.com/aprevost/kaia/internal/kaia/tools"
)

// Reply is the composed answer for one utterance.
type Reply struct {
	// SessionID identifies the session the turn was recorded under. It
	// matters to callers who passed an empty session ID and received a fresh
	// one.
	SessionID string `json:"session_id"`

	// Response is the final text shown to the user.
	Response string `json:"response"`

	// Intent and Confidence echo the classification outcome.
	Intent     nlu.Intent `json:"intent"`
	Confidence float64    `json:"confidence"`

	// Entities are the spans extracted from the utterance.
	Entities []nlu.Entity `json:"entities,omitempty"`

	// Source names the stage that produced the response: tool, llm, or
	// canned.
	Source session.Source `json:"source"`

	// ErrorKind annotates a degraded reply: the turn still produced a
	// response, but a recoverable failure occurred on the way (a malformed
	// expression, or every model backend down). Empty on clean turns.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
}

// Composer wires the pipeline stages together. Construct with New; the zero
// value is not usable.
type Composer struct {
	classifier *nlu.Classifier
	library    *nlu.Library
	sessions   *session.Manager
	tools      *tools.Evaluator
	llm        *llm.Orchestrator
	limiter    *llm.RateLimiter
	budget     *llm.TokenBudget
	archive    *session.Archive
	logger     *slog.Logger
	maxTurns   int
}

// Options carries the composer's collaborators. Required: Library, Sessions,
// Tools. Optional: Orchestrator (nil disables the model stage), Limiter and
// Budget (nil disables that gate), Archive (nil disables persistence).
type Options struct {
	Library      *nlu.Library
	Threshold    float64
	Sessions     *session.Manager
	Tools        *tools.Evaluator
	Orchestrator *llm.Orchestrator
	Limiter      *llm.RateLimiter
	Budget       *llm.TokenBudget
	Archive      *session.Archive
	Logger       *slog.Logger

	// HistoryTurns bounds how many prior turns are offered to the model.
	// Zero selects 10.
	HistoryTurns int
}

// New builds a Composer. It returns an error when a required collaborator is
// missing.
func New(opts Options) (*Composer, error) {
	if opts.Library == nil {
		return nil, errors.New("composer: pattern library is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("composer: session manager is required")
	}
	if opts.Tools == nil {
		return nil, errors.New("composer: tool evaluator is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = 10
	}
	return &Composer{
		classifier: nlu.NewClassifier(opts.Library, opts.Threshold),
		library:    opts.Library,
		sessions:   opts.Sessions,
		tools:      opts.Tools,
		llm:        opts.Orchestrator,
		limiter:    opts.Limiter,
		budget:     opts.Budget,
		archive:    opts.Archive,
		logger:     opts.Logger,
		maxTurns:   opts.HistoryTurns,
	}, nil
}

// Process runs one utterance through the pipeline and records the turn.
//
// The stages run in fixed order: classification, entity extraction, tool
// shortcut, model cascade, canned fallback. Exactly one stage produces the
// response. Errors returned to the caller are always *Error values.
func (c *Composer) Process(ctx context.Context, sessionID, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &Error{Kind: KindEmptyInput, Message: "say something and I'll answer"}
	}

	store := c.sessions.Get(sessionID)

	match, err := c.classify(text)
	if err != nil {
		return nil, AsError(err)
	}
	entities := nlu.Extract(text)

	reply := &Reply{
		SessionID:  store.ID(),
		Intent:     match.Intent,
		Confidence: match.Confidence,
		Entities:   entities,
	}

	// Stage 1: deterministic tools. A malformed expression is recoverable:
	// the turn falls through to the next stage and the reply carries the
	// error kind as an annotation.
	result, err := c.tools.Handle(ctx, match.Intent, text, entities)
	switch {
	case errors.Is(err, tools.ErrMalformedExpression):
		c.logger.Info("tool rejected expression, falling through",
			"session", store.ID(), "err", err)
		reply.ErrorKind = KindMalformedExpression
	case err != nil:
		return nil, AsError(err)
	case result != nil:
		reply.Response = result.Text
		reply.Source = session.SourceTool
		c.recordTurn(ctx, store, text, match, entities, reply.Response, reply.Source)
		return reply, nil
	}

	// Stage 2: model cascade, when configured and within limits.
	completion, degraded := c.tryModel(ctx, store, text)
	if completion != nil {
		reply.Response = completion.Text
		reply.Source = session.SourceLLM
		c.recordTurn(ctx, store, text, match, entities, reply.Response, reply.Source)
		return reply, nil
	}
	if degraded && reply.ErrorKind == "" {
		reply.ErrorKind = KindProviderUnavailable
	}

	// Stage 3: canned fallback. Always produces a response.
	reply.Response = c.cannedResponse(match.Intent, text)
	reply.Source = session.SourceCanned
	c.recordTurn(ctx, store, text, match, entities, reply.Response, reply.Source)
	return reply, nil
}

// classify isolates the pattern library behind a recover so a misbehaving
// custom library surfaces as a classification failure instead of taking the
// whole request down.
func (c *Composer) classify(text string) (m nlu.Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{
				Kind:    KindClassificationFailure,
				Message: fmt.Sprintf("classifier panic: %v", r),
			}
		}
	}()
	return c.classifier.Classify(text), nil
}

// tryModel runs the orchestrator cascade if the model stage is enabled and
// the session is within its rate and token limits. A nil completion means
// the caller should fall through to the canned stage; degraded is true only
// when the cascade itself failed, not when the stage was disabled or gated.
func (c *Composer) tryModel(ctx context.Context, store *session.Store, text string) (completion *llm.Completion, degraded bool) {
	if c.llm == nil || c.llm.Providers() == 0 {
		return nil, false
	}
	sessionID := store.ID()
	if c.limiter != nil && !c.limiter.Allow(sessionID) {
		c.logger.Info("session rate limited, using canned response", "session", sessionID)
		return nil, false
	}
	if c.budget != nil && !c.budget.Allow(sessionID) {
		c.logger.Info("session token budget exhausted, using canned response", "session", sessionID)
		return nil, false
	}

	completion, err := c.llm.Respond(ctx, llm.Request{
		History:  historyMessages(store.Recent(c.maxTurns)),
		UserText: text,
	})
	if err != nil {
		c.logger.Warn("model cascade failed, degrading to canned response",
			"session", sessionID, "err", err)
		return nil, true
	}
	if c.budget != nil && completion.Usage != nil {
		c.budget.RecordUsage(sessionID, completion.Usage.TotalTokens)
	}
	return completion, false
}

// cannedResponse picks the library response for the intent, softened with an
// empathetic lead-in when the utterance reads strongly negative.
func (c *Composer) cannedResponse(intent nlu.Intent, text string) string {
	response := c.library.CannedResponse(intent)
	if intent == nlu.IntentConversation || intent == nlu.IntentUnknown {
		if s := nlu.AnalyzeSentiment(text); s.Negative >= 0.5 {
			response = "I'm sorry to hear that. " + response
		}
	}
	return response
}

// recordTurn appends the turn to the in-memory store and, when an archive is
// configured, persists it best effort.
func (c *Composer) recordTurn(ctx context.Context, store *session.Store, text string,
	match nlu.Match, entities []nlu.Entity, response string, source session.Source) {

	now := time.Now()
	turn := session.Turn{
		ID:         uuid.New().String(),
		Utterance:  session.Utterance{Text: text, Timestamp: now},
		Intent:     match.Intent,
		Confidence: match.Confidence,
		PatternID:  match.PatternID,
		Entities:   entities,
		Response:   response,
		Source:     source,
		CreatedAt:  now,
	}
	store.Append(turn)

	if c.archive != nil {
		if err := c.archive.Record(ctx, store.ID(), turn); err != nil {
			c.logger.Warn("archive write failed", "session", store.ID(), "err", err)
		}
	}
}

// historyMessages converts stored turns into the model's chat shape, one
// user/assistant pair per turn.
func historyMessages(turns []session.Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns)*2)
	for _, t := range turns {
		msgs = append(msgs, llm.Message{Role: "user", Content: t.Utterance.Text})
		if t.Response != "" {
			msgs = append(msgs, llm.Message{Role: "assistant", Content: t.Response})
		}
	}
	return msgs
}
