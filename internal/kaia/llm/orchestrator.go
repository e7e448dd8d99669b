package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aprevost/kaia/common/retry"
)

const (
	// DefaultCallTimeout bounds a single provider call including its retry.
	DefaultCallTimeout = 10 * time.Second

	// DefaultMaxTokens caps completion length unless configured otherwise.
	DefaultMaxTokens = 500

	// DefaultTemperature is the sampling temperature for conversational
	// replies.
	DefaultTemperature = 0.8
)

// OrchestratorConfig tunes the fallback cascade.
type OrchestratorConfig struct {
	// Timeout bounds each provider attempt. Defaults to DefaultCallTimeout.
	Timeout time.Duration

	// MaxTokens caps completion length. Defaults to DefaultMaxTokens.
	MaxTokens int

	// Temperature is the sampling temperature. Defaults to
	// DefaultTemperature. Set a negative value to force zero.
	Temperature float64

	// ContextTokens bounds the history injected per request. Defaults to
	// DefaultContextTokens.
	ContextTokens int
}

// Orchestrator runs the provider fallback cascade: providers are tried in
// configured order, each with a bounded timeout and at most one retry, until
// one produces a completion. When all fail, Respond returns
// ErrProviderUnavailable and the caller degrades to a canned response.
type Orchestrator struct {
	providers []Provider
	cfg       OrchestratorConfig
	logger    *slog.Logger
}

// NewOrchestrator builds an orchestrator over the given providers, tried in
// argument order. A nil logger falls back to slog.Default.
func NewOrchestrator(cfg OrchestratorConfig, logger *slog.Logger, providers ...Provider) *Orchestrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCallTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	} else if cfg.Temperature < 0 {
		cfg.Temperature = 0
	}
	if cfg.ContextTokens <= 0 {
		cfg.ContextTokens = DefaultContextTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{providers: providers, cfg: cfg, logger: logger}
}

// Providers returns the number of configured providers.
func (o *Orchestrator) Providers() int { return len(o.providers) }

// Respond runs the cascade for one request. The request's MaxTokens and
// Temperature are filled from the orchestrator config when unset, and
// history is trimmed to the context budget before any provider sees it.
//
// The returned completion carries the winning provider's name. The reply
// text is passed through verbatim.
func (o *Orchestrator) Respond(ctx context.Context, req Request) (*Completion, error) {
	if len(o.providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	if req.System == "" {
		req.System = DefaultSystemPrompt
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = o.cfg.MaxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = o.cfg.Temperature
	}
	req.History = WindowHistory(req.History, o.cfg.ContextTokens)

	var lastErr error
	for _, p := range o.providers {
		completion, err := o.callProvider(ctx, p, req)
		if err == nil {
			return completion, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		o.logger.Warn("provider failed, falling back",
			"provider", p.Name(), "err", err)
	}
	return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, lastErr)
}

// callProvider invokes one provider with at most one retry. The retry gets a
// halved timeout so the cascade's total latency stays bounded, and rate
// limit errors skip the retry entirely since an immediate second call would
// fail the same way.
func (o *Orchestrator) callProvider(ctx context.Context, p Provider, req Request) (*Completion, error) {
	cfg := retry.Config{
		MaxAttempts:  2,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     time.Second,
		ShouldRetry: func(err error) bool {
			return !errors.Is(err, ErrRateLimit) && ctx.Err() == nil
		},
	}

	var completion *Completion
	err := retry.DoWithAttempt(ctx, cfg, func(attempt int) error {
		timeout := o.cfg.Timeout
		if attempt > 1 {
			timeout /= 2
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		c, err := p.Complete(callCtx, req)
		if err != nil {
			return err
		}
		completion = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completion, nil
}
