package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

// stubProvider is a scriptable Provider for cascade tests.
type stubProvider struct {
	name  string
	calls atomic.Int32
	fn    func(ctx context.Context, req Request) (*Completion, error)
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	s.calls.Add(1)
	return s.fn(ctx, req)
}

func okProvider(name, reply string) *stubProvider {
	return &stubProvider{name: name, fn: func(context.Context, Request) (*Completion, error) {
		return &Completion{Text: reply, Provider: name}, nil
	}}
}

func failProvider(name string, err error) *stubProvider {
	return &stubProvider{name: name, fn: func(context.Context, Request) (*Completion, error) {
		return nil, err
	}}
}

func TestOrchestrator_FirstProviderWins(t *testing.T) {
	first := okProvider("first", "hi from first")
	second := okProvider("second", "hi from second")
	o := NewOrchestrator(OrchestratorConfig{}, nil, first, second)

	c, err := o.Respond(context.Background(), Request{UserText: "hello"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if c.Provider != "first" || c.Text != "hi from first" {
		t.Errorf("got %+v, want first provider's reply", c)
	}
	if second.calls.Load() != 0 {
		t.Error("second provider was called although the first succeeded")
	}
}

func TestOrchestrator_FallsBackInOrder(t *testing.T) {
	down := failProvider("down", errors.New("connection refused"))
	up := okProvider("up", "still here")
	o := NewOrchestrator(OrchestratorConfig{}, nil, down, up)

	c, err := o.Respond(context.Background(), Request{UserText: "hello"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if c.Provider != "up" {
		t.Errorf("winning provider: got %q, want up", c.Provider)
	}
}

func TestOrchestrator_AllProvidersFail(t *testing.T) {
	a := failProvider("a", errors.New("boom"))
	b := failProvider("b", errors.New("bang"))
	o := NewOrchestrator(OrchestratorConfig{}, nil, a, b)

	_, err := o.Respond(context.Background(), Request{UserText: "hello"})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("got %v, want ErrProviderUnavailable", err)
	}
}

func TestOrchestrator_NoProviders(t *testing.T) {
	o := NewOrchestrator(OrchestratorConfig{}, nil)

	_, err := o.Respond(context.Background(), Request{UserText: "hello"})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("got %v, want ErrProviderUnavailable", err)
	}
}

func TestOrchestrator_RetriesOnceThenMovesOn(t *testing.T) {
	flaky := failProvider("flaky", errors.New("timeout"))
	up := okProvider("up", "answer")
	o := NewOrchestrator(OrchestratorConfig{}, nil, flaky, up)

	if _, err := o.Respond(context.Background(), Request{UserText: "hi"}); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got := flaky.calls.Load(); got != 2 {
		t.Errorf("flaky provider calls: got %d, want 2 (one retry)", got)
	}
}

func TestOrchestrator_RateLimitSkipsRetry(t *testing.T) {
	limited := failProvider("limited", ErrRateLimit)
	up := okProvider("up", "answer")
	o := NewOrchestrator(OrchestratorConfig{}, nil, limited, up)

	if _, err := o.Respond(context.Background(), Request{UserText: "hi"}); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got := limited.calls.Load(); got != 1 {
		t.Errorf("rate-limited provider calls: got %d, want 1 (no retry)", got)
	}
}

func TestOrchestrator_FillsRequestDefaults(t *testing.T) {
	var seen Request
	p := &stubProvider{name: "probe", fn: func(_ context.Context, req Request) (*Completion, error) {
		seen = req
		return &Completion{Text: "ok", Provider: "probe"}, nil
	}}
	o := NewOrchestrator(OrchestratorConfig{}, nil, p)

	if _, err := o.Respond(context.Background(), Request{UserText: "hi"}); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if seen.System == "" {
		t.Error("system prompt not defaulted")
	}
	if seen.MaxTokens != DefaultMaxTokens {
		t.Errorf("max tokens: got %d, want %d", seen.MaxTokens, DefaultMaxTokens)
	}
	if seen.Temperature != DefaultTemperature {
		t.Errorf("temperature: got %v, want %v", seen.Temperature, DefaultTemperature)
	}
}

func TestOrchestrator_ReplyPassedThroughVerbatim(t *testing.T) {
	const reply = "  Exactly this, whitespace and all.  "
	o := NewOrchestrator(OrchestratorConfig{}, nil, okProvider("p", reply))

	c, err := o.Respond(context.Background(), Request{UserText: "hi"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if c.Text != reply {
		t.Errorf("reply was rewritten: %q", c.Text)
	}
}
