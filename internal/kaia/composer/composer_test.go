package composer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aprevost/kaia/internal/kaia/llm"
	"github.com/aprevost/kaia/internal/kaia/nlu"
	"github.com/aprevost/kaia/internal/kaia/session"
	"github.com/aprevost/kaia/internal/kaia/tools"
)

// scriptedProvider lets tests stand in for a model backend.
type scriptedProvider struct {
	name  string
	reply string
	err   error
	seen  []llm.Request
}

func (s *scriptedProvider) Name() string { return s.name }

func (s *scriptedProvider) Complete(_ context.Context, req llm.Request) (*llm.Completion, error) {
	s.seen = append(s.seen, req)
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Completion{
		Text:     s.reply,
		Provider: s.name,
		Usage:    &llm.TokenUsage{TotalTokens: 42},
	}, nil
}

func testEvaluator() *tools.Evaluator {
	clock := tools.NewClockAt(func() time.Time {
		return time.Date(2025, time.March, 14, 15, 4, 0, 0, time.UTC)
	})
	return tools.NewEvaluator(clock, tools.StaticWeather{}, tools.NewCache(tools.DefaultTTLs()), nil)
}

func newComposer(t *testing.T, opts Options) *Composer {
	t.Helper()
	if opts.Library == nil {
		opts.Library = nlu.DefaultLibrary()
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewManager(session.DefaultManagerConfig())
	}
	if opts.Tools == nil {
		opts.Tools = testEvaluator()
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestProcess_EmptyInput(t *testing.T) {
	c := newComposer(t, Options{})

	_, err := c.Process(context.Background(), "sess", "   ")
	var cErr *Error
	if !errors.As(err, &cErr) || cErr.Kind != KindEmptyInput {
		t.Fatalf("got %v, want KindEmptyInput", err)
	}
}

func TestProcess_ToolAnswersTimeQuestion(t *testing.T) {
	c := newComposer(t, Options{})

	reply, err := c.Process(context.Background(), "sess", "What time is it?")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if reply.Source != session.SourceTool {
		t.Errorf("source: got %q, want tool", reply.Source)
	}
	if reply.Intent != nlu.IntentTime {
		t.Errorf("intent: got %q, want time", reply.Intent)
	}
	if reply.Response != "It's 3:04 PM." {
		t.Errorf("response: got %q", reply.Response)
	}
}

func TestProcess_CalculationScenario(t *testing.T) {
	c := newComposer(t, Options{})

	reply, err := c.Process(context.Background(), "sess", "Calculate 15% of 200")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if reply.Source != session.SourceTool || reply.Response != "The answer is 30." {
		t.Errorf("got (%q, %q)", reply.Source, reply.Response)
	}
}

func TestProcess_MalformedExpressionFallsThrough(t *testing.T) {
	c := newComposer(t, Options{})

	reply, err := c.Process(context.Background(), "sess", "calculate 5 plus")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if reply.ErrorKind != KindMalformedExpression {
		t.Errorf("error kind: got %q, want malformed_expression", reply.ErrorKind)
	}
	if reply.Source != session.SourceCanned || reply.Response == "" {
		t.Errorf("malformed expression must still get a canned reply, got (%q, %q)",
			reply.Source, reply.Response)
	}
}

func TestProcess_ModelAnswersConversation(t *testing.T) {
	p := &scriptedProvider{name: "stub", reply: "Happy to chat!"}
	c := newComposer(t, Options{
		Orchestrator: llm.NewOrchestrator(llm.OrchestratorConfig{}, nil, p),
	})

	reply, err := c.Process(context.Background(), "sess", "Tell me about your day")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if reply.Source != session.SourceLLM {
		t.Errorf("source: got %q, want llm", reply.Source)
	}
	if reply.Response != "Happy to chat!" {
		t.Errorf("response rewritten: %q", reply.Response)
	}
}

func TestProcess_HistoryReachesModel(t *testing.T) {
	p := &scriptedProvider{name: "stub", reply: "ok"}
	c := newComposer(t, Options{
		Orchestrator: llm.NewOrchestrator(llm.OrchestratorConfig{}, nil, p),
	})

	if _, err := c.Process(context.Background(), "sess", "My name is Ada"); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if _, err := c.Process(context.Background(), "sess", "Do you remember my name?"); err != nil {
		t.Fatalf("second turn: %v", err)
	}

	last := p.seen[len(p.seen)-1]
	joined := ""
	for _, m := range last.History {
		joined += m.Content + "\n"
	}
	if !strings.Contains(joined, "My name is Ada") {
		t.Errorf("prior turn missing from model history: %q", joined)
	}
}

func TestProcess_FallbackGuarantee(t *testing.T) {
	p := &scriptedProvider{name: "down", err: errors.New("connection refused")}
	c := newComposer(t, Options{
		Orchestrator: llm.NewOrchestrator(llm.OrchestratorConfig{}, nil, p),
	})

	reply, err := c.Process(context.Background(), "sess", "Tell me something interesting")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if reply.Source != session.SourceCanned {
		t.Errorf("source: got %q, want canned", reply.Source)
	}
	if reply.Response == "" {
		t.Error("degraded pipeline produced an empty response")
	}
	if reply.ErrorKind != KindProviderUnavailable {
		t.Errorf("error kind: got %q, want provider_unavailable", reply.ErrorKind)
	}
}

func TestProcess_NoModelConfigured(t *testing.T) {
	c := newComposer(t, Options{})

	reply, err := c.Process(context.Background(), "sess", "Tell me a joke")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if reply.Source != session.SourceCanned {
		t.Errorf("source: got %q, want canned", reply.Source)
	}
	if reply.Intent != nlu.IntentJoke {
		t.Errorf("intent: got %q, want joke", reply.Intent)
	}
	if reply.ErrorKind != "" {
		t.Errorf("disabled model stage is not degraded, got error kind %q", reply.ErrorKind)
	}
}

func TestProcess_RateLimitDegradesToCanned(t *testing.T) {
	p := &scriptedProvider{name: "stub", reply: "model reply"}
	c := newComposer(t, Options{
		Orchestrator: llm.NewOrchestrator(llm.OrchestratorConfig{}, nil, p),
		Limiter:      llm.NewRateLimiter(1, time.Minute),
	})

	first, err := c.Process(context.Background(), "sess", "Chat with me")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first.Source != session.SourceLLM {
		t.Fatalf("first source: got %q, want llm", first.Source)
	}

	second, err := c.Process(context.Background(), "sess", "Chat more")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.Source != session.SourceCanned {
		t.Errorf("rate-limited source: got %q, want canned", second.Source)
	}
}

func TestProcess_TokenBudgetDegradesToCanned(t *testing.T) {
	p := &scriptedProvider{name: "stub", reply: "model reply"}
	c := newComposer(t, Options{
		Orchestrator: llm.NewOrchestrator(llm.OrchestratorConfig{}, nil, p),
		Budget:       llm.NewTokenBudget(10), // one 42-token reply exhausts it
	})

	if _, err := c.Process(context.Background(), "sess", "Chat with me"); err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := c.Process(context.Background(), "sess", "Chat more")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.Source != session.SourceCanned {
		t.Errorf("over-budget source: got %q, want canned", second.Source)
	}
}

func TestProcess_RecordsTurns(t *testing.T) {
	sessions := session.NewManager(session.DefaultManagerConfig())
	c := newComposer(t, Options{Sessions: sessions})

	if _, err := c.Process(context.Background(), "sess", "Hello there"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	store := sessions.Get("sess")
	if store.Len() != 1 {
		t.Fatalf("stored turns: got %d, want 1", store.Len())
	}
	turn := store.Recent(1)[0]
	if turn.Utterance.Text != "Hello there" || turn.Intent != nlu.IntentGreeting {
		t.Errorf("recorded turn: %+v", turn)
	}
	if turn.ID == "" {
		t.Error("turn has no ID")
	}
}

func TestProcess_UnknownIntentGetsCannedUnknown(t *testing.T) {
	c := newComposer(t, Options{})

	reply, err := c.Process(context.Background(), "sess", "zxqv frobnicate wibble")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if reply.Intent != nlu.IntentUnknown {
		t.Errorf("intent: got %q, want unknown", reply.Intent)
	}
	if reply.Confidence != 0 {
		t.Errorf("confidence: got %v, want 0", reply.Confidence)
	}
	if reply.Response == "" {
		t.Error("unknown intent produced an empty response")
	}
}

func TestProcess_AnonymousSessionGetsID(t *testing.T) {
	c := newComposer(t, Options{})

	reply, err := c.Process(context.Background(), "", "Hello")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if reply.SessionID == "" {
		t.Error("anonymous session did not receive an ID")
	}
}
