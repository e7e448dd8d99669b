package llm

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 1 {
		t.Errorf("empty string: got %d, want 1", got)
	}
	if got := EstimateTokens(strings.Repeat("a", 400)); got != 101 {
		t.Errorf("400 chars: got %d, want 101", got)
	}
}

func TestWindowHistory_KeepsMostRecent(t *testing.T) {
	history := []Message{
		{Role: "user", Content: strings.Repeat("x", 400)},      // ~101 tokens
		{Role: "assistant", Content: strings.Repeat("y", 400)}, // ~101 tokens
		{Role: "user", Content: "short"},
	}

	got := WindowHistory(history, 110)
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].Role != "assistant" || got[1].Content != "short" {
		t.Errorf("wrong survivors: %+v", got)
	}
}

func TestWindowHistory_FitsWhole(t *testing.T) {
	history := []Message{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
	}
	if got := WindowHistory(history, 100); len(got) != 2 {
		t.Errorf("got %d messages, want all 2", len(got))
	}
}

func TestWindowHistory_Empty(t *testing.T) {
	if got := WindowHistory(nil, 100); len(got) != 0 {
		t.Errorf("got %d messages from nil history", len(got))
	}
}
