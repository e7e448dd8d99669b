package llm

import "testing"

func TestTokenBudget_AllowUntilExhausted(t *testing.T) {
	tb := NewTokenBudget(100)

	if !tb.Allow("sess") {
		t.Fatal("fresh session denied")
	}
	tb.RecordUsage("sess", 60)
	if !tb.Allow("sess") {
		t.Fatal("session denied below budget")
	}
	tb.RecordUsage("sess", 60)
	if tb.Allow("sess") {
		t.Error("session allowed past budget")
	}
}

func TestTokenBudget_Remaining(t *testing.T) {
	tb := NewTokenBudget(100)

	if got := tb.Remaining("sess"); got != 100 {
		t.Errorf("fresh remaining: got %d, want 100", got)
	}
	tb.RecordUsage("sess", 30)
	if got := tb.Remaining("sess"); got != 70 {
		t.Errorf("after spend: got %d, want 70", got)
	}
	tb.RecordUsage("sess", 500)
	if got := tb.Remaining("sess"); got != 0 {
		t.Errorf("overspent remaining: got %d, want 0", got)
	}
}

func TestTokenBudget_SessionsIndependent(t *testing.T) {
	tb := NewTokenBudget(100)

	tb.RecordUsage("a", 100)
	if tb.Allow("a") {
		t.Error("exhausted session a still allowed")
	}
	if !tb.Allow("b") {
		t.Error("session b affected by session a's spend")
	}
}

func TestTokenBudget_DefaultBudget(t *testing.T) {
	tb := NewTokenBudget(0)
	if tb.Budget() != DefaultTokenBudget {
		t.Errorf("got %d, want %d", tb.Budget(), DefaultTokenBudget)
	}
}
