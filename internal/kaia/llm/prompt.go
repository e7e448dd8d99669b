package llm

// DefaultSystemPrompt is the persona instruction block sent with every
// completion request unless the caller overrides it.
const DefaultSystemPrompt = `You are Kaia, a friendly conversational assistant.

Guidelines:
- Keep replies short and conversational: one to three sentences.
- Answer directly; do not restate the question.
- If you do not know something, say so plainly instead of guessing.
- Never claim to have taken real-world actions. You can only talk.
- Stay on the user's topic; use the conversation history for continuity.`

// DefaultContextTokens is the token budget for history injected into a
// completion request. History beyond the budget is dropped oldest first.
const DefaultContextTokens = 1500

// EstimateTokens approximates the token count of a text using the common
// 4-characters-per-token heuristic. It overestimates for dense prose and
// underestimates for code, which is fine for budget enforcement.
func EstimateTokens(text string) int {
	return len(text)/4 + 1
}

// WindowHistory trims history to fit a token budget, dropping the oldest
// messages first. The returned slice preserves order and is a view into the
// input; callers must not mutate it.
func WindowHistory(history []Message, budgetTokens int) []Message {
	if budgetTokens <= 0 {
		budgetTokens = DefaultContextTokens
	}
	total := 0
	// Walk backwards so the most recent turns survive.
	for i := len(history) - 1; i >= 0; i-- {
		total += EstimateTokens(history[i].Content)
		if total > budgetTokens {
			return history[i+1:]
		}
	}
	return history
}
