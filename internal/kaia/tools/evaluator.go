package tools

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aprevost/kaia/internal/kaia/nlu"
)

// Result is a tool-produced answer.
type Result struct {
	// Text is the final answer, ready to show to the user.
	Text string
	// Tool names the handler that produced it.
	Tool string
}

// Evaluator routes classified utterances to the tool that can answer them
// directly. A nil Result with a nil error means no tool claims the
// utterance and the caller should fall through to its next answer source.
type Evaluator struct {
	clock   *Clock
	weather WeatherSource
	cache   *Cache
	logger  *slog.Logger
}

// NewEvaluator wires an evaluator. A nil cache disables memoization; a nil
// logger falls back to slog.Default.
func NewEvaluator(clock *Clock, weather WeatherSource, cache *Cache, logger *slog.Logger) *Evaluator {
	if clock == nil {
		clock = NewClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{clock: clock, weather: weather, cache: cache, logger: logger}
}

// Handle attempts to answer the utterance with a deterministic tool.
//
// Errors are reserved for inputs the tool claimed but could not process,
// like a malformed arithmetic expression. Everything else the tools cannot
// answer comes back as (nil, nil).
func (e *Evaluator) Handle(ctx context.Context, intent nlu.Intent, text string, entities []nlu.Entity) (*Result, error) {
	switch intent {
	case nlu.IntentTime:
		return e.handleClock(text), nil
	case nlu.IntentWeather:
		return e.handleWeather(ctx, entities), nil
	case nlu.IntentCalculation:
		return e.handleCalculation(text)
	default:
		return nil, nil
	}
}

func (e *Evaluator) handleClock(text string) *Result {
	if cached, ok := e.cache.Get(ToolClock, text); ok {
		return &Result{Text: cached, Tool: ToolClock}
	}
	answer := e.clock.Answer(text)
	e.cache.Put(ToolClock, text, answer)
	return &Result{Text: answer, Tool: ToolClock}
}

func (e *Evaluator) handleWeather(ctx context.Context, entities []nlu.Entity) *Result {
	if e.weather == nil {
		return nil
	}
	loc := nlu.FirstOfType(entities, nlu.EntityLocation)
	if loc == nil {
		// No location to look up; the canned weather response asks for one.
		return nil
	}

	if cached, ok := e.cache.Get(ToolWeather, loc.Normalized); ok {
		return &Result{Text: cached, Tool: ToolWeather}
	}
	obs, err := e.weather.Current(ctx, loc.Normalized)
	if err != nil {
		e.logger.Warn("weather lookup failed, falling through",
			"location", loc.Normalized, "err", err)
		return nil
	}
	answer := FormatObservation(obs)
	e.cache.Put(ToolWeather, loc.Normalized, answer)
	return &Result{Text: answer, Tool: ToolWeather}
}

func (e *Evaluator) handleCalculation(text string) (*Result, error) {
	v, err := Calculate(text)
	switch {
	case err == nil:
		return &Result{Text: "The answer is " + FormatNumber(v) + ".", Tool: ToolCalculator}, nil
	case errors.Is(err, ErrNoExpression):
		return nil, nil
	default:
		return nil, err
	}
}
