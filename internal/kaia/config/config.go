// Package config loads the engine configuration from the environment.
//
// Every knob has a default so a bare `kaiad` starts with tools and canned
// responses only; model backends activate when their keys are present.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/aprevost/kaia/common/environment"
)

// Provider names accepted in KAIA_PROVIDERS.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Config is the full engine configuration.
type Config struct {
	// ListenAddr is the HTTP bind address.
	ListenAddr string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// PatternLibraryPath optionally points at a YAML pattern library that
	// replaces the built-in one.
	PatternLibraryPath string

	// ConfidenceThreshold is the minimum classification confidence before
	// an intent is accepted. Zero selects the classifier default.
	ConfidenceThreshold float64

	// Providers is the model fallback order. Empty disables the model stage.
	Providers []string

	OpenAIKey      string
	OpenAIBase     string
	OpenAIModel    string
	AnthropicKey   string
	AnthropicBase  string
	AnthropicModel string
	OllamaBase     string
	OllamaModel    string

	// CallTimeout bounds one provider attempt.
	CallTimeout time.Duration

	// MaxTokens caps completion length.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64

	// ContextTokens bounds the history injected per model request.
	ContextTokens int

	// HistoryTurns bounds how many prior turns the composer offers the model.
	HistoryTurns int

	// MaxTurns bounds each session's in-memory history.
	MaxTurns int

	// IdleTimeout is how long a session may sit idle before the sweeper
	// drops it.
	IdleTimeout time.Duration

	// RateLimit is model calls per session per minute. Zero disables the
	// gate.
	RateLimit int

	// TokenBudget is model tokens per session per UTC day. Zero disables
	// the gate.
	TokenBudget int

	// ClockTTL and WeatherTTL control the tool result cache.
	ClockTTL   time.Duration
	WeatherTTL time.Duration

	// ArchivePath optionally enables the SQLite transcript archive.
	ArchivePath string
}

// FromEnv reads the configuration from the environment.
func FromEnv() (Config, error) {
	cfg := Config{
		ListenAddr:          environment.StringOr("KAIA_LISTEN_ADDR", ":8080"),
		LogLevel:            environment.StringOr("KAIA_LOG_LEVEL", "info"),
		PatternLibraryPath:  environment.StringOr("KAIA_PATTERN_LIBRARY", ""),
		ConfidenceThreshold: environment.FloatOr("KAIA_CONFIDENCE_THRESHOLD", 0),

		OpenAIKey:      environment.StringOr("OPENAI_API_KEY", ""),
		OpenAIBase:     environment.StringOr("OPENAI_BASE_URL", ""),
		OpenAIModel:    environment.StringOr("OPENAI_MODEL", ""),
		AnthropicKey:   environment.StringOr("ANTHROPIC_API_KEY", ""),
		AnthropicBase:  environment.StringOr("ANTHROPIC_BASE_URL", ""),
		AnthropicModel: environment.StringOr("ANTHROPIC_MODEL", ""),
		OllamaBase:     environment.StringOr("OLLAMA_BASE_URL", ""),
		OllamaModel:    environment.StringOr("OLLAMA_MODEL", ""),

		CallTimeout:   environment.DurationOr("KAIA_CALL_TIMEOUT", 10*time.Second),
		MaxTokens:     environment.IntOr("KAIA_MAX_TOKENS", 500),
		Temperature:   environment.FloatOr("KAIA_TEMPERATURE", 0.8),
		ContextTokens: environment.IntOr("KAIA_CONTEXT_TOKENS", 1500),
		HistoryTurns:  environment.IntOr("KAIA_HISTORY_TURNS", 10),

		MaxTurns:    environment.IntOr("KAIA_MAX_TURNS", 50),
		IdleTimeout: environment.DurationOr("KAIA_IDLE_TIMEOUT", 30*time.Minute),

		RateLimit:   environment.IntOr("KAIA_RATE_LIMIT", 20),
		TokenBudget: environment.IntOr("KAIA_TOKEN_BUDGET", 50_000),

		ClockTTL:   environment.DurationOr("KAIA_CLOCK_TTL", 30*time.Second),
		WeatherTTL: environment.DurationOr("KAIA_WEATHER_TTL", 5*time.Minute),

		ArchivePath: environment.StringOr("KAIA_ARCHIVE_PATH", ""),
	}

	providers, err := parseProviders(environment.StringOr("KAIA_PROVIDERS", defaultProviders(cfg)))
	if err != nil {
		return Config{}, err
	}
	cfg.Providers = providers

	for _, p := range cfg.Providers {
		if p == ProviderOpenAI && cfg.OpenAIKey == "" {
			return Config{}, fmt.Errorf("config: provider %q listed but OPENAI_API_KEY is not set", p)
		}
		if p == ProviderAnthropic && cfg.AnthropicKey == "" {
			return Config{}, fmt.Errorf("config: provider %q listed but ANTHROPIC_API_KEY is not set", p)
		}
	}
	return cfg, nil
}

// defaultProviders derives the fallback order from which credentials are
// present: hosted APIs first, local Ollama last when its base URL is set.
func defaultProviders(cfg Config) string {
	var order []string
	if cfg.OpenAIKey != "" {
		order = append(order, ProviderOpenAI)
	}
	if cfg.AnthropicKey != "" {
		order = append(order, ProviderAnthropic)
	}
	if cfg.OllamaBase != "" {
		order = append(order, ProviderOllama)
	}
	return strings.Join(order, ",")
}

func parseProviders(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		switch name {
		case "":
			continue
		case ProviderOpenAI, ProviderAnthropic, ProviderOllama:
			out = append(out, name)
		default:
			return nil, fmt.Errorf("config: unknown provider %q in KAIA_PROVIDERS", name)
		}
	}
	return out, nil
}
