package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"KAIA_LISTEN_ADDR", "KAIA_LOG_LEVEL", "KAIA_PROVIDERS",
		"KAIA_CALL_TIMEOUT", "KAIA_MAX_TOKENS", "KAIA_RATE_LIMIT",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OLLAMA_BASE_URL",
	} {
		t.Setenv(name, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("listen addr: got %q", cfg.ListenAddr)
	}
	if cfg.MaxTokens != 500 {
		t.Errorf("max tokens: got %d, want 500", cfg.MaxTokens)
	}
	if cfg.CallTimeout != 10*time.Second {
		t.Errorf("call timeout: got %v", cfg.CallTimeout)
	}
	if len(cfg.Providers) != 0 {
		t.Errorf("providers without keys: got %v, want none", cfg.Providers)
	}
}

func TestFromEnv_ProvidersFollowCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OLLAMA_BASE_URL", "http://localhost:11434")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if len(cfg.Providers) != 2 || cfg.Providers[0] != ProviderOpenAI || cfg.Providers[1] != ProviderOllama {
		t.Errorf("providers: got %v, want [openai ollama]", cfg.Providers)
	}
}

func TestFromEnv_ExplicitProviderOrder(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("KAIA_PROVIDERS", "anthropic, openai")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if len(cfg.Providers) != 2 || cfg.Providers[0] != ProviderAnthropic {
		t.Errorf("providers: got %v, want anthropic first", cfg.Providers)
	}
}

func TestFromEnv_ProviderWithoutKeyFails(t *testing.T) {
	clearEnv(t)
	t.Setenv("KAIA_PROVIDERS", "openai")

	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for openai without OPENAI_API_KEY")
	}
}

func TestFromEnv_UnknownProviderFails(t *testing.T) {
	clearEnv(t)
	t.Setenv("KAIA_PROVIDERS", "grok")

	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
