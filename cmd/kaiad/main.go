// Command kaiad runs the Kaia conversation engine as an HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aprevost/kaia/internal/kaia/composer"
	"github.com/aprevost/kaia/internal/kaia/config"
	"github.com/aprevost/kaia/internal/kaia/httpapi"
	"github.com/aprevost/kaia/internal/kaia/llm"
	"github.com/aprevost/kaia/internal/kaia/nlu"
	"github.com/aprevost/kaia/internal/kaia/session"
	"github.com/aprevost/kaia/internal/kaia/tools"
)

func main() {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("kaiad exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	library, err := loadLibrary(cfg, logger)
	if err != nil {
		return err
	}

	sessions := session.NewManager(session.ManagerConfig{
		MaxTurns:    cfg.MaxTurns,
		IdleTimeout: cfg.IdleTimeout,
	})

	evaluator := tools.NewEvaluator(
		tools.NewClock(),
		tools.StaticWeather{},
		tools.NewCache(map[string]time.Duration{
			tools.ToolClock:   cfg.ClockTTL,
			tools.ToolWeather: cfg.WeatherTTL,
		}),
		logger,
	)

	opts := composer.Options{
		Library:      library,
		Threshold:    cfg.ConfidenceThreshold,
		Sessions:     sessions,
		Tools:        evaluator,
		Logger:       logger,
		HistoryTurns: cfg.HistoryTurns,
	}

	if providers := buildProviders(cfg); len(providers) > 0 {
		opts.Orchestrator = llm.NewOrchestrator(llm.OrchestratorConfig{
			Timeout:       cfg.CallTimeout,
			MaxTokens:     cfg.MaxTokens,
			Temperature:   cfg.Temperature,
			ContextTokens: cfg.ContextTokens,
		}, logger, providers...)
		if cfg.RateLimit > 0 {
			opts.Limiter = llm.NewRateLimiter(cfg.RateLimit, time.Minute)
		}
		if cfg.TokenBudget > 0 {
			opts.Budget = llm.NewTokenBudget(cfg.TokenBudget)
		}
		logger.Info("model cascade enabled", "providers", cfg.Providers)
	} else {
		logger.Info("no model providers configured, running tools and canned responses only")
	}

	if cfg.ArchivePath != "" {
		archive, err := session.OpenArchive(cfg.ArchivePath, logger)
		if err != nil {
			return err
		}
		defer archive.Close()
		opts.Archive = archive
		logger.Info("transcript archive enabled", "path", cfg.ArchivePath)
	}

	engine, err := composer.New(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, sessions, logger)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.NewServer(engine, logger).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("kaiad listening", "addr", cfg.ListenAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func loadLibrary(cfg config.Config, logger *slog.Logger) (*nlu.Library, error) {
	if cfg.PatternLibraryPath == "" {
		return nlu.DefaultLibrary(), nil
	}
	library, err := nlu.LoadLibraryFile(cfg.PatternLibraryPath)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded pattern library override", "path", cfg.PatternLibraryPath)
	return library, nil
}

func buildProviders(cfg config.Config) []llm.Provider {
	var providers []llm.Provider
	for _, name := range cfg.Providers {
		switch name {
		case config.ProviderOpenAI:
			providers = append(providers, llm.NewOpenAI(llm.OpenAIConfig{
				APIKey:  cfg.OpenAIKey,
				BaseURL: cfg.OpenAIBase,
				Model:   cfg.OpenAIModel,
				Timeout: cfg.CallTimeout,
			}))
		case config.ProviderAnthropic:
			providers = append(providers, llm.NewAnthropic(llm.AnthropicConfig{
				APIKey:  cfg.AnthropicKey,
				BaseURL: cfg.AnthropicBase,
				Model:   cfg.AnthropicModel,
				Timeout: cfg.CallTimeout,
			}))
		case config.ProviderOllama:
			providers = append(providers, llm.NewOllama(llm.OllamaConfig{
				BaseURL: cfg.OllamaBase,
				Model:   cfg.OllamaModel,
				Timeout: cfg.CallTimeout,
			}))
		}
	}
	return providers
}

// sweepSessions drops idle sessions every few minutes until ctx is done.
func sweepSessions(ctx context.Context, sessions *session.Manager, logger *slog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := sessions.SweepIdle(time.Now()); removed > 0 {
				logger.Debug("swept idle sessions", "removed", removed)
			}
		}
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
