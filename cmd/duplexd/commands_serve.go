package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/duplexagent/core/internal/agent"
	"github.com/duplexagent/core/internal/agent/providers"
	"github.com/duplexagent/core/internal/auth"
	"github.com/duplexagent/core/internal/config"
	"github.com/duplexagent/core/internal/gateway"
	"github.com/duplexagent/core/internal/observability"
	"github.com/duplexagent/core/internal/sessions"
	"github.com/duplexagent/core/internal/tools"
)

// buildServeCmd creates the "serve" command that starts the gateway server.
func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agent gateway server",
		Long: `Start the agent gateway server.

The server loads its configuration, builds the configured LLM provider and
session store, and begins accepting websocket connections. Graceful
shutdown is handled on SIGINT/SIGTERM.`,
		Example: `  duplexd serve --config duplexd.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "duplexd.yaml", "Path to YAML configuration file")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})
	slogger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: observability.LogLevelFromString(cfg.Observability.LogLevel),
	}))
	slog.SetDefault(slogger)

	provider, err := buildProvider(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("build provider: %w", err)
	}

	tracer, shutdownTracer := observability.NewTracer(observability.TraceConfig{
		ServiceName:    "duplexagent",
		ServiceVersion: version,
		Endpoint:       cfg.Observability.TraceEndpoint,
		SamplingRate:   cfg.Observability.TraceSampling,
	})
	defer shutdownTracer(context.Background())

	store, err := buildStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("build session store: %w", err)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	if tracedStore, ok := store.(interface {
		SetTracer(*observability.Tracer)
	}); ok {
		tracedStore.SetTracer(tracer)
	}

	var verifier auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)
	}

	metrics := observability.NewMetrics()

	server := gateway.NewServer(gateway.Config{
		Provider:             provider,
		Model:                cfg.LLM.Model,
		Store:                store,
		Auth:                 verifier,
		Metrics:              metrics,
		Tracer:               tracer,
		Log:                  slogger,
		ListenAddr:           cfg.Server.ListenAddr,
		SystemPrompt:         cfg.Server.SystemPrompt,
		DefaultToolTimeoutMs: cfg.Server.DefaultToolTimeoutMs,
	})

	if err := registerExampleTools(server); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info(runCtx, "gateway listening", "addr", cfg.Server.ListenAddr, "provider", cfg.LLM.Provider)
	return server.Start(runCtx)
}

func registerExampleTools(server *gateway.Server) error {
	return server.Use(tools.Examples())
}

func buildProvider(ctx context.Context, cfg config.LLMConfig) (agent.Provider, error) {
	retryDelay := 500 * time.Millisecond

	switch cfg.Provider {
	case "", "anthropic":
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       apiKeyOrEnv(cfg.APIKey, "ANTHROPIC_API_KEY"),
			BaseURL:      cfg.BaseURL,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   retryDelay,
			DefaultModel: cfg.Model,
		})
	case "openai":
		return providers.NewOpenAIProvider(providers.OpenAIConfig{
			APIKey:       apiKeyOrEnv(cfg.APIKey, "OPENAI_API_KEY"),
			BaseURL:      cfg.BaseURL,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   retryDelay,
			DefaultModel: cfg.Model,
		})
	case "gemini":
		return providers.NewGeminiProvider(ctx, providers.GeminiConfig{
			APIKey:       apiKeyOrEnv(cfg.APIKey, "GEMINI_API_KEY"),
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   retryDelay,
			DefaultModel: cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unknown llm.provider %q", cfg.Provider)
	}
}

func apiKeyOrEnv(configured, envVar string) string {
	if configured != "" {
		return configured
	}
	return os.Getenv(envVar)
}

func buildStore(cfg config.StorageConfig) (sessions.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return sessions.NewMemoryStore(), nil
	case "postgres":
		return sessions.NewPostgresStore(cfg.PostgresDSN, sessions.DefaultPostgresConfig())
	default:
		return nil, fmt.Errorf("unknown storage.backend %q", cfg.Backend)
	}
}
