// Command duplex-client is a demo client executor runtime: it connects to
// a duplexd gateway over websocket, registers a handful of local example
// tools, and serves inbound tool_invocation frames until interrupted.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/duplexagent/core/internal/clientrt"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string
	flags := Config{}

	cmd := &cobra.Command{
		Use:   "duplex-client",
		Short: "Client executor runtime demo",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, found := resolveConfigPath(configPath)
			base := Config{}
			if found {
				loaded, err := loadConfig(path)
				if err != nil && err != errConfigNotFound {
					return err
				}
				base = loaded
			}
			cfg := normalizeConfig(applyFlagOverrides(cmd, base, flags))
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to client config file")
	cmd.Flags().StringVar(&flags.GatewayURL, "gateway", "", "Gateway websocket URL (e.g. ws://localhost:8080/)")
	cmd.Flags().StringVar(&flags.AuthToken, "token", "", "Bearer token for the gateway handshake")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().DurationVar(&flags.LocalTimeout, "timeout", 0, "Per-tool local execution timeout")

	return cmd
}

func run(ctx context.Context, cfg Config) error {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	registry := clientrt.NewRegistry()
	registerExampleTools(registry, log)

	client := clientrt.NewClient(cfg.GatewayURL, registry, loggingHandler{log: log}, log)
	client.AuthToken = cfg.AuthToken
	client.LocalTimeout = cfg.LocalTimeout

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("connecting to gateway", "url", cfg.GatewayURL)
	if err := client.Run(runCtx); err != nil && err != context.Canceled {
		return err
	}
	log.Info("client stopped")
	return nil
}

// loggingHandler implements clientrt.Handler by logging every server push;
// a real client would route these to its UI instead.
type loggingHandler struct {
	log *slog.Logger
}

func (h loggingHandler) OnAgentResponse(content string, done bool, suggestedActions []string) {
	h.log.Info("agent_response", "content", content, "done", done, "suggestedActions", suggestedActions)
}

func (h loggingHandler) OnContextSync(availableTools []string) {
	h.log.Info("context_sync", "availableTools", availableTools)
}

// registerExampleTools wires a few demonstration tools into registry:
// echo, system_info, and current_time — covering a round-tripped string
// argument, a no-argument system query, and an optional-argument query.
func registerExampleTools(registry *clientrt.Registry, log *slog.Logger) {
	registry.RegisterExecutor("echo", func(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
		var input struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(params, &input); err != nil {
			return nil, fmt.Errorf("parse input: %w", err)
		}
		log.Debug("echo tool called", "message", input.Message)
		return json.Marshal(map[string]string{"echo": input.Message})
	})

	registry.RegisterExecutor("system_info", func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		hostname, _ := os.Hostname()
		return json.Marshal(map[string]any{
			"hostname": hostname,
			"pid":      os.Getpid(),
		})
	})

	registry.RegisterExecutor("current_time", func(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
		var input struct {
			Format string `json:"format"`
		}
		_ = json.Unmarshal(params, &input)

		format := time.RFC3339
		if input.Format != "" {
			format = input.Format
		}
		return json.Marshal(map[string]string{
			"time":     time.Now().Format(format),
			"timezone": time.Now().Location().String(),
		})
	})

	log.Info("registered example tools", "count", 3)
}
