// Command duplexd is the server-authoritative bidirectional agent gateway.
//
// duplexd accepts websocket connections, runs the bounded agent reasoning
// loop against a configured LLM provider, and dispatches tool calls either
// locally or to the connected client over the same socket.
//
// # Basic Usage
//
// Start the server:
//
//	duplexd serve --config duplexd.yaml
//
// # Environment Variables
//
// Configuration can be provided via environment variables expanded into
// the YAML config file (${VAR} substitution):
//
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY
//   - DUPLEXD_JWT_SECRET
//   - DUPLEXD_POSTGRES_DSN
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "duplexd",
		Short:        "Server-authoritative bidirectional agent gateway",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.AddCommand(buildServeCmd())
	return rootCmd
}
