package gateway

import (
	"encoding/json"
	"log/slog"

	"github.com/duplexagent/core/internal/agent"
	"github.com/duplexagent/core/pkg/models"
)

// registerBuiltinTools installs the tools every server provides
// regardless of deployment: get_current_context lets the LLM self-inspect
// the client's context without a client round-trip.
func registerBuiltinTools(registry *agent.ToolRegistry, log *slog.Logger) {
	err := registry.Register(agent.Tool{
		Name:        "get_current_context",
		Description: "Returns the connected client's current context (page, active tab, capabilities, metadata) verbatim.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
		Side:        agent.ExecutionServer,
		Handler: func(_ agent.CallContext, _ json.RawMessage, clientCtx models.ClientContext) (json.RawMessage, error) {
			return json.Marshal(clientCtx)
		},
	})
	if err != nil {
		log.Error("failed to register builtin tool", "tool", "get_current_context", "error", err)
	}
}
