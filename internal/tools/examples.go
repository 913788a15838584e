// Package tools holds the example tool set shipped with duplexd: a
// server-side weather lookup and a client-side dark-mode toggle, covering
// both ExecutionSide variants end to end.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/duplexagent/core/internal/agent"
	"github.com/duplexagent/core/pkg/models"
)

// weatherParams is the input schema for the weather tool, generated via
// reflection instead of hand-written JSON Schema.
type weatherParams struct {
	City string `json:"city" jsonschema:"required,description=The city to look up"`
}

// darkModeResult is the result schema a toggleDarkMode client reports back.
type darkModeResult struct {
	DarkMode bool `json:"darkMode" jsonschema:"required"`
}

func mustSchema(v any) json.RawMessage {
	reflector := &jsonschema.Reflector{ExpandedStruct: true}
	schema := reflector.Reflect(v)
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("tools: reflect schema: %v", err))
	}
	return data
}

// Examples returns the example Router: a server tool (weather) and a
// client tool (toggleDarkMode), named and shaped after the two canonical
// dispatch paths a duplexd deployment must support.
func Examples() agent.Router {
	return agent.Router{
		Name: "examples",
		Tools: []agent.Tool{
			weatherTool(),
			toggleDarkModeTool(),
		},
	}
}

func weatherTool() agent.Tool {
	return agent.Tool{
		Name:        "weather",
		Description: "Look up the current weather for a city.",
		Parameters:  mustSchema(&weatherParams{}),
		Side:        agent.ExecutionServer,
		Handler: func(_ agent.CallContext, params json.RawMessage, _ models.ClientContext) (json.RawMessage, error) {
			var p weatherParams
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, fmt.Errorf("invalid params: %w", err)
			}
			if p.City == "" {
				return nil, fmt.Errorf("city is required")
			}
			return json.Marshal(fmt.Sprintf("Weather in %s is sunny", p.City))
		},
	}
}

// toggleDarkModeTool is only available while the client-reported context
// says the user is on the settings page — the canonical example of a
// context-scoped client tool.
func toggleDarkModeTool() agent.Tool {
	return agent.Tool{
		Name:         "toggleDarkMode",
		Description:  "Toggles dark mode in the connected client's UI.",
		Parameters:   json.RawMessage(`{"type":"object","properties":{}}`),
		Side:         agent.ExecutionClient,
		ResultSchema: mustSchema(&darkModeResult{}),
		ContextFilter: func(c models.ClientContext) bool {
			return c.PageID == "settings"
		},
	}
}
