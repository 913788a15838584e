package gateway

import (
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Event names are literal wire strings and MUST be preserved for
// compatibility with connected clients.
const (
	eventContextUpdate  = "agent:context_update"
	eventContextSync    = "agent:context_sync"
	eventUserMessage    = "agent:user_message"
	eventAgentResponse  = "agent:agent_response"
	eventToolInvocation = "agent:tool_invocation"
	eventToolResult     = "agent:tool_result"
	eventToolError      = "agent:tool_error"
)

// frame is the single wire envelope carrying every named event in both
// directions: {"event": "...", "payload": {...}}.
type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type contextSyncPayload struct {
	Context        any      `json:"context"`
	AvailableTools []string `json:"availableTools"`
}

type userMessagePayload struct {
	Content string `json:"content"`
}

type agentResponsePayload struct {
	Content          string   `json:"content"`
	Done             bool     `json:"done"`
	SuggestedActions []string `json:"suggestedActions,omitempty"`
}

// clientContextSchema validates inbound agent:context_update payloads.
// Unknown payloads are validated and dropped with a log line, never
// allowed to mutate session state.
const clientContextSchema = `{
  "type": "object",
  "properties": {
    "page_id": { "type": "string" },
    "active_tab": { "type": "string" },
    "capabilities": {
      "type": "array",
      "items": { "type": "string" }
    },
    "metadata": { "type": "object" }
  },
  "additionalProperties": false
}`

var contextSchemaOnce struct {
	sync.Once
	schema *jsonschema.Schema
	err    error
}

func compiledContextSchema() (*jsonschema.Schema, error) {
	contextSchemaOnce.Do(func() {
		contextSchemaOnce.schema, contextSchemaOnce.err = jsonschema.CompileString("client_context", clientContextSchema)
	})
	return contextSchemaOnce.schema, contextSchemaOnce.err
}

// validateClientContext parses and validates a raw agent:context_update
// payload against clientContextSchema.
func validateClientContext(raw json.RawMessage) error {
	schema, err := compiledContextSchema()
	if err != nil {
		return err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	return schema.Validate(decoded)
}
