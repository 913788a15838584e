package agent

import (
	"context"
	"encoding/json"

	"github.com/duplexagent/core/pkg/models"
)

// CallContext carries cancellation/deadline for one dispatch. It is a
// thin alias so tool handlers depend only on this package's own
// call-scoped context type rather than importing context directly in
// exported tool signatures.
type CallContext = context.Context

// Provider abstracts one LLM backend. Complete is synchronous from the
// orchestrator's point of view: it returns the full, ordered list of
// events produced for one turn — the provider adapter itself may stream
// internally, but it drains its own stream before returning.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) ([]Event, error)
}

// CompletionRequest is one turn's input: history plus the tools available
// under the session's current client context.
type CompletionRequest struct {
	Model     string
	System    string
	Messages  []models.Message
	Tools     []Tool
	MaxTokens int
}

// EventKind discriminates the tagged variant described in the provider
// interface: text, tool_call, or error.
type EventKind string

const (
	EventText     EventKind = "text"
	EventToolCall EventKind = "tool_call"
	EventError    EventKind = "error"
)

// Event is one entry in a provider turn's ordered event list. Providers
// MUST NOT append events after an EventError.
type Event struct {
	Kind EventKind

	// EventText fields.
	Text             string
	Done             bool
	SuggestedActions []string

	// EventToolCall fields.
	ToolName string
	CallID   string
	Args     json.RawMessage

	// EventError fields.
	Err error
}
