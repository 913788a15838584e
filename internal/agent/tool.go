package agent

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/duplexagent/core/pkg/models"
)

// ExecutionSide discriminates where a tool actually runs.
type ExecutionSide string

const (
	// ExecutionServer tools run a local Handler; they never leave the process.
	ExecutionServer ExecutionSide = "server"
	// ExecutionClient tools are dispatched to the connected client and
	// awaited over the round-trip protocol in roundtrip.go.
	ExecutionClient ExecutionSide = "client"
)

// ContextFilter decides whether a tool is available given the session's
// current client context. A nil filter means "always available".
type ContextFilter func(models.ClientContext) bool

// Handler executes a server-side tool. ctx carries the call's deadline;
// clientCtx is the session's current client context at dispatch time.
type Handler func(ctx CallContext, params json.RawMessage, clientCtx models.ClientContext) (json.RawMessage, error)

// Tool is one registry entry. Side discriminates the variant described in
// the data model: server tools carry Handler and no ResultSchema; client
// tools carry an optional ResultSchema and no Handler.
type Tool struct {
	Name          string
	Description   string
	Parameters    json.RawMessage
	Side          ExecutionSide
	ContextFilter ContextFilter
	TimeoutMs     int

	// Handler is set only for ExecutionServer tools.
	Handler Handler

	// ResultSchema is an optional JSON Schema validated against a client
	// tool's returned result. Only meaningful for ExecutionClient tools.
	ResultSchema json.RawMessage

	compiledSchema *jsonschema.Schema
}

// Router is a trivial named carrier for a set of tool definitions so a
// package can export "its tools" as one importable unit. It has no
// behavior beyond being passed to RegisterAll/Use.
type Router struct {
	Name  string
	Tools []Tool
}

// Validate checks a tool definition against the invariants in the data
// model: server tools must have a handler and no result schema; client
// tools must not have a handler.
func (t Tool) Validate() error {
	if t.Name == "" {
		return &ConfigError{Reason: "tool name must not be empty"}
	}
	switch t.Side {
	case ExecutionServer:
		if t.Handler == nil {
			return &ConfigError{Reason: "server tool " + t.Name + " has no handler"}
		}
		if len(t.ResultSchema) > 0 {
			return &ConfigError{Reason: "server tool " + t.Name + " must not declare a resultSchema"}
		}
	case ExecutionClient:
		if t.Handler != nil {
			return &ConfigError{Reason: "client tool " + t.Name + " must not have a handler"}
		}
	default:
		return &ConfigError{Reason: "tool " + t.Name + " has unknown executionSide " + string(t.Side)}
	}
	return nil
}

// compileSchema lazily compiles ResultSchema, caching the result on the
// tool value's copy held by the registry.
func (t *Tool) compileSchema() (*jsonschema.Schema, error) {
	if t.compiledSchema != nil {
		return t.compiledSchema, nil
	}
	if len(t.ResultSchema) == 0 {
		return nil, nil
	}
	schema, err := jsonschema.CompileString(t.Name+"-resultSchema.json", string(t.ResultSchema))
	if err != nil {
		return nil, err
	}
	t.compiledSchema = schema
	return schema, nil
}
