package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/duplexagent/core/pkg/models"
)

// ToolRegistry stores tool definitions and is the sole source of truth for
// schema and availability — eliminating client-side spoofing. It is
// immutable in the common case (all tools registered at startup); mutation
// after startup is guarded by mu like any other shared state.
type ToolRegistry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]*Tool
	log   *slog.Logger
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry(log *slog.Logger) *ToolRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &ToolRegistry{
		tools: make(map[string]*Tool),
		log:   log,
	}
}

// Register inserts or replaces a tool by name. Re-registration emits a
// warning, per the data model invariant.
func (r *ToolRegistry) Register(tool Tool) error {
	if err := tool.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		r.log.Warn("tool re-registered, replacing previous definition", "tool", tool.Name)
	} else {
		r.order = append(r.order, tool.Name)
	}
	r.tools[tool.Name] = &tool
	return nil
}

// RegisterAll registers every tool in tools, in order.
func (r *ToolRegistry) RegisterAll(tools []Tool) error {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Use registers every tool carried by a Router.
func (r *ToolRegistry) Use(router Router) error {
	return r.RegisterAll(router.Tools)
}

// ToolsForContext returns every tool whose ContextFilter is absent or
// returns true for ctx, in stable insertion order.
func (r *ToolRegistry) ToolsForContext(ctx models.ClientContext) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		if t.ContextFilter == nil || t.ContextFilter(ctx) {
			out = append(out, *t)
		}
	}
	return out
}

// ByName returns a tool definition by name.
func (r *ToolRegistry) ByName(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return Tool{}, false
	}
	return *t, true
}

// IsAvailable reports whether name is registered and currently available
// under ctx. Unknown tools are unavailable; tools with no filter are
// always available.
func (r *ToolRegistry) IsAvailable(name string, ctx models.ClientContext) bool {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return t.ContextFilter == nil || t.ContextFilter(ctx)
}

// ValidateResult validates a client-returned result against the named
// tool's ResultSchema. Unknown tool → error. No schema → pass-through.
// Schema failure → a human-readable reason.
func (r *ToolRegistry) ValidateResult(name string, value json.RawMessage) (json.RawMessage, error) {
	r.mu.Lock()
	t, ok := r.tools[name]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	if len(t.ResultSchema) == 0 {
		return value, nil
	}
	schema, err := t.compileSchema()
	if err != nil {
		return nil, fmt.Errorf("result schema for %s is invalid: %w", name, err)
	}
	var decoded any
	if err := json.Unmarshal(value, &decoded); err != nil {
		return nil, fmt.Errorf("result is not valid JSON: %w", err)
	}
	if err := schema.Validate(decoded); err != nil {
		return nil, fmt.Errorf("Result validation failed: %v", err)
	}
	return value, nil
}
