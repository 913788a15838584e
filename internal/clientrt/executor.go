// Package clientrt is the client executor runtime: the client-side half
// of the protocol the gateway speaks. It registers local executors by
// tool name, races inbound invocations against a local timeout, and
// keeps the server's context_sync current over reconnects.
package clientrt

import (
	"context"
	"encoding/json"
)

// Executor performs one client-side tool's work. ctx carries the local
// timeout deadline; params is the tool's raw argument payload.
type Executor func(ctx context.Context, params json.RawMessage) (json.RawMessage, error)

// Registry holds executors by tool id.
type Registry struct {
	executors map[string]Executor
}

// NewRegistry creates an empty executor registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// RegisterExecutor replaces the executor for toolID.
func (r *Registry) RegisterExecutor(toolID string, fn Executor) {
	r.executors[toolID] = fn
}

// UnregisterExecutor removes the executor for toolID, if any.
func (r *Registry) UnregisterExecutor(toolID string) {
	delete(r.executors, toolID)
}

// Lookup returns the executor registered for toolID, if any.
func (r *Registry) Lookup(toolID string) (Executor, bool) {
	fn, ok := r.executors[toolID]
	return fn, ok
}
