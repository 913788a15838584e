package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// ClientTransport is the minimal capability the orchestrator needs from a
// connected client to run the round-trip protocol: emit one outbound frame.
// internal/gateway's per-socket connection type implements this.
type ClientTransport interface {
	SendToolInvocation(toolID, callID string, params json.RawMessage) error
}

// roundTripWaiter is a one-shot waiter keyed by callId: created on emit,
// resolved by a matching tool_result/tool_error, destroyed on resolve,
// reject, or timeout.
type roundTripWaiter struct {
	resultCh chan roundTripOutcome
}

type roundTripOutcome struct {
	result json.RawMessage
	err    error
}

// RoundTripRegistry holds pending client-tool invocations for one session.
// A mapping callId → waiter is the robust design named in the design
// notes — not a shared-listener filter — so concurrent in-flight calls on
// the same connection resolve independently.
type RoundTripRegistry struct {
	mu      sync.Mutex
	waiters map[string]*roundTripWaiter
}

// NewRoundTripRegistry creates an empty registry.
func NewRoundTripRegistry() *RoundTripRegistry {
	return &RoundTripRegistry{waiters: make(map[string]*roundTripWaiter)}
}

// Invoke emits a tool_invocation over transport and awaits the correlated
// tool_result/tool_error, or timeout after timeoutMs.
func (r *RoundTripRegistry) Invoke(ctx context.Context, transport ClientTransport, toolID, callID string, params json.RawMessage, timeoutMs int) (json.RawMessage, error) {
	waiter := &roundTripWaiter{resultCh: make(chan roundTripOutcome, 1)}

	r.mu.Lock()
	r.waiters[callID] = waiter
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.waiters, callID)
		r.mu.Unlock()
	}()

	if err := transport.SendToolInvocation(toolID, callID, params); err != nil {
		return nil, err
	}

	timeout := time.Duration(timeoutMs) * time.Millisecond
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case outcome := <-waiter.resultCh:
		return outcome.result, outcome.err
	case <-timer.C:
		return nil, fmt.Errorf("Tool Timeout (%dms)", timeoutMs)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ResolveResult delivers a tool_result frame to the waiter for callID.
// If no waiter is pending (unknown or already-resolved callId — including
// a malformed payload the caller chose not to route here), the message is
// silently dropped, matching the design note that invalid payloads never
// resolve a waiter.
func (r *RoundTripRegistry) ResolveResult(callID string, result json.RawMessage) {
	r.mu.Lock()
	waiter := r.waiters[callID]
	r.mu.Unlock()
	if waiter == nil {
		return
	}
	select {
	case waiter.resultCh <- roundTripOutcome{result: result}:
	default:
	}
}

// ResolveError delivers a tool_error frame to the waiter for callID.
func (r *RoundTripRegistry) ResolveError(callID, message string) {
	r.mu.Lock()
	waiter := r.waiters[callID]
	r.mu.Unlock()
	if waiter == nil {
		return
	}
	select {
	case waiter.resultCh <- roundTripOutcome{err: fmt.Errorf("%s", message)}:
	default:
	}
}

// CancelAll rejects every pending waiter, used when a connection drops so
// no goroutine blocks past the session's lifetime.
func (r *RoundTripRegistry) CancelAll(reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, w := range r.waiters {
		select {
		case w.resultCh <- roundTripOutcome{err: reason}:
		default:
		}
		delete(r.waiters, id)
	}
}
