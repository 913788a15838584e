package agent

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for agent operations.
var (
	ErrNoProvider      = errors.New("no provider configured")
	ErrToolNotFound    = errors.New("tool not found")
	ErrToolTimeout     = errors.New("tool execution timed out")
	ErrTurnCapExceeded = errors.New("turn cap exceeded")
)

// ConfigError reports an invalid tool or registry configuration detected at
// registration time rather than dispatch time.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "agent: invalid configuration: " + e.Reason }

// ToolErrorType categorizes a tool dispatch failure for the error taxonomy
// described in the error handling design: all of these are caught and
// folded into the tool's history entry, never aborting the loop.
type ToolErrorType string

const (
	ToolErrorNotFound        ToolErrorType = "not_found"
	ToolErrorGhostExecution  ToolErrorType = "ghost_execution"
	ToolErrorTimeout         ToolErrorType = "timeout"
	ToolErrorValidation      ToolErrorType = "validation"
	ToolErrorExecution       ToolErrorType = "execution"
	ToolErrorClientUnhandled ToolErrorType = "client_unavailable"
)

// ToolError is a structured tool dispatch failure. It is never returned to
// a caller as a Go error from the loop — it is logged and then discarded,
// while the history entry carries the underlying error's text, per the
// error handling design's
// "errors that can be meaningfully observed by the LLM are folded into
// history" rule.
type ToolError struct {
	Type     ToolErrorType
	ToolName string
	CallID   string
	Message  string
	Cause    error
}

func (e *ToolError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("[tool:%s] %s: %s", e.Type, e.ToolName, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[tool:%s] %s: %v", e.Type, e.ToolName, e.Cause)
	}
	return fmt.Sprintf("[tool:%s] %s", e.Type, e.ToolName)
}

func (e *ToolError) Unwrap() error { return e.Cause }

func classifyDispatchError(err error) ToolErrorType {
	if err == nil {
		return ToolErrorExecution
	}
	if errors.Is(err, ErrToolTimeout) {
		return ToolErrorTimeout
	}
	if errors.Is(err, ErrToolNotFound) {
		return ToolErrorNotFound
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
		return ToolErrorTimeout
	}
	if strings.Contains(msg, "not available in the current client version") {
		return ToolErrorClientUnhandled
	}
	if strings.Contains(msg, "validation") || strings.Contains(msg, "invalid") {
		return ToolErrorValidation
	}
	return ToolErrorExecution
}

// LoopPhase identifies where in one orchestrator turn an error occurred,
// attached to LoopError for diagnostics. Tool dispatch failures are folded
// into tool history rather than terminating the loop (see ToolError), so
// there is no "dispatch" phase here — only failures that end the turn.
type LoopPhase string

const (
	PhaseInit         LoopPhase = "init"
	PhaseProviderCall LoopPhase = "provider_call"
	PhasePersist      LoopPhase = "persist"
)

// LoopError wraps a terminal failure of the orchestrator loop (provider
// error or persistence error) with the phase and turn it happened in.
type LoopError struct {
	Phase   LoopPhase
	Turn    int
	Message string
	Cause   error
}

func (e *LoopError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("loop error at %s (turn %d): %s", e.Phase, e.Turn, e.Message)
	}
	return fmt.Sprintf("loop error at %s (turn %d): %v", e.Phase, e.Turn, e.Cause)
}

func (e *LoopError) Unwrap() error { return e.Cause }
