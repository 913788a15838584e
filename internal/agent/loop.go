// Package agent implements the session orchestrator: the bounded agent
// reasoning loop, the tool registry with context-based filtering, and the
// client-tool round-trip protocol.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/duplexagent/core/internal/observability"
	"github.com/duplexagent/core/pkg/models"
)

// MaxTurns is the hard per-user-message cap on provider calls. A turn
// counts as one provider call regardless of how many tool calls it
// produced — this is the bounded-runaway guard.
const MaxTurns = 5

const ghostExecutionMessage = "Error: User is no longer on the valid page. The tool cannot be executed in the current context."

// turnCapMessage is emitted as a synthesized terminal response when the
// turn cap is hit with tool calls still pending. The source behavior
// exits silently here instead; this orchestrator always gives the client
// a terminal frame so no turn is left hanging — see the design decision
// recorded for this divergence.
const turnCapMessage = "Turn limit reached."

// Emitter is the orchestrator's outbound sink for one connection — the
// gateway's session implements it on top of the wire protocol's
// agent:agent_response event.
type Emitter interface {
	AgentResponse(content string, done bool, suggestedActions []string) error
}

// Orchestrator runs the agent loop against one ToolRegistry and Provider,
// shared across all sessions on a server.
type Orchestrator struct {
	Registry *ToolRegistry
	Provider Provider
	Model    string
	Log      *slog.Logger
	Metrics  *observability.Metrics
	Tracer   *observability.Tracer
}

// NewOrchestrator wires a registry and provider into a ready orchestrator.
func NewOrchestrator(registry *ToolRegistry, provider Provider, model string, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{Registry: registry, Provider: provider, Model: model, Log: log}
}

// HandleUserMessage appends content to the session's history and runs the
// agent loop to completion, emitting intermediate and terminal
// agent_response frames through emitter and dispatching tool calls either
// locally or through transport.
func (o *Orchestrator) HandleUserMessage(ctx context.Context, session *Session, transport ClientTransport, emitter Emitter, content string) error {
	if o.Provider == nil {
		loopErr := &LoopError{Phase: PhaseInit, Cause: ErrNoProvider}
		o.Log.Error("agent loop cannot start", "session", session.ID, "error", loopErr)
		return emitter.AgentResponse(fmt.Sprintf("Error: %s", loopErr), true, nil)
	}

	session.AppendMessage(models.Message{Role: models.RoleUser, Content: content})

	turnsUsed := 0
	defer func() {
		if o.Metrics != nil && turnsUsed > 0 {
			o.Metrics.ObserveTurn(turnsUsed)
		}
	}()

	for turn := 1; turn <= MaxTurns; turn++ {
		turnsUsed = turn
		events, err := o.completeTurn(ctx, session)
		if err != nil {
			return o.terminateWithError(session, emitter, turn, err)
		}

		var text string
		var suggestedActions []string
		var toolCalls []models.ToolCall

		for _, ev := range events {
			switch ev.Kind {
			case EventError:
				return o.terminateWithError(session, emitter, turn, ev.Err)
			case EventText:
				if ev.Text != "" {
					text += ev.Text
					if err := emitter.AgentResponse(ev.Text, false, nil); err != nil {
						o.Log.Warn("failed to stream intermediate response", "error", err, "session", session.ID)
					}
				}
				if len(ev.SuggestedActions) > 0 {
					suggestedActions = ev.SuggestedActions
				}
			case EventToolCall:
				toolCalls = append(toolCalls, models.ToolCall{CallID: ev.CallID, Name: ev.ToolName, Args: ev.Args})
			}
		}

		assistantMsg := models.Message{Role: models.RoleAssistant, Content: text}
		if len(toolCalls) > 0 {
			assistantMsg.ToolCalls = toolCalls
		}
		session.AppendMessage(assistantMsg)

		if len(toolCalls) == 0 {
			return emitter.AgentResponse("", true, suggestedActions)
		}

		o.dispatchToolCalls(ctx, session, transport, toolCalls)
	}

	o.Log.Warn("turn cap exceeded with tool calls still pending", "session", session.ID, "max_turns", MaxTurns, "error", ErrTurnCapExceeded)
	return emitter.AgentResponse(turnCapMessage, true, nil)
}

// completeTurn runs one provider call, recording its latency and tracing
// it as a client-kind span, per the provider-call observability contract.
func (o *Orchestrator) completeTurn(ctx context.Context, session *Session) ([]Event, error) {
	start := time.Now()

	var ctxForCall context.Context = ctx
	var endSpan func()
	if o.Tracer != nil {
		var tctx context.Context
		tctx, sp := o.Tracer.TraceLLMRequest(ctx, o.Provider.Name(), o.Model)
		ctxForCall = tctx
		endSpan = func() { sp.End() }
	}

	events, err := o.Provider.Complete(ctxForCall, &CompletionRequest{
		Model:    o.Model,
		System:   session.SystemPrompt,
		Messages: session.History(),
		Tools:    o.Registry.ToolsForContext(session.Context()),
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	if o.Metrics != nil {
		o.Metrics.RecordProviderRequest(o.Provider.Name(), o.Model, status, time.Since(start).Seconds())
	}
	if endSpan != nil {
		endSpan()
	}
	return events, err
}

// dispatchToolCalls executes every call strictly in provider order, per
// the ordering guarantee in the concurrency model — some tool call
// sequences are only coherent in order, and history must preserve the
// provider's own call order.
func (o *Orchestrator) dispatchToolCalls(ctx context.Context, session *Session, transport ClientTransport, calls []models.ToolCall) {
	for _, call := range calls {
		content := o.dispatchOne(ctx, session, transport, call)
		session.AppendMessage(models.Message{
			Role:       models.RoleTool,
			Content:    content,
			ToolCallID: call.CallID,
		})
	}
}

// dispatchOne runs one tool call and returns the content to place in its
// tool history entry. It never returns an error to its caller: every
// failure path here is part of the error taxonomy's "folded into history"
// bucket.
func (o *Orchestrator) dispatchOne(ctx context.Context, session *Session, transport ClientTransport, call models.ToolCall) (content string) {
	defer func() {
		if r := recover(); r != nil {
			content = fmt.Sprintf("Error: %v", r)
		}
	}()

	currentCtx := session.Context()

	// Anti-ghost execution: re-check availability against the *current*
	// context, not the context the provider saw when it emitted this
	// call. A context_update that landed mid-turn must be able to
	// invalidate a call before it executes.
	if !o.Registry.IsAvailable(call.Name, currentCtx) {
		toolErr := &ToolError{Type: ToolErrorGhostExecution, ToolName: call.Name, CallID: call.CallID, Message: ghostExecutionMessage}
		o.Log.Debug("tool dispatch rejected", "session", session.ID, "error", toolErr)
		if o.Metrics != nil {
			o.Metrics.RecordToolDispatch(call.Name, "unknown", "ghost", 0)
		}
		return ghostExecutionMessage
	}

	tool, ok := o.Registry.ByName(call.Name)
	if !ok {
		toolErr := &ToolError{Type: ToolErrorNotFound, ToolName: call.Name, CallID: call.CallID, Cause: ErrToolNotFound}
		o.Log.Debug("tool dispatch rejected", "session", session.ID, "error", toolErr)
		if o.Metrics != nil {
			o.Metrics.RecordToolDispatch(call.Name, "unknown", "ghost", 0)
		}
		return ghostExecutionMessage
	}

	side := "server"
	if tool.Side == ExecutionClient {
		side = "client"
	}

	start := time.Now()
	var spanCtx context.Context = ctx
	var endSpan func()
	if o.Tracer != nil {
		tctx, sp := o.Tracer.TraceToolExecution(ctx, tool.Name)
		spanCtx = tctx
		endSpan = func() { sp.End() }
	}

	var (
		raw json.RawMessage
		err error
	)
	switch tool.Side {
	case ExecutionServer:
		raw, err = dispatchServerTool(spanCtx, tool, call.Args, currentCtx)
	case ExecutionClient:
		timeoutMs := tool.TimeoutMs
		if timeoutMs <= 0 {
			timeoutMs = session.DefaultToolTimeoutMs
		}
		raw, err = session.RoundTrip.Invoke(spanCtx, transport, tool.Name, call.CallID, call.Args, timeoutMs)
	default:
		if endSpan != nil {
			endSpan()
		}
		return ghostExecutionMessage
	}
	if endSpan != nil {
		endSpan()
	}

	if err != nil {
		toolErr := &ToolError{Type: classifyDispatchError(err), ToolName: tool.Name, CallID: call.CallID, Cause: err}
		o.Log.Warn("tool dispatch failed", "session", session.ID, "error", toolErr)
		if o.Metrics != nil {
			o.Metrics.RecordToolDispatch(tool.Name, side, metricsOutcome(toolErr.Type), time.Since(start).Seconds())
		}
		return "Error: " + err.Error()
	}
	if o.Metrics != nil {
		o.Metrics.RecordToolDispatch(tool.Name, side, "success", time.Since(start).Seconds())
	}

	validated, verr := o.Registry.ValidateResult(call.Name, raw)
	if verr != nil {
		toolErr := &ToolError{Type: ToolErrorValidation, ToolName: tool.Name, CallID: call.CallID, Cause: verr}
		o.Log.Warn("tool result validation failed", "session", session.ID, "error", toolErr)
		encoded, _ := json.Marshal(map[string]string{"error": verr.Error()})
		return string(encoded)
	}
	return string(validated)
}

// isToolTimeout reports whether err is the timeout error raised by either
// dispatchServerTool or RoundTripRegistry.Invoke — both format it as
// "Tool Timeout (<ms>ms)" rather than a typed error.
func isToolTimeout(err error) bool {
	return strings.Contains(err.Error(), "Tool Timeout")
}

// metricsOutcome maps a classified tool dispatch failure to the outcome
// label used by duplexagent_tool_dispatch_total, folding the not-found and
// ghost-execution buckets together since both mean "never dispatched".
func metricsOutcome(t ToolErrorType) string {
	switch t {
	case ToolErrorTimeout:
		return "timeout"
	case ToolErrorGhostExecution, ToolErrorNotFound:
		return "ghost"
	default:
		return "error"
	}
}

func (o *Orchestrator) terminateWithError(session *Session, emitter Emitter, turn int, cause error) error {
	loopErr := &LoopError{Phase: PhaseProviderCall, Turn: turn, Cause: cause}
	o.Log.Error("provider error, terminating turn", "session", session.ID, "turn", turn, "error", loopErr)
	return emitter.AgentResponse(fmt.Sprintf("Error: %s", loopErr), true, nil)
}
