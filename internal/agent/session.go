package agent

import (
	"sync"

	"github.com/duplexagent/core/pkg/models"
)

// Session is the per-connection mutable state described in the data
// model: sessionId, currentContext, messages, timeout default, and system
// prompt. One Session is owned by one connection's orchestrator task;
// currentContext is additionally guarded by its own mutex because
// context_update must be able to mutate it from a second goroutine (the
// connection's read loop) while a turn is in flight — see the concurrency
// model's requirement that context updates "always win" synchronously.
type Session struct {
	ID                   string
	DefaultToolTimeoutMs int
	SystemPrompt         string

	ctxMu   sync.RWMutex
	context models.ClientContext

	msgMu     sync.RWMutex
	Messages  []models.Message
	RoundTrip *RoundTripRegistry
}

// NewSession creates a session seeded with an empty client context and no
// history; callers append the system entry per the orchestrator's connect
// procedure.
func NewSession(id, systemPrompt string, toolTimeoutMs int) *Session {
	if toolTimeoutMs <= 0 {
		toolTimeoutMs = defaultToolTimeoutMs
	}
	return &Session{
		ID:                   id,
		SystemPrompt:         systemPrompt,
		DefaultToolTimeoutMs: toolTimeoutMs,
		RoundTrip:            NewRoundTripRegistry(),
	}
}

// Context returns the current client context snapshot.
func (s *Session) Context() models.ClientContext {
	s.ctxMu.RLock()
	defer s.ctxMu.RUnlock()
	return s.context
}

// SetContext replaces the current client context wholesale, synchronously,
// so the next dispatch (even one already in flight within a turn) observes
// it immediately — this is the mechanism ghost-execution detection relies
// on.
func (s *Session) SetContext(c models.ClientContext) {
	s.ctxMu.Lock()
	s.context = c
	s.ctxMu.Unlock()
}

// AppendMessage appends one entry to the session's history. Guarded by
// msgMu because the connection's read loop can persist history (History)
// concurrently with the orchestrator goroutine appending to it mid-turn.
func (s *Session) AppendMessage(m models.Message) {
	s.msgMu.Lock()
	s.Messages = append(s.Messages, m)
	s.msgMu.Unlock()
}

// History returns a copy of the current message history, safe to hand to
// a provider call or a persistence layer without racing a concurrent
// AppendMessage.
func (s *Session) History() []models.Message {
	s.msgMu.RLock()
	defer s.msgMu.RUnlock()
	out := make([]models.Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}
