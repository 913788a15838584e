package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/google/uuid"

	"github.com/duplexagent/core/internal/agent"
	"github.com/duplexagent/core/internal/sessions"
	"github.com/duplexagent/core/pkg/models"
)

const (
	connMaxPayloadBytes = 1 << 20
	connPongWait        = 45 * time.Second
	connWriteWait       = 10 * time.Second
	connPingInterval    = 20 * time.Second
	userMessageQueue    = 16
)

// connection is one websocket session: its own agent.Session, a
// serialized queue of inbound user messages, and an outbound send loop.
// context_update and tool_result/tool_error frames are handled directly on
// the read goroutine instead of being queued, so a context update lands
// synchronously even while a user_message is mid-loop — this is the
// mechanism ghost-execution detection relies on.
type connection struct {
	server *Server
	conn   *websocket.Conn
	send   chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	id       string
	session  *agent.Session
	messages chan string
	log      *slog.Logger
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sessionID := s.resolveSessionID(r)

	c := &connection{
		server:   s,
		conn:     conn,
		send:     make(chan []byte, 64),
		ctx:      ctx,
		cancel:   cancel,
		id:       sessionID,
		messages: make(chan string, userMessageQueue),
		log:      s.log.With("session", sessionID),
	}
	c.session = s.restoreOrCreateSession(ctx, sessionID)

	s.addConnection(c)
	defer s.removeConnection(c)

	if s.metrics != nil {
		s.metrics.SessionConnected()
		defer s.metrics.SessionDisconnected()
	}

	go c.writeLoop()
	go c.userMessageLoop()
	c.readLoop()
}

func (s *Server) resolveSessionID(r *http.Request) string {
	if s.auth != nil {
		if token := bearerToken(r); token != "" {
			if id, err := s.auth.Verify(token); err == nil && id != "" {
				return id
			}
		}
	}
	return uuid.NewString()
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

func (s *Server) restoreOrCreateSession(ctx context.Context, id string) *agent.Session {
	sess := agent.NewSession(id, s.systemPrompt, s.defaultToolTimeoutMs)

	if s.store != nil {
		if rec, err := s.store.Get(ctx, id); err == nil {
			sess.SetContext(rec.Context)
			for _, m := range rec.Messages {
				sess.AppendMessage(m)
			}
			return sess
		}
	}

	sess.AppendMessage(models.Message{Role: models.RoleSystem, Content: s.systemPrompt})
	s.persist(ctx, sess)
	return sess
}

func (s *Server) persist(ctx context.Context, sess *agent.Session) {
	if s.store == nil {
		return
	}
	rec := &sessions.Record{Context: sess.Context(), Messages: sess.History()}
	if err := s.store.Save(ctx, sess.ID, rec); err != nil {
		loopErr := &agent.LoopError{Phase: agent.PhasePersist, Cause: err}
		s.log.Error("failed to persist session", "session", sess.ID, "error", loopErr)
	}
}

func (c *connection) readLoop() {
	defer c.cancel()
	defer close(c.send)
	defer c.session.RoundTrip.CancelAll(context.Canceled)

	c.conn.SetReadLimit(connMaxPayloadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(connPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(connPongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.Warn("dropping malformed frame", "error", err)
			continue
		}
		c.handleFrame(f)
	}
}

func (c *connection) handleFrame(f frame) {
	switch f.Event {
	case eventContextUpdate:
		c.handleContextUpdate(f.Payload)
	case eventUserMessage:
		c.handleUserMessage(f.Payload)
	case eventToolResult:
		c.handleToolResult(f.Payload)
	case eventToolError:
		c.handleToolErrorFrame(f.Payload)
	default:
		c.log.Debug("dropping frame with unrecognized event", "event", f.Event)
	}
}

func (c *connection) handleContextUpdate(raw json.RawMessage) {
	if err := validateClientContext(raw); err != nil {
		c.log.Warn("dropping invalid context_update", "error", err)
		return
	}
	var next models.ClientContext
	if err := json.Unmarshal(raw, &next); err != nil {
		c.log.Warn("dropping invalid context_update", "error", err)
		return
	}

	c.session.SetContext(next)
	c.server.persist(c.ctx, c.session)

	tools := c.server.registry.ToolsForContext(next)
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	c.emitEvent(eventContextSync, contextSyncPayload{Context: next, AvailableTools: names})
}

func (c *connection) handleUserMessage(raw json.RawMessage) {
	var payload userMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.log.Warn("dropping invalid user_message", "error", err)
		return
	}
	select {
	case c.messages <- payload.Content:
	case <-c.ctx.Done():
	}
}

// userMessageLoop drains queued user messages one at a time, serializing
// the agent loop per session. A second user_message arriving while the
// loop is active queues behind the first, per the resolved design
// decision on concurrent user_message handling.
func (c *connection) userMessageLoop() {
	for {
		select {
		case content, ok := <-c.messages:
			if !ok {
				return
			}
			if err := c.server.orchestrator.HandleUserMessage(c.ctx, c.session, c, c, content); err != nil {
				c.log.Error("agent loop terminated with error", "error", err)
			}
			c.server.persist(c.ctx, c.session)
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *connection) handleToolResult(raw json.RawMessage) {
	var payload models.ToolInvocationResult
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	c.session.RoundTrip.ResolveResult(payload.CallID, payload.Result)
}

func (c *connection) handleToolErrorFrame(raw json.RawMessage) {
	var payload models.ToolInvocationError
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	c.session.RoundTrip.ResolveError(payload.CallID, payload.Message)
}

// SendToolInvocation implements agent.ClientTransport.
func (c *connection) SendToolInvocation(toolID, callID string, params json.RawMessage) error {
	return c.emitEvent(eventToolInvocation, models.ToolInvocation{ToolID: toolID, CallID: callID, Params: params})
}

// AgentResponse implements agent.Emitter.
func (c *connection) AgentResponse(content string, done bool, suggestedActions []string) error {
	return c.emitEvent(eventAgentResponse, agentResponsePayload{Content: content, Done: done, SuggestedActions: suggestedActions})
}

func (c *connection) emitEvent(event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(frame{Event: event, Payload: body})
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

func (c *connection) writeLoop() {
	ticker := time.NewTicker(connPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.Close()
			return
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.Close()
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(connWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(connWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
