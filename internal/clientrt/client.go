package clientrt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/duplexagent/core/pkg/models"
)

const (
	eventContextUpdate  = "agent:context_update"
	eventContextSync    = "agent:context_sync"
	eventUserMessage    = "agent:user_message"
	eventAgentResponse  = "agent:agent_response"
	eventToolInvocation = "agent:tool_invocation"
	eventToolResult     = "agent:tool_result"
	eventToolError      = "agent:tool_error"

	defaultLocalTimeout = 30 * time.Second
	minBackoff          = time.Second
	maxBackoff          = 30 * time.Second
	connWriteWait       = 10 * time.Second
)

type wireFrame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler reacts to server-pushed events the client cares about beyond
// tool invocations: streamed agent responses and context_sync
// acknowledgements.
type Handler interface {
	OnAgentResponse(content string, done bool, suggestedActions []string)
	OnContextSync(availableTools []string)
}

// Client is the client executor runtime's connection to one gateway: it
// maintains the registry of local executors, emits context_update on
// connect and on every scoped-context change, and reconnects with
// exponential backoff on connection loss so a dropped client recovers
// without operator intervention.
//
// All outbound data frames funnel through a single per-connection
// writeLoop goroutine (send channel) rather than calling conn.WriteMessage
// from the goroutines that produce them, since gorilla/websocket permits
// only one concurrent writer per connection; concurrent tool invocations
// would otherwise corrupt the frame stream. Pings use WriteControl, which
// gorilla/websocket documents as safe to call concurrently with writeLoop.
type Client struct {
	URL       string
	Registry  *Registry
	Handler   Handler
	Log       *slog.Logger
	AuthToken string

	LocalTimeout time.Duration

	mu      sync.RWMutex
	context models.ClientContext
	send    chan []byte
	connCtx context.Context
}

// NewClient builds a client executor runtime targeting url.
func NewClient(url string, registry *Registry, handler Handler, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{URL: url, Registry: registry, Handler: handler, Log: log, LocalTimeout: defaultLocalTimeout}
}

// SetContext replaces the locally tracked context and, if connected,
// emits agent:context_update immediately.
func (c *Client) SetContext(ctx models.ClientContext) {
	c.mu.Lock()
	c.context = ctx
	connected := c.send != nil
	c.mu.Unlock()
	if connected {
		_ = c.sendContextUpdate(ctx)
	}
}

// Run connects and reconnects forever with exponential backoff until ctx
// is cancelled. On every successful connect (including reconnects), the
// merged context is resent before any other traffic, per the context
// sync contract.
func (c *Client) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			c.Log.Warn("connection lost, reconnecting", "error", err, "backoff", backoff)
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	header := http.Header{}
	if c.AuthToken != "" {
		header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	send := make(chan []byte, 64)
	c.mu.Lock()
	c.send = send
	c.connCtx = connCtx
	snapshot := c.context
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.send = nil
		c.connCtx = nil
		c.mu.Unlock()
	}()

	writeDone := make(chan struct{})
	go c.writeLoop(conn, send, writeDone)
	defer func() {
		close(send)
		<-writeDone
	}()

	if err := c.sendContextUpdate(snapshot); err != nil {
		return fmt.Errorf("send initial context: %w", err)
	}

	go c.pingLoop(connCtx, conn)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.handleFrame(connCtx, data)
	}
}

// writeLoop is the single writer for conn's data frames; everything else
// enqueues onto send instead of calling conn.WriteMessage directly.
func (c *Client) writeLoop(conn *websocket.Conn, send chan []byte, done chan struct{}) {
	defer close(done)
	for data := range send {
		_ = conn.SetWriteDeadline(time.Now().Add(connWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(connWriteWait)); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleFrame(ctx context.Context, raw []byte) {
	var f wireFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		c.Log.Warn("dropping malformed frame", "error", err)
		return
	}

	switch f.Event {
	case eventAgentResponse:
		c.handleAgentResponse(f.Payload)
	case eventContextSync:
		c.handleContextSync(f.Payload)
	case eventToolInvocation:
		go c.handleToolInvocation(ctx, f.Payload)
	}
}

func (c *Client) handleAgentResponse(raw json.RawMessage) {
	if c.Handler == nil {
		return
	}
	var payload struct {
		Content          string   `json:"content"`
		Done             bool     `json:"done"`
		SuggestedActions []string `json:"suggestedActions,omitempty"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	c.Handler.OnAgentResponse(payload.Content, payload.Done, payload.SuggestedActions)
}

func (c *Client) handleContextSync(raw json.RawMessage) {
	if c.Handler == nil {
		return
	}
	var payload struct {
		AvailableTools []string `json:"availableTools"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	c.Handler.OnContextSync(payload.AvailableTools)
}

// handleToolInvocation implements the client executor runtime's inbound
// dispatch: no executor → immediate tool_error; otherwise race the
// executor against LocalTimeout and report result or error.
func (c *Client) handleToolInvocation(ctx context.Context, raw json.RawMessage) {
	var invocation models.ToolInvocation
	if err := json.Unmarshal(raw, &invocation); err != nil {
		return
	}

	executor, ok := c.Registry.Lookup(invocation.ToolID)
	if !ok {
		c.sendToolError(invocation.ToolID, invocation.CallID,
			fmt.Sprintf("Tool '%s' is not available in the current client version", invocation.ToolID))
		return
	}

	timeout := c.LocalTimeout
	if timeout <= 0 {
		timeout = defaultLocalTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result json.RawMessage
		err    error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		result, err := executor(execCtx, invocation.Params)
		select {
		case resultCh <- outcome{result: result, err: err}:
		default:
		}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			c.sendToolError(invocation.ToolID, invocation.CallID, res.err.Error())
			return
		}
		c.sendToolResult(invocation.ToolID, invocation.CallID, res.result)
	case <-execCtx.Done():
		c.sendToolError(invocation.ToolID, invocation.CallID, fmt.Sprintf("Tool Timeout (%dms)", timeout.Milliseconds()))
	}
}

func (c *Client) sendContextUpdate(ctx models.ClientContext) error {
	return c.sendFrame(eventContextUpdate, ctx)
}

// SendUserMessage emits an agent:user_message frame over the live
// connection, if any.
func (c *Client) SendUserMessage(content string) error {
	return c.sendFrame(eventUserMessage, struct {
		Content string `json:"content"`
	}{Content: content})
}

func (c *Client) sendToolResult(toolID, callID string, result json.RawMessage) {
	_ = c.sendFrame(eventToolResult, models.ToolInvocationResult{ToolID: toolID, CallID: callID, Result: result})
}

func (c *Client) sendToolError(toolID, callID, message string) {
	_ = c.sendFrame(eventToolError, models.ToolInvocationError{ToolID: toolID, CallID: callID, Message: message})
}

// sendFrame enqueues one frame onto the connection's writeLoop; it never
// calls conn.WriteMessage itself, so every caller — context updates, user
// messages, tool results from concurrently-running invocations — is safe
// to call from any goroutine.
func (c *Client) sendFrame(event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(wireFrame{Event: event, Payload: body})
	if err != nil {
		return err
	}

	c.mu.RLock()
	send := c.send
	ctx := c.connCtx
	c.mu.RUnlock()
	if send == nil {
		return fmt.Errorf("clientrt: not connected")
	}
	select {
	case send <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
