// Package gateway is the server façade: it accepts connections, restores
// or seeds one session per connection, and runs one agent.Orchestrator
// shared across all of them.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/duplexagent/core/internal/agent"
	"github.com/duplexagent/core/internal/auth"
	"github.com/duplexagent/core/internal/observability"
	"github.com/duplexagent/core/internal/sessions"
)

// Server accepts websocket connections and instantiates one connection
// (and its agent.Session) per socket, keyed by connection id. On
// disconnect the entry is removed; the per-session mapping is written on
// connect/disconnect only, per the concurrency model.
type Server struct {
	registry     *agent.ToolRegistry
	orchestrator *agent.Orchestrator
	store        sessions.Store
	auth         auth.Verifier
	metrics      *observability.Metrics
	log          *slog.Logger
	upgrader     websocket.Upgrader

	systemPrompt         string
	defaultToolTimeoutMs int

	httpServer *http.Server
	startTime  time.Time

	mu    sync.Mutex
	conns map[string]*connection
}

// Config bundles the server's external collaborators. Provider, Store,
// and Auth are injectable per the out-of-scope boundary: the gateway only
// depends on their interfaces.
type Config struct {
	Provider             agent.Provider
	Model                string
	Store                sessions.Store
	Auth                 auth.Verifier
	Metrics              *observability.Metrics
	Tracer               *observability.Tracer
	Log                  *slog.Logger
	ListenAddr           string
	SystemPrompt         string
	DefaultToolTimeoutMs int
}

// NewServer builds a Server with an empty tool registry plus the
// always-on get_current_context builtin. Callers register domain tools
// with Register/RegisterAll/Use before Start.
func NewServer(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	registry := agent.NewToolRegistry(log)
	registerBuiltinTools(registry, log)

	orchestrator := agent.NewOrchestrator(registry, cfg.Provider, cfg.Model, log)
	orchestrator.Metrics = cfg.Metrics
	orchestrator.Tracer = cfg.Tracer

	s := &Server{
		registry:             registry,
		orchestrator:         orchestrator,
		store:                cfg.Store,
		auth:                 cfg.Auth,
		metrics:              cfg.Metrics,
		log:                  log,
		systemPrompt:         cfg.SystemPrompt,
		defaultToolTimeoutMs: cfg.DefaultToolTimeoutMs,
		conns:                make(map[string]*connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  8192,
			WriteBufferSize: 8192,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.httpServer = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: http.HandlerFunc(s.serveWS),
	}
	return s
}

// Register proxies to the internal tool registry.
func (s *Server) Register(tool agent.Tool) error { return s.registry.Register(tool) }

// RegisterAll proxies to the internal tool registry.
func (s *Server) RegisterAll(tools []agent.Tool) error { return s.registry.RegisterAll(tools) }

// Use proxies to the internal tool registry.
func (s *Server) Use(router agent.Router) error { return s.registry.Use(router) }

// Start begins serving websocket connections. It blocks until ctx is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.startTime = time.Now()
	s.log.Info("starting gateway", "addr", s.httpServer.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.Stop(context.Background())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("gateway: %w", err)
		}
		return nil
	}
}

// Stop gracefully shuts down the listener and drops all live connections.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("stopping gateway")
	err := s.httpServer.Shutdown(ctx)
	s.mu.Lock()
	for _, c := range s.conns {
		c.cancel()
	}
	s.mu.Unlock()
	return err
}

func (s *Server) addConnection(c *connection) {
	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
}

func (s *Server) removeConnection(c *connection) {
	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
}
