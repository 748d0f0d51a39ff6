package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sword-arena/internal/render"
)

// ServerOptions configures the public API server.
type ServerOptions struct {
	RateLimit    RateLimitConfig
	CORSOrigins  []string
	MaxBodyBytes int64
	Hub          HubConfig
	Avatars      render.AvatarSource
	Logger       *zap.Logger
}

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the WebSocket hub for real-time updates.
type Server struct {
	engine      EngineInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
	logger      *zap.Logger
}

// NewServer creates a new API server.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// This enables testing by allowing the server to be constructed without
// starting goroutines or opening network listeners.
//
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(engine EngineInterface, opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Hub.AllowedOrigins == nil {
		opts.Hub.AllowedOrigins = opts.CORSOrigins
	}

	s := &Server{
		engine:      engine,
		wsHub:       NewWebSocketHub(engine, opts.Hub, logger),
		rateLimiter: NewIPRateLimiter(opts.RateLimit),
		logger:      logger,
	}

	s.router = NewRouter(RouterConfig{
		Engine:       engine,
		RateLimiter:  s.rateLimiter,
		CORSOrigins:  opts.CORSOrigins,
		MaxBodyBytes: opts.MaxBodyBytes,
		Avatars:      opts.Avatars,
		Logger:       logger,
	})

	// Add WebSocket routes (these need the wsHub instance)
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Start begins the HTTP server AND starts background workers.
// This is the ONLY method that starts goroutines or opens network listeners.
// It blocks until the server stops and returns nil after Shutdown.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop()
	s.rateLimiter.StartCleanup()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api listen %s: %w", addr, err)
	}
	s.logger.Info("🌐 API server starting", zap.String("addr", ln.Addr().String()))

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
// Use this in integration tests instead of calling Start().
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the WebSocket hub so tests can run it without a listener.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Stats reports the HTTP limiter counters and WebSocket occupancy for the
// debug server.
func (s *Server) Stats() map[string]interface{} {
	return map[string]interface{}{
		"rateLimiter": s.rateLimiter.GetStats(),
		"websocket": map[string]int{
			"clients":    s.wsHub.ClientCount(),
			"maxClients": s.wsHub.cfg.MaxClients,
		},
	}
}

// Shutdown stops accepting requests, waits for in-flight ones up to ctx's
// deadline and stops the background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.wsHub.Stop()
	s.rateLimiter.Stop()
	return err
}
