package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"sword-arena/internal/game"
	"sword-arena/internal/render"
)

// EngineInterface defines the game engine methods used by the API.
// This interface enables mocking for tests without spinning up the game loop.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// Snapshot returns the latest published snapshot (never nil)
	Snapshot() *game.Snapshot
	StartGame() *game.Snapshot
	RestartGame() *game.Snapshot
	RequestSwing() *game.Snapshot
	// SetInput replaces the held movement keys used by the real-time loop
	SetInput(in game.Input)
	SetPlayerAvatar(url string) *game.Snapshot

	Tuning() game.Tuning
	PlacementName() string
	TickRate() int
	Seed() int64
}

// DefaultMaxBodyBytes caps JSON request bodies when RouterConfig leaves it unset.
const DefaultMaxBodyBytes = 4 << 10

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the game engine (required)
	Engine EngineInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, only localhost origins are allowed.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. 0 uses DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// Avatars supplies avatar images for /api/arena.png. nil draws plain shapes.
	Avatars render.AvatarSource

	// Logger receives one debug line per request. nil disables request logging.
	Logger *zap.Logger

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	engine  EngineInterface
	maxBody int64
	avatars render.AvatarSource
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects:
//   - No goroutines are started
//   - No network listeners are opened
//   - No background workers are launched
//
// This makes it safe to use in tests with httptest.NewServer.
// The WebSocket route is added by Server, which owns the hub.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	r.Use(middleware.RequestID)
	if !cfg.DisableLogging {
		r.Use(requestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	h := &routerHandlers{
		engine:  cfg.Engine,
		maxBody: maxBody,
		avatars: cfg.Avatars,
	}

	r.Route("/api", func(r chi.Router) {
		// Read-only views
		r.Get("/state", h.handleGetState)
		r.Get("/state.msgpack", h.handleGetStateMsgpack)
		r.Get("/arena.png", h.handleArenaPNG)
		r.Get("/config", h.handleGetConfig)

		// Game commands
		r.Route("/game", func(r chi.Router) {
			r.Post("/start", h.handleStart)
			r.Post("/restart", h.handleRestart)
			r.Post("/swing", h.handleSwing)
			r.Post("/input", h.handleInput)
		})

		r.Post("/player/avatar", h.handlePlayerAvatar)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/state", http.StatusFound)
	})

	return r
}

// requestLogger records request metrics by route pattern and logs each request at debug level.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			pattern := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				pattern = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			RecordRequest(r.Method, pattern, status, elapsed)

			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("route", pattern),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", elapsed),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
