package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sword-arena/internal/game"
)

// Metrics with bounded cardinality (no per-enemy labels)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent simulating one tick",
		Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005, 0.01},
	})

	enemyCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_enemies",
		Help: "Enemies currently alive",
	})

	scoreGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_score",
		Help: "Score of the current session",
	})

	phaseGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arena_phase",
		Help: "1 for the current game phase, 0 otherwise",
	}, []string{"phase"}) // Bounded: ready, playing, ended

	gameEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_events_total",
		Help: "Domain events emitted by the simulation",
	}, []string{"type"}) // Bounded: the game.EventType names

	journalRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_journal_records",
		Help: "Records accepted by the event journal",
	})

	journalDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_journal_dropped",
		Help: "Records dropped by the event journal (rate limit or full buffer)",
	})

	broadPhaseCandidates = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_broadphase_candidates",
		Help: "Enemies handed to the exact sword test on the last swinging tick",
	})

	broadPhaseMaxCell = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_broadphase_max_cell",
		Help: "Most enemies sharing one broad-phase cell on the last swinging tick",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: rate_limit, origin, ws_total_limit, ws_ip_limit, ws_flood

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the chi route pattern

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket snapshot broadcasts",
	})

	wsCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_commands_total",
		Help: "Commands received over WebSocket",
	}, []string{"type"}) // Bounded: input, swing, start, restart, invalid
)

// DebugServerConfig configures the debug server
type DebugServerConfig struct {
	Port          int // 0 disables the server
	EnablePprof   bool
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string

	// Stats, when set, is served as JSON on /debug/stats
	Stats func() map[string]interface{}
}

// DebugHandler builds the debug mux: /metrics, /health and optionally pprof
// and /debug/stats.
func DebugHandler(cfg DebugServerConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.Stats != nil {
		mux.HandleFunc("/debug/stats", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, cfg.Stats())
		})
	}

	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return handler
}

// StartDebugServer starts the internal observability server.
// It always binds to 127.0.0.1: pprof must never be reachable from outside.
// Returns nil, nil when the server is disabled.
func StartDebugServer(cfg DebugServerConfig, logger *zap.Logger) (*http.Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Port == 0 {
		logger.Info("📊 Debug server disabled")
		return nil, nil
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("debug server listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           DebugHandler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("📊 Debug server starting",
			zap.String("addr", addr),
			zap.Bool("pprof", cfg.EnablePprof))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("⚠️ Debug server error", zap.Error(err))
		}
	}()

	return srv, nil
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MetricsSink exports simulation activity to Prometheus. Install it with
// Engine.AddSink for event counters and Engine.SetOnTick (via ObserveTick)
// for the per-tick gauges.
type MetricsSink struct {
	journal *game.EventLog // optional
}

// NewMetricsSink creates a sink; journal may be nil.
func NewMetricsSink(journal *game.EventLog) *MetricsSink {
	return &MetricsSink{journal: journal}
}

// HandleEvent counts one domain event.
func (m *MetricsSink) HandleEvent(ev game.Event) {
	gameEvents.WithLabelValues(ev.Type.String()).Inc()
}

// ObserveTick records the tick timing and the session gauges.
func (m *MetricsSink) ObserveTick(st game.TickStats) {
	tickDuration.Observe(st.Duration.Seconds())
	enemyCount.Set(float64(st.Enemies))
	scoreGauge.Set(float64(st.Score))
	for p := game.PhaseReady; p <= game.PhaseEnded; p++ {
		v := 0.0
		if p == st.Phase {
			v = 1
		}
		phaseGauge.WithLabelValues(p.String()).Set(v)
	}
	if st.Swinging {
		broadPhaseCandidates.Set(float64(st.Candidates))
		broadPhaseMaxCell.Set(float64(st.BroadPhase.MaxInCell))
	}
	if m.journal != nil {
		journalRecords.Set(float64(m.journal.GetTotalCount()))
		journalDropped.Set(float64(m.journal.GetDroppedCount()))
	}
}

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}

// RecordWSCommand counts one inbound WebSocket command
func RecordWSCommand(kind string) {
	wsCommandsTotal.WithLabelValues(kind).Inc()
}
