package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"sword-arena/internal/game"
)

const (
	// EventGameState tags snapshot broadcasts.
	EventGameState = "game:state"

	wsWriteWait      = 5 * time.Second
	wsPongWait       = 30 * time.Second
	wsPingPeriod     = wsPongWait * 9 / 10
	wsMaxMessageSize = 1 << 10
	wsSendBuffer     = 8
)

// Client frame formats
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// HubConfig bounds the WebSocket hub.
type HubConfig struct {
	MaxClients      int      // total connections
	MaxPerIP        int      // connections per client IP
	MessagesPerSec  float64  // inbound commands per connection
	AllowedOrigins  []string // see OriginChecker
	BroadcastPeriod time.Duration
}

// DefaultHubConfig returns the defaults used when fields are zero.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		MaxClients:      64,
		MaxPerIP:        8,
		MessagesPerSec:  60,
		AllowedOrigins:  []string{"*"},
		BroadcastPeriod: 50 * time.Millisecond,
	}
}

// wsEnvelope wraps every outbound frame.
type wsEnvelope struct {
	Event string         `json:"event" msgpack:"event"`
	Data  *game.Snapshot `json:"data" msgpack:"data"`
}

// wsCommand is an inbound client message.
// Text frames carry JSON, binary frames carry msgpack.
type wsCommand struct {
	Type  string      `json:"type" msgpack:"type"` // input, swing, start, restart
	Input *game.Input `json:"input,omitempty" msgpack:"input,omitempty"`
}

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn    *websocket.Conn
	ip      string
	format  string
	send    chan []byte
	limiter *rate.Limiter
}

// WebSocketHub pushes snapshots to connected clients and feeds their
// commands to the engine.
type WebSocketHub struct {
	engine     EngineInterface
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan *game.Snapshot
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	// Slots held by accepted connections, from admission until unregister
	active atomic.Int32

	wsLimiter *WebSocketRateLimiter
	upgrader  websocket.Upgrader
	cfg       HubConfig
	logger    *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewWebSocketHub creates a new hub with connection limiting.
// No goroutines start until Run and StartBroadcastLoop are called.
func NewWebSocketHub(engine EngineInterface, cfg HubConfig, logger *zap.Logger) *WebSocketHub {
	def := DefaultHubConfig()
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = def.MaxClients
	}
	if cfg.MaxPerIP <= 0 {
		cfg.MaxPerIP = def.MaxPerIP
	}
	if cfg.MessagesPerSec <= 0 {
		cfg.MessagesPerSec = def.MessagesPerSec
	}
	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = def.AllowedOrigins
	}
	if cfg.BroadcastPeriod <= 0 {
		cfg.BroadcastPeriod = def.BroadcastPeriod
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &WebSocketHub{
		engine:     engine,
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan *game.Snapshot, 16),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		wsLimiter:  NewWebSocketRateLimiter(cfg.MaxPerIP),
		cfg:        cfg,
		logger:     logger,
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}

	origins := NewOriginChecker(cfg.AllowedOrigins)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origins.Allowed(origin) {
				return true
			}
			h.logger.Warn("⚠️ WebSocket connection rejected", zap.String("origin", origin))
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run owns the client set until Stop is called.
func (h *WebSocketHub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.stopChan:
			h.mu.Lock()
			for conn, client := range h.clients {
				h.wsLimiter.Release(client.ip)
				h.releaseSlot()
				close(client.send)
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("📱 Client connected",
				zap.String("ip", client.ip),
				zap.String("format", client.format),
				zap.Int("total", count))
			UpdateWSConnections(count)

			// New clients see the current state without waiting for a tick
			if msg, err := encodeSnapshot(client.format, h.engine.Snapshot()); err == nil {
				client.send <- msg
			}

		case conn := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[conn]; ok {
				h.wsLimiter.Release(client.ip)
				h.releaseSlot()
				close(client.send)
				delete(h.clients, conn)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("📱 Client disconnected", zap.Int("remaining", count))
			UpdateWSConnections(count)

		case snap := <-h.broadcast:
			h.fanOut(snap)
		}
	}
}

// fanOut encodes snap once per format and queues it on every client.
// A client whose queue is full skips this frame; the next one supersedes it.
func (h *WebSocketHub) fanOut(snap *game.Snapshot) {
	encoded := make(map[string][]byte, 2)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		msg, ok := encoded[client.format]
		if !ok {
			var err error
			msg, err = encodeSnapshot(client.format, snap)
			if err != nil {
				h.logger.Error("❌ Snapshot encode failed", zap.String("format", client.format), zap.Error(err))
				return
			}
			encoded[client.format] = msg
		}
		select {
		case client.send <- msg:
		default:
		}
	}
	IncrementWSMessages()
}

// Broadcast queues a snapshot for every connected client
func (h *WebSocketHub) Broadcast(snap *game.Snapshot) {
	select {
	case h.broadcast <- snap:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes each new snapshot to clients at the configured period.
func (h *WebSocketHub) StartBroadcastLoop() {
	ticker := time.NewTicker(h.cfg.BroadcastPeriod)

	go func() {
		defer ticker.Stop()
		var lastSeq uint64
		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
				if h.ClientCount() == 0 {
					continue
				}
				snap := h.engine.Snapshot()
				if snap.Sequence == lastSeq {
					continue
				}
				lastSeq = snap.Sequence
				h.Broadcast(snap)
			}
		}
	}()
}

// Stop disconnects every client and ends Run and the broadcast loop.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection.
// ?format=msgpack selects binary snapshot frames.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	format := FormatJSON
	if r.URL.Query().Get("format") == FormatMsgpack {
		format = FormatMsgpack
	}

	if !h.reserveSlot() {
		h.logger.Warn("⚠️ WebSocket connection rejected: total limit reached", zap.Int("max", h.cfg.MaxClients))
		RecordConnectionRejected("ws_total_limit")
		writeError(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		h.releaseSlot()
		h.logger.Warn("⚠️ WebSocket connection rejected: per-IP limit reached",
			zap.String("ip", ip),
			zap.Int("open", h.wsLimiter.GetConnectionCount(ip)))
		RecordConnectionRejected("ws_ip_limit")
		writeError(w, "too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		h.logger.Debug("WebSocket upgrade error", zap.Error(err))
		h.wsLimiter.Release(ip)
		h.releaseSlot()
		return
	}

	client := &wsClient{
		conn:    conn,
		ip:      ip,
		format:  format,
		send:    make(chan []byte, wsSendBuffer),
		limiter: rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSec), int(h.cfg.MessagesPerSec)+1),
	}

	select {
	case h.register <- client:
	case <-h.stopChan:
		h.wsLimiter.Release(ip)
		h.releaseSlot()
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

// reserveSlot claims one of MaxClients connection slots. Admission and
// registration are separate steps, so the count is claimed up front.
func (h *WebSocketHub) reserveSlot() bool {
	for {
		current := h.active.Load()
		if int(current) >= h.cfg.MaxClients {
			return false
		}
		if h.active.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

func (h *WebSocketHub) releaseSlot() {
	h.active.Add(-1)
}

// writePump is the only goroutine that writes to the connection.
func (h *WebSocketHub) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	msgType := websocket.TextMessage
	if c.format == FormatMsgpack {
		msgType = websocket.BinaryMessage
	}

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(msgType, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump applies client commands until the connection fails.
func (h *WebSocketHub) readPump(c *wsClient) {
	defer func() {
		select {
		case h.unregister <- c.conn:
		case <-h.stopChan:
		}
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if !c.limiter.Allow() {
			RecordConnectionRejected("ws_flood")
			continue
		}

		cmd, err := decodeCommand(msgType, message)
		if err != nil {
			RecordWSCommand("invalid")
			continue
		}
		h.apply(cmd, c.ip)
	}
}

// apply routes one decoded command to the engine.
func (h *WebSocketHub) apply(cmd wsCommand, ip string) {
	switch cmd.Type {
	case "input":
		var in game.Input
		if cmd.Input != nil {
			in = *cmd.Input
		}
		h.engine.SetInput(in)
		if in.SwingRequested {
			h.engine.RequestSwing()
		}
	case "swing":
		h.engine.RequestSwing()
	case "start":
		h.engine.StartGame()
	case "restart":
		h.engine.RestartGame()
	default:
		RecordWSCommand("invalid")
		h.logger.Debug("📨 Unknown WebSocket command", zap.String("ip", ip), zap.String("type", cmd.Type))
		return
	}
	RecordWSCommand(cmd.Type)
}

func decodeCommand(msgType int, message []byte) (wsCommand, error) {
	var cmd wsCommand
	var err error
	if msgType == websocket.BinaryMessage {
		err = msgpack.Unmarshal(message, &cmd)
	} else {
		err = json.Unmarshal(message, &cmd)
	}
	return cmd, err
}

func encodeSnapshot(format string, snap *game.Snapshot) ([]byte, error) {
	env := wsEnvelope{Event: EventGameState, Data: snap}
	if format == FormatMsgpack {
		return msgpack.Marshal(env)
	}
	return json.Marshal(env)
}
