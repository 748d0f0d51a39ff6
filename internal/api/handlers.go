package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"sword-arena/internal/game"
	"sword-arena/internal/render"
)

// MaxAvatarURLLength bounds avatar URLs accepted from clients.
const MaxAvatarURLLength = 2048

// ContentTypeMsgpack is the media type of msgpack responses.
const ContentTypeMsgpack = "application/x-msgpack"

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	if r.URL.Query().Get("format") == "msgpack" {
		writeMsgpack(w, snap)
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleGetStateMsgpack(w http.ResponseWriter, r *http.Request) {
	writeMsgpack(w, h.engine.Snapshot())
}

func (h *routerHandlers) handleArenaPNG(w http.ResponseWriter, r *http.Request) {
	size := render.DefaultSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, "size must be an integer", http.StatusBadRequest)
			return
		}
		size = render.ClampSize(n)
	}

	var buf bytes.Buffer
	if err := render.WritePNG(&buf, h.engine.Snapshot(), h.engine.Tuning(), size, h.avatars); err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// configResponse is the read-only session configuration shown to clients.
type configResponse struct {
	Tuning     game.Tuning `json:"tuning"`
	Placement  string      `json:"placement"`
	TickRate   int         `json:"tickRate"`
	Seed       int64       `json:"seed"`
	SwingMilli int64       `json:"swingMs"`
}

func (h *routerHandlers) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	t := h.engine.Tuning()
	writeJSON(w, configResponse{
		Tuning:     t,
		Placement:  h.engine.PlacementName(),
		TickRate:   h.engine.TickRate(),
		Seed:       h.engine.Seed(),
		SwingMilli: t.SwingDuration.Milliseconds(),
	})
}

func (h *routerHandlers) handleStart(w http.ResponseWriter, r *http.Request) {
	if h.engine.Snapshot().Phase != game.PhaseReady.String() {
		writeError(w, "game can only start from ready; use restart", http.StatusConflict)
		return
	}
	writeJSON(w, h.engine.StartGame())
}

func (h *routerHandlers) handleRestart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.RestartGame())
}

func (h *routerHandlers) handleSwing(w http.ResponseWriter, r *http.Request) {
	if h.engine.Snapshot().Phase != game.PhasePlaying.String() {
		writeError(w, "swing requires a game in progress", http.StatusConflict)
		return
	}
	writeJSON(w, h.engine.RequestSwing())
}

// inputRequest is the body of POST /api/game/input.
type inputRequest struct {
	Forward  bool `json:"forward"`
	Backward bool `json:"backward"`
	Left     bool `json:"left"`
	Right    bool `json:"right"`
	Swing    bool `json:"swing"`
}

func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.engine.SetInput(game.Input{
		Forward:  req.Forward,
		Backward: req.Backward,
		Left:     req.Left,
		Right:    req.Right,
	})
	if req.Swing {
		writeJSON(w, h.engine.RequestSwing())
		return
	}
	writeJSON(w, h.engine.Snapshot())
}

func (h *routerHandlers) handlePlayerAvatar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := validateAvatarURL(req.URL); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, h.engine.SetPlayerAvatar(req.URL))
}

// validateAvatarURL accepts an empty string (clears the avatar) or an
// absolute http(s) URL. The engine never dereferences it.
func validateAvatarURL(raw string) error {
	if raw == "" {
		return nil
	}
	if len(raw) > MaxAvatarURLLength {
		return fmt.Errorf("url longer than %d bytes", MaxAvatarURLLength)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("url must be absolute http or https")
	}
	return nil
}

// decode reads a size-capped JSON body into v and writes the error response
// itself when it fails.
func (h *routerHandlers) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, "request body too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			writeError(w, "request body required", http.StatusBadRequest)
		default:
			writeError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		}
		return false
	}
	return true
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeMsgpack(w http.ResponseWriter, data interface{}) {
	b, err := msgpack.Marshal(data)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ContentTypeMsgpack)
	w.Write(b)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
