package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sword-arena/internal/game"
)

// TestOriginChecker verifies exact, wildcard and empty origins
func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no header", []string{"https://a.example"}, "", true},
		{"exact", []string{"https://a.example"}, "https://a.example", true},
		{"mismatch", []string{"https://a.example"}, "https://b.example", false},
		{"any", []string{"*"}, "https://b.example", true},
		{"port wildcard", []string{"http://localhost:*"}, "http://localhost:5173", true},
		{"subdomain wildcard", []string{"https://*.arena.example"}, "https://eu.arena.example", true},
		{"suffix trick", []string{"https://*.arena.example"}, "https://arena.example.evil", false},
		{"empty list", nil, "https://a.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewOriginChecker(tt.allowed).Allowed(tt.origin); got != tt.want {
				t.Errorf("Allowed(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

// TestGetClientIP verifies proxy headers take precedence over RemoteAddr
func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.1:80", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": " 203.0.113.9 "}, "10.0.0.1:80", "203.0.113.9"},
		{"bare remote", nil, "192.0.2.7", "192.0.2.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestIPRateLimiterCleanup verifies idle limiters are forgotten
func TestIPRateLimiterCleanup(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	rl.Allow("a")
	rl.Allow("b")
	if n := rl.cleanup(time.Now()); n != 0 {
		t.Errorf("fresh cleanup removed %d", n)
	}
	if n := rl.cleanup(time.Now().Add(3 * time.Minute)); n != 2 {
		t.Errorf("stale cleanup removed %d, want 2", n)
	}

	// A forgotten IP starts with a full bucket again
	if !rl.Allow("a") {
		t.Error("fresh limiter should allow")
	}
	if rl.Allow("a") {
		t.Error("second request within burst 1 should be rejected")
	}
	stats := rl.GetStats()
	if stats["allowed"] != 3 || stats["rejected"] != 1 {
		t.Errorf("stats = %v", stats)
	}
}

// TestWebSocketRateLimiter verifies slots are reserved and released per IP
func TestWebSocketRateLimiter(t *testing.T) {
	wrl := NewWebSocketRateLimiter(2)
	if !wrl.Allow("x") || !wrl.Allow("x") {
		t.Fatal("first two connections should be allowed")
	}
	if wrl.Allow("x") {
		t.Error("third connection should be rejected")
	}
	if !wrl.Allow("y") {
		t.Error("other ip should be allowed")
	}
	wrl.Release("x")
	if wrl.GetConnectionCount("x") != 1 {
		t.Errorf("count = %d, want 1", wrl.GetConnectionCount("x"))
	}
	if !wrl.Allow("x") {
		t.Error("released slot should be reusable")
	}
}

// TestDebugHandler verifies /health, /metrics and the pprof toggle
func TestDebugHandler(t *testing.T) {
	sink := NewMetricsSink(nil)
	sink.HandleEvent(game.Event{Type: game.EventTypeEnemyHit})
	sink.ObserveTick(game.TickStats{Phase: game.PhasePlaying, Score: 10, Enemies: 3, Duration: time.Millisecond})
	sink.ObserveTick(game.TickStats{Phase: game.PhasePlaying, Swinging: true, Candidates: 2})

	tests := []struct {
		name  string
		pprof bool
		path  string
		code  int
		body  string
	}{
		{"health", false, "/health", http.StatusOK, "OK"},
		{"metrics", false, "/metrics", http.StatusOK, `arena_events_total{type="enemy_hit"}`},
		{"phase gauge", false, "/metrics", http.StatusOK, `arena_phase{phase="playing"} 1`},
		{"broad phase", false, "/metrics", http.StatusOK, "arena_broadphase_candidates 2"},
		{"no stats source", false, "/debug/stats", http.StatusNotFound, ""},
		{"pprof off", false, "/debug/pprof/", http.StatusNotFound, ""},
		{"pprof on", true, "/debug/pprof/", http.StatusOK, "goroutine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := DebugHandler(DebugServerConfig{EnablePprof: tt.pprof})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.code {
				t.Fatalf("code = %d, want %d", rec.Code, tt.code)
			}
			if tt.body != "" && !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("body missing %q", tt.body)
			}
		})
	}
}

// TestDebugBasicAuth verifies credentials are enforced when configured
func TestDebugBasicAuth(t *testing.T) {
	h := DebugHandler(DebugServerConfig{BasicAuthUser: "ops", BasicAuthPass: "secret"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no auth = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest("GET", "/health", nil)
	req.SetBasicAuth("ops", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with auth = %d, want 200", rec.Code)
	}
}

// TestDebugStats verifies the stats source is served as JSON
func TestDebugStats(t *testing.T) {
	h := DebugHandler(DebugServerConfig{Stats: func() map[string]interface{} {
		return map[string]interface{}{"journal": map[string]uint64{"total": 7}}
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/debug/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	var got map[string]map[string]uint64
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["journal"]["total"] != 7 {
		t.Errorf("journal total = %d, want 7", got["journal"]["total"])
	}
}

// TestServerStats verifies limiter counters reach the stats map
func TestServerStats(t *testing.T) {
	engine := game.NewEngine(game.EngineOptions{Seed: 1})
	srv := NewServer(engine, ServerOptions{
		RateLimit: RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1},
		Hub:       HubConfig{MaxClients: 3},
	})

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/state", nil))
	}

	stats := srv.Stats()
	limiter := stats["rateLimiter"].(map[string]uint64)
	if limiter["allowed"] != 1 || limiter["rejected"] != 2 {
		t.Errorf("limiter = %v, want 1 allowed 2 rejected", limiter)
	}
	ws := stats["websocket"].(map[string]int)
	if ws["clients"] != 0 || ws["maxClients"] != 3 {
		t.Errorf("websocket = %v", ws)
	}
}

// TestWebSocketHubSlots verifies concurrent admissions never exceed MaxClients
func TestWebSocketHubSlots(t *testing.T) {
	hub := NewWebSocketHub(nil, HubConfig{MaxClients: 5}, nil)

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if hub.reserveSlot() {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := granted.Load(); got != 5 {
		t.Fatalf("granted %d slots, want 5", got)
	}
	if hub.reserveSlot() {
		t.Fatal("slot granted past the limit")
	}
	hub.releaseSlot()
	if !hub.reserveSlot() {
		t.Error("released slot not reusable")
	}
}
