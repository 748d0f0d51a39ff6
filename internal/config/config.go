// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for server, simulation and client settings.
//
// Values are layered: compiled defaults, then an optional TOML file, then
// environment variables. Validate runs last.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"sword-arena/internal/game"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int           `toml:"port"`
	AllowedOrigins []string      `toml:"allowed_origins"`
	ShutdownGrace  time.Duration `toml:"shutdown_grace"`
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		AllowedOrigins: []string{"*"},
		ShutdownGrace:  5 * time.Second,
	}
}

// =============================================================================
// GAME CONFIGURATION
// =============================================================================

// GameConfig holds the simulation settings.
type GameConfig struct {
	TickRate      int         `toml:"tick_rate"` // ticks per second
	Seed          int64       `toml:"seed"`      // 0 = time based
	SpawnStrategy string      `toml:"spawn_strategy"`
	PlayerAvatar  string      `toml:"player_avatar"`
	EnemyAvatar   string      `toml:"enemy_avatar"`
	Tuning        game.Tuning `toml:"tuning"`
}

// DefaultGame returns the default simulation configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		TickRate:      30,
		SpawnStrategy: game.PlacementRing,
		Tuning:        game.DefaultTuning(),
	}
}

// Placement resolves the configured spawn strategy.
func (g GameConfig) Placement() (game.Placement, error) {
	return game.PlacementByName(g.SpawnStrategy)
}

// =============================================================================
// LOGGING
// =============================================================================

// LoggingConfig selects the zap encoder and level.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// DefaultLogging returns the default logging configuration.
func DefaultLogging() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: "console",
	}
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// LimitsConfig controls DoS protection on the public API.
type LimitsConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"` // per client IP
	Burst             int     `toml:"burst"`
	MaxWSClients      int     `toml:"max_ws_clients"`
	MaxWSPerIP        int     `toml:"max_ws_per_ip"`
	MaxBodyBytes      int64   `toml:"max_body_bytes"`
	WSMessagesPerSec  float64 `toml:"ws_messages_per_second"` // inbound commands per connection
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() LimitsConfig {
	return LimitsConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		MaxWSClients:      64,
		MaxWSPerIP:        8,
		MaxBodyBytes:      4 << 10,
		WSMessagesPerSec:  60,
	}
}

// =============================================================================
// OBSERVABILITY
// =============================================================================

// ObservabilityConfig holds the debug server and journal settings.
type ObservabilityConfig struct {
	DebugPort     int    `toml:"debug_port"` // metrics, pprof, health; 0 disables
	EnablePprof   bool   `toml:"enable_pprof"`
	DebugUser     string `toml:"debug_user"` // basic auth for the debug server; empty disables
	DebugPassword string `toml:"debug_password"`
	EventLogPath  string `toml:"event_log_path"` // JSONL journal; empty disables
}

// DefaultObservability returns the default observability configuration.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		DebugPort:   6060,
		EnablePprof: true,
	}
}

// =============================================================================
// AUDIO CONFIGURATION
// =============================================================================

// AudioConfig holds the terminal client's sound settings.
type AudioConfig struct {
	SampleRate int     `toml:"sample_rate"` // Hz
	Volume     float64 `toml:"volume"`      // 0.0 to 1.0
	Enabled    bool    `toml:"enabled"`
}

// DefaultAudio returns the default audio configuration.
func DefaultAudio() AudioConfig {
	return AudioConfig{
		SampleRate: 44100,
		Volume:     0.15,
		Enabled:    true,
	}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server        ServerConfig        `toml:"server"`
	Game          GameConfig          `toml:"game"`
	Logging       LoggingConfig       `toml:"logging"`
	Limits        LimitsConfig        `toml:"limits"`
	Observability ObservabilityConfig `toml:"observability"`
	Audio         AudioConfig         `toml:"audio"`
}

// Default returns the compiled-in configuration.
func Default() AppConfig {
	return AppConfig{
		Server:        DefaultServer(),
		Game:          DefaultGame(),
		Logging:       DefaultLogging(),
		Limits:        DefaultLimits(),
		Observability: DefaultObservability(),
		Audio:         DefaultAudio(),
	}
}

// Load builds the configuration from defaults, the optional TOML file at path
// and the environment, then validates it.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv applies environment overrides. Unparseable values are ignored.
func applyEnv(cfg *AppConfig) {
	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Server.Port = p
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = splitList(origins)
	}

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.Game.TickRate = tr
	}
	if s := os.Getenv("SPAWN_STRATEGY"); s != "" {
		cfg.Game.SpawnStrategy = s
	}
	if ms := getEnvInt("SWING_MS", 0); ms > 0 {
		cfg.Game.Tuning.SwingDuration = time.Duration(ms) * time.Millisecond
	}
	if seed := getEnvInt64("RNG_SEED", 0); seed != 0 {
		cfg.Game.Seed = seed
	}
	if v := os.Getenv("PLAYER_AVATAR_URL"); v != "" {
		cfg.Game.PlayerAvatar = v
	}
	if v := os.Getenv("ENEMY_AVATAR_URL"); v != "" {
		cfg.Game.EnemyAvatar = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if p := getEnvInt("DEBUG_PORT", -1); p >= 0 {
		cfg.Observability.DebugPort = p
	}
	if v := os.Getenv("DEBUG_USER"); v != "" {
		cfg.Observability.DebugUser = v
	}
	if v := os.Getenv("DEBUG_PASSWORD"); v != "" {
		cfg.Observability.DebugPassword = v
	}
	if v := os.Getenv("EVENT_LOG_PATH"); v != "" {
		cfg.Observability.EventLogPath = v
	}

	if v := getEnvFloat("SOUND_VOLUME", -1); v >= 0 {
		cfg.Audio.Volume = v
	}
	if os.Getenv("SOUND_ENABLED") == "false" {
		cfg.Audio.Enabled = false
	}
}

// Validate rejects values the server cannot run with.
func (c AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return invalid("server.port %d out of range", c.Server.Port)
	}
	if c.Observability.DebugPort < 0 || c.Observability.DebugPort > 65535 {
		return invalid("observability.debug_port %d out of range", c.Observability.DebugPort)
	}
	if c.Observability.DebugPort != 0 && c.Observability.DebugPort == c.Server.Port {
		return invalid("observability.debug_port must differ from server.port")
	}
	if c.Game.TickRate <= 0 || c.Game.TickRate > 240 {
		return invalid("game.tick_rate %d out of range (1-240)", c.Game.TickRate)
	}
	if _, err := c.Game.Placement(); err != nil {
		return invalid("game.spawn_strategy: %v", err)
	}
	if err := validateTuning(c.Game.Tuning); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return invalid("logging.format %q (want console or json)", c.Logging.Format)
	}
	if c.Limits.RequestsPerSecond <= 0 || c.Limits.Burst <= 0 {
		return invalid("limits.requests_per_second and limits.burst must be positive")
	}
	if c.Limits.MaxWSClients <= 0 || c.Limits.MaxWSPerIP <= 0 || c.Limits.MaxBodyBytes <= 0 || c.Limits.WSMessagesPerSec <= 0 {
		return invalid("limits must be positive")
	}
	if c.Observability.DebugUser != "" && c.Observability.DebugPassword == "" {
		return invalid("observability.debug_password required with debug_user")
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return invalid("audio.volume %v out of range (0-1)", c.Audio.Volume)
	}
	return nil
}

func validateTuning(t game.Tuning) error {
	switch {
	case t.ArenaHalfExtent <= 0:
		return invalid("tuning.arena_half_extent must be positive")
	case t.PlayerSpeed < 0 || t.EnemySpeed < 0 || t.TurnRate < 0:
		return invalid("tuning speeds must not be negative")
	case t.MaxEnemies < 0:
		return invalid("tuning.max_enemies must not be negative")
	case t.MinSpawnInterval < 0:
		return invalid("tuning.min_spawn_interval must not be negative")
	case t.SpawnRadius <= 0 || t.SpawnMinDistanceFactor < 0 || t.SpawnMinDistanceFactor > 1:
		return invalid("tuning spawn radius/min distance factor out of range")
	case t.SpawnAttempts < 1:
		return invalid("tuning.spawn_attempts must be at least 1")
	case t.SwingDuration <= 0:
		return invalid("tuning.swing_duration must be positive")
	case t.HitScore <= 0:
		return invalid("tuning.hit_score must be positive")
	case t.MaxDelta <= 0:
		return invalid("tuning.max_delta must be positive")
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
