package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"sword-arena/internal/api"
	"sword-arena/internal/avatar"
	"sword-arena/internal/config"
	"sword-arena/internal/game"
	"sword-arena/internal/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "optional TOML config file")
	replayPath := flag.String("replay", "", "re-simulate a recorded journal and exit")
	flag.Parse()

	// Load .env file from parent directory
	envSource := "../.env"
	if err := godotenv.Load(envSource); err != nil {
		// Try current directory as fallback
		envSource = ".env"
		if err := godotenv.Load(envSource); err != nil {
			envSource = ""
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if envSource != "" {
		logger.Info("✅ Loaded environment", zap.String("file", envSource))
	} else {
		logger.Info("💡 No .env file found, using environment variables only")
	}

	if *replayPath != "" {
		exitOnError(logger, "❌ Replay failed", replay(*replayPath, logger), os.Exit)
		return
	}

	logger.Info("🎮 ================================")
	logger.Info("🎮  SWORD ARENA - GO ENGINE")
	logger.Info("🎮 ================================")

	exitOnError(logger, "❌ Server failed", run(cfg, logger), os.Exit)
	logger.Info("👋 Goodbye!")
}

// exitOnError logs err and exits non-zero once the logger is flushed.
// Deferred calls do not run across exit, so the sync happens here.
func exitOnError(logger *zap.Logger, msg string, err error, exit func(int)) {
	if err == nil {
		return
	}
	logger.Error(msg, zap.Error(err))
	_ = logger.Sync()
	exit(1)
}

func run(cfg config.AppConfig, logger *zap.Logger) error {
	placement, err := cfg.Game.Placement()
	if err != nil {
		return err
	}

	var journal *game.EventLog
	if path := cfg.Observability.EventLogPath; path != "" {
		journal = game.NewEventLog()
		if err := journal.Start(path); err != nil {
			return fmt.Errorf("start event log: %w", err)
		}
		defer journal.Stop()
		logger.Info("📝 Event journal enabled", zap.String("path", path))
	}

	engine := game.NewEngine(game.EngineOptions{
		Tuning:      cfg.Game.Tuning,
		Placement:   placement,
		TickRate:    cfg.Game.TickRate,
		Seed:        cfg.Game.Seed,
		EnemyAvatar: cfg.Game.EnemyAvatar,
		Journal:     journal,
		Logger:      logger.Named("engine"),
	})
	if cfg.Game.PlayerAvatar != "" {
		engine.SetPlayerAvatar(cfg.Game.PlayerAvatar)
	}
	logger.Info("🎮 Config",
		zap.Int("tickRate", engine.TickRate()),
		zap.String("placement", engine.PlacementName()),
		zap.Int64("seed", engine.Seed()),
		zap.Duration("swing", engine.Tuning().SwingDuration),
	)

	metrics := api.NewMetricsSink(journal)
	engine.AddSink(metrics)
	engine.SetOnTick(metrics.ObserveTick)

	server := api.NewServer(engine, api.ServerOptions{
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: cfg.Limits.RequestsPerSecond,
			Burst:             cfg.Limits.Burst,
			CleanupInterval:   api.DefaultRateLimitConfig.CleanupInterval,
		},
		CORSOrigins:  cfg.Server.AllowedOrigins,
		MaxBodyBytes: cfg.Limits.MaxBodyBytes,
		Hub: api.HubConfig{
			MaxClients:     cfg.Limits.MaxWSClients,
			MaxPerIP:       cfg.Limits.MaxWSPerIP,
			MessagesPerSec: cfg.Limits.WSMessagesPerSec,
		},
		Avatars: avatar.NewCache(avatar.Options{Logger: logger.Named("avatar")}),
		Logger:  logger.Named("api"),
	})

	debugServer, err := api.StartDebugServer(api.DebugServerConfig{
		Port:          cfg.Observability.DebugPort,
		EnablePprof:   cfg.Observability.EnablePprof,
		BasicAuthUser: cfg.Observability.DebugUser,
		BasicAuthPass: cfg.Observability.DebugPassword,
		Stats:         debugStats(engine, server, journal),
	}, logger.Named("debug"))
	if err != nil {
		return fmt.Errorf("start debug server: %w", err)
	}

	engine.Start()
	logger.Info("✅ Game Engine started")

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("🌐 API server", zap.String("url", "http://localhost"+addr))
		serverErr <- server.Start(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("✅ Server ready! Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-quit:
	case runErr = <-serverErr:
	}

	logger.Info("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("⚠️ API shutdown", zap.Error(err))
	}
	if debugServer != nil {
		if err := debugServer.Shutdown(ctx); err != nil {
			logger.Warn("⚠️ Debug server shutdown", zap.Error(err))
		}
	}
	engine.Stop()

	snap := engine.Snapshot()
	logger.Info("🏁 Final state",
		zap.String("phase", snap.Phase),
		zap.Int("score", snap.Score),
		zap.Uint64("swings", engine.SwingCount()),
	)
	if journal != nil {
		logger.Info("📝 Journal closed",
			zap.Uint64("records", journal.GetTotalCount()),
			zap.Uint64("dropped", journal.GetDroppedCount()),
		)
	}
	return runErr
}

// debugStats gathers the engine, API and journal counters served on /debug/stats.
func debugStats(engine *game.Engine, server *api.Server, journal *game.EventLog) func() map[string]interface{} {
	return func() map[string]interface{} {
		stats := server.Stats()
		stats["spawner"] = engine.SpawnerStats()
		stats["swings"] = engine.SwingCount()
		if journal != nil {
			stats["journal"] = journal.GetStats()
		}
		return stats
	}
}

// replay re-simulates a journal and logs how the recorded session ended.
func replay(path string, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	j, err := game.LoadJournal(f)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	engine, err := game.Replay(j, logger.Named("replay"))
	if err != nil {
		return err
	}

	snap := engine.Snapshot()
	logger.Info("🔁 Replay complete",
		zap.String("file", path),
		zap.Int64("seed", j.Header.Seed),
		zap.Int("frames", len(j.Frames)),
		zap.Int("recordedEvents", len(j.Events)),
		zap.String("phase", snap.Phase),
		zap.Int("score", snap.Score),
		zap.Int("enemies", snap.EnemyCount),
	)
	return nil
}
