// Command arena plays the sword arena in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"sword-arena/internal/config"
	"sword-arena/internal/game"
	"sword-arena/internal/logging"
	"sword-arena/internal/tui"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "optional TOML config file")
	logPath := flag.String("log", "arena.log", "log file; the terminal is busy drawing")
	mute := flag.Bool("mute", false, "disable sound")
	flag.Parse()

	if err := godotenv.Load("../.env"); err != nil {
		_ = godotenv.Load(".env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *mute {
		cfg.Audio.Enabled = false
	}

	logger, err := logging.ToFile(cfg.Logging, *logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("❌ Arena failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "arena: %v\n", err)
		os.Exit(1)
	}
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
	defer engine.Stop()

	if cfg.Audio.Enabled {
		audio := tui.NewAudio(cfg.Audio.SampleRate, cfg.Audio.Volume)
		if err := audio.Init(); err != nil {
			// No sound device is not fatal
			logger.Warn("🔇 Audio disabled", zap.Error(err))
		} else {
			defer audio.Close()
			engine.AddSink(audio)
			defer func() {
				played, dropped := audio.Stats()
				logger.Info("🔊 Audio stats", zap.Uint64("played", played), zap.Uint64("dropped", dropped))
			}()
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()
	screen.HideCursor()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("🎮 Arena started",
		zap.Int64("seed", engine.Seed()),
		zap.String("placement", engine.PlacementName()),
	)
	app := tui.NewApp(screen, engine, tui.Options{Logger: logger})
	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	snap := engine.Snapshot()
	logger.Info("🏁 Session over", zap.String("phase", snap.Phase), zap.Int("score", snap.Score))
	return nil
}
