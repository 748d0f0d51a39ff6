package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"sword-arena/internal/game"
)

// Screen is the subset of tcell.Screen the client needs.
type Screen interface {
	Canvas
	PollEvent() tcell.Event
	Sync()
}

// Options configures an App. Zero values fall back to defaults.
type Options struct {
	FrameRate  int           // redraws per second, default 30
	HoldWindow time.Duration // see KeyLatch
	Logger     *zap.Logger
}

// App runs the arena in a terminal against a real-time engine.
type App struct {
	screen   Screen
	engine   *game.Engine
	renderer *Renderer
	latch    *KeyLatch
	frame    time.Duration
	logger   *zap.Logger
}

// NewApp wires a screen to an engine. The caller owns both: it initialises
// and finalises the screen and stops the engine.
func NewApp(screen Screen, engine *game.Engine, opts Options) *App {
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &App{
		screen:   screen,
		engine:   engine,
		renderer: NewRenderer(screen, engine.Tuning()),
		latch:    NewKeyLatch(opts.HoldWindow),
		frame:    time.Second / time.Duration(opts.FrameRate),
		logger:   opts.Logger,
	}
}

// HandleKey applies one action at now. It returns false when the player quits.
func (a *App) HandleKey(act Action, now time.Time) bool {
	phase := a.engine.Snapshot().Phase
	switch act {
	case ActionQuit:
		return false
	case ActionForward, ActionBackward, ActionLeft, ActionRight:
		a.latch.Press(act, now)
		a.engine.SetInput(a.latch.Input(now))
	case ActionSwing:
		switch phase {
		case game.PhaseReady.String():
			a.engine.StartGame()
		case game.PhasePlaying.String():
			a.engine.RequestSwing()
		}
	case ActionStart:
		switch phase {
		case game.PhaseReady.String():
			a.engine.StartGame()
		case game.PhaseEnded.String():
			a.latch.Release()
			a.engine.RestartGame()
		}
	case ActionRestart:
		a.latch.Release()
		a.engine.SetInput(game.Input{})
		a.engine.RestartGame()
		a.logger.Info("🔄 Game restarted from terminal")
	}
	return true
}

// Run starts the engine loop if needed and processes keys and frames until
// the player quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if !a.engine.IsRunning() {
		a.engine.Start()
	}

	events := make(chan tcell.Event, 64)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return // screen finalised
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(a.frame)
	defer ticker.Stop()

	a.renderer.Draw(a.engine.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !a.HandleKey(MapKey(ev.Key(), ev.Rune()), time.Now()) {
					return nil
				}
			case *tcell.EventResize:
				a.screen.Sync()
			}

		case now := <-ticker.C:
			a.engine.SetInput(a.latch.Input(now))
			a.renderer.Draw(a.engine.Snapshot())
		}
	}
}
