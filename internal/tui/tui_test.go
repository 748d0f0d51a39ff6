package tui

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"

	"sword-arena/internal/game"
	"sword-arena/internal/geom"
)

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	screen.SetSize(w, h)
	t.Cleanup(screen.Fini)
	return screen
}

func runeAt(s tcell.Screen, x, y int) rune {
	r, _, _, _ := s.GetContent(x, y)
	return r
}

// TestMapKey verifies the key bindings
func TestMapKey(t *testing.T) {
	tests := []struct {
		name string
		key  tcell.Key
		r    rune
		want Action
	}{
		{"w", tcell.KeyRune, 'w', ActionForward},
		{"up", tcell.KeyUp, 0, ActionForward},
		{"S", tcell.KeyRune, 'S', ActionBackward},
		{"left", tcell.KeyLeft, 0, ActionLeft},
		{"d", tcell.KeyRune, 'd', ActionRight},
		{"space", tcell.KeyRune, ' ', ActionSwing},
		{"enter", tcell.KeyEnter, 0, ActionStart},
		{"r", tcell.KeyRune, 'r', ActionRestart},
		{"q", tcell.KeyRune, 'q', ActionQuit},
		{"esc", tcell.KeyEscape, 0, ActionQuit},
		{"ctrl-c", tcell.KeyCtrlC, 0, ActionQuit},
		{"unbound", tcell.KeyRune, 'x', ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapKey(tt.key, tt.r); got != tt.want {
				t.Errorf("MapKey = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestKeyLatch verifies held directions expire and opposites cancel
func TestKeyLatch(t *testing.T) {
	base := time.Unix(0, 0)
	l := NewKeyLatch(100 * time.Millisecond)

	l.Press(ActionForward, base)
	l.Press(ActionLeft, base.Add(50*time.Millisecond))
	if got := l.Input(base.Add(60 * time.Millisecond)); got != (game.Input{Forward: true, Left: true}) {
		t.Errorf("held = %+v", got)
	}
	if got := l.Input(base.Add(120 * time.Millisecond)); got != (game.Input{Left: true}) {
		t.Errorf("after forward expired = %+v", got)
	}

	l.Press(ActionRight, base.Add(130*time.Millisecond))
	if got := l.Input(base.Add(131 * time.Millisecond)); got != (game.Input{Right: true}) {
		t.Errorf("opposite should cancel left: %+v", got)
	}

	l.Press(ActionSwing, base)
	l.Release()
	if got := l.Input(base.Add(131 * time.Millisecond)); got.Moving() {
		t.Errorf("after release = %+v", got)
	}
}

// TestRendererDraw verifies entity placement, the HUD and the phase banners
func TestRendererDraw(t *testing.T) {
	screen := newScreen(t, 42, 24)
	tun := game.DefaultTuning()
	r := NewRenderer(screen, tun)

	snap := &game.Snapshot{
		Phase:  game.PhasePlaying.String(),
		Score:  30,
		Player: game.PlayerSnapshot{Position: geom.V3(0, 1, 0), Animation: game.AnimIdle.Clip()},
		Enemies: []game.EnemySnapshot{
			{ID: "a", Position: geom.V3(-20, 1, -20)},
			{ID: "b", Position: geom.V3(30, 1, 30)}, // outside the arena, clamped to the edge
		},
		EnemyCount: 2,
	}
	r.Draw(snap)

	// 40x20 interior: origin lands at column 1+20, row 2+10
	if got := runeAt(screen, 21, 12); got != GlyphPlayer {
		t.Errorf("player cell = %q", got)
	}
	if got := runeAt(screen, 1, 2); got != GlyphEnemy {
		t.Errorf("corner enemy cell = %q", got)
	}
	if got := runeAt(screen, 40, 21); got != GlyphEnemy {
		t.Errorf("clamped enemy cell = %q", got)
	}
	if got := runeAt(screen, 0, 1); got != '+' {
		t.Errorf("border corner = %q", got)
	}
	if got := runeAt(screen, 1, 0); got != 'S' {
		t.Errorf("hud = %q", got)
	}

	// Swinging while facing +Z draws the blade below the player
	snap.SwingActive = true
	r.Draw(snap)
	if got := runeAt(screen, 21, 13); got != '|' {
		t.Errorf("blade cell = %q", got)
	}

	snap.Phase = game.PhaseEnded.String()
	r.Draw(snap)
	found := false
	for x := 0; x < 42; x++ {
		if runeAt(screen, x, 12) == 'G' {
			found = true
		}
	}
	if !found {
		t.Error("game over banner missing")
	}
}

// TestRendererTinyTerminal verifies a too-small screen shows a notice instead of panicking
func TestRendererTinyTerminal(t *testing.T) {
	screen := newScreen(t, 4, 3)
	NewRenderer(screen, game.DefaultTuning()).Draw(&game.Snapshot{})
	if got := runeAt(screen, 0, 0); got != 't' {
		t.Errorf("notice = %q", got)
	}
}

// TestBladeGlyph verifies the eight facing sectors
func TestBladeGlyph(t *testing.T) {
	tests := []struct {
		yaw  float64
		want rune
	}{
		{0, '|'},
		{0.785, '\\'},
		{1.571, '-'},
		{2.356, '/'},
		{3.1, '|'},
		{-0.785, '/'},
		{-1.571, '-'},
	}
	for _, tt := range tests {
		if got := bladeGlyph(tt.yaw); got != tt.want {
			t.Errorf("bladeGlyph(%v) = %q, want %q", tt.yaw, got, tt.want)
		}
	}
}

// TestToneFor verifies which events make a sound and that tones have the right length
func TestToneFor(t *testing.T) {
	sr := beep.SampleRate(44100)
	for _, et := range []game.EventType{
		game.EventTypeSwingStarted,
		game.EventTypeEnemyHit,
		game.EventTypeEnemySpawned,
		game.EventTypeGameEnded,
	} {
		t.Run(et.String(), func(t *testing.T) {
			tone, ok := ToneFor(et)
			if !ok {
				t.Fatal("expected a tone")
			}
			s, err := tone.Streamer(sr, 0.5)
			if err != nil {
				t.Fatal(err)
			}
			total := 0
			buf := make([][2]float64, 512)
			for {
				n, ok := s.Stream(buf)
				total += n
				if !ok {
					break
				}
			}
			if want := sr.N(tone.Duration); total != want {
				t.Errorf("samples = %d, want %d", total, want)
			}
		})
	}

	if _, ok := ToneFor(game.EventTypePhaseChanged); ok {
		t.Error("phase changes should be silent")
	}
}

// TestAudioUninitialised verifies events are ignored before Init
func TestAudioUninitialised(t *testing.T) {
	a := NewAudio(44100, 0.5)
	a.HandleEvent(game.Event{Type: game.EventTypeEnemyHit})
	if played, dropped := a.Stats(); played != 0 || dropped != 0 {
		t.Errorf("stats = %d/%d", played, dropped)
	}
	a.Close()
}

// TestAppHandleKey verifies the key flow against a real engine
func TestAppHandleKey(t *testing.T) {
	screen := newScreen(t, 42, 24)
	engine := game.NewEngine(game.EngineOptions{Seed: 3, TickRate: 100})
	app := NewApp(screen, engine, Options{HoldWindow: time.Second})
	now := time.Now()

	app.HandleKey(ActionSwing, now)
	if got := engine.Snapshot().Phase; got != "playing" {
		t.Fatalf("space on ready screen should start, phase %q", got)
	}

	app.HandleKey(ActionRight, now)
	if !engine.Input().Right {
		t.Error("right not held")
	}

	app.HandleKey(ActionSwing, now)
	if !engine.Snapshot().SwingActive {
		t.Error("swing not started")
	}

	app.HandleKey(ActionRestart, now)
	snap := engine.Snapshot()
	if snap.Phase != "playing" || snap.Score != 0 || engine.Input().Moving() {
		t.Errorf("after restart phase %q score %d input %+v", snap.Phase, snap.Score, engine.Input())
	}

	if app.HandleKey(ActionQuit, now) {
		t.Error("quit should stop the app")
	}
}

// TestAppRun verifies injected keys drive the loop until quit
func TestAppRun(t *testing.T) {
	screen := newScreen(t, 42, 24)
	engine := game.NewEngine(game.EngineOptions{Seed: 3, TickRate: 100})
	defer engine.Stop()
	app := NewApp(screen, engine, Options{FrameRate: 100})

	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := engine.Snapshot().Phase; got != "playing" {
		t.Errorf("phase = %q, want playing", got)
	}
	if !engine.IsRunning() {
		t.Error("engine loop should be running")
	}
}
