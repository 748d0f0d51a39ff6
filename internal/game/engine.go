package game

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"sword-arena/internal/game/spatial"
)

// EngineOptions configures an Engine. Zero values fall back to defaults.
type EngineOptions struct {
	Tuning    Tuning
	Placement Placement
	TickRate  int // ticks per second for the real-time loop

	// Seed drives spawn placement and enemy ids. 0 picks a time-based seed.
	Seed int64
	// Epoch anchors enemy id timestamps; ids embed Epoch + simulation time.
	Epoch time.Time

	EnemyAvatar string
	Journal     *EventLog // must already be started
	Logger      *zap.Logger
}

// TickStats summarises one tick for metrics.
type TickStats struct {
	Tick     uint64
	Duration time.Duration // wall time spent simulating
	Phase    Phase
	Score    int
	Enemies  int
	Hits     int
	Spawned  bool
	Swinging bool

	// Broad-phase figures for the combat test this tick
	BroadPhase spatial.GridStats
	Candidates int
}

// Engine hosts one game session: it owns the state, the components and the
// seeded randomness, and serialises every mutation under one mutex.
//
// Apply is the single entry point for simulation. The real-time loop, Step
// and the command helpers all go through it, and every applied frame is
// journaled.
type Engine struct {
	mu sync.RWMutex

	state    *GameState
	clock    Clock
	movement *MovementController
	spawner  *EnemySpawner
	combat   *CombatResolver

	tuning    Tuning
	placement Placement
	seed      int64
	epoch     time.Time
	entropy   *ulid.MonotonicEntropy

	held     Input // movement input for loop ticks
	sequence uint64
	snapshot atomic.Pointer[Snapshot]

	sinkMu sync.RWMutex
	sinks  []EventSink
	onTick func(TickStats)

	journal *EventLog
	logger  *zap.Logger

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	loopDone chan struct{}
}

// NewEngine creates an engine in the Ready phase.
func NewEngine(opts EngineOptions) *Engine {
	tuning := opts.Tuning
	if tuning == (Tuning{}) {
		tuning = DefaultTuning()
	}
	placement := opts.Placement
	if placement == nil {
		placement = RingPlacement{}
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	epoch := opts.Epoch
	if epoch.IsZero() {
		epoch = time.Now().UTC().Truncate(time.Millisecond)
	}
	tickRate := opts.TickRate
	if tickRate <= 0 {
		tickRate = 30
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		tuning:    tuning,
		placement: placement,
		seed:      seed,
		epoch:     epoch,
		// Separate streams so id generation never shifts spawn placement
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(seed^0x5eed)), 0),
		movement: NewMovementController(tuning),
		combat:   NewCombatResolver(tuning),
		journal:  opts.Journal,
		logger:   logger,
		tickRate: tickRate,
	}
	e.spawner = NewEnemySpawner(tuning, placement, rand.New(rand.NewSource(seed)))
	e.state = NewGameState(tuning, e.nextID)
	e.state.SetEnemyAvatar(opts.EnemyAvatar)
	e.publish()

	if e.journal != nil {
		e.journal.RecordHeader(JournalHeader{
			Version:   EventVersion,
			Seed:      seed,
			Epoch:     epoch,
			Placement: placement.Name(),
			Tuning:    tuning,
		})
	}
	return e
}

// nextID produces a ULID whose timestamp is the simulation time since epoch.
// Called with e.mu held.
func (e *Engine) nextID() EnemyID {
	ms := ulid.Timestamp(e.epoch.Add(e.state.now))
	id, err := ulid.New(ms, e.entropy)
	if err != nil {
		// Monotonic overflow within one millisecond; extremely unlikely
		e.logger.Warn("⚠️ enemy id entropy exhausted, using random id", zap.Error(err))
		id = ulid.Make()
	}
	return EnemyID(id.String())
}

// Apply runs one tick for the frame and returns the published snapshot.
// Events are dispatched to sinks after the tick, outside the lock.
func (e *Engine) Apply(f Frame) *Snapshot {
	start := time.Now()

	e.mu.Lock()
	if e.journal != nil {
		e.journal.RecordFrame(f)
	}
	stats := e.advance(f)
	events := e.state.DrainEvents()
	snap := e.publish()
	onTick := e.onTick
	e.mu.Unlock()

	stats.Duration = time.Since(start)
	e.dispatch(events)
	if onTick != nil {
		onTick(stats)
	}
	return snap
}

// advance is the tick pipeline. Called with e.mu held.
func (e *Engine) advance(f Frame) TickStats {
	s := e.state
	dt := SanitizeDelta(f.DT, e.tuning.MaxDelta)
	step := e.clock.Advance(dt)
	s.beginTick(e.clock.Now())

	switch f.Command {
	case CommandStart:
		s.Start()
	case CommandRestart:
		s.Restart()
	}

	// An expiring swing closes before a new request can open one
	s.swing.Advance(step)
	if f.Input.SwingRequested && s.phase == PhasePlaying {
		s.RequestSwing()
	}

	e.movement.MovePlayer(s, f.Input, dt)
	e.movement.MoveEnemies(s, dt)
	e.movement.CheckCaught(s)

	_, spawned := e.spawner.Update(s)
	hits := e.combat.Resolve(s)

	if s.phase == PhasePlaying {
		s.player.Animation = animationFor(s.player.Moving, s.swing.Active())
	} else {
		s.player.Moving = false
		s.player.Animation = AnimIdle
	}

	grid, candidates := e.combat.BroadPhase()
	return TickStats{
		Tick:       s.tick,
		Phase:      s.phase,
		Score:      s.score,
		Enemies:    len(s.order),
		Hits:       len(hits),
		Spawned:    spawned,
		Swinging:   s.swing.Active(),
		BroadPhase: grid,
		Candidates: candidates,
	}
}

// publish stores a fresh snapshot. Called with e.mu held.
func (e *Engine) publish() *Snapshot {
	e.sequence++
	snap := buildSnapshot(e.state, e.sequence)
	e.snapshot.Store(snap)
	return snap
}

func (e *Engine) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}
	e.sinkMu.RLock()
	sinks := e.sinks
	e.sinkMu.RUnlock()

	for _, ev := range events {
		if e.journal != nil {
			e.journal.Emit(ev)
		}
		for _, sink := range sinks {
			sink.HandleEvent(ev)
		}
	}
}

// Step advances the simulation by dt seconds with the given input.
func (e *Engine) Step(dt float64, in Input) *Snapshot {
	return e.Apply(Frame{DT: dt, Input: in})
}

// StartGame moves Ready to Playing.
func (e *Engine) StartGame() *Snapshot {
	return e.Apply(Frame{Input: e.Input(), Command: CommandStart})
}

// RestartGame resets the session from any phase.
func (e *Engine) RestartGame() *Snapshot {
	return e.Apply(Frame{Input: e.Input(), Command: CommandRestart})
}

// RequestSwing starts a swing right away (a zero-length tick), so the blade is
// live at t=0. Ignored while a swing is already running.
func (e *Engine) RequestSwing() *Snapshot {
	in := e.Input()
	in.SwingRequested = true
	return e.Apply(Frame{Input: in})
}

// SetInput replaces the held movement input used by loop ticks.
// Swing requests are discrete and must go through RequestSwing.
func (e *Engine) SetInput(in Input) {
	in.SwingRequested = false
	e.mu.Lock()
	e.held = in
	e.mu.Unlock()
}

// Input returns the held movement input.
func (e *Engine) Input() Input {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.held
}

// SetPlayerAvatar records the player's avatar reference and republishes.
func (e *Engine) SetPlayerAvatar(url string) *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.SetPlayerAvatar(url)
	return e.publish()
}

// Snapshot returns the latest published snapshot. Never nil.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// AddSink registers an event sink. Sinks must not block.
func (e *Engine) AddSink(sink EventSink) {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	// Copy on write so dispatch can iterate without holding the lock
	sinks := make([]EventSink, len(e.sinks), len(e.sinks)+1)
	copy(sinks, e.sinks)
	e.sinks = append(sinks, sink)
}

// SetOnTick installs a hook called after every tick, outside the lock.
func (e *Engine) SetOnTick(fn func(TickStats)) {
	e.mu.Lock()
	e.onTick = fn
	e.mu.Unlock()
}

// Tuning returns the balance values in use.
func (e *Engine) Tuning() Tuning { return e.tuning }

// Seed returns the RNG seed.
func (e *Engine) Seed() int64 { return e.seed }

// Epoch returns the id timestamp anchor.
func (e *Engine) Epoch() time.Time { return e.epoch }

// PlacementName returns the spawn placement strategy name.
func (e *Engine) PlacementName() string { return e.placement.Name() }

// TickRate returns the real-time loop rate.
func (e *Engine) TickRate() int { return e.tickRate }

// SpawnerStats returns spawner counters.
func (e *Engine) SpawnerStats() SpawnerStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.spawner.Stats()
}

// SwingCount returns how many swings have been accepted.
func (e *Engine) SwingCount() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.swing.Count()
}

// IsRunning reports whether the real-time loop is active.
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Start begins the real-time loop. Each tick applies a fixed 1/TickRate delta
// with the held input, so a recorded session replays identically.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	e.loopDone = make(chan struct{})
	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))
	ticker, stop, done := e.ticker, e.stopChan, e.loopDone
	e.mu.Unlock()

	dt := 1.0 / float64(e.tickRate)
	go func() {
		defer close(done)
		for {
			select {
			case <-ticker.C:
				e.Apply(Frame{DT: dt, Input: e.Input()})
			case <-stop:
				return
			}
		}
	}()

	e.logger.Info("🎮 Game engine started", zap.Int("tps", e.tickRate), zap.Int64("seed", e.seed), zap.String("placement", e.placement.Name()))
}

// Stop stops the real-time loop and waits for the in-flight tick to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	done := e.loopDone
	e.mu.Unlock()

	<-done
	e.logger.Info("🛑 Game engine stopped")
}
