package game

import (
	"time"
)

// IDSource produces unique enemy ids.
type IDSource func() EnemyID

// GameState is the single source of truth for a session.
// Every mutation goes through its methods; state actions are idempotent and
// never fail, since they are driven from per-tick checks.
//
// GameState is not safe for concurrent use. The Engine serialises access.
type GameState struct {
	tuning Tuning

	phase  Phase
	score  int
	player Player

	// Enemy set keyed by id. order keeps insertion order so iteration is
	// deterministic for replay; membership is defined by the map.
	enemies map[EnemyID]*Enemy
	order   []EnemyID

	swing     *SwingController
	now       time.Duration // simulation clock reading for the current tick
	lastSpawn time.Duration // clock reading of the last successful spawn
	tick      uint64

	newID       IDSource
	enemyAvatar string

	// Events produced since the last drain
	pending []Event
}

// NewGameState creates a session in the Ready phase.
func NewGameState(tuning Tuning, ids IDSource) *GameState {
	s := &GameState{
		tuning:  tuning,
		phase:   PhaseReady,
		enemies: make(map[EnemyID]*Enemy, tuning.MaxEnemies),
		order:   make([]EnemyID, 0, tuning.MaxEnemies),
		swing:   NewSwingController(tuning.SwingDuration),
		newID:   ids,
	}
	s.player.reset(tuning.PlayerStart)
	return s
}

// Start moves Ready to Playing. Any other phase is a no-op.
func (s *GameState) Start() {
	if s.phase != PhaseReady {
		return
	}
	s.resetSession()
	s.setPhase(PhasePlaying)
}

// Restart resets the session from any phase and forces Playing.
func (s *GameState) Restart() {
	s.resetSession()
	s.setPhase(PhasePlaying)
}

// End moves Playing to Ended. Any other phase is a no-op.
func (s *GameState) End() {
	if s.phase != PhasePlaying {
		return
	}
	s.setPhase(PhaseEnded)
	s.emit(Event{Type: EventTypeGameEnded})
}

func (s *GameState) resetSession() {
	s.score = 0
	s.player.reset(s.tuning.PlayerStart)
	s.clearEnemies()
	s.lastSpawn = s.now
	s.swing.Cancel()
}

func (s *GameState) setPhase(p Phase) {
	if s.phase == p {
		return
	}
	s.phase = p
	s.emit(Event{Type: EventTypePhaseChanged})
}

// AddScore adds points. Non-positive values are ignored so score never decreases.
func (s *GameState) AddScore(points int) {
	if points <= 0 {
		return
	}
	s.score += points
}

// SetPlayerPosition moves the player, clamped to the arena. Non-finite
// positions are ignored.
func (s *GameState) SetPlayerPosition(p Position) {
	if !SanitizePosition(p) {
		return
	}
	s.player.Position = clampToArena(p, s.tuning.ArenaHalfExtent)
}

// SetPlayerYaw sets the player's facing directly, normalized into (-π, π].
func (s *GameState) SetPlayerYaw(yaw float64) {
	s.player.Yaw = normalizeYaw(yaw)
}

// SetPlayerAvatar records the opaque avatar reference for the renderer.
func (s *GameState) SetPlayerAvatar(url string) {
	s.player.AvatarURL = url
}

// SetEnemyAvatar sets the avatar reference given to newly spawned enemies.
func (s *GameState) SetEnemyAvatar(url string) {
	s.enemyAvatar = url
}

// SpawnEnemy creates an enemy with full health at p and resets the spawn timer.
func (s *GameState) SpawnEnemy(p Position) EnemyID {
	id := s.newID()
	for {
		if _, taken := s.enemies[id]; !taken {
			break
		}
		id = s.newID()
	}

	pos := p
	s.enemies[id] = &Enemy{
		ID:        id,
		Position:  pos,
		Health:    1,
		AvatarURL: s.enemyAvatar,
	}
	s.order = append(s.order, id)
	s.lastSpawn = s.now

	s.emit(Event{Type: EventTypeEnemySpawned, EnemyID: id, Position: &pos})
	return id
}

// RemoveEnemy deletes an enemy. Unknown ids are ignored.
func (s *GameState) RemoveEnemy(id EnemyID) {
	if _, ok := s.enemies[id]; !ok {
		return
	}
	delete(s.enemies, id)

	// In-place compaction keeps order stable without allocating
	n := 0
	for _, eid := range s.order {
		if eid != id {
			s.order[n] = eid
			n++
		}
	}
	s.order = s.order[:n]
}

func (s *GameState) clearEnemies() {
	for id := range s.enemies {
		delete(s.enemies, id)
	}
	s.order = s.order[:0]
}

// SetSwingActive starts a swing (if none is running) or cancels the current one.
func (s *GameState) SetSwingActive(active bool) {
	if !active {
		s.swing.Cancel()
		return
	}
	s.RequestSwing()
}

// RequestSwing starts a swing unless one is already running.
// Both the UI path and the per-frame input path land here, so only one swing
// can ever execute at a time.
func (s *GameState) RequestSwing() bool {
	if !s.swing.Request() {
		return false
	}
	s.emit(Event{Type: EventTypeSwingStarted})
	return true
}

// Phase returns the session phase.
func (s *GameState) Phase() Phase { return s.phase }

// Score returns the current score.
func (s *GameState) Score() int { return s.score }

// Player returns a copy of the player.
func (s *GameState) Player() Player { return s.player }

// SwingActive reports whether the sword hitbox is live.
func (s *GameState) SwingActive() bool { return s.swing.Active() }

// Swing exposes the swing controller.
func (s *GameState) Swing() *SwingController { return s.swing }

// Now returns the simulation clock reading of the current tick.
func (s *GameState) Now() time.Duration { return s.now }

// LastSpawn returns the clock reading of the last successful spawn.
func (s *GameState) LastSpawn() time.Duration { return s.lastSpawn }

// Tick returns the current tick number.
func (s *GameState) Tick() uint64 { return s.tick }

// Tuning returns the balance values this state was built with.
func (s *GameState) Tuning() Tuning { return s.tuning }

// EnemyCount returns the number of live enemies.
func (s *GameState) EnemyCount() int { return len(s.order) }

// Enemy returns a copy of the enemy with the given id.
func (s *GameState) Enemy(id EnemyID) (Enemy, bool) {
	e, ok := s.enemies[id]
	if !ok {
		return Enemy{}, false
	}
	return *e, true
}

// Enemies returns copies of all enemies in spawn order.
func (s *GameState) Enemies() []Enemy {
	out := make([]Enemy, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.enemies[id])
	}
	return out
}

// enemyIDs returns a snapshot of the current ids, safe to iterate while removing.
func (s *GameState) enemyIDs() []EnemyID {
	ids := make([]EnemyID, len(s.order))
	copy(ids, s.order)
	return ids
}

// enemyRef returns the live record for in-place updates by the controllers.
func (s *GameState) enemyRef(id EnemyID) *Enemy {
	return s.enemies[id]
}

// beginTick records the clock reading used by every component this tick.
func (s *GameState) beginTick(now time.Duration) {
	s.now = now
	s.tick++
}

func (s *GameState) emit(ev Event) {
	ev.Tick = s.tick
	ev.At = s.now
	ev.Score = s.score
	ev.Phase = s.phase
	s.pending = append(s.pending, ev)
}

// DrainEvents returns and clears the events produced since the last call.
func (s *GameState) DrainEvents() []Event {
	if len(s.pending) == 0 {
		return nil
	}
	out := s.pending
	s.pending = nil
	return out
}
