package game

import (
	"time"
)

// PlayerSnapshot is an immutable copy of player state for rendering.
type PlayerSnapshot struct {
	Position  Position `json:"position" msgpack:"position"`
	Yaw       float64  `json:"yaw" msgpack:"yaw"`
	Moving    bool     `json:"moving" msgpack:"moving"`
	Animation string   `json:"animation" msgpack:"animation"` // clip name
	AvatarURL string   `json:"avatarUrl,omitempty" msgpack:"avatarUrl,omitempty"`
}

// EnemySnapshot is an immutable copy of one enemy.
type EnemySnapshot struct {
	ID        EnemyID  `json:"id" msgpack:"id"`
	Position  Position `json:"position" msgpack:"position"`
	Yaw       float64  `json:"yaw" msgpack:"yaw"`
	AvatarURL string   `json:"avatarUrl,omitempty" msgpack:"avatarUrl,omitempty"`
}

// Snapshot is the read-only view handed to renderers, the HUD and clients.
// A new value is published after every tick and never mutated afterwards,
// so readers may hold on to it without locking.
type Snapshot struct {
	Sequence uint64        `json:"seq" msgpack:"seq"` // monotonic per engine
	Tick     uint64        `json:"tick" msgpack:"tick"`
	Elapsed  time.Duration `json:"elapsed" msgpack:"elapsed"` // simulation clock

	Phase      string          `json:"phase" msgpack:"phase"`
	Score      int             `json:"score" msgpack:"score"`
	Player     PlayerSnapshot  `json:"player" msgpack:"player"`
	Enemies    []EnemySnapshot `json:"enemies" msgpack:"enemies"` // spawn order
	EnemyCount int             `json:"enemyCount" msgpack:"enemyCount"`

	SwingActive   bool    `json:"swingActive" msgpack:"swingActive"`
	SwingProgress float64 `json:"swingProgress" msgpack:"swingProgress"` // [0, 1]
}

// buildSnapshot copies the state into a fresh Snapshot.
func buildSnapshot(s *GameState, seq uint64) *Snapshot {
	snap := &Snapshot{
		Sequence: seq,
		Tick:     s.tick,
		Elapsed:  s.now,
		Phase:    s.phase.String(),
		Score:    s.score,
		Player: PlayerSnapshot{
			Position:  s.player.Position,
			Yaw:       s.player.Yaw,
			Moving:    s.player.Moving,
			Animation: s.player.Animation.Clip(),
			AvatarURL: s.player.AvatarURL,
		},
		Enemies:       make([]EnemySnapshot, 0, len(s.order)),
		EnemyCount:    len(s.order),
		SwingActive:   s.swing.Active(),
		SwingProgress: s.swing.Progress(),
	}
	for _, id := range s.order {
		e := s.enemies[id]
		snap.Enemies = append(snap.Enemies, EnemySnapshot{
			ID:        e.ID,
			Position:  e.Position,
			Yaw:       e.Yaw,
			AvatarURL: e.AvatarURL,
		})
	}
	return snap
}

// Enemy finds an enemy by id.
func (s *Snapshot) Enemy(id EnemyID) (EnemySnapshot, bool) {
	for _, e := range s.Enemies {
		if e.ID == id {
			return e, true
		}
	}
	return EnemySnapshot{}, false
}
