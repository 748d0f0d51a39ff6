package game

import (
	"math"

	"sword-arena/internal/geom"
)

// MovementController turns input into player motion and drives enemy pursuit.
// Enemies walk straight at the player; there is no pathfinding.
type MovementController struct {
	tuning Tuning
}

// NewMovementController creates a controller with the given balance values.
func NewMovementController(t Tuning) *MovementController {
	return &MovementController{tuning: t}
}

// MovePlayer applies one tick of input. Diagonals are normalised so they are
// no faster than a single axis; facing eases toward the travel direction.
func (m *MovementController) MovePlayer(s *GameState, in Input, dt float64) {
	if s.phase != PhasePlaying {
		return
	}
	p := &s.player
	p.Moving = in.Moving()

	dir := in.Direction().Normalize()
	if dir.FlatLen() == 0 {
		// Opposing keys cancel out
		p.Moving = false
		return
	}

	p.Position = clampToArena(p.Position.Add(dir.Scale(m.tuning.PlayerSpeed*dt)), m.tuning.ArenaHalfExtent)
	p.Yaw = geom.TurnToward(p.Yaw, geom.Yaw(dir), m.tuning.TurnRate*dt)
}

// MoveEnemies steps every enemy toward the player on the ground plane and
// snaps its facing onto the player. Enemies are not clamped to the arena.
func (m *MovementController) MoveEnemies(s *GameState, dt float64) {
	if s.phase != PhasePlaying {
		return
	}
	target := s.player.Position
	for _, id := range s.order {
		e := s.enemies[id]
		toPlayer := target.Sub(e.Position).Flat()
		dist := toPlayer.FlatLen()
		if dist <= m.tuning.EnemyStopDistance {
			continue
		}
		step := math.Min(m.tuning.EnemySpeed*dt, dist)
		e.Position = e.Position.Add(toPlayer.Scale(step / dist))
		e.Yaw = geom.Yaw(toPlayer)
	}
}

// CheckCaught ends the game when any enemy is within catch distance of the
// player. The first qualifying enemy (in spawn order) is returned.
func (m *MovementController) CheckCaught(s *GameState) (EnemyID, bool) {
	if s.phase != PhasePlaying {
		return "", false
	}
	for _, id := range s.order {
		if geom.FlatDistance(s.enemies[id].Position, s.player.Position) < m.tuning.CatchDistance {
			s.End()
			return id, true
		}
	}
	return "", false
}

func clampToArena(p Position, halfExtent float64) Position {
	return geom.ClampFlat(p, halfExtent)
}

func normalizeYaw(yaw float64) float64 {
	return geom.NormalizeAngle(yaw)
}
