package game

import (
	"sort"

	"sword-arena/internal/game/spatial"
)

// broadPhaseCell is the grid cell size in world units. Roughly the sword's reach,
// so a swing touches at most a handful of cells.
const broadPhaseCell = 4.0

// CombatResolver tests the live sword against every enemy and applies hits.
//
// Evaluation works on a snapshot of the enemy ids taken before any removal,
// and removals are applied afterwards, so no enemy is tested twice and
// removal never disturbs iteration.
type CombatResolver struct {
	tuning Tuning
	grid   *spatial.SpatialGrid

	// Per-tick scratch, reused to avoid allocations
	ids  []EnemyID
	hits []EnemyID
	cand []int

	// Broad-phase figures of the last Resolve; zero when it did not run
	gridStats spatial.GridStats
}

// NewCombatResolver creates a resolver with a broad-phase grid over the arena.
func NewCombatResolver(t Tuning) *CombatResolver {
	h := t.ArenaHalfExtent
	return &CombatResolver{
		tuning: t,
		grid:   spatial.NewSpatialGrid(-h, -h, 2*h, 2*h, broadPhaseCell, t.MaxEnemies),
	}
}

// Resolve runs one tick of combat. It does nothing unless a swing is active
// and the game is playing. Returns the ids that were hit, in spawn order.
// The returned slice is reused by the next call.
func (c *CombatResolver) Resolve(s *GameState) []EnemyID {
	c.hits = c.hits[:0]
	c.cand = c.cand[:0]
	c.gridStats = spatial.GridStats{}
	if s.phase != PhasePlaying || !s.swing.Active() || len(s.order) == 0 {
		return c.hits
	}

	blade := SwordHitbox(s.player, c.tuning)
	bounds := blade.Bounds()

	// Broad phase: bucket enemies, then gather those near the blade's bounds
	c.ids = append(c.ids[:0], s.order...)
	c.grid.Clear()
	for i, id := range c.ids {
		pos := s.enemies[id].Position
		c.grid.Insert(uint32(i), pos.X, pos.Z)
	}
	c.gridStats = c.grid.Stats()
	margin := c.tuning.EnemyHalfExtent
	for _, idx := range c.grid.QueryRect(bounds.Min.X-margin, bounds.Min.Z-margin, bounds.Max.X+margin, bounds.Max.Z+margin) {
		c.cand = append(c.cand, int(idx))
	}
	sort.Ints(c.cand)

	// Narrow phase against the snapshot
	for _, i := range c.cand {
		e := s.enemies[c.ids[i]]
		if blade.IntersectsAABB(EnemyHitbox(*e, c.tuning)) {
			c.hits = append(c.hits, e.ID)
		}
	}

	// Apply
	for _, id := range c.hits {
		e, ok := s.enemies[id]
		if !ok {
			continue
		}
		pos := e.Position
		s.RemoveEnemy(id)
		s.AddScore(c.tuning.HitScore)
		s.emit(Event{Type: EventTypeEnemyHit, EnemyID: id, Position: &pos})
	}
	return c.hits
}

// BroadPhase reports the grid occupancy and candidate count of the last
// Resolve call. Both are zero when no swing was tested.
func (c *CombatResolver) BroadPhase() (spatial.GridStats, int) {
	return c.gridStats, len(c.cand)
}
