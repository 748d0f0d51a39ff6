package game

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"sword-arena/internal/geom"
)

// Placement picks a candidate spawn position. The spawner validates it.
type Placement interface {
	Name() string
	Place(rng *rand.Rand, player Position, t Tuning) Position
}

// Placement strategy names accepted by PlacementByName.
const (
	PlacementRing      = "ring"
	PlacementPerimeter = "perimeter"
)

// PlacementByName resolves a strategy name from configuration.
func PlacementByName(name string) (Placement, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PlacementRing:
		return RingPlacement{}, nil
	case PlacementPerimeter:
		return PerimeterPlacement{}, nil
	default:
		return nil, fmt.Errorf("unknown spawn placement %q", name)
	}
}

// RingPlacement drops enemies on a circle of SpawnRadius around the player.
type RingPlacement struct{}

// Name implements Placement.
func (RingPlacement) Name() string { return PlacementRing }

// Place implements Placement.
func (RingPlacement) Place(rng *rand.Rand, player Position, t Tuning) Position {
	angle := rng.Float64() * 2 * math.Pi
	return Position{
		X: player.X + math.Cos(angle)*t.SpawnRadius,
		Y: t.SpawnHeight,
		Z: player.Z + math.Sin(angle)*t.SpawnRadius,
	}
}

// PerimeterPlacement splits spawns between the arena edges and the interior.
// Interior points must be PerimeterInteriorMinDist from the player; after
// PerimeterInteriorTries misses it falls back to the (-h, -h) corner.
type PerimeterPlacement struct{}

// Name implements Placement.
func (PerimeterPlacement) Name() string { return PlacementPerimeter }

// Place implements Placement.
func (PerimeterPlacement) Place(rng *rand.Rand, player Position, t Tuning) Position {
	h := t.ArenaHalfExtent
	if rng.Float64() < t.PerimeterEdgeChance {
		along := (rng.Float64()*2 - 1) * h
		switch rng.Intn(4) {
		case 0: // north
			return Position{X: along, Y: t.SpawnHeight, Z: -h}
		case 1: // east
			return Position{X: h, Y: t.SpawnHeight, Z: along}
		case 2: // south
			return Position{X: along, Y: t.SpawnHeight, Z: h}
		default: // west
			return Position{X: -h, Y: t.SpawnHeight, Z: along}
		}
	}

	for i := 0; i < t.PerimeterInteriorTries; i++ {
		p := Position{
			X: (rng.Float64()*2 - 1) * h,
			Y: t.SpawnHeight,
			Z: (rng.Float64()*2 - 1) * h,
		}
		if geom.FlatDistance(p, player) > t.PerimeterInteriorMinDist {
			return p
		}
	}
	return Position{X: -h, Y: t.SpawnHeight, Z: -h}
}

// SpawnerStats counts spawner outcomes for metrics.
type SpawnerStats struct {
	Spawned  uint64 `json:"spawned"`
	Rejected uint64 `json:"rejected"` // placements closer than the minimum distance
	Skipped  uint64 `json:"skipped"`  // open gates that produced no enemy
}

// EnemySpawner decides each tick whether to add an enemy and where.
type EnemySpawner struct {
	tuning    Tuning
	placement Placement
	rng       *rand.Rand
	stats     SpawnerStats
}

// NewEnemySpawner creates a spawner. A nil placement means the ring.
func NewEnemySpawner(t Tuning, placement Placement, rng *rand.Rand) *EnemySpawner {
	if placement == nil {
		placement = RingPlacement{}
	}
	return &EnemySpawner{tuning: t, placement: placement, rng: rng}
}

// GateOpen reports whether the spawn gate permits an enemy this tick:
// playing, below the cap, and at least MinSpawnInterval since the last success.
func (sp *EnemySpawner) GateOpen(s *GameState) bool {
	return s.phase == PhasePlaying &&
		len(s.order) < sp.tuning.MaxEnemies &&
		s.now-s.lastSpawn >= sp.tuning.MinSpawnInterval
}

// Update spawns at most one enemy. A tick where every placement is rejected
// is skipped; the gate stays open so the next tick tries again.
func (sp *EnemySpawner) Update(s *GameState) (EnemyID, bool) {
	if !sp.GateOpen(s) {
		return "", false
	}

	minDist := sp.tuning.MinSpawnDistance()
	attempts := sp.tuning.SpawnAttempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		p := sp.placement.Place(sp.rng, s.player.Position, sp.tuning)
		if geom.FlatDistance(p, s.player.Position) < minDist {
			sp.stats.Rejected++
			continue
		}
		sp.stats.Spawned++
		return s.SpawnEnemy(p), true
	}
	sp.stats.Skipped++
	return "", false
}

// Placement returns the active strategy.
func (sp *EnemySpawner) Placement() Placement { return sp.placement }

// Stats returns outcome counters.
func (sp *EnemySpawner) Stats() SpawnerStats { return sp.stats }
