package game

import (
	"time"

	"sword-arena/internal/geom"
)

// Tuning holds every balance constant of the simulation.
// These are server-authoritative; clients only ever see them read-only.
type Tuning struct {
	// Arena
	ArenaHalfExtent float64   `json:"arenaHalfExtent" toml:"arena_half_extent"` // player X/Z clamp
	PlayerStart     geom.Vec3 `json:"playerStart" toml:"-"`

	// Movement
	PlayerSpeed       float64 `json:"playerSpeed" toml:"player_speed"`             // units per second
	TurnRate          float64 `json:"turnRate" toml:"turn_rate"`                   // yaw smoothing factor per second
	EnemySpeed        float64 `json:"enemySpeed" toml:"enemy_speed"`               // units per second
	EnemyStopDistance float64 `json:"enemyStopDistance" toml:"enemy_stop_distance"` // enemies stop closer than this
	CatchDistance     float64 `json:"catchDistance" toml:"catch_distance"`         // game ends below this

	// Spawning
	MaxEnemies               int           `json:"maxEnemies" toml:"max_enemies"`
	MinSpawnInterval         time.Duration `json:"minSpawnInterval" toml:"min_spawn_interval"`
	SpawnRadius              float64       `json:"spawnRadius" toml:"spawn_radius"`
	SpawnMinDistanceFactor   float64       `json:"spawnMinDistanceFactor" toml:"spawn_min_distance_factor"`
	SpawnHeight              float64       `json:"spawnHeight" toml:"spawn_height"`
	SpawnAttempts            int           `json:"spawnAttempts" toml:"spawn_attempts"`
	PerimeterEdgeChance      float64       `json:"perimeterEdgeChance" toml:"perimeter_edge_chance"`
	PerimeterInteriorTries   int           `json:"perimeterInteriorTries" toml:"perimeter_interior_tries"`
	PerimeterInteriorMinDist float64       `json:"perimeterInteriorMinDist" toml:"perimeter_interior_min_dist"`

	// Sword
	SwingDuration   time.Duration `json:"swingDuration" toml:"swing_duration"`
	SwordOffset     float64       `json:"swordOffset" toml:"sword_offset"`         // hitbox centre ahead of the player
	SwordHalfLength float64       `json:"swordHalfLength" toml:"sword_half_length"` // along facing
	SwordHalfWidth  float64       `json:"swordHalfWidth" toml:"sword_half_width"`   // across facing
	SwordHeight     float64       `json:"swordHeight" toml:"sword_height"`
	EnemyHalfExtent float64       `json:"enemyHalfExtent" toml:"enemy_half_extent"`
	EnemyHeight     float64       `json:"enemyHeight" toml:"enemy_height"`
	HitScore        int           `json:"hitScore" toml:"hit_score"`

	// Clock
	MaxDelta float64 `json:"maxDelta" toml:"max_delta"` // seconds; larger frame deltas are capped
}

// DefaultTuning returns the canonical balance values.
func DefaultTuning() Tuning {
	return Tuning{
		ArenaHalfExtent: 20,
		PlayerStart:     geom.V3(0, 1, 0),

		PlayerSpeed:       5,
		TurnRate:          10,
		EnemySpeed:        1.5,
		EnemyStopDistance: 0.1,
		CatchDistance:     1,

		MaxEnemies:               10,
		MinSpawnInterval:         2 * time.Second,
		SpawnRadius:              15,
		SpawnMinDistanceFactor:   0.8, // 12 units at the default radius
		SpawnHeight:              1,
		SpawnAttempts:            3,
		PerimeterEdgeChance:      0.5,
		PerimeterInteriorTries:   10,
		PerimeterInteriorMinDist: 10,

		SwingDuration:   400 * time.Millisecond, // matches the visible swing animation
		SwordOffset:     1.0,
		SwordHalfLength: 1.5,
		SwordHalfWidth:  0.25,
		SwordHeight:     2,
		EnemyHalfExtent: 0.5,
		EnemyHeight:     2,
		HitScore:        10,

		MaxDelta: 0.25,
	}
}

// MinSpawnDistance is the closest an enemy may appear to the player.
func (t Tuning) MinSpawnDistance() float64 {
	return t.SpawnRadius * t.SpawnMinDistanceFactor
}
