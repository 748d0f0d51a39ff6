package game

import (
	"math"
	"math/rand"
	"testing"

	"sword-arena/internal/geom"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func playingState() *GameState {
	s := newTestState()
	s.Start()
	return s
}

// TestMovePlayerAxes verifies key-to-axis mapping and speed
func TestMovePlayerAxes(t *testing.T) {
	tests := []struct {
		name   string
		in     Input
		dx, dz float64
	}{
		{"forward is z-", Input{Forward: true}, 0, -0.5},
		{"backward is z+", Input{Backward: true}, 0, 0.5},
		{"left is x-", Input{Left: true}, -0.5, 0},
		{"right is x+", Input{Right: true}, 0.5, 0},
		{"diagonal is normalised", Input{Forward: true, Right: true}, 0.5 / math.Sqrt2, -0.5 / math.Sqrt2},
		{"opposing keys cancel", Input{Left: true, Right: true}, 0, 0},
	}

	m := NewMovementController(DefaultTuning())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := playingState()
			m.MovePlayer(s, tt.in, 0.1)
			p := s.Player().Position
			if !near(p.X, tt.dx) || !near(p.Z, tt.dz) || p.Y != 1 {
				t.Errorf("position = %+v, want (%v, 1, %v)", p, tt.dx, tt.dz)
			}
		})
	}
}

// TestMovePlayerDiagonalSpeed verifies diagonal displacement equals axial displacement
func TestMovePlayerDiagonalSpeed(t *testing.T) {
	m := NewMovementController(DefaultTuning())
	s := playingState()
	m.MovePlayer(s, Input{Backward: true, Left: true}, 0.2)
	if d := s.Player().Position.FlatLen(); !near(d, 1.0) {
		t.Errorf("diagonal moved %v, want 1.0", d)
	}
}

// TestMovePlayerStaysInArena drives random input and checks the bounds every tick
func TestMovePlayerStaysInArena(t *testing.T) {
	m := NewMovementController(DefaultTuning())
	s := playingState()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 5000; i++ {
		in := Input{
			Forward:  rng.Intn(2) == 0,
			Backward: rng.Intn(4) == 0,
			Left:     rng.Intn(2) == 0,
			Right:    rng.Intn(5) == 0,
		}
		m.MovePlayer(s, in, 0.25)
		p := s.Player().Position
		if math.Abs(p.X) > 20 || math.Abs(p.Z) > 20 {
			t.Fatalf("tick %d: player left arena at %+v", i, p)
		}
	}
}

// TestMovePlayerFacing verifies smoothing toward the travel direction
func TestMovePlayerFacing(t *testing.T) {
	m := NewMovementController(DefaultTuning())

	t.Run("converges on travel direction", func(t *testing.T) {
		s := playingState()
		for i := 0; i < 100; i++ {
			m.MovePlayer(s, Input{Right: true}, 0.05)
		}
		if yaw := s.Player().Yaw; math.Abs(yaw-math.Pi/2) > 1e-6 {
			t.Errorf("yaw = %v, want π/2", yaw)
		}
	})

	t.Run("turns the short way across ±π", func(t *testing.T) {
		s := playingState()
		s.SetPlayerYaw(-3.0)
		m.MovePlayer(s, Input{Forward: true}, 0.05) // target yaw is π
		yaw := s.Player().Yaw
		if yaw >= -3.0 || yaw < -math.Pi {
			t.Errorf("yaw = %v, want slightly below -3.0", yaw)
		}
	})

	t.Run("idle keeps facing", func(t *testing.T) {
		s := playingState()
		s.SetPlayerYaw(1.0)
		m.MovePlayer(s, Input{}, 0.1)
		if s.Player().Yaw != 1.0 || s.Player().Moving {
			t.Errorf("idle changed yaw to %v", s.Player().Yaw)
		}
	})
}

// TestMovementOnlyWhilePlaying verifies no motion in Ready or Ended
func TestMovementOnlyWhilePlaying(t *testing.T) {
	m := NewMovementController(DefaultTuning())
	s := newTestState()
	m.MovePlayer(s, Input{Right: true}, 0.1)
	if s.Player().Position != geom.V3(0, 1, 0) {
		t.Error("player moved while Ready")
	}

	s.Start()
	id := s.SpawnEnemy(geom.V3(10, 1, 0))
	s.End()
	m.MoveEnemies(s, 1)
	if e, _ := s.Enemy(id); e.Position != geom.V3(10, 1, 0) {
		t.Error("enemy moved after the game ended")
	}
}

// TestEnemyPursuit verifies direct pursuit with instant facing
func TestEnemyPursuit(t *testing.T) {
	m := NewMovementController(DefaultTuning())
	s := playingState()
	a := s.SpawnEnemy(geom.V3(10, 1, 0))
	b := s.SpawnEnemy(geom.V3(30, 1, 0)) // outside the arena
	c := s.SpawnEnemy(geom.V3(0, 1, 0.05))

	m.MoveEnemies(s, 1)

	ea, _ := s.Enemy(a)
	if !near(ea.Position.X, 8.5) || ea.Position.Y != 1 || ea.Position.Z != 0 {
		t.Errorf("enemy a at %+v, want (8.5, 1, 0)", ea.Position)
	}
	if !near(ea.Yaw, -math.Pi/2) {
		t.Errorf("enemy a yaw = %v, want -π/2", ea.Yaw)
	}

	eb, _ := s.Enemy(b)
	if !near(eb.Position.X, 28.5) {
		t.Errorf("enemy b at %+v, should not be clamped to the arena", eb.Position)
	}

	ec, _ := s.Enemy(c)
	if ec.Position != geom.V3(0, 1, 0.05) {
		t.Errorf("enemy within stop distance moved to %+v", ec.Position)
	}
}

// TestCheckCaught verifies the termination threshold
func TestCheckCaught(t *testing.T) {
	m := NewMovementController(DefaultTuning())

	t.Run("at exactly catch distance", func(t *testing.T) {
		s := playingState()
		s.SpawnEnemy(geom.V3(1, 1, 0))
		if _, caught := m.CheckCaught(s); caught || s.Phase() != PhasePlaying {
			t.Error("distance 1.0 should not end the game")
		}
	})

	t.Run("inside catch distance", func(t *testing.T) {
		s := playingState()
		s.SpawnEnemy(geom.V3(5, 1, 0))
		first := s.SpawnEnemy(geom.V3(0.9, 1, 0))
		s.SpawnEnemy(geom.V3(0, 1, 0.5))
		id, caught := m.CheckCaught(s)
		if !caught || id != first {
			t.Errorf("caught = %v by %q, want %q", caught, id, first)
		}
		if s.Phase() != PhaseEnded {
			t.Errorf("phase = %v, want ended", s.Phase())
		}

		// Already ended: nothing further happens
		if _, again := m.CheckCaught(s); again {
			t.Error("second check should be a no-op")
		}
		ended := 0
		for _, ev := range s.DrainEvents() {
			if ev.Type == EventTypeGameEnded {
				ended++
			}
		}
		if ended != 1 {
			t.Errorf("GameEnded emitted %d times", ended)
		}
	})
}
