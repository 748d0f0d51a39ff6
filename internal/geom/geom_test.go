package geom

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestNormalizeAngle verifies angles land in (-π, π]
func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"pi stays pi", math.Pi, math.Pi},
		{"minus pi maps to pi", -math.Pi, math.Pi},
		{"just over pi wraps", math.Pi + 0.5, -math.Pi + 0.5},
		{"many turns", 10*math.Pi + 0.25, 0.25},
		{"negative many turns", -10*math.Pi - 0.25, -0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAngle(tt.in)
			if !almostEqual(got, tt.want) {
				t.Errorf("NormalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if got <= -math.Pi || got > math.Pi {
				t.Errorf("NormalizeAngle(%v) = %v out of (-π, π]", tt.in, got)
			}
		})
	}
}

// TestTurnTowardShortestPath checks rotation never goes the long way round
func TestTurnTowardShortestPath(t *testing.T) {
	current := math.Pi - 0.1
	target := -math.Pi + 0.1

	// Shortest path crosses ±π: a half step should land exactly on π
	got := TurnToward(current, target, 0.5)
	if !almostEqual(math.Abs(got), math.Pi) {
		t.Errorf("Expected to cross the ±π seam, got %v", got)
	}

	// Full step reaches target
	if got := TurnToward(current, target, 1); !almostEqual(got, target) {
		t.Errorf("Expected %v, got %v", target, got)
	}

	// t above 1 is clamped
	if got := TurnToward(0, 1, 5); !almostEqual(got, 1) {
		t.Errorf("Expected overshoot to clamp to target, got %v", got)
	}
}

// TestYawForwardRoundTrip checks the yaw convention
func TestYawForwardRoundTrip(t *testing.T) {
	if y := Yaw(V3(0, 0, 1)); !almostEqual(y, 0) {
		t.Errorf("+Z should be yaw 0, got %v", y)
	}
	if y := Yaw(V3(1, 0, 0)); !almostEqual(y, math.Pi/2) {
		t.Errorf("+X should be yaw π/2, got %v", y)
	}
	for _, yaw := range []float64{0, 0.3, 1.2, -2.5, math.Pi} {
		f := Forward(yaw)
		if !almostEqual(NormalizeAngle(Yaw(f)), NormalizeAngle(yaw)) {
			t.Errorf("Yaw(Forward(%v)) = %v", yaw, Yaw(f))
		}
		if !almostEqual(f.FlatLen(), 1) {
			t.Errorf("Forward(%v) not unit: %v", yaw, f.FlatLen())
		}
	}
}

// TestClampFlat keeps height and clamps ground axes
func TestClampFlat(t *testing.T) {
	got := ClampFlat(V3(25, 7, -30), 20)
	if got != V3(20, 7, -20) {
		t.Errorf("Expected (20,7,-20), got %+v", got)
	}
}

// TestNormalizeZero leaves the zero vector alone
func TestNormalizeZero(t *testing.T) {
	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Errorf("Expected zero vector, got %+v", got)
	}
	if got := V3(3, 0, 4).Normalize(); !almostEqual(got.Len(), 1) {
		t.Errorf("Expected unit length, got %v", got.Len())
	}
}

// TestIsFinite rejects NaN and Inf
func TestIsFinite(t *testing.T) {
	if !V3(1, 2, 3).IsFinite() {
		t.Error("Finite vector reported as non-finite")
	}
	if V3(math.NaN(), 0, 0).IsFinite() {
		t.Error("NaN accepted")
	}
	if V3(0, 0, math.Inf(-1)).IsFinite() {
		t.Error("-Inf accepted")
	}
}

// TestAABBIntersects covers overlap, touching and separation
func TestAABBIntersects(t *testing.T) {
	a := StandingBox(V3(0, 0, 0), 0.5, 2)

	tests := []struct {
		name string
		b    AABB
		want bool
	}{
		{"same box", a, true},
		{"overlap", StandingBox(V3(0.5, 0, 0.5), 0.5, 2), true},
		{"touching face", StandingBox(V3(1, 0, 0), 0.5, 2), true},
		{"separated on x", StandingBox(V3(1.01, 0, 0), 0.5, 2), false},
		{"above", StandingBox(V3(0, 2.5, 0), 0.5, 2), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Intersects(tt.b); got != tt.want {
				t.Errorf("Intersects = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestOrientedBoxAxisAligned matches AABB results when yaw is zero
func TestOrientedBoxAxisAligned(t *testing.T) {
	o := OrientedBox{Center: V3(0, 1, 1), Yaw: 0, HalfLength: 1.5, HalfWidth: 0.25, Height: 2}
	bounds := o.Bounds()

	if !almostEqual(bounds.Min.Z, -0.5) || !almostEqual(bounds.Max.Z, 2.5) {
		t.Errorf("Unexpected Z span %v..%v", bounds.Min.Z, bounds.Max.Z)
	}
	if !almostEqual(bounds.Min.X, -0.25) || !almostEqual(bounds.Max.X, 0.25) {
		t.Errorf("Unexpected X span %v..%v", bounds.Min.X, bounds.Max.X)
	}

	probes := []Vec3{
		V3(0, 1, 0), V3(0, 1, 2.9), V3(0.7, 1, 1), V3(0, 1, -0.9),
		V3(0, 1, 5), V3(2.75, 1, 1), V3(0, 3.5, 1), V3(-0.8, 1, 1),
	}
	for _, p := range probes {
		enemy := StandingBox(p, 0.5, 2)
		if got, want := o.IntersectsAABB(enemy), bounds.Intersects(enemy); got != want {
			t.Errorf("Probe %+v: oriented=%v aabb=%v", p, got, want)
		}
	}
}

// TestOrientedBoxRotated checks the box follows its yaw
func TestOrientedBoxRotated(t *testing.T) {
	// Facing +X, centre 1 unit ahead of origin
	o := OrientedBox{Center: V3(1, 0, 0), Yaw: math.Pi / 2, HalfLength: 1.5, HalfWidth: 0.25, Height: 2}

	if !o.IntersectsAABB(StandingBox(V3(2, 0, 0), 0.5, 2)) {
		t.Error("Enemy ahead on +X should be hit")
	}
	if o.IntersectsAABB(StandingBox(V3(0, 0, 2), 0.5, 2)) {
		t.Error("Enemy on +Z should not be hit when facing +X")
	}

	// Diagonal facing: a body just off the blade corner stays clear
	diag := OrientedBox{Center: V3(0, 0, 0), Yaw: math.Pi / 4, HalfLength: 1.5, HalfWidth: 0.25, Height: 2}
	if diag.IntersectsAABB(StandingBox(V3(1.5, 0, -1.5), 0.5, 2)) {
		t.Error("Body perpendicular to a diagonal blade should be clear")
	}
	if !diag.IntersectsAABB(StandingBox(V3(1.2, 0, 1.2), 0.5, 2)) {
		t.Error("Body along a diagonal blade should be hit")
	}
}

// TestCorners returns four points at the expected distance
func TestCorners(t *testing.T) {
	o := OrientedBox{Center: V3(0, 0, 0), Yaw: 0.7, HalfLength: 1.5, HalfWidth: 0.25}
	want := math.Hypot(1.5, 0.25)
	for i, c := range o.Corners() {
		if !almostEqual(c.FlatLen(), want) {
			t.Errorf("Corner %d at distance %v, want %v", i, c.FlatLen(), want)
		}
	}
}
