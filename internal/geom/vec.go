// Package geom provides the small amount of vector and box math the arena
// simulation needs. Everything here is value-typed and allocation free.
//
// World convention: X and Z span the ground plane, Y is height.
package geom

import "math"

// Vec3 is a position or direction in world space.
type Vec3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// V3 is shorthand for building a Vec3.
func V3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Len returns the euclidean length of v.
func (v Vec3) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Flat drops the height component.
func (v Vec3) Flat() Vec3 {
	return Vec3{X: v.X, Z: v.Z}
}

// FlatLen returns the length of v projected on the ground plane.
func (v Vec3) FlatLen() float64 {
	return math.Hypot(v.X, v.Z)
}

// Normalize returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// IsFinite reports whether every component is a real number.
func (v Vec3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// FlatDistance is the distance between a and b ignoring height.
func FlatDistance(a, b Vec3) float64 {
	return math.Hypot(a.X-b.X, a.Z-b.Z)
}

// Clamp restricts val to [lo, hi].
func Clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// ClampFlat clamps X and Z to [-halfExtent, halfExtent], leaving Y untouched.
func ClampFlat(v Vec3, halfExtent float64) Vec3 {
	v.X = Clamp(v.X, -halfExtent, halfExtent)
	v.Z = Clamp(v.Z, -halfExtent, halfExtent)
	return v
}

// Yaw returns the heading of a ground-plane direction, measured from +Z toward +X.
// This matches atan2(dx, dz): yaw 0 faces +Z, yaw π/2 faces +X.
func Yaw(dir Vec3) float64 {
	return math.Atan2(dir.X, dir.Z)
}

// Forward returns the unit ground-plane direction for a yaw angle.
func Forward(yaw float64) Vec3 {
	return Vec3{X: math.Sin(yaw), Z: math.Cos(yaw)}
}

// NormalizeAngle maps an angle into (-π, π].
// Uses modulo arithmetic, so it terminates in O(1) for any finite input.
func NormalizeAngle(angle float64) float64 {
	const twoPi = 2 * math.Pi
	angle = math.Mod(angle, twoPi)
	if angle <= -math.Pi {
		angle += twoPi
	} else if angle > math.Pi {
		angle -= twoPi
	}
	return angle
}

// TurnToward rotates current toward target along the shortest arc by fraction t of
// the remaining difference. t is clamped to [0, 1]; the result is normalized.
func TurnToward(current, target, t float64) float64 {
	t = Clamp(t, 0, 1)
	diff := NormalizeAngle(target - current)
	return NormalizeAngle(current + diff*t)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
