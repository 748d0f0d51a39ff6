package geom

import "math"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max Vec3
}

// StandingBox builds the box of an upright body whose feet rest at base.
// halfExtent is applied to X and Z, height grows upward from base.Y.
func StandingBox(base Vec3, halfExtent, height float64) AABB {
	return AABB{
		Min: Vec3{base.X - halfExtent, base.Y, base.Z - halfExtent},
		Max: Vec3{base.X + halfExtent, base.Y + height, base.Z + halfExtent},
	}
}

// Intersects reports whether the boxes overlap. Touching faces count as overlap.
func (b AABB) Intersects(o AABB) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Contains reports whether p lies inside the box (inclusive).
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Center returns the midpoint of the box.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// OrientedBox is a box that is rotated about the vertical axis only.
// Center is the ground-level midpoint; the box spans [Center.Y, Center.Y+Height].
type OrientedBox struct {
	Center     Vec3
	Yaw        float64
	HalfLength float64 // along Forward(Yaw)
	HalfWidth  float64 // across Forward(Yaw)
	Height     float64
}

// Axes returns the unit forward and right vectors of the box on the ground plane.
func (o OrientedBox) Axes() (forward, right Vec3) {
	forward = Forward(o.Yaw)
	right = Vec3{X: forward.Z, Z: -forward.X}
	return forward, right
}

// Corners returns the four ground-plane corners, for rendering and debugging.
func (o OrientedBox) Corners() [4]Vec3 {
	f, r := o.Axes()
	fl := f.Scale(o.HalfLength)
	rw := r.Scale(o.HalfWidth)
	c := o.Center.Flat()
	return [4]Vec3{
		c.Add(fl).Add(rw),
		c.Add(fl).Sub(rw),
		c.Sub(fl).Sub(rw),
		c.Sub(fl).Add(rw),
	}
}

// Bounds returns the tightest AABB enclosing the oriented box.
func (o OrientedBox) Bounds() AABB {
	f, r := o.Axes()
	ex := math.Abs(f.X)*o.HalfLength + math.Abs(r.X)*o.HalfWidth
	ez := math.Abs(f.Z)*o.HalfLength + math.Abs(r.Z)*o.HalfWidth
	return AABB{
		Min: Vec3{o.Center.X - ex, o.Center.Y, o.Center.Z - ez},
		Max: Vec3{o.Center.X + ex, o.Center.Y + o.Height, o.Center.Z + ez},
	}
}

// IntersectsAABB runs a separating-axis test on the ground plane plus a
// vertical span check. Touching counts as intersecting.
func (o OrientedBox) IntersectsAABB(b AABB) bool {
	if o.Center.Y > b.Max.Y || o.Center.Y+o.Height < b.Min.Y {
		return false
	}

	f, r := o.Axes()
	bc := b.Center()
	hx := (b.Max.X - b.Min.X) / 2
	hz := (b.Max.Z - b.Min.Z) / 2
	dx := bc.X - o.Center.X
	dz := bc.Z - o.Center.Z

	axes := [4][2]float64{{1, 0}, {0, 1}, {f.X, f.Z}, {r.X, r.Z}}
	for _, a := range axes {
		dist := math.Abs(a[0]*dx + a[1]*dz)
		rb := math.Abs(a[0])*hx + math.Abs(a[1])*hz
		ro := math.Abs(a[0]*f.X+a[1]*f.Z)*o.HalfLength + math.Abs(a[0]*r.X+a[1]*r.Z)*o.HalfWidth
		if dist > rb+ro+epsilon {
			return false
		}
	}
	return true
}

// epsilon absorbs rounding from sin/cos so boxes that touch exactly still collide.
const epsilon = 1e-9
