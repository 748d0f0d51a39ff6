package game

import "sword-arena/internal/geom"

// SwordHitbox builds the blade's collision box for a player.
// The box sits SwordOffset ahead of the player along its facing and rotates
// with it. Vertically it spans [player.Y, player.Y+SwordHeight].
func SwordHitbox(p Player, t Tuning) geom.OrientedBox {
	centre := p.Position.Add(geom.Forward(p.Yaw).Scale(t.SwordOffset))
	centre.Y = p.Position.Y
	return geom.OrientedBox{
		Center:     centre,
		Yaw:        p.Yaw,
		HalfLength: t.SwordHalfLength,
		HalfWidth:  t.SwordHalfWidth,
		Height:     t.SwordHeight,
	}
}

// EnemyHitbox is the body box of an enemy standing at its position.
func EnemyHitbox(e Enemy, t Tuning) geom.AABB {
	return geom.StandingBox(e.Position, t.EnemyHalfExtent, t.EnemyHeight)
}
