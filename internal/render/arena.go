// Package render draws a top-down picture of an arena snapshot with gg.
// The HTTP API serves it as /api/arena.png.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"

	"sword-arena/internal/game"
)

// DefaultSize is the edge length of the rendered square image in pixels.
const DefaultSize = 512

const (
	minSize   = 64
	maxSize   = 2048
	gridStep  = 5.0 // world units between grid lines
	hudHeight = 24.0
)

var (
	colorBackground = color.RGBA{12, 12, 28, 255}
	colorGrid       = color.RGBA{30, 30, 45, 255}
	colorBorder     = color.RGBA{90, 90, 120, 255}
	colorPlayer     = color.RGBA{83, 200, 255, 255}
	colorPlayerHit  = color.RGBA{255, 220, 90, 255}
	colorEnemy      = color.RGBA{255, 62, 62, 255}
	colorSword      = color.RGBA{240, 240, 255, 200}
	colorShadow     = color.RGBA{0, 0, 0, 128}
	colorHUD        = color.RGBA{230, 230, 240, 255}
	colorOverlay    = color.RGBA{0, 0, 0, 150}
)

// ClampSize keeps a requested image size within the supported range.
// Zero or negative means DefaultSize.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size < minSize:
		return minSize
	case size > maxSize:
		return maxSize
	}
	return size
}

// view maps world X/Z onto image pixels. Forward (z-) points up.
type view struct {
	scale  float64
	offset float64
	half   float64
}

func newView(size int, halfExtent float64) view {
	margin := 8.0
	span := float64(size) - 2*margin
	return view{
		scale:  span / (2 * halfExtent),
		offset: margin,
		half:   halfExtent,
	}
}

func (v view) point(x, z float64) (float64, float64) {
	return v.offset + (x+v.half)*v.scale, v.offset + (z+v.half)*v.scale
}

// AvatarSource resolves avatar URLs to images without blocking. A nil
// result means the shape is drawn without a picture.
type AvatarSource interface {
	GetOrFetch(url string) image.Image
}

// Arena renders snap as a square image of the given size.
func Arena(snap *game.Snapshot, t game.Tuning, size int) image.Image {
	return ArenaWithAvatars(snap, t, size, nil)
}

// ArenaWithAvatars is Arena with entity avatars drawn from src.
func ArenaWithAvatars(snap *game.Snapshot, t game.Tuning, size int, src AvatarSource) image.Image {
	size = ClampSize(size)
	dc := gg.NewContext(size, size)
	v := newView(size, t.ArenaHalfExtent)

	drawBackground(dc, v, size)
	if snap != nil {
		for _, e := range snap.Enemies {
			drawEnemy(dc, v, e, t, lookup(src, e.AvatarURL))
		}
		if snap.SwingActive {
			drawSword(dc, v, snap, t)
		}
		drawPlayer(dc, v, snap.Player, t, lookup(src, snap.Player.AvatarURL))
		drawHUD(dc, snap, size)
	}
	return dc.Image()
}

// WritePNG encodes the rendered snapshot as PNG. src may be nil.
func WritePNG(w io.Writer, snap *game.Snapshot, t game.Tuning, size int, src AvatarSource) error {
	dc := gg.NewContextForImage(ArenaWithAvatars(snap, t, size, src))
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode arena png: %w", err)
	}
	return nil
}

func drawBackground(dc *gg.Context, v view, size int) {
	dc.SetColor(colorBackground)
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()

	dc.SetColor(colorGrid)
	dc.SetLineWidth(1)
	for w := -v.half; w <= v.half+1e-9; w += gridStep {
		x0, z0 := v.point(w, -v.half)
		x1, z1 := v.point(w, v.half)
		dc.DrawLine(x0, z0, x1, z1)
		dc.Stroke()
		x0, z0 = v.point(-v.half, w)
		x1, z1 = v.point(v.half, w)
		dc.DrawLine(x0, z0, x1, z1)
		dc.Stroke()
	}

	x0, z0 := v.point(-v.half, -v.half)
	dc.SetColor(colorBorder)
	dc.SetLineWidth(2)
	dc.DrawRectangle(x0, z0, 2*v.half*v.scale, 2*v.half*v.scale)
	dc.Stroke()
}

func lookup(src AvatarSource, url string) image.Image {
	if src == nil || url == "" {
		return nil
	}
	return src.GetOrFetch(url)
}

// drawAvatar paints img scaled into the circle of radius r around (x, z).
func drawAvatar(dc *gg.Context, img image.Image, x, z, r float64) {
	b := img.Bounds()
	edge := math.Min(float64(b.Dx()), float64(b.Dy()))
	if edge <= 0 {
		return
	}
	s := 2 * r / edge

	dc.Push()
	dc.DrawCircle(x, z, r)
	dc.Clip()
	dc.Translate(x, z)
	dc.Scale(s, s)
	dc.DrawImageAnchored(img, 0, 0, 0.5, 0.5)
	dc.Pop()
	// Pop keeps the mask
	dc.ResetClip()
}

func drawEnemy(dc *gg.Context, v view, e game.EnemySnapshot, t game.Tuning, avatar image.Image) {
	x, z := v.point(e.Position.X, e.Position.Z)
	r := math.Max(t.EnemyHalfExtent*v.scale, 2)

	dc.SetColor(colorShadow)
	dc.DrawCircle(x, z+r*0.3, r)
	dc.Fill()

	dc.SetColor(colorEnemy)
	dc.DrawRectangle(x-r, z-r, 2*r, 2*r)
	dc.Fill()
	if avatar != nil {
		drawAvatar(dc, avatar, x, z, r*0.85)
	}

	drawFacing(dc, x, z, e.Yaw, r*1.4)
}

func drawPlayer(dc *gg.Context, v view, p game.PlayerSnapshot, t game.Tuning, avatar image.Image) {
	x, z := v.point(p.Position.X, p.Position.Z)
	r := math.Max(0.6*v.scale, 3)

	dc.SetColor(colorShadow)
	dc.DrawCircle(x, z+r*0.3, r)
	dc.Fill()

	if p.Animation == game.AnimAttack.Clip() {
		dc.SetColor(colorPlayerHit)
	} else {
		dc.SetColor(colorPlayer)
	}
	dc.DrawCircle(x, z, r)
	dc.Fill()
	if avatar != nil {
		drawAvatar(dc, avatar, x, z, r)
	}

	dc.SetColor(color.White)
	dc.SetLineWidth(2)
	dc.DrawCircle(x, z, r)
	dc.Stroke()

	drawFacing(dc, x, z, p.Yaw, r*1.6)
}

// drawSword fills the rotated blade rectangle used by hit detection.
func drawSword(dc *gg.Context, v view, snap *game.Snapshot, t game.Tuning) {
	blade := game.SwordHitbox(game.Player{Position: snap.Player.Position, Yaw: snap.Player.Yaw}, t)
	corners := blade.Corners()

	dc.SetColor(colorSword)
	for i, c := range corners {
		x, z := v.point(c.X, c.Z)
		if i == 0 {
			dc.MoveTo(x, z)
		} else {
			dc.LineTo(x, z)
		}
	}
	dc.ClosePath()
	dc.Fill()
}

// drawFacing draws a short line from (x, z) along yaw.
func drawFacing(dc *gg.Context, x, z, yaw, length float64) {
	dc.SetColor(color.White)
	dc.SetLineWidth(2)
	dc.DrawLine(x, z, x+math.Sin(yaw)*length, z+math.Cos(yaw)*length)
	dc.Stroke()
}

func drawHUD(dc *gg.Context, snap *game.Snapshot, size int) {
	dc.SetColor(colorOverlay)
	dc.DrawRectangle(0, 0, float64(size), hudHeight)
	dc.Fill()

	dc.SetColor(colorHUD)
	dc.DrawString(fmt.Sprintf("SCORE %d   ENEMIES %d   %s", snap.Score, snap.EnemyCount, snap.Phase), 8, 16)

	if snap.Phase == game.PhaseEnded.String() {
		dc.SetColor(colorOverlay)
		dc.DrawRectangle(0, 0, float64(size), float64(size))
		dc.Fill()
		dc.SetColor(colorEnemy)
		dc.DrawStringAnchored("GAME OVER", float64(size)/2, float64(size)/2, 0.5, 0.5)
	}
}
