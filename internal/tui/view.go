// Package tui plays the arena in a terminal: tcell for drawing and keys,
// beep for sound effects.
package tui

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"sword-arena/internal/game"
)

// Canvas is the part of tcell.Screen the renderer draws on.
type Canvas interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Size() (width, height int)
	Clear()
	Show()
}

const helpLine = "WASD/arrows move  space swing  r restart  q quit"

var (
	styleBorder = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleHUD    = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleHelp   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleEnemy  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	stylePlayer = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleAttack = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleSword  = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleBanner = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow)
	styleOver   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorRed)
)

// Glyphs used on the arena grid.
const (
	GlyphPlayer = '@'
	GlyphEnemy  = 'E'
)

// Renderer draws snapshots onto a canvas. The top row is the HUD, the bottom
// row the key help, and the arena fills the rest.
type Renderer struct {
	canvas Canvas
	tuning game.Tuning
}

// NewRenderer creates a renderer for an arena with the given tuning.
func NewRenderer(c Canvas, t game.Tuning) *Renderer {
	return &Renderer{canvas: c, tuning: t}
}

// grid maps world X/Z onto arena cells inside the border.
type grid struct {
	left, top     int
	width, height int // interior cells
	half          float64
}

func (r *Renderer) grid() (grid, bool) {
	w, h := r.canvas.Size()
	g := grid{left: 1, top: 2, width: w - 2, height: h - 4, half: r.tuning.ArenaHalfExtent}
	return g, g.width >= 3 && g.height >= 3 && g.half > 0
}

// cell returns the terminal cell of a world position, clamped to the interior.
func (g grid) cell(x, z float64) (int, int) {
	cx := int(math.Floor((x + g.half) / (2 * g.half) * float64(g.width)))
	cz := int(math.Floor((z + g.half) / (2 * g.half) * float64(g.height)))
	return g.left + clampInt(cx, 0, g.width-1), g.top + clampInt(cz, 0, g.height-1)
}

// Draw renders snap and shows the frame.
func (r *Renderer) Draw(snap *game.Snapshot) {
	r.canvas.Clear()
	_, h := r.canvas.Size()

	g, ok := r.grid()
	if !ok {
		r.text(0, 0, "terminal too small", styleHUD)
		r.canvas.Show()
		return
	}

	r.text(0, 0, fmt.Sprintf(" SWORD ARENA  score %d  enemies %d  %s ", snap.Score, snap.EnemyCount, snap.Phase), styleHUD)
	r.border(g)

	for _, e := range snap.Enemies {
		x, y := g.cell(e.Position.X, e.Position.Z)
		r.canvas.SetContent(x, y, GlyphEnemy, nil, styleEnemy)
	}
	if snap.SwingActive {
		r.sword(g, snap.Player)
	}

	px, py := g.cell(snap.Player.Position.X, snap.Player.Position.Z)
	style := stylePlayer
	if snap.Player.Animation == game.AnimAttack.Clip() {
		style = styleAttack
	}
	r.canvas.SetContent(px, py, GlyphPlayer, nil, style)

	switch snap.Phase {
	case game.PhaseReady.String():
		r.centered(g, " press space or enter to start ", styleBanner)
	case game.PhaseEnded.String():
		r.centered(g, fmt.Sprintf(" GAME OVER  score %d  press r to restart ", snap.Score), styleOver)
	}

	r.text(0, h-1, helpLine, styleHelp)
	r.canvas.Show()
}

// sword marks the cells under the blade's centre line.
func (r *Renderer) sword(g grid, p game.PlayerSnapshot) {
	t := r.tuning
	fx, fz := math.Sin(p.Yaw), math.Cos(p.Yaw)
	glyph := bladeGlyph(p.Yaw)

	start := t.SwordOffset - t.SwordHalfLength
	end := t.SwordOffset + t.SwordHalfLength
	step := (2 * g.half) / float64(max(g.width, g.height)) / 2
	if step <= 0 {
		return
	}
	for d := start; d <= end; d += step {
		x, y := g.cell(p.Position.X+fx*d, p.Position.Z+fz*d)
		r.canvas.SetContent(x, y, glyph, nil, styleSword)
	}
}

// bladeGlyph picks the character closest to the blade direction on screen.
// Screen rows grow with +Z, so yaw 0 points straight down.
func bladeGlyph(yaw float64) rune {
	a := math.Mod(yaw, math.Pi)
	if a < 0 {
		a += math.Pi
	}
	switch {
	case a < math.Pi/8 || a >= 7*math.Pi/8:
		return '|'
	case a < 3*math.Pi/8:
		return '\\'
	case a < 5*math.Pi/8:
		return '-'
	default:
		return '/'
	}
}

func (r *Renderer) border(g grid) {
	right, bottom := g.left+g.width, g.top+g.height
	for x := g.left; x < right; x++ {
		r.canvas.SetContent(x, g.top-1, '-', nil, styleBorder)
		r.canvas.SetContent(x, bottom, '-', nil, styleBorder)
	}
	for y := g.top; y < bottom; y++ {
		r.canvas.SetContent(g.left-1, y, '|', nil, styleBorder)
		r.canvas.SetContent(right, y, '|', nil, styleBorder)
	}
	for _, c := range [][2]int{{g.left - 1, g.top - 1}, {right, g.top - 1}, {g.left - 1, bottom}, {right, bottom}} {
		r.canvas.SetContent(c[0], c[1], '+', nil, styleBorder)
	}
}

func (r *Renderer) centered(g grid, s string, style tcell.Style) {
	x := g.left + (g.width-len([]rune(s)))/2
	if x < 0 {
		x = 0
	}
	r.text(x, g.top+g.height/2, s, style)
}

func (r *Renderer) text(x, y int, s string, style tcell.Style) {
	for _, ch := range s {
		r.canvas.SetContent(x, y, ch, nil, style)
		x++
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
