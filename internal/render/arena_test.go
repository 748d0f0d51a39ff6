package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"sword-arena/internal/game"
	"sword-arena/internal/geom"
)

func testSnapshot() *game.Snapshot {
	return &game.Snapshot{
		Phase: game.PhasePlaying.String(),
		Score: 20,
		Player: game.PlayerSnapshot{
			Position:  geom.V3(0, 1, 0),
			Animation: game.AnimIdle.Clip(),
		},
		Enemies: []game.EnemySnapshot{
			{ID: "e1", Position: geom.V3(10, 1, 10)},
		},
		EnemyCount: 1,
	}
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

// TestArenaPlacesEntities verifies world positions land on the expected pixels
func TestArenaPlacesEntities(t *testing.T) {
	tun := game.DefaultTuning()
	img := Arena(testSnapshot(), tun, DefaultSize)

	if b := img.Bounds(); b.Dx() != DefaultSize || b.Dy() != DefaultSize {
		t.Fatalf("bounds = %v", b)
	}

	// Player at the origin is drawn at the image centre
	if got := rgbaAt(img, 256, 252); got != colorPlayer {
		t.Errorf("player pixel = %v, want %v", got, colorPlayer)
	}
	// Enemy at (10, 10) maps to (380, 380)
	if got := rgbaAt(img, 378, 376); got != colorEnemy {
		t.Errorf("enemy pixel = %v, want %v", got, colorEnemy)
	}
	// Corner outside the arena keeps the background
	if got := rgbaAt(img, 2, DefaultSize-2); got != colorBackground {
		t.Errorf("background pixel = %v, want %v", got, colorBackground)
	}
}

// TestArenaSwingDrawsBlade verifies the blade appears ahead of the player only while swinging
func TestArenaSwingDrawsBlade(t *testing.T) {
	tun := game.DefaultTuning()
	snap := testSnapshot()
	// Blade centre sits SwordOffset+SwordHalfLength ahead along +Z, below the player on screen
	x, y := 256, 256+int((tun.SwordOffset+tun.SwordHalfLength)*newView(DefaultSize, tun.ArenaHalfExtent).scale)

	idle := Arena(snap, tun, DefaultSize)
	if got := rgbaAt(idle, x+1, y); got != colorBackground && got != colorGrid {
		t.Errorf("idle blade pixel = %v, want background", got)
	}

	snap.SwingActive = true
	swinging := Arena(snap, tun, DefaultSize)
	if got := rgbaAt(swinging, x+1, y); got == rgbaAt(idle, x+1, y) {
		t.Errorf("blade not drawn at (%d, %d)", x+1, y)
	}
}

// TestWritePNG verifies the encoded output decodes back to the requested size
func TestWritePNG(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"default", 0, DefaultSize},
		{"small", 10, minSize},
		{"huge", 10000, maxSize},
		{"exact", 200, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WritePNG(&buf, testSnapshot(), game.DefaultTuning(), tt.size, nil); err != nil {
				t.Fatalf("WritePNG: %v", err)
			}
			img, err := png.Decode(&buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if img.Bounds().Dx() != tt.want {
				t.Errorf("width = %d, want %d", img.Bounds().Dx(), tt.want)
			}
		})
	}
}

// TestArenaNilSnapshot verifies an empty arena still renders
func TestArenaNilSnapshot(t *testing.T) {
	img := Arena(nil, game.DefaultTuning(), 128)
	if img.Bounds().Dx() != 128 {
		t.Errorf("width = %d", img.Bounds().Dx())
	}
}

type stubAvatars map[string]image.Image

func (s stubAvatars) GetOrFetch(url string) image.Image { return s[url] }

// TestArenaAvatars verifies a resolved avatar replaces the player fill and a
// missing one falls back to the plain shape
func TestArenaAvatars(t *testing.T) {
	green := color.RGBA{0, 255, 0, 255}
	pic := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			pic.SetRGBA(x, y, green)
		}
	}

	snap := testSnapshot()
	snap.Player.AvatarURL = "https://example.com/me.png"
	snap.Enemies[0].AvatarURL = "https://example.com/unknown.png"
	img := ArenaWithAvatars(snap, game.DefaultTuning(), DefaultSize, stubAvatars{snap.Player.AvatarURL: pic})

	if got := rgbaAt(img, 253, 252); got != green {
		t.Errorf("player pixel = %v, want avatar colour", got)
	}
	if got := rgbaAt(img, 378, 376); got != colorEnemy {
		t.Errorf("enemy pixel = %v, want %v", got, colorEnemy)
	}
}
