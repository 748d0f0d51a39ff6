package game

import (
	"math"
	"time"
)

// Clock is the simulation clock. It only moves when a tick advances it,
// so every timer in the game is frame-rate independent and replayable.
type Clock struct {
	now time.Duration
}

// Advance moves the clock forward by dt seconds and returns the step as a Duration.
func (c *Clock) Advance(dt float64) time.Duration {
	step := secondsToDuration(dt)
	c.now += step
	return step
}

// Now returns the elapsed simulation time.
func (c *Clock) Now() time.Duration {
	return c.now
}

// SanitizeDelta clamps a frame delta into [0, maxDelta].
// NaN, Inf and negative values become 0. The core assumes callers went through this.
func SanitizeDelta(dt, maxDelta float64) float64 {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return 0
	}
	if maxDelta > 0 && dt > maxDelta {
		return maxDelta
	}
	return dt
}

// SanitizePosition reports whether p can safely enter the simulation.
func SanitizePosition(p Position) bool {
	return p.IsFinite()
}

func secondsToDuration(dt float64) time.Duration {
	return time.Duration(math.Round(dt * float64(time.Second)))
}
