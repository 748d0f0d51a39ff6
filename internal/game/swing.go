package game

import "time"

// SwingPhase is the state of the sword.
type SwingPhase int

const (
	SwingIdle     SwingPhase = iota // Ready to swing
	SwingSwinging                   // Blade is live, hitbox active
)

// SwingController converts a discrete swing request into a bounded active window.
// Timing is accumulated from tick deltas, never from wall-clock callbacks.
type SwingController struct {
	duration time.Duration
	phase    SwingPhase
	elapsed  time.Duration
	swings   uint64 // accepted requests, for stats
}

// NewSwingController creates an idle controller with the given swing window.
func NewSwingController(duration time.Duration) *SwingController {
	if duration <= 0 {
		duration = DefaultTuning().SwingDuration
	}
	return &SwingController{duration: duration}
}

// Request starts a swing if idle. Returns false when a swing is already in progress.
func (s *SwingController) Request() bool {
	if s.phase == SwingSwinging {
		return false
	}
	s.phase = SwingSwinging
	s.elapsed = 0
	s.swings++
	return true
}

// Advance moves the swing timer forward. The swing ends once elapsed reaches the duration.
func (s *SwingController) Advance(step time.Duration) {
	if s.phase != SwingSwinging {
		return
	}
	s.elapsed += step
	if s.elapsed >= s.duration {
		s.phase = SwingIdle
		s.elapsed = 0
	}
}

// Cancel drops any swing in progress.
func (s *SwingController) Cancel() {
	s.phase = SwingIdle
	s.elapsed = 0
}

// Active reports whether the blade counts for collisions.
func (s *SwingController) Active() bool {
	return s.phase == SwingSwinging
}

// Phase returns the current swing phase.
func (s *SwingController) Phase() SwingPhase {
	return s.phase
}

// Elapsed returns how long the current swing has been running.
func (s *SwingController) Elapsed() time.Duration {
	return s.elapsed
}

// Progress returns the swing completion in [0, 1]; 0 when idle.
func (s *SwingController) Progress() float64 {
	if s.phase != SwingSwinging {
		return 0
	}
	p := float64(s.elapsed) / float64(s.duration)
	if p > 1 {
		p = 1
	}
	return p
}

// Duration returns the configured swing window.
func (s *SwingController) Duration() time.Duration {
	return s.duration
}

// Count returns how many swings have been accepted.
func (s *SwingController) Count() uint64 {
	return s.swings
}
