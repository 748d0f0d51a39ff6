package game

import (
	"testing"
	"time"
)

// TestSwingTiming verifies the 400ms window and that mid-swing requests are ignored
func TestSwingTiming(t *testing.T) {
	sc := NewSwingController(400 * time.Millisecond)

	if !sc.Request() {
		t.Fatal("request while idle should be accepted")
	}
	if !sc.Active() {
		t.Fatal("swing should be active at t=0")
	}

	sc.Advance(100 * time.Millisecond)
	if sc.Request() {
		t.Error("request at t=100ms should be ignored")
	}
	if sc.Elapsed() != 100*time.Millisecond {
		t.Errorf("ignored request changed elapsed to %v", sc.Elapsed())
	}

	sc.Advance(299 * time.Millisecond)
	if !sc.Active() {
		t.Error("swing should still be active at t=399ms")
	}

	sc.Advance(time.Millisecond)
	if sc.Active() || sc.Phase() != SwingIdle {
		t.Error("swing should be idle at t=400ms")
	}
	if sc.Count() != 1 {
		t.Errorf("count = %d, want 1", sc.Count())
	}
}

// TestSwingFrameRateIndependent verifies the window does not depend on tick size
func TestSwingFrameRateIndependent(t *testing.T) {
	tests := []struct {
		name string
		step time.Duration
	}{
		{"60 TPS", time.Second / 60},
		{"30 TPS", time.Second / 30},
		{"10 TPS", 100 * time.Millisecond},
		{"1ms", time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := NewSwingController(400 * time.Millisecond)
			sc.Request()
			var active time.Duration
			for sc.Active() {
				active += tt.step
				sc.Advance(tt.step)
			}
			// Ends on the first tick boundary at or past the window
			if active < 400*time.Millisecond || active >= 400*time.Millisecond+tt.step {
				t.Errorf("active for %v with step %v", active, tt.step)
			}
		})
	}
}

// TestSwingProgress verifies progress stays within [0, 1]
func TestSwingProgress(t *testing.T) {
	sc := NewSwingController(400 * time.Millisecond)
	if sc.Progress() != 0 {
		t.Errorf("idle progress = %v", sc.Progress())
	}
	sc.Request()
	sc.Advance(200 * time.Millisecond)
	if p := sc.Progress(); p != 0.5 {
		t.Errorf("progress = %v, want 0.5", p)
	}
	sc.Cancel()
	if sc.Active() || sc.Progress() != 0 {
		t.Error("cancel should return to idle")
	}
}

// TestSwingDefaultDuration verifies a non-positive duration falls back to the default
func TestSwingDefaultDuration(t *testing.T) {
	sc := NewSwingController(0)
	if sc.Duration() != 400*time.Millisecond {
		t.Errorf("duration = %v, want 400ms", sc.Duration())
	}
	if DefaultTuning().SwingDuration != 400*time.Millisecond {
		t.Error("canonical swing duration changed")
	}
}
