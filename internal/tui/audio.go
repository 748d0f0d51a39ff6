package tui

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"sword-arena/internal/game"
)

// Tone is one short sine blip.
type Tone struct {
	Freq     float64 // Hz
	Duration time.Duration
	Gain     float64 // relative to the master volume
}

// ToneFor returns the blip played for an event type, if any.
func ToneFor(t game.EventType) (Tone, bool) {
	switch t {
	case game.EventTypeSwingStarted:
		return Tone{Freq: 660, Duration: 60 * time.Millisecond, Gain: 0.6}, true
	case game.EventTypeEnemyHit:
		return Tone{Freq: 880, Duration: 90 * time.Millisecond, Gain: 1}, true
	case game.EventTypeEnemySpawned:
		return Tone{Freq: 330, Duration: 40 * time.Millisecond, Gain: 0.3}, true
	case game.EventTypeGameEnded:
		return Tone{Freq: 196, Duration: 450 * time.Millisecond, Gain: 1}, true
	}
	return Tone{}, false
}

// Streamer builds the beep streamer for the tone at sample rate sr.
func (t Tone) Streamer(sr beep.SampleRate, master float64) (beep.Streamer, error) {
	sine, err := generators.SineTone(sr, t.Freq)
	if err != nil {
		return nil, fmt.Errorf("sine %v Hz: %w", t.Freq, err)
	}
	return newVolume(beep.Take(sr.N(t.Duration), sine), t.Gain*master), nil
}

// newVolume wraps s at a linear volume; zero or less is silent.
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol), Silent: false}
}

// maxConcurrentTones bounds overlapping blips; extra events are dropped.
const maxConcurrentTones = 6

// Audio plays event blips through the speaker. It implements game.EventSink
// and never blocks the engine: playback is handed to the speaker goroutine.
type Audio struct {
	mu          sync.Mutex
	sampleRate  beep.SampleRate
	volume      float64
	initialized bool
	playing     int
	played      uint64
	dropped     uint64
}

// NewAudio creates a sink; call Init before events arrive.
func NewAudio(sampleRate int, volume float64) *Audio {
	return &Audio{sampleRate: beep.SampleRate(sampleRate), volume: volume}
}

// Init opens the speaker with a 100ms buffer.
func (a *Audio) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return nil
	}
	if err := speaker.Init(a.sampleRate, a.sampleRate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}
	a.initialized = true
	return nil
}

// Close releases the speaker. The speaker is touched outside a.mu because
// finished tones call back into done from the speaker goroutine.
func (a *Audio) Close() {
	a.mu.Lock()
	wasInit := a.initialized
	a.initialized = false
	a.mu.Unlock()
	if !wasInit {
		return
	}
	speaker.Clear()
	speaker.Close()
}

// HandleEvent plays the event's tone, if it has one.
func (a *Audio) HandleEvent(ev game.Event) {
	tone, ok := ToneFor(ev.Type)
	if !ok {
		return
	}

	a.mu.Lock()
	if !a.initialized || a.volume <= 0 {
		a.mu.Unlock()
		return
	}
	if a.playing >= maxConcurrentTones {
		a.dropped++
		a.mu.Unlock()
		return
	}
	a.playing++
	a.played++
	a.mu.Unlock()

	s, err := tone.Streamer(a.sampleRate, a.volume)
	if err != nil {
		a.done()
		return
	}
	speaker.Play(beep.Seq(s, beep.Callback(a.done)))
}

func (a *Audio) done() {
	a.mu.Lock()
	a.playing--
	a.mu.Unlock()
}

// Stats returns played and dropped tone counts.
func (a *Audio) Stats() (played, dropped uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.played, a.dropped
}
