package game

import (
	"fmt"

	"sword-arena/internal/geom"
)

// Position is a point in world space. Y is the ground height and stays fixed during movement.
type Position = geom.Vec3

// Phase is the top-level session state.
type Phase int

const (
	PhaseReady   Phase = iota // Waiting for the first start
	PhasePlaying              // Simulation running
	PhaseEnded                // An enemy reached the player
)

// String returns the lowercase phase name used on the wire
func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhasePlaying:
		return "playing"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// MarshalText lets phases appear by name in JSON and msgpack payloads.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name written by MarshalText.
func (p *Phase) UnmarshalText(b []byte) error {
	for c := PhaseReady; c <= PhaseEnded; c++ {
		if c.String() == string(b) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Input is the resolved per-tick control state.
// Directions map to world axes: Forward z-, Backward z+, Left x-, Right x+.
type Input struct {
	Forward        bool `json:"forward,omitempty" msgpack:"forward,omitempty"`
	Backward       bool `json:"backward,omitempty" msgpack:"backward,omitempty"`
	Left           bool `json:"left,omitempty" msgpack:"left,omitempty"`
	Right          bool `json:"right,omitempty" msgpack:"right,omitempty"`
	SwingRequested bool `json:"swing,omitempty" msgpack:"swing,omitempty"`
}

// Moving reports whether any direction is held.
func (in Input) Moving() bool {
	return in.Forward || in.Backward || in.Left || in.Right
}

// Direction returns the raw (unnormalized) ground-plane direction for the held keys.
func (in Input) Direction() geom.Vec3 {
	var d geom.Vec3
	if in.Forward {
		d.Z--
	}
	if in.Backward {
		d.Z++
	}
	if in.Left {
		d.X--
	}
	if in.Right {
		d.X++
	}
	return d
}

// Player is the singleton avatar controlled by the input source.
type Player struct {
	Position  Position       `json:"position"`
	Yaw       float64        `json:"yaw"` // radians, 0 faces +Z
	Moving    bool           `json:"moving"`
	Animation AnimationState `json:"animation"`
	AvatarURL string         `json:"avatarUrl,omitempty"`
}

// reset puts the player back at the arena origin, keeping the chosen avatar.
func (p *Player) reset(start Position) {
	p.Position = start
	p.Yaw = 0
	p.Moving = false
	p.Animation = AnimIdle
}

// EnemyID identifies an enemy for its whole lifetime.
type EnemyID string

// Enemy pursues the player until it is cut down or catches them.
type Enemy struct {
	ID        EnemyID  `json:"id"`
	Position  Position `json:"position"`
	Yaw       float64  `json:"yaw"`
	Health    int      `json:"health"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
}
