package game

// AnimationState is the presentation hint derived from the player's simulation state.
// The renderer maps it to a clip; the mapping is total so no state is ever unnamed.
type AnimationState int

const (
	AnimIdle    AnimationState = iota // Standing still
	AnimWalking                       // Moving at normal speed
	AnimRunning                       // Reserved for a sprint modifier
	AnimAttack                        // Sword swing in progress
)

var animationClips = [...]string{
	AnimIdle:    "idle",
	AnimWalking: "walking",
	AnimRunning: "running",
	AnimAttack:  "attack",
}

// Clip returns the presentation clip name for the state.
func (a AnimationState) Clip() string {
	if a < 0 || int(a) >= len(animationClips) {
		return animationClips[AnimIdle]
	}
	return animationClips[a]
}

// String implements fmt.Stringer.
func (a AnimationState) String() string {
	return a.Clip()
}

// MarshalText encodes the state by clip name.
func (a AnimationState) MarshalText() ([]byte, error) {
	return []byte(a.Clip()), nil
}

// animationFor picks the clip state for this tick.
// Attack wins over locomotion so the swing always reads on screen.
func animationFor(moving, swinging bool) AnimationState {
	switch {
	case swinging:
		return AnimAttack
	case moving:
		return AnimWalking
	default:
		return AnimIdle
	}
}
