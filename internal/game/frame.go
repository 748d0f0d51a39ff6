package game

// Command is a session-level instruction carried by a frame.
type Command string

const (
	CommandNone    Command = ""
	CommandStart   Command = "start"
	CommandRestart Command = "restart"
)

// Frame is one unit of simulation input: a clock delta, the resolved control
// state and an optional command. Every frame the engine applies is journaled,
// so replaying the same frames from the same seed reproduces the session.
type Frame struct {
	DT      float64 `json:"dt"` // seconds
	Input   Input   `json:"input"`
	Command Command `json:"command,omitempty"`
}
