package game

import (
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeEnemySpawned
	EventTypeEnemyHit
	EventTypeSwingStarted
	EventTypeGameEnded
	EventTypePhaseChanged
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeEnemySpawned:
		return "enemy_spawned"
	case EventTypeEnemyHit:
		return "enemy_hit"
	case EventTypeSwingStarted:
		return "swing_started"
	case EventTypeGameEnded:
		return "game_ended"
	case EventTypePhaseChanged:
		return "phase_changed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the type by name.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name written by MarshalText.
func (t *EventType) UnmarshalText(b []byte) error {
	for c := EventTypeEnemySpawned; c <= EventTypePhaseChanged; c++ {
		if c.String() == string(b) {
			*t = c
			return nil
		}
	}
	*t = EventTypeUnknown
	return nil
}

// Event is a discrete notification produced by a tick.
// Sinks receive events after the tick has completed, never mid-update.
type Event struct {
	Type     EventType     `json:"type"`
	Tick     uint64        `json:"tick"`
	At       time.Duration `json:"at"` // simulation clock
	EnemyID  EnemyID       `json:"enemyId,omitempty"`
	Position *Position     `json:"position,omitempty"`
	Score    int           `json:"score"`
	Phase    Phase         `json:"phase"`
}

// EventSink receives game events. Implementations must not block:
// this is fire-and-forget, the engine never waits on a sink.
type EventSink interface {
	HandleEvent(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// HandleEvent calls f(ev).
func (f EventSinkFunc) HandleEvent(ev Event) {
	f(ev)
}
