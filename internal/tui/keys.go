package tui

import (
	"time"

	"github.com/gdamore/tcell/v2"

	"sword-arena/internal/game"
)

// Action is what a key press asks the client to do.
type Action int

const (
	ActionNone Action = iota
	ActionForward
	ActionBackward
	ActionLeft
	ActionRight
	ActionSwing   // also starts a game from the ready screen
	ActionStart   // enter
	ActionRestart // r
	ActionQuit
)

// MapKey translates a key into an action. WASD and the arrow keys move,
// space swings.
func MapKey(key tcell.Key, r rune) Action {
	switch key {
	case tcell.KeyUp:
		return ActionForward
	case tcell.KeyDown:
		return ActionBackward
	case tcell.KeyLeft:
		return ActionLeft
	case tcell.KeyRight:
		return ActionRight
	case tcell.KeyEnter:
		return ActionStart
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyRune:
		switch r {
		case 'w', 'W':
			return ActionForward
		case 's', 'S':
			return ActionBackward
		case 'a', 'A':
			return ActionLeft
		case 'd', 'D':
			return ActionRight
		case ' ':
			return ActionSwing
		case 'r', 'R':
			return ActionRestart
		case 'q', 'Q':
			return ActionQuit
		}
	}
	return ActionNone
}

// DefaultHoldWindow covers the gap before a terminal's key auto-repeat kicks in.
const DefaultHoldWindow = 180 * time.Millisecond

// KeyLatch turns key presses into held movement. Terminals report no key
// releases, so a direction counts as held until window passes without a
// repeat. Pressing the opposite direction releases the held one at once.
type KeyLatch struct {
	window time.Duration
	until  [ActionRight + 1]time.Time
}

// NewKeyLatch creates a latch; window <= 0 uses DefaultHoldWindow.
func NewKeyLatch(window time.Duration) *KeyLatch {
	if window <= 0 {
		window = DefaultHoldWindow
	}
	return &KeyLatch{window: window}
}

// Press records a movement action at now. Other actions are ignored.
func (l *KeyLatch) Press(a Action, now time.Time) {
	if a < ActionForward || a > ActionRight {
		return
	}
	l.until[a] = now.Add(l.window)
	l.until[opposite(a)] = time.Time{}
}

// Release drops every held direction.
func (l *KeyLatch) Release() {
	l.until = [ActionRight + 1]time.Time{}
}

// Input reports the directions still held at now.
func (l *KeyLatch) Input(now time.Time) game.Input {
	held := func(a Action) bool { return now.Before(l.until[a]) }
	return game.Input{
		Forward:  held(ActionForward),
		Backward: held(ActionBackward),
		Left:     held(ActionLeft),
		Right:    held(ActionRight),
	}
}

func opposite(a Action) Action {
	switch a {
	case ActionForward:
		return ActionBackward
	case ActionBackward:
		return ActionForward
	case ActionLeft:
		return ActionRight
	case ActionRight:
		return ActionLeft
	}
	return ActionNone
}
