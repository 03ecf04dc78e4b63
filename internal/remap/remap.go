// Package remap holds the button-to-chord decision table.
//
// The decision is a pure function of the policy and a single event; no
// state is carried between events. Callers that consume an event are
// responsible for making sure it never reaches downstream consumers.
package remap

import (
	"github.com/holoplot/go-evdev"
)

// Policy selects which button groups are remapped. It is fixed for the
// lifetime of a run; components receive it at construction and never read
// ambient configuration.
type Policy struct {
	SideButtons  bool
	ExtraButtons bool
}

// Combo is a chorded shortcut. First is pressed before Second and released
// after it.
type Combo struct {
	First  evdev.EvCode
	Second evdev.EvCode
}

// The three chords the M720 buttons translate to.
var (
	WorkspaceUp   = Combo{First: evdev.KEY_LEFTMETA, Second: evdev.KEY_PAGEUP}
	WorkspaceDown = Combo{First: evdev.KEY_LEFTMETA, Second: evdev.KEY_PAGEDOWN}
	WindowCycle   = Combo{First: evdev.KEY_LEFTALT, Second: evdev.KEY_TAB}
)

// Key press values as delivered by evdev (0=release, 1=press, 2=repeat).
const pressed = 1

// Decide returns the chord to emit in place of the event, if any. consume
// reports whether the event must be withheld from downstream consumers.
// Only key presses are ever remapped; releases, repeats and all non-key
// event types pass through untouched.
func Decide(p Policy, evType evdev.EvType, code evdev.EvCode, value int32) (combo Combo, consume bool) {
	if evType != evdev.EV_KEY || value != pressed {
		return Combo{}, false
	}

	if p.SideButtons {
		switch code {
		case evdev.BTN_SIDE:
			return WorkspaceDown, true
		case evdev.BTN_EXTRA:
			return WorkspaceUp, true
		}
	}

	if p.ExtraButtons {
		switch code {
		case evdev.BTN_FORWARD:
			return WindowCycle, true
		case evdev.BTN_BACK:
			// Matches BTN_SIDE on purpose: both thumb positions page the
			// workspace down on the M720.
			return WorkspaceDown, true
		}
	}

	return Combo{}, false
}
