package session

import (
	"context"

	"github.com/holoplot/go-evdev"

	"github.com/m720d/m720d/internal/classify"
)

// Device is the slice of an evdev handle the session layer drives.
type Device interface {
	ReadOne() (*evdev.InputEvent, error)
	Grab() error
	Ungrab() error
	Close() error
	// Clone creates a uinput duplicate of the device that pass-through
	// events are forwarded to while the original is grabbed.
	Clone(name string) (Output, error)
}

// Output is a write-only synthetic device.
type Output interface {
	WriteOne(ev *evdev.InputEvent) error
	Close() error
}

// Injector emits a chord on the shared virtual keyboard.
type Injector interface {
	SendCombo(first, second evdev.EvCode) error
}

// Matcher re-validates that a device really is a target mouse before a
// session is attached.
type Matcher interface {
	Match(d classify.Descriptor) bool
}

// Candidate is a discovered input device that can be opened and described.
type Candidate interface {
	Path() string
	Open() (Device, classify.Descriptor, error)
}

// Change is one hotplug notification.
type Change struct {
	Action    string // "add" or "remove"
	Path      string
	Candidate Candidate // set for "add"
}

const (
	ActionAdd    = "add"
	ActionRemove = "remove"
)

// Source feeds the manager the devices present at startup and hotplug
// changes after it.
type Source interface {
	Existing(ctx context.Context) ([]Candidate, error)
	// Watch delivers changes until ctx is done; the returned channel is
	// closed when the monitor stops.
	Watch(ctx context.Context) (<-chan Change, error)
}
