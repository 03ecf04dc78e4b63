// Package virtkbd owns the synthetic keyboard that remapped chords are
// typed on. Exactly one keyboard exists per process; it is created at
// startup and destroyed at shutdown.
package virtkbd

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"
)

// DeviceName is the name the virtual keyboard registers under.
const DeviceName = "M720 Virtual Keyboard"

const uinputPath = "/dev/uinput"

// DefaultHold is how long a chord is held between press and release, so
// downstream consumers observe a held combination rather than two
// overlapping taps.
const DefaultHold = 10 * time.Millisecond

// ErrClosed is returned when a chord is sent to a keyboard that was never
// created or has already been destroyed.
var ErrClosed = errors.New("virtual keyboard is not available")

// EventSink is the subset of the uinput device the keyboard writes through.
type EventSink interface {
	WriteOne(ev *evdev.InputEvent) error
	Close() error
}

// Keyboard is the process-wide synthetic keyboard. All sessions share it;
// SendCombo serializes writers so two devices' chords cannot interleave.
type Keyboard struct {
	logger *slog.Logger
	hold   time.Duration

	mu   sync.Mutex
	sink EventSink
}

// capabilities advertised by the virtual keyboard: exactly the keys the
// chords need, nothing else.
func capabilities() map[evdev.EvType][]evdev.EvCode {
	return map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: {
			evdev.KEY_LEFTMETA,
			evdev.KEY_PAGEUP,
			evdev.KEY_PAGEDOWN,
			evdev.KEY_LEFTALT,
			evdev.KEY_TAB,
		},
		evdev.EV_SYN: {evdev.SYN_REPORT},
	}
}

// New registers the uinput keyboard. On failure nothing is left behind.
func New(logger *slog.Logger, hold time.Duration) (*Keyboard, error) {
	if err := unix.Access(uinputPath, unix.W_OK); err != nil {
		return nil, fmt.Errorf("%s is not writable (is the uinput module loaded and do you have permission?): %w", uinputPath, err)
	}

	dev, err := evdev.CreateDevice(DeviceName, evdev.InputID{
		BusType: 0x06, // BUS_VIRTUAL
		Vendor:  0x0001,
		Product: 0x0001,
		Version: 0x0100,
	}, capabilities())
	if err != nil {
		return nil, fmt.Errorf("create uinput keyboard: %w", err)
	}
	logger.Debug("virtual keyboard created", "name", DeviceName)
	return FromSink(logger, hold, dev), nil
}

// FromSink wraps an existing event sink. Used by New and by tests.
func FromSink(logger *slog.Logger, hold time.Duration, sink EventSink) *Keyboard {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Keyboard{logger: logger, hold: hold, sink: sink}
}

// SendCombo emits press(first), press(second), sync, holds the chord for
// the configured delay, then releases in reverse order followed by a final
// sync. The blocking delay is deliberate: the press/release ordering of a
// chord must not be broken up, so the call runs to completion on the
// caller's goroutine.
func (k *Keyboard) SendCombo(first, second evdev.EvCode) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.sink == nil {
		k.logger.Error("dropping chord, virtual keyboard is not available",
			"first", evdev.CodeName(evdev.EV_KEY, first),
			"second", evdev.CodeName(evdev.EV_KEY, second))
		return ErrClosed
	}

	k.logger.Debug("sending chord",
		"first", evdev.CodeName(evdev.EV_KEY, first),
		"second", evdev.CodeName(evdev.EV_KEY, second))

	if err := k.writeKey(first, 1); err != nil {
		return fmt.Errorf("press %d: %w", first, err)
	}
	if err := k.writeKey(second, 1); err != nil {
		return fmt.Errorf("press %d: %w", second, err)
	}
	if err := k.sync(); err != nil {
		return fmt.Errorf("sync after press: %w", err)
	}

	time.Sleep(k.hold)

	if err := k.writeKey(second, 0); err != nil {
		return fmt.Errorf("release %d: %w", second, err)
	}
	if err := k.writeKey(first, 0); err != nil {
		return fmt.Errorf("release %d: %w", first, err)
	}
	if err := k.sync(); err != nil {
		return fmt.Errorf("sync after release: %w", err)
	}
	return nil
}

func (k *Keyboard) writeKey(code evdev.EvCode, value int32) error {
	return k.sink.WriteOne(&evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: value})
}

func (k *Keyboard) sync() error {
	return k.sink.WriteOne(&evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT, Value: 0})
}

// Close destroys the uinput device. Any chord in flight finishes first;
// closing twice, or a keyboard whose creation failed, is a no-op.
func (k *Keyboard) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.sink == nil {
		return nil
	}
	err := k.sink.Close()
	k.sink = nil
	k.logger.Debug("virtual keyboard destroyed")
	return err
}
