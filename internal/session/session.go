package session

import (
	"sync/atomic"

	"github.com/holoplot/go-evdev"

	"github.com/m720d/m720d/internal/remap"
)

// Name and phys strings are stored as bounded copies.
const maxLabel = 128

// Session is one attached target mouse. Sessions are owned exclusively by
// the Manager and never share mutable state with each other.
type Session struct {
	Name string
	Phys string
	Path string

	dev     Device
	out     Output // pass-through clone; nil in no-grab mode
	grabbed bool
	enabled atomic.Bool
}

func bounded(s string) string {
	if len(s) > maxLabel {
		return s[:maxLabel]
	}
	return s
}

// readLoop drains the device until it is closed or fails. Events of one
// session are handled strictly in arrival order; there is no ordering
// guarantee across sessions.
func (m *Manager) readLoop(s *Session) {
	defer m.wg.Done()
	for {
		ev, err := s.dev.ReadOne()
		if err != nil {
			m.logger.Debug("event stream ended", "path", s.Path, "error", err)
			m.disconnectSession(s)
			return
		}
		m.handle(s, ev)
	}
}

// handle decides, per event, between consume-and-remap and pass-through.
func (m *Manager) handle(s *Session, ev *evdev.InputEvent) {
	// Events still in flight when the session was torn down are dropped.
	if !s.enabled.Load() {
		return
	}

	m.events.Log(s.Path, uint16(ev.Type), uint16(ev.Code), ev.Value)

	combo, consume := remap.Decide(m.policy, ev.Type, ev.Code, ev.Value)
	if consume {
		m.logger.Debug("button remapped",
			"path", s.Path,
			"button", evdev.CodeName(evdev.EV_KEY, ev.Code),
			"first", evdev.CodeName(evdev.EV_KEY, combo.First),
			"second", evdev.CodeName(evdev.EV_KEY, combo.Second))
		if err := m.injector.SendCombo(combo.First, combo.Second); err != nil {
			m.logger.Error("chord injection failed", "path", s.Path, "error", err)
		}
		return
	}

	// Forward verbatim. Without a grab the kernel has already delivered
	// the event natively and there is nothing to forward.
	if s.out == nil {
		return
	}
	if err := s.out.WriteOne(ev); err != nil {
		m.logger.Error("pass-through write failed", "path", s.Path, "error", err)
	}
}
