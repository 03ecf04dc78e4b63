// Package session tracks the attach/detach lifecycle of matched mice and
// drives the per-device event pipeline.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/holoplot/go-evdev"

	"github.com/m720d/m720d/internal/classify"
	"github.com/m720d/m720d/internal/log"
	"github.com/m720d/m720d/internal/remap"
)

// Config holds the manager knobs fixed at construction time.
type Config struct {
	// Grab takes exclusive ownership of matched devices so consumed
	// buttons never reach other consumers. When false the daemon only
	// observes and injects; native button behavior is left intact.
	Grab bool
}

// Manager owns every attached session. One instance exists per process.
type Manager struct {
	cfg      Config
	policy   remap.Policy
	matcher  Matcher
	injector Injector
	source   Source
	logger   *slog.Logger
	events   log.EventLogger

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup

	ready     chan struct{}
	readyOnce sync.Once
}

func NewManager(cfg Config, policy remap.Policy, matcher Matcher, injector Injector, source Source, logger *slog.Logger, events log.EventLogger) *Manager {
	return &Manager{
		cfg:      cfg,
		policy:   policy,
		matcher:  matcher,
		injector: injector,
		source:   source,
		logger:   logger,
		events:   events,
		sessions: make(map[string]*Session),
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the hotplug monitor is armed and the initial
// enumeration has finished.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Count returns the number of currently attached sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run attaches the devices present at startup, then follows hotplug
// changes until ctx is done. On return every session has been torn down.
// The monitor is armed before enumeration so devices appearing in between
// are not missed.
func (m *Manager) Run(ctx context.Context) error {
	changes, err := m.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch input devices: %w", err)
	}

	existing, err := m.source.Existing(ctx)
	if err != nil {
		return fmt.Errorf("enumerate input devices: %w", err)
	}
	for _, cand := range existing {
		if err := m.connect(cand); err != nil {
			m.logger.Error("connect failed, device left unmanaged",
				"path", cand.Path(), "error", err)
		}
	}

	m.readyOnce.Do(func() { close(m.ready) })

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return nil
		case change, ok := <-changes:
			if !ok {
				m.shutdown()
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("device monitor closed unexpectedly")
			}
			switch change.Action {
			case ActionAdd:
				if err := m.connect(change.Candidate); err != nil {
					m.logger.Error("connect failed, device left unmanaged",
						"path", change.Path, "error", err)
				}
			case ActionRemove:
				m.disconnect(change.Path)
			}
		}
	}
}

// connect opens and validates a candidate and, on a positive match,
// attaches a session. Classifier rejection is a skip, not an error. Any
// failure after the open unwinds everything done so far; a device is never
// left half-attached.
func (m *Manager) connect(cand Candidate) error {
	m.mu.Lock()
	_, attached := m.sessions[cand.Path()]
	m.mu.Unlock()
	if attached {
		return nil
	}

	dev, desc, err := cand.Open()
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	if !m.matcher.Match(desc) {
		_ = dev.Close()
		m.logger.Debug("not a target device, skipping", "path", cand.Path(), "name", desc.Name)
		return nil
	}

	m.logger.Info("connecting to target mouse",
		"name", desc.Name, "path", cand.Path(), "phys", desc.Phys)
	m.logCapabilities(desc)

	s := &Session{
		Name: bounded(desc.Name),
		Phys: bounded(desc.Phys),
		Path: cand.Path(),
		dev:  dev,
	}

	if m.cfg.Grab {
		if err := dev.Grab(); err != nil {
			_ = dev.Close()
			return fmt.Errorf("grab: %w", err)
		}
		s.grabbed = true

		out, err := dev.Clone(s.Name + " (m720d)")
		if err != nil {
			_ = dev.Ungrab()
			_ = dev.Close()
			return fmt.Errorf("create pass-through device: %w", err)
		}
		s.out = out
	}
	s.enabled.Store(true)

	m.mu.Lock()
	m.sessions[s.Path] = s
	total := len(m.sessions)
	m.mu.Unlock()

	m.wg.Add(1)
	go m.readLoop(s)

	m.logger.Info("target mouse connected", "name", s.Name, "path", s.Path, "total", total)
	return nil
}

// disconnect tears down the session attached at path. Safe to call for
// paths that were never attached or have already been torn down.
func (m *Manager) disconnect(path string) {
	m.mu.Lock()
	s, ok := m.sessions[path]
	if ok {
		delete(m.sessions, path)
	}
	remaining := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.teardown(s, remaining)
}

// disconnectSession tears down s only while it is still the session
// attached at its path. Device nodes are reused after a remove, so a read
// loop that observes the close of an already detached device must not
// touch a replacement session attached at the same node in the meantime.
func (m *Manager) disconnectSession(s *Session) {
	m.mu.Lock()
	if m.sessions[s.Path] != s {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, s.Path)
	remaining := len(m.sessions)
	m.mu.Unlock()
	m.teardown(s, remaining)
}

func (m *Manager) teardown(s *Session, remaining int) {
	s.enabled.Store(false)
	if s.out != nil {
		_ = s.out.Close()
	}
	if s.grabbed {
		_ = s.dev.Ungrab()
	}
	_ = s.dev.Close()

	m.logger.Info("target mouse disconnected", "name", s.Name, "path", s.Path, "remaining", remaining)
}

// shutdown disconnects everything and waits for the read loops, so that
// no injection is in flight when the caller tears down the virtual
// keyboard.
func (m *Manager) shutdown() {
	m.mu.Lock()
	paths := make([]string, 0, len(m.sessions))
	for p := range m.sessions {
		paths = append(paths, p)
	}
	m.mu.Unlock()

	for _, p := range paths {
		m.disconnect(p)
	}
	m.wg.Wait()
}

// logCapabilities dumps the button layout of a matched device at debug
// level, mirroring what a capability inspection tool would print.
func (m *Manager) logCapabilities(desc classify.Descriptor) {
	buttons := []evdev.EvCode{
		evdev.BTN_LEFT, evdev.BTN_RIGHT, evdev.BTN_MIDDLE,
		evdev.BTN_SIDE, evdev.BTN_EXTRA, evdev.BTN_FORWARD, evdev.BTN_BACK,
	}
	var present []string
	for _, b := range buttons {
		if desc.Keys.Has(b) {
			present = append(present, evdev.CodeName(evdev.EV_KEY, b))
		}
	}
	m.logger.Debug("device buttons", "path", desc.Path, "buttons", present)
}
