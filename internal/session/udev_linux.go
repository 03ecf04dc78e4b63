//go:build linux

package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/holoplot/go-evdev"
	"github.com/jochenvg/go-udev"

	"github.com/m720d/m720d/internal/classify"
)

// UdevSource discovers devices through libudev enumeration and the
// netlink hotplug monitor.
type UdevSource struct {
	u      udev.Udev
	logger *slog.Logger
}

func NewUdevSource(logger *slog.Logger) *UdevSource {
	return &UdevSource{logger: logger}
}

// eventNode reports whether a device node is an evdev character device
// (udev also announces mouseN, jsN and the parent input devices, which
// carry no event stream).
func eventNode(node string) bool {
	return node != "" && strings.HasPrefix(filepath.Base(node), "event")
}

func (s *UdevSource) Existing(ctx context.Context) ([]Candidate, error) {
	e := s.u.NewEnumerate()
	if err := e.AddMatchSubsystem("input"); err != nil {
		return nil, fmt.Errorf("match input subsystem: %w", err)
	}
	devices, err := e.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate: %w", err)
	}

	var out []Candidate
	for _, d := range devices {
		if node := d.Devnode(); eventNode(node) {
			out = append(out, &udevCandidate{node: node, ud: d})
		}
	}
	s.logger.Debug("enumerated input devices", "count", len(out))
	return out, nil
}

func (s *UdevSource) Watch(ctx context.Context) (<-chan Change, error) {
	m := s.u.NewMonitorFromNetlink("udev")
	if err := m.FilterAddMatchSubsystem("input"); err != nil {
		return nil, fmt.Errorf("filter input subsystem: %w", err)
	}
	devCh, _, err := m.DeviceChan(ctx)
	if err != nil {
		return nil, fmt.Errorf("start netlink monitor: %w", err)
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		for d := range devCh {
			node := d.Devnode()
			if !eventNode(node) {
				continue
			}

			var change Change
			switch d.Action() {
			case ActionAdd:
				change = Change{Action: ActionAdd, Path: node, Candidate: &udevCandidate{node: node, ud: d}}
			case ActionRemove:
				change = Change{Action: ActionRemove, Path: node}
			default:
				continue
			}

			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

type udevCandidate struct {
	node string
	ud   *udev.Device
}

func (c *udevCandidate) Path() string { return c.node }

func (c *udevCandidate) Open() (Device, classify.Descriptor, error) {
	dev, err := evdev.Open(c.node)
	if err != nil {
		return nil, classify.Descriptor{}, err
	}
	return &evdevDevice{dev: dev}, classify.Describe(dev, c.ud), nil
}

// FixedSource serves explicitly configured device nodes and never reports
// hotplug changes.
type FixedSource struct {
	paths []string
}

func NewFixedSource(paths ...string) *FixedSource {
	return &FixedSource{paths: paths}
}

func (s *FixedSource) Existing(ctx context.Context) ([]Candidate, error) {
	out := make([]Candidate, 0, len(s.paths))
	for _, p := range s.paths {
		out = append(out, &fixedCandidate{node: p})
	}
	return out, nil
}

func (s *FixedSource) Watch(ctx context.Context) (<-chan Change, error) {
	out := make(chan Change)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

type fixedCandidate struct {
	node string
}

func (c *fixedCandidate) Path() string { return c.node }

func (c *fixedCandidate) Open() (Device, classify.Descriptor, error) {
	dev, err := evdev.Open(c.node)
	if err != nil {
		return nil, classify.Descriptor{}, err
	}
	return &evdevDevice{dev: dev}, classify.Describe(dev, nil), nil
}

// evdevDevice adapts the concrete evdev handle to the Device interface.
type evdevDevice struct {
	dev *evdev.InputDevice
}

func (d *evdevDevice) ReadOne() (*evdev.InputEvent, error) { return d.dev.ReadOne() }
func (d *evdevDevice) Grab() error                         { return d.dev.Grab() }
func (d *evdevDevice) Ungrab() error                       { return d.dev.Ungrab() }
func (d *evdevDevice) Close() error                        { return d.dev.Close() }

func (d *evdevDevice) Clone(name string) (Output, error) {
	out, err := evdev.CloneDevice(name, d.dev)
	if err != nil {
		return nil, err
	}
	return out, nil
}
