package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m720d/m720d/internal/classify"
	"github.com/m720d/m720d/internal/log"
	"github.com/m720d/m720d/internal/remap"
	"github.com/m720d/m720d/internal/session"
	"github.com/m720d/m720d/internal/virtkbd"
)

// RemapConfig is the on/off surface of the remapper.
type RemapConfig struct {
	SideButtons  bool          `help:"Remap the two thumb side buttons to workspace switching" default:"true" negatable:"" env:"M720D_REMAP_SIDE_BUTTONS"`
	ExtraButtons bool          `help:"Remap the forward/back buttons to window cycling and workspace switching" default:"true" negatable:"" env:"M720D_REMAP_EXTRA_BUTTONS"`
	Hold         time.Duration `help:"How long a chord is held between press and release" default:"10ms" env:"M720D_REMAP_HOLD"`
}

// Run is the daemon command.
type Run struct {
	Remap  RemapConfig `embed:"" prefix:"remap."`
	Device []string    `help:"Remap only these device nodes (e.g. /dev/input/event5); disables discovery" env:"M720D_DEVICE"`
	NoGrab bool        `help:"Do not take exclusive ownership of matched devices; chords are injected but the native button events still fire" env:"M720D_NO_GRAB"`

	// Test seams; nil selects the real implementations.
	newKeyboard func(logger *slog.Logger, hold time.Duration) (*virtkbd.Keyboard, error)
	source      session.Source
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, events log.EventLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.StartDaemon(ctx, logger, events)
}

// StartDaemon brings up the virtual keyboard and the session manager and
// blocks until ctx is done or startup fails. Any startup failure unwinds
// everything created before it; no devices are left remapped.
func (r *Run) StartDaemon(ctx context.Context, logger *slog.Logger, events log.EventLogger) error {
	logger.Info("starting m720d",
		"side_buttons", r.Remap.SideButtons,
		"extra_buttons", r.Remap.ExtraButtons,
		"grab", !r.NoGrab)

	newKeyboard := r.newKeyboard
	if newKeyboard == nil {
		newKeyboard = virtkbd.New
	}
	kbd, err := newKeyboard(logger, r.Remap.Hold)
	if err != nil {
		return fmt.Errorf("virtual keyboard: %w", err)
	}
	// The manager joins its read loops before Run returns, so no chord is
	// in flight when the keyboard is destroyed.
	defer func() { _ = kbd.Close() }()

	policy := remap.Policy{
		SideButtons:  r.Remap.SideButtons,
		ExtraButtons: r.Remap.ExtraButtons,
	}

	source := r.source
	if source == nil {
		if len(r.Device) > 0 {
			logger.Info("device discovery disabled", "devices", r.Device)
			source = session.NewFixedSource(r.Device...)
		} else {
			source = session.NewUdevSource(logger)
		}
	}

	mgr := session.NewManager(session.Config{Grab: !r.NoGrab},
		policy, classify.New(logger), kbd, source, logger, events)

	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Run(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-mgr.Ready():
		logger.Info("m720d running", "devices", mgr.Count())
	}

	err = <-errCh
	logger.Info("m720d stopped")
	return err
}
