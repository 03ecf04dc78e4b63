package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m720d/m720d/internal/log"
	"github.com/m720d/m720d/internal/session"
	"github.com/m720d/m720d/internal/virtkbd"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSource notes whether device discovery was ever started.
type recordingSource struct {
	enumerated bool
	watched    bool
}

func (s *recordingSource) Existing(ctx context.Context) ([]session.Candidate, error) {
	s.enumerated = true
	return nil, nil
}

func (s *recordingSource) Watch(ctx context.Context) (<-chan session.Change, error) {
	s.watched = true
	ch := make(chan session.Change)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func TestStartDaemonKeyboardFailureAbortsStartup(t *testing.T) {
	boom := errors.New("uinput unavailable")
	src := &recordingSource{}
	r := &Run{
		newKeyboard: func(*slog.Logger, time.Duration) (*virtkbd.Keyboard, error) {
			return nil, boom
		},
		source: src,
	}

	err := r.StartDaemon(context.Background(), discardLogger(), log.NewEvents(nil))
	require.ErrorIs(t, err, boom)
	assert.False(t, src.watched, "no device monitoring may start when the keyboard cannot be created")
	assert.False(t, src.enumerated)
}

func TestStartDaemonStopsOnContextCancel(t *testing.T) {
	src := &recordingSource{}
	r := &Run{
		Remap: RemapConfig{SideButtons: true, ExtraButtons: true, Hold: time.Millisecond},
		newKeyboard: func(logger *slog.Logger, hold time.Duration) (*virtkbd.Keyboard, error) {
			return virtkbd.FromSink(logger, hold, nil), nil
		},
		source: src,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, r.StartDaemon(ctx, discardLogger(), log.NewEvents(nil)))
	assert.True(t, src.watched)
}
