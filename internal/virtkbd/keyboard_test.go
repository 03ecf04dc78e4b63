package virtkbd_test

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m720d/m720d/internal/virtkbd"
)

type recordingSink struct {
	mu     sync.Mutex
	events []evdev.InputEvent
	closed int
	fail   error
}

func (r *recordingSink) WriteOne(ev *evdev.InputEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.events = append(r.events, *ev)
	return nil
}

func (r *recordingSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func key(code evdev.EvCode, value int32) evdev.InputEvent {
	return evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: value}
}

func syn() evdev.InputEvent {
	return evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT, Value: 0}
}

func TestSendComboSequence(t *testing.T) {
	sink := &recordingSink{}
	kbd := virtkbd.FromSink(discardLogger(), time.Millisecond, sink)

	require.NoError(t, kbd.SendCombo(evdev.KEY_LEFTMETA, evdev.KEY_PAGEDOWN))

	want := []evdev.InputEvent{
		key(evdev.KEY_LEFTMETA, 1),
		key(evdev.KEY_PAGEDOWN, 1),
		syn(),
		key(evdev.KEY_PAGEDOWN, 0),
		key(evdev.KEY_LEFTMETA, 0),
		syn(),
	}
	assert.Equal(t, want, sink.events, "release order must mirror press order")
}

func TestSendComboReleaseMirrorsPress(t *testing.T) {
	sink := &recordingSink{}
	kbd := virtkbd.FromSink(discardLogger(), time.Millisecond, sink)

	require.NoError(t, kbd.SendCombo(evdev.KEY_LEFTALT, evdev.KEY_TAB))

	require.Len(t, sink.events, 6)
	assert.Equal(t, key(evdev.KEY_LEFTALT, 1), sink.events[0])
	assert.Equal(t, key(evdev.KEY_TAB, 1), sink.events[1])
	assert.Equal(t, key(evdev.KEY_TAB, 0), sink.events[3])
	assert.Equal(t, key(evdev.KEY_LEFTALT, 0), sink.events[4])
}

func TestSendComboOnNilSink(t *testing.T) {
	kbd := virtkbd.FromSink(discardLogger(), time.Millisecond, nil)

	err := kbd.SendCombo(evdev.KEY_LEFTMETA, evdev.KEY_PAGEUP)
	assert.ErrorIs(t, err, virtkbd.ErrClosed)
}

func TestSendComboAfterClose(t *testing.T) {
	sink := &recordingSink{}
	kbd := virtkbd.FromSink(discardLogger(), time.Millisecond, sink)

	require.NoError(t, kbd.Close())

	err := kbd.SendCombo(evdev.KEY_LEFTMETA, evdev.KEY_PAGEUP)
	assert.ErrorIs(t, err, virtkbd.ErrClosed)
	assert.Empty(t, sink.events, "no I/O may happen after teardown")
}

func TestCloseIsIdempotent(t *testing.T) {
	sink := &recordingSink{}
	kbd := virtkbd.FromSink(discardLogger(), time.Millisecond, sink)

	require.NoError(t, kbd.Close())
	require.NoError(t, kbd.Close())
	assert.Equal(t, 1, sink.closed, "underlying device must be released exactly once")
}

func TestSendComboWriteFailure(t *testing.T) {
	boom := errors.New("boom")
	sink := &recordingSink{fail: boom}
	kbd := virtkbd.FromSink(discardLogger(), time.Millisecond, sink)

	err := kbd.SendCombo(evdev.KEY_LEFTMETA, evdev.KEY_PAGEDOWN)
	assert.ErrorIs(t, err, boom)
}

// Two goroutines sending chords concurrently must never interleave their
// press/release sequences.
func TestSendComboSerialized(t *testing.T) {
	sink := &recordingSink{}
	kbd := virtkbd.FromSink(discardLogger(), time.Millisecond, sink)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = kbd.SendCombo(evdev.KEY_LEFTMETA, evdev.KEY_PAGEDOWN)
			} else {
				_ = kbd.SendCombo(evdev.KEY_LEFTALT, evdev.KEY_TAB)
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, sink.events, 8*6)
	for i := 0; i < len(sink.events); i += 6 {
		chord := sink.events[i : i+6]
		first, second := chord[0].Code, chord[1].Code
		assert.EqualValues(t, 1, chord[0].Value)
		assert.EqualValues(t, 1, chord[1].Value)
		assert.Equal(t, syn(), chord[2])
		assert.Equal(t, key(second, 0), chord[3])
		assert.Equal(t, key(first, 0), chord[4])
		assert.Equal(t, syn(), chord[5])
	}
}
