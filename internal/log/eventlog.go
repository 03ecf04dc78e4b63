package log

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// EventLogger records raw input events, one line each, with optional file
// output. It exists separately from the structured logger so that a full
// event dump can be captured without drowning the normal log.
type EventLogger interface {
	Log(device string, evType, code uint16, value int32)
}

// eventLogger implements EventLogger with thread-safe output.
type eventLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewEvents creates a new EventLogger. If writer is nil, returns a no-op logger.
func NewEvents(w io.Writer) EventLogger {
	return &eventLogger{w: w}
}

// Log emits a single-line record of one input event as read from a device.
func (e *eventLogger) Log(device string, evType, code uint16, value int32) {
	if e.w == nil {
		return
	}

	line := fmt.Sprintf("%s %s type=0x%02x code=0x%03x value=%d\n",
		time.Now().Format("2006/01/02 15:04:05.000"),
		device,
		evType,
		code,
		value)

	e.mu.Lock()
	_, _ = e.w.Write([]byte(line))
	e.mu.Unlock()
}
