package events

import (
	"fmt"
	"io"
	"sync"

	"github.com/arloliu/go-pldlink/logger"
)

// LogHandler returns a Handler that logs each event at debug level, and failures at warn level.
func LogHandler(l logger.Logger) Handler {
	return func(ev Event) {
		switch ev.Type {
		case FrameSent, FrameReceived:
			l.Debug("events: frame", "type", ev.Type, "kind", ev.Kind, "frame", ev.FrameHex())
		case PacketDecoded:
			l.Debug("events: packet decoded", "kind", ev.Kind)
		case ExchangeFailed:
			l.Warn("events: exchange failed", "kind", ev.Kind, "error", ev.Err)
		case StateChanged:
			l.Info("events: connection state changed", "state", ev.State)
		}
	}
}

// TextWriter appends one line per event to w. Write errors are reported once through l.
type TextWriter struct {
	mu     sync.Mutex
	w      io.Writer
	logger logger.Logger
	failed bool
}

// NewTextWriter creates a TextWriter over w.
func NewTextWriter(w io.Writer, l logger.Logger) *TextWriter {
	if l == nil {
		l = logger.GetLogger()
	}

	return &TextWriter{w: w, logger: l}
}

// Handle writes ev. It can be passed to Hub.Subscribe.
func (tw *TextWriter) Handle(ev Event) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if _, err := fmt.Fprintln(tw.w, ev.String()); err != nil && !tw.failed {
		tw.failed = true
		tw.logger.Error("events: failed to write event log", "error", err)
	}
}
