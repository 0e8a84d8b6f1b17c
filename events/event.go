// Package events fans out session and connection activity to observers such as
// frame log writers and telemetry displays.
//
// Publishing never blocks: a Hub buffers events for a single dispatch goroutine and
// drops (and counts) events when the buffer is full, so a slow observer can never
// stall the wire.
package events

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/transport"
)

// Type identifies what an Event reports.
type Type uint8

const (
	// FrameSent reports a command frame written to the wire.
	FrameSent Type = iota + 1
	// FrameReceived reports a complete response frame read from the wire.
	FrameReceived
	// PacketDecoded reports a decoded response packet.
	PacketDecoded
	// ExchangeFailed reports an exchange that resolved to a failure.
	ExchangeFailed
	// StateChanged reports a connection state transition.
	StateChanged
)

func (t Type) String() string {
	switch t {
	case FrameSent:
		return "frame-sent"
	case FrameReceived:
		return "frame-received"
	case PacketDecoded:
		return "packet-decoded"
	case ExchangeFailed:
		return "exchange-failed"
	case StateChanged:
		return "state-changed"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Event is one notification. Fields not relevant to Type are zero.
type Event struct {
	Type   Type
	Time   time.Time
	Kind   codec.Kind
	Frame  []byte
	Packet codec.Packet
	Err    error
	State  transport.ConnState
}

// String renders the event as a single log line.
func (e Event) String() string {
	ts := e.Time.Format("2006-01-02T15:04:05.000")
	switch e.Type {
	case FrameSent, FrameReceived:
		return fmt.Sprintf("%s %s %s % X", ts, e.Type, e.Kind, e.Frame)
	case PacketDecoded:
		return fmt.Sprintf("%s %s %s", ts, e.Type, e.Kind)
	case ExchangeFailed:
		return fmt.Sprintf("%s %s %s: %v", ts, e.Type, e.Kind, e.Err)
	case StateChanged:
		return fmt.Sprintf("%s %s %s", ts, e.Type, e.State)
	default:
		return fmt.Sprintf("%s %s", ts, e.Type)
	}
}

// FrameHex returns the frame bytes as a lowercase hex string.
func (e Event) FrameHex() string {
	return hex.EncodeToString(e.Frame)
}
