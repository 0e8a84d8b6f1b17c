package session

import (
	"time"

	"github.com/arloliu/go-pldlink/codec"
)

// Outcome is the result of one exchange: a decoded Packet or a Failure, never both.
type Outcome struct {
	Command codec.Command
	Packet  codec.Packet
	Err     *Failure
	Elapsed time.Duration
}

// OK reports whether the exchange produced a packet.
func (o Outcome) OK() bool { return o.Err == nil && o.Packet != nil }

// Error returns the failure as an error, or nil on success.
func (o Outcome) Error() error {
	if o.Err == nil {
		return nil
	}

	return o.Err
}

// FailureKind returns the failure kind, or zero on success.
func (o Outcome) FailureKind() FailureKind {
	if o.Err == nil {
		return 0
	}

	return o.Err.Kind
}

// Failed builds the Outcome of cmd resolved with f.
func Failed(cmd codec.Command, f *Failure) Outcome {
	return Outcome{Command: cmd, Err: f}
}

// PacketAs returns the outcome's packet as T.
// ok is false on failure or when the packet has another type.
func PacketAs[T codec.Packet](o Outcome) (pkt T, ok bool) {
	if o.Err != nil || o.Packet == nil {
		return pkt, false
	}
	pkt, ok = o.Packet.(T)

	return pkt, ok
}
