package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/events"
	"github.com/arloliu/go-pldlink/logger"
	"github.com/arloliu/go-pldlink/transport"
)

// Transporter is the part of *transport.Transport a Session drives.
type Transporter interface {
	State() transport.ConnState
	Open(name string) error
	Close()
	FlushOutbound() error
	FlushInbound() error
	Send(data []byte) error
	Receive(n int) ([]byte, error)
}

var _ Transporter = (*transport.Transport)(nil)

// Session serializes exchanges over one Transporter.
type Session struct {
	tr      Transporter
	codec   codec.Codec
	hub     *events.Hub
	logger  logger.Logger
	lock    *fifoLock
	metrics Metrics
}

// New creates a Session over tr.
func New(tr Transporter, opts ...Option) (*Session, error) {
	if tr == nil {
		return nil, errors.New("session: transporter must not be nil")
	}

	s := &Session{
		tr:     tr,
		codec:  codec.NewFrameCodec(),
		logger: logger.GetLogger(),
		lock:   newFIFOLock(),
	}

	for _, opt := range opts {
		if err := opt.apply(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Metrics returns the session counters.
func (s *Session) Metrics() *Metrics {
	return &s.metrics
}

// State returns the connection state.
func (s *Session) State() transport.ConnState {
	return s.tr.State()
}

// Waiting returns the number of exchanges queued behind the one holding the wire.
func (s *Session) Waiting() int {
	return s.lock.Waiters()
}

// Open opens the named port. The returned error is a *Failure of kind
// PortUnavailable or OpenFailed.
func (s *Session) Open(name string) error {
	if err := s.tr.Open(name); err != nil {
		return AsFailure(err, OpenFailed)
	}

	return nil
}

// Close closes the port. An exchange in progress finishes first.
func (s *Session) Close() {
	s.tr.Close()
}

// Execute performs one exchange for cmd and always returns an Outcome.
//
// ctx is only honored while waiting for the wire; once the command is sent the
// exchange runs to completion, bounded by the transport read timeout.
func (s *Session) Execute(ctx context.Context, cmd codec.Command) Outcome {
	return s.run(ctx, cmd, nil, false)
}

// Reserve takes the next place in the wire queue without blocking. Exchanges run
// through reservations reach the wire in the order Reserve was called, regardless
// of when their Execute is invoked. The reservation must be executed or released.
func (s *Session) Reserve() *Reservation {
	return &Reservation{s: s, place: s.lock.join()}
}

func (s *Session) run(ctx context.Context, cmd codec.Command, place chan struct{}, reserved bool) Outcome {
	start := time.Now()
	s.metrics.incExchangeCount()

	pkt, f := s.execute(ctx, cmd, place, reserved)

	out := Outcome{Command: cmd, Packet: pkt, Err: f, Elapsed: time.Since(start)}
	if f != nil {
		s.metrics.incFailureCount(f.Kind)
		s.hub.Publish(events.Event{Type: events.ExchangeFailed, Kind: cmd.Kind(), Err: f})
		s.logger.Warn("session: exchange failed", "kind", cmd.Kind(), "failure", f.Kind, "error", f, "elapsed", out.Elapsed)
	} else {
		s.metrics.incSuccessCount()
		s.hub.Publish(events.Event{Type: events.PacketDecoded, Kind: cmd.Kind(), Packet: pkt})
		s.logger.Debug("session: exchange done", "kind", cmd.Kind(), "elapsed", out.Elapsed)
	}

	return out
}

// execute runs one exchange. With reserved set, place is a position taken by
// Reserve; it is consumed on every path.
func (s *Session) execute(ctx context.Context, cmd codec.Command, place chan struct{}, reserved bool) (codec.Packet, *Failure) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cmd.IsZero() {
		s.giveUp(place, reserved)
		return nil, NewFailure(InvalidCommand, "zero command", nil)
	}

	// step 1: reject without touching the wire
	if state := s.tr.State(); !state.IsOpen() {
		s.giveUp(place, reserved)
		return nil, NewFailure(NotConnected, "connection "+state.String(), nil)
	}

	// step 2
	if !reserved {
		place = s.lock.join()
	}
	if err := s.lock.await(ctx, place); err != nil {
		return nil, NewFailure(Aborted, "waiting for the wire", err)
	}
	defer s.lock.Unlock()

	s.metrics.incInflight()
	defer s.metrics.decInflight()

	// the connection may have closed while this exchange waited
	if state := s.tr.State(); !state.IsOpen() {
		return nil, NewFailure(NotConnected, "connection "+state.String(), nil)
	}

	// step 3
	s.flush()

	// step 4
	frame, err := s.codec.Encode(cmd)
	if err != nil {
		return nil, NewFailure(InvalidCommand, cmd.String(), err)
	}
	if err := s.tr.Send(frame); err != nil {
		return nil, AsFailure(err, SendFailure)
	}
	s.metrics.addBytesSent(len(frame))
	s.hub.Publish(events.Event{Type: events.FrameSent, Kind: cmd.Kind(), Frame: frame})

	// step 5
	reply, f := s.receiveFrame()
	if f != nil {
		return nil, f
	}
	s.metrics.addBytesReceived(len(reply))
	s.hub.Publish(events.Event{Type: events.FrameReceived, Kind: cmd.Kind(), Frame: reply})

	// step 6
	pkt, err := s.codec.Decode(reply)
	if err != nil {
		return nil, NewFailure(DecodeFailure, "", err)
	}
	if pkt.Kind() != cmd.Kind() {
		return nil, NewFailure(DecodeFailure, fmt.Sprintf("reply %s does not answer %s", pkt.Kind(), cmd.Kind()), nil)
	}

	// step 7: the deferred unlock releases the wire
	return pkt, nil
}

func (s *Session) giveUp(place chan struct{}, reserved bool) {
	if reserved {
		s.lock.leave(place)
	}
}

func (s *Session) flush() {
	if err := s.tr.FlushInbound(); err != nil {
		s.metrics.incFlushFailureCount()
		s.logger.Warn("session: failed to flush inbound buffer", "error", err)
	}
	if err := s.tr.FlushOutbound(); err != nil {
		s.metrics.incFlushFailureCount()
		s.logger.Warn("session: failed to flush outbound buffer", "error", err)
	}
}

func (s *Session) receiveFrame() ([]byte, *Failure) {
	header, err := s.tr.Receive(s.codec.HeaderLength())
	if err != nil {
		return nil, AsFailure(err, ReadFailure)
	}

	total, err := s.codec.FrameLength(header)
	if err != nil {
		return nil, NewFailure(DecodeFailure, "frame header", err)
	}

	rest, err := s.tr.Receive(total - len(header))
	if err != nil {
		return nil, AsFailure(err, ReadFailure)
	}

	return append(header, rest...), nil
}
