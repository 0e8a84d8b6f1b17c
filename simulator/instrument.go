package simulator

import (
	"errors"
	"io/fs"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/internal/pool"
	"github.com/arloliu/go-pldlink/logger"
	"github.com/arloliu/go-pldlink/transport"
)

var (
	// ErrUnplugged is returned by every port operation after Unplug.
	ErrUnplugged = errors.New("simulator: device disconnected")
	// ErrPortClosed is returned by port operations after Close.
	ErrPortClosed = errors.New("simulator: port closed")
)

type chunk struct {
	data    []byte
	readyAt time.Time
}

// Instrument is a simulated instrument behind a serial port.
type Instrument struct {
	codec   codec.FrameCodec
	logger  logger.Logger
	latency time.Duration
	now     func() time.Time

	mu       sync.Mutex
	notify   chan struct{}
	rx       []byte
	tx       []chunk
	timeout  time.Duration
	closed   bool
	unplug   bool
	muted    map[codec.Kind]bool
	corrupt  map[codec.Kind]bool
	received []codec.Command

	model model
}

// Option is a functional option for configuring an Instrument.
type Option interface {
	apply(*Instrument)
}

type optFunc func(*Instrument)

func (f optFunc) apply(in *Instrument) { f(in) }

// WithLatency delays every reply by d.
func WithLatency(d time.Duration) Option {
	return optFunc(func(in *Instrument) { in.latency = d })
}

// WithLogger sets the logger of the instrument.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(in *Instrument) {
		if l != nil {
			in.logger = l
		}
	})
}

// WithEventsPerBatch sets how many science events each GetScience reply carries.
func WithEventsPerBatch(n int) Option {
	return optFunc(func(in *Instrument) {
		in.model.eventsPerBatch = min(max(n, 0), codec.MaxScienceEvents)
	})
}

// New creates an Instrument with a powered analog board and the default configuration.
func New(opts ...Option) *Instrument {
	in := &Instrument{
		codec:   codec.NewFrameCodec(),
		logger:  logger.GetLogger(),
		now:     time.Now,
		notify:  make(chan struct{}, 1),
		timeout: transport.ReadTimeout,
		muted:   make(map[codec.Kind]bool),
		corrupt: make(map[codec.Kind]bool),
	}
	in.model = newModel(in.now())

	for _, opt := range opts {
		opt.apply(in)
	}

	return in
}

// Opener returns a transport.PortOpener that opens this instrument under any name.
// A closed instrument is reopened.
func (in *Instrument) Opener() transport.PortOpener {
	return func(name string, _ *serial.Mode) (transport.Port, error) {
		in.mu.Lock()
		defer in.mu.Unlock()

		if in.unplug {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		in.closed = false
		in.rx, in.tx = nil, nil

		return in, nil
	}
}

// Lister returns a transport.PortLister reporting the instrument under name.
func (in *Instrument) Lister(name string) transport.PortLister {
	return func() ([]string, error) { return []string{name}, nil }
}

// Mute makes the instrument ignore commands of kind, or answer them again.
func (in *Instrument) Mute(kind codec.Kind, on bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.muted[kind] = on
}

// Corrupt makes replies to kind carry a bad checksum, or valid ones again.
func (in *Instrument) Corrupt(kind codec.Kind, on bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.corrupt[kind] = on
}

// Unplug makes every port operation fail like a removed USB adapter.
func (in *Instrument) Unplug() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.unplug = true
	in.signal()
}

// Replug reverses Unplug.
func (in *Instrument) Replug() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.unplug = false
}

// Received returns the commands decoded so far.
func (in *Instrument) Received() []codec.Command {
	in.mu.Lock()
	defer in.mu.Unlock()

	return append([]codec.Command(nil), in.received...)
}

// Powered reports whether target is switched on.
func (in *Instrument) Powered(target codec.ControlTarget) bool {
	in.mu.Lock()
	defer in.mu.Unlock()

	return in.model.status&(1<<(target-1)) != 0
}

// Config returns a copy of the current configuration table.
func (in *Instrument) Config() codec.ConfigTable {
	in.mu.Lock()
	defer in.mu.Unlock()

	return in.model.config.Clone()
}

// --- transport.Port ---

var _ transport.Port = (*Instrument)(nil)

// Read returns reply bytes that are due, waiting at most the read timeout.
// It returns (0, nil) when the timeout elapses, like a serial device.
func (in *Instrument) Read(p []byte) (int, error) {
	in.mu.Lock()
	deadline := in.now().Add(in.timeout)
	for {
		if err := in.checkLocked(); err != nil {
			in.mu.Unlock()
			return 0, err
		}

		now := in.now()
		if n := in.readDueLocked(p, now); n > 0 {
			in.mu.Unlock()
			return n, nil
		}

		wait := deadline.Sub(now)
		if len(in.tx) > 0 {
			wait = min(wait, in.tx[0].readyAt.Sub(now))
		}
		if wait <= 0 && !now.Before(deadline) {
			in.mu.Unlock()
			return 0, nil
		}
		in.mu.Unlock()

		if wait > 0 {
			timer := pool.GetTimer(wait)
			select {
			case <-in.notify:
			case <-timer.C:
			}
			pool.PutTimer(timer)
		}

		in.mu.Lock()
	}
}

func (in *Instrument) readDueLocked(p []byte, now time.Time) int {
	n := 0
	for n < len(p) && len(in.tx) > 0 && !in.tx[0].readyAt.After(now) {
		c := copy(p[n:], in.tx[0].data)
		n += c
		if c < len(in.tx[0].data) {
			in.tx[0].data = in.tx[0].data[c:]
		} else {
			in.tx = in.tx[1:]
		}
	}

	return n
}

// Write accepts command bytes and queues replies for complete frames.
func (in *Instrument) Write(p []byte) (int, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.checkLocked(); err != nil {
		return 0, err
	}

	in.rx = append(in.rx, p...)
	in.processLocked()

	return len(p), nil
}

// Close closes the port. It is safe to call more than once.
func (in *Instrument) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.closed = true
	in.signal()

	return nil
}

// SetReadTimeout sets how long Read waits for data.
func (in *Instrument) SetReadTimeout(t time.Duration) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.checkLocked(); err != nil {
		return err
	}
	in.timeout = max(t, 0)

	return nil
}

// ResetInputBuffer drops reply bytes not yet read, including ones still in flight.
func (in *Instrument) ResetInputBuffer() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.checkLocked(); err != nil {
		return err
	}
	in.tx = nil

	return nil
}

// ResetOutputBuffer is a no-op: writes reach the instrument immediately.
func (in *Instrument) ResetOutputBuffer() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	return in.checkLocked()
}

// Drain is a no-op: writes reach the instrument immediately.
func (in *Instrument) Drain() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	return in.checkLocked()
}

func (in *Instrument) checkLocked() error {
	switch {
	case in.unplug:
		return ErrUnplugged
	case in.closed:
		return ErrPortClosed
	default:
		return nil
	}
}

func (in *Instrument) signal() {
	select {
	case in.notify <- struct{}{}:
	default:
	}
}

// processLocked consumes complete frames from rx. Bytes before a sync pattern are dropped.
func (in *Instrument) processLocked() {
	for len(in.rx) >= codec.HeaderSize {
		size, err := in.codec.FrameLength(in.rx)
		if err != nil {
			// resynchronize on the next byte
			in.model.crcErrors++
			in.rx = in.rx[1:]

			continue
		}
		if len(in.rx) < size {
			return
		}

		frame := in.rx[:size]
		in.rx = in.rx[size:]

		cmd, err := in.codec.DecodeCommand(frame)
		if err != nil {
			in.model.crcErrors++
			in.logger.Debug("simulator: dropped bad command frame", "error", err)

			continue
		}
		in.received = append(in.received, cmd)
		in.model.commands++

		if in.muted[cmd.Kind()] {
			continue
		}

		reply, err := in.codec.EncodePacket(in.model.handle(cmd, in.now()))
		if err != nil {
			in.logger.Error("simulator: failed to encode reply", "kind", cmd.Kind(), "error", err)
			continue
		}
		if in.corrupt[cmd.Kind()] {
			reply[len(reply)-1] ^= 0xFF
		}

		in.tx = append(in.tx, chunk{data: reply, readyAt: in.now().Add(in.latency)})
		in.signal()
	}
}
