package transport

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/arloliu/go-pldlink/logger"
)

// maxSpill bounds the bytes PendingInbound pre-fetches from the port.
const maxSpill = 64 * 1024

// Transport is the serial connection to the instrument.
//
// All methods are goroutine-safe. I/O calls hold an internal lock for at most
// ReadTimeout, so Close issued during a Receive waits for that Receive to return.
type Transport struct {
	cfg      *Config
	logger   logger.Logger
	stateMgr *StateManager

	mu   sync.Mutex
	port Port
	name string
	// spill holds inbound bytes pre-fetched by PendingInbound; Receive consumes it first.
	spill []byte
	chunk []byte
}

// New creates a Transport in the Closed state.
func New(opts ...Option) (*Transport, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	t := &Transport{
		cfg:    cfg,
		logger: cfg.logger,
		chunk:  make([]byte, 4096),
	}
	t.stateMgr = NewStateManager(cfg.logger, cfg.handlers...)

	return t, nil
}

// ListPorts returns the names of the serial ports present on the system, sorted.
func (t *Transport) ListPorts() ([]string, error) {
	names, err := t.cfg.lister()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListPorts, err)
	}
	slices.Sort(names)

	return names, nil
}

// State returns the current connection state.
func (t *Transport) State() ConnState {
	return t.stateMgr.State()
}

// StateManager returns the connection state manager.
func (t *Transport) StateManager() *StateManager {
	return t.stateMgr
}

// Name returns the name of the open port, or an empty string when none is held.
func (t *Transport) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.name
}

// Open opens the named port with the fixed link parameters.
//
// On failure the connection stays Closed and the returned error wraps
// ErrPortUnavailable or ErrOpenFailed.
func (t *Transport) Open(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyOpen, t.name)
	}

	port, err := t.cfg.opener(name, LinkMode())
	if err != nil {
		t.logger.Warn("transport: failed to open port", "port", name, "error", err)
		return classifyOpenError(name, err)
	}

	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		if cerr := port.Close(); cerr != nil {
			t.logger.Warn("transport: failed to close half-opened port", "port", name, "error", cerr)
		}

		return fmt.Errorf("%w: %s: set read timeout: %w", ErrOpenFailed, name, err)
	}

	t.port = port
	t.name = name
	t.spill = t.spill[:0]
	t.stateMgr.ToOpen()
	t.logger.Info("transport: port opened", "port", name, "baudRate", BaudRate)

	return nil
}

// Close releases the port. It is idempotent; underlying close errors are logged.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		if err := t.port.Close(); err != nil {
			t.logger.Warn("transport: error while closing port", "port", t.name, "error", err)
		}
		t.logger.Info("transport: port closed", "port", t.name)
	}

	t.port = nil
	t.name = ""
	t.spill = t.spill[:0]
	t.stateMgr.ToClosed()
}

// FlushOutbound discards bytes queued for transmission.
func (t *Transport) FlushOutbound() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkOpen(); err != nil {
		return err
	}

	if err := t.port.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("%w: outbound: %w", ErrBufferFlushFailed, err)
	}

	return nil
}

// FlushInbound discards bytes received but not yet read, including pre-fetched ones.
func (t *Transport) FlushInbound() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkOpen(); err != nil {
		return err
	}

	t.spill = t.spill[:0]
	if err := t.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("%w: inbound: %w", ErrBufferFlushFailed, err)
	}

	return nil
}

// Send writes all bytes to the port and waits until they are transmitted.
//
// Outbound bytes left over from an earlier exchange are discarded first.
// A write error faults the connection.
func (t *Transport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkOpen(); err != nil {
		return err
	}

	if err := t.port.ResetOutputBuffer(); err != nil {
		t.logger.Warn("transport: failed to flush outbound before send", "port", t.name, "error", err)
	}

	for written := 0; written < len(data); {
		n, err := t.port.Write(data[written:])
		written += n

		if err != nil {
			t.fault(err)
			return fmt.Errorf("%w: %w", ErrSendFailure, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: short write %d of %d bytes", ErrSendFailure, written, len(data))
		}
	}

	if err := t.port.Drain(); err != nil {
		t.logger.Warn("transport: failed to drain outbound", "port", t.name, "error", err)
	}

	return nil
}

// Receive reads exactly n bytes within one overall ReadTimeout.
//
// When the timeout elapses first, it returns the bytes received so far together
// with an error wrapping ErrReadTimeout; the connection stays Open. An I/O error
// faults the connection and returns an error wrapping ErrReadFailure.
func (t *Transport) Receive(n int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkOpen(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, n)
	take := min(n, len(t.spill))
	buf = append(buf, t.spill[:take]...)
	t.spill = t.spill[:copy(t.spill, t.spill[take:])]

	deadline := time.Now().Add(ReadTimeout)
	for len(buf) < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return buf, fmt.Errorf("%w: got %d of %d bytes", ErrReadTimeout, len(buf), n)
		}

		if err := t.port.SetReadTimeout(remaining); err != nil {
			t.fault(err)
			return buf, fmt.Errorf("%w: set read timeout: %w", ErrReadFailure, err)
		}

		chunk := t.chunk[:min(n-len(buf), len(t.chunk))]
		k, err := t.port.Read(chunk)
		buf = append(buf, chunk[:k]...)

		if err != nil {
			t.fault(err)
			return buf, fmt.Errorf("%w: %w", ErrReadFailure, err)
		}
		if k == 0 {
			return buf, fmt.Errorf("%w: got %d of %d bytes", ErrReadTimeout, len(buf), n)
		}
	}

	return buf, nil
}

// PendingInbound returns the number of received bytes waiting to be read,
// or -1 when the connection is not Open. It does not wait for new data.
func (t *Transport) PendingInbound() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil || !t.stateMgr.State().IsOpen() {
		return -1
	}

	if err := t.port.SetReadTimeout(0); err != nil {
		t.logger.Debug("transport: non-blocking read unsupported", "port", t.name, "error", err)
		return len(t.spill)
	}

	for len(t.spill) < maxSpill {
		k, err := t.port.Read(t.chunk[:min(len(t.chunk), maxSpill-len(t.spill))])
		t.spill = append(t.spill, t.chunk[:k]...)

		if err != nil {
			t.fault(err)
			return -1
		}
		if k == 0 {
			break
		}
	}

	return len(t.spill)
}

func (t *Transport) checkOpen() error {
	if t.port == nil {
		return ErrNotConnected
	}

	if state := t.stateMgr.State(); !state.IsOpen() {
		return fmt.Errorf("%w: connection %s", ErrNotConnected, state)
	}

	return nil
}

// fault moves the connection to Faulted. The port is kept until Close.
func (t *Transport) fault(err error) {
	if t.stateMgr.ToFaulted() {
		t.logger.Error("transport: port faulted", "port", t.name, "error", err)
	}
}
