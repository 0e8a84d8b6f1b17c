package transport

import (
	"errors"
	"io/fs"
	"sync"
	"testing"
	"time"

	"go.bug.st/serial"

	"github.com/arloliu/go-pldlink/logger"
)

// fakePort is a scripted Port. Reads return queued chunks; with nothing queued a
// read waits for the configured timeout and returns (0, nil) like a real device.
type fakePort struct {
	mu        sync.Mutex
	chunks    [][]byte
	written   []byte
	timeout   time.Duration
	readErr   error
	writeErr  error
	resetErr  error
	closed    bool
	closeErr  error
	closeCnt  int
	resetsIn  int
	resetsOut int
	drains    int
	reads     int
}

func (p *fakePort) feed(chunks ...[]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, chunks...)
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	p.reads++
	if p.readErr != nil {
		err := p.readErr
		p.mu.Unlock()

		return 0, err
	}
	if len(p.chunks) == 0 {
		timeout := p.timeout
		p.mu.Unlock()
		time.Sleep(timeout)

		return 0, nil
	}
	defer p.mu.Unlock()

	n := copy(b, p.chunks[0])
	if n < len(p.chunks[0]) {
		p.chunks[0] = p.chunks[0][n:]
	} else {
		p.chunks = p.chunks[1:]
	}

	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written = append(p.written, b...)

	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.closeCnt++

	return p.closeErr
}

func (p *fakePort) SetReadTimeout(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = d

	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetsIn++
	if p.resetErr != nil {
		return p.resetErr
	}
	p.chunks = nil

	return nil
}

func (p *fakePort) ResetOutputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetsOut++

	return p.resetErr
}

func (p *fakePort) Drain() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drains++

	return nil
}

func (p *fakePort) writtenBytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]byte(nil), p.written...)
}

// newOpenTransport returns a Transport that has opened the given fake port as "fake0".
func newOpenTransport(t *testing.T, port *fakePort, opts ...Option) *Transport {
	t.Helper()

	opener := func(name string, _ *serial.Mode) (Port, error) {
		if name != "fake0" {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}

		return port, nil
	}

	tr, err := New(append([]Option{WithLogger(logger.NewNopMockLogger()), WithPortOpener(opener)}, opts...)...)
	if err != nil {
		t.Fatalf("newOpenTransport: %v", err)
	}
	if err := tr.Open("fake0"); err != nil {
		t.Fatalf("newOpenTransport: %v", err)
	}
	t.Cleanup(tr.Close)

	return tr
}

var errUnplugged = errors.New("device disconnected")
