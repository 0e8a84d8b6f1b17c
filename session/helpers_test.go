package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/logger"
	"github.com/arloliu/go-pldlink/transport"
)

// replyFunc builds the reply frame for a decoded command; nil means stay silent.
type replyFunc func(cmd codec.Command) []byte

// fakeTransport answers command frames from a reply table and records every call.
type fakeTransport struct {
	mu       sync.Mutex
	state    transport.ConnState
	calls    []string
	inbound  []byte
	reply    replyFunc
	sendErr  error
	recvErr  error
	flushErr error
	openErr  error
	sendLag  time.Duration

	// busy is set from Send until the frame is fully read; overlap records a second Send meanwhile.
	busy    atomic.Bool
	overlap atomic.Bool
}

func newFakeTransport(reply replyFunc) *fakeTransport {
	return &fakeTransport{state: transport.Open, reply: reply}
}

func (f *fakeTransport) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeTransport) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

func (f *fakeTransport) setState(s transport.ConnState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

func (f *fakeTransport) State() transport.ConnState {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

func (f *fakeTransport) Open(name string) error {
	f.record("open:" + name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.state = transport.Open

	return nil
}

func (f *fakeTransport) Close() {
	f.record("close")
	f.setState(transport.Closed)
}

func (f *fakeTransport) FlushOutbound() error {
	f.record("flush-out")
	return f.flushErr
}

func (f *fakeTransport) FlushInbound() error {
	f.record("flush-in")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbound = nil

	return f.flushErr
}

func (f *fakeTransport) Send(data []byte) error {
	if !f.busy.CompareAndSwap(false, true) {
		f.overlap.Store(true)
	}
	if f.sendLag > 0 {
		time.Sleep(f.sendLag)
	}

	cmd, err := codec.NewFrameCodec().DecodeCommand(data)
	if err != nil {
		return fmt.Errorf("fake transport got a bad frame: %w", err)
	}
	f.record("send:" + cmd.Kind().String())

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		f.busy.Store(false)
		return f.sendErr
	}
	if f.reply != nil {
		f.inbound = append(f.inbound, f.reply(cmd)...)
	}

	return nil
}

func (f *fakeTransport) Receive(n int) ([]byte, error) {
	f.record(fmt.Sprintf("recv:%d", n))

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recvErr != nil {
		f.busy.Store(false)
		return nil, f.recvErr
	}
	if len(f.inbound) < n {
		got := f.inbound
		f.inbound = nil
		f.busy.Store(false)

		return got, fmt.Errorf("%w: got %d of %d bytes", transport.ErrReadTimeout, len(got), n)
	}

	out := append([]byte(nil), f.inbound[:n]...)
	f.inbound = f.inbound[n:]
	if len(f.inbound) == 0 {
		f.busy.Store(false)
	}

	return out, nil
}

// echoReplies answers every command with the packet the instrument would send.
func echoReplies(t *testing.T) replyFunc {
	t.Helper()

	c := codec.NewFrameCodec()

	return func(cmd codec.Command) []byte {
		var pkt codec.Packet
		switch cmd.Kind() {
		case codec.KindGetHousekeeping:
			pkt = &codec.Housekeeping{Uptime: 42}
		case codec.KindGetScience:
			pkt = &codec.Science{Sequence: 1, Events: []codec.Event{{Timestamp: 5, Detector: 1, Pixel: 2, Energy: 3}}}
		case codec.KindGetConfig:
			tbl := codec.DefaultConfigTable()
			pkt = &tbl
		case codec.KindGetDebug:
			pkt = &codec.Debug{CommandCount: 7}
		case codec.KindSetControl:
			target, enable, _ := cmd.Control()
			pkt = &codec.ControlAck{Target: target, Enabled: enable}
		case codec.KindPassThrough:
			pkt = &codec.PassThroughReply{Data: cmd.Payload()}
		default:
			pkt = &codec.Ack{For: cmd.Kind()}
		}

		frame, err := c.EncodePacket(pkt)
		require.NoError(t, err)

		return frame
	}
}

func newTestSession(t *testing.T, tr Transporter, opts ...Option) *Session {
	t.Helper()

	s, err := New(tr, append([]Option{WithLogger(logger.NewNopMockLogger())}, opts...)...)
	require.NoError(t, err)

	return s
}
