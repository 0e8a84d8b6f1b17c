package events

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/logger"
	"github.com/arloliu/go-pldlink/transport"
)

func newTestHub(t *testing.T, opts ...HubOption) *Hub {
	t.Helper()

	h, err := NewHub(append([]HubOption{WithLogger(logger.NewNopMockLogger())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(h.Close)

	return h
}

func TestHub_DeliversInOrder(t *testing.T) {
	h := newTestHub(t)

	var mu sync.Mutex
	var got []Type
	h.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev.Type)
	})

	h.Publish(Event{Type: FrameSent})
	h.Publish(Event{Type: FrameReceived})
	h.Publish(Event{Type: PacketDecoded})
	h.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []Type{FrameSent, FrameReceived, PacketDecoded}, got)
	require.EqualValues(t, 3, h.Metrics().DeliveredCount.Load())
}

func TestHub_Unsubscribe(t *testing.T) {
	h := newTestHub(t)

	var count atomic.Int32
	unsubscribe := h.Subscribe(func(Event) { count.Add(1) })
	require.Equal(t, 1, h.Subscribers())

	h.Publish(Event{Type: FrameSent})
	require.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, 5*time.Millisecond)

	unsubscribe()
	require.Equal(t, 0, h.Subscribers())
	h.Publish(Event{Type: FrameSent})
	h.Close()
	require.EqualValues(t, 1, count.Load())
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	h := newTestHub(t, WithBufferSize(1), WithCloseTimeout(50*time.Millisecond))

	release := make(chan struct{})
	h.Subscribe(func(Event) { <-release })
	defer close(release)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 100 {
			h.Publish(Event{Type: FrameSent})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	require.Positive(t, h.Metrics().DroppedCount.Load())
}

func TestHub_PanickingHandlerIsContained(t *testing.T) {
	h := newTestHub(t)

	var count atomic.Int32
	h.Subscribe(func(Event) { panic("boom") })
	h.Subscribe(func(Event) { count.Add(1) })

	h.Publish(Event{Type: ExchangeFailed})
	h.Publish(Event{Type: ExchangeFailed})
	h.Close()

	require.EqualValues(t, 2, count.Load())
}

func TestHub_PublishAfterCloseIsDropped(t *testing.T) {
	h := newTestHub(t)
	h.Close()
	h.Close()

	h.Publish(Event{Type: FrameSent})
	require.EqualValues(t, 1, h.Metrics().DroppedCount.Load())

	var nilHub *Hub
	nilHub.Publish(Event{Type: FrameSent})
}

func TestHub_StateHandler(t *testing.T) {
	h := newTestHub(t)

	var got []transport.ConnState
	h.Subscribe(func(ev Event) {
		if ev.Type == StateChanged {
			got = append(got, ev.State)
		}
	})

	sm := transport.NewStateManager(logger.NewNopMockLogger(), h.StateHandler())
	sm.ToOpen()
	sm.ToFaulted()
	sm.ToClosed()
	h.Close()

	require.Equal(t, []transport.ConnState{transport.Open, transport.Faulted, transport.Closed}, got)
}

func TestHub_OptionValidation(t *testing.T) {
	_, err := NewHub(WithBufferSize(0))
	require.Error(t, err)
	_, err = NewHub(WithCloseTimeout(0))
	require.Error(t, err)
	_, err = NewHub(WithLogger(nil))
	require.Error(t, err)
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTextWriter(&buf, logger.NewNopMockLogger())
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tw.Handle(Event{Type: FrameSent, Time: ts, Kind: codec.KindGetHousekeeping, Frame: []byte{0xEB, 0x90}})
	tw.Handle(Event{Type: ExchangeFailed, Time: ts, Kind: codec.KindGetScience, Err: errors.New("read timeout")})
	tw.Handle(Event{Type: StateChanged, Time: ts, State: transport.Faulted})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2024-05-01T12:00:00.000 frame-sent get-housekeeping EB 90", lines[0])
	assert.Equal(t, "2024-05-01T12:00:00.000 exchange-failed get-science: read timeout", lines[1])
	assert.Equal(t, "2024-05-01T12:00:00.000 state-changed faulted", lines[2])
}

func TestEvent_FrameHex(t *testing.T) {
	require.Equal(t, "eb9001", Event{Frame: []byte{0xEB, 0x90, 0x01}}.FrameHex())
	require.Equal(t, "type(99)", Type(99).String())
}
