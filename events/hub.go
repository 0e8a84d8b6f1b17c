package events

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-pldlink/internal/pool"
	"github.com/arloliu/go-pldlink/logger"
	"github.com/arloliu/go-pldlink/transport"
)

const (
	// DefaultBufferSize is the number of events buffered ahead of the dispatch goroutine.
	DefaultBufferSize = 256
	// DefaultCloseTimeout bounds how long Close waits for buffered events to be delivered.
	DefaultCloseTimeout = 2 * time.Second
)

// Handler receives events. Handlers run on the hub's dispatch goroutine, one at a time.
type Handler func(Event)

// HubMetrics contains atomic counters of a Hub.
type HubMetrics struct {
	// PublishedCount indicates the number of events accepted into the buffer.
	PublishedCount atomic.Uint64
	// DroppedCount indicates the number of events dropped because the buffer was full or the hub closed.
	DroppedCount atomic.Uint64
	// DeliveredCount indicates the number of handler invocations.
	DeliveredCount atomic.Uint64
}

// Hub delivers published events to subscribed handlers.
type Hub struct {
	subs   *xsync.MapOf[uint64, Handler]
	nextID atomic.Uint64
	events chan Event
	done   chan struct{}
	exited chan struct{}

	closeOnce    sync.Once
	closeTimeout time.Duration
	metrics      HubMetrics
	logger       logger.Logger
}

// HubOption is a functional option for configuring a Hub.
type HubOption interface {
	apply(*Hub) error
}

type hubOptFunc func(*Hub) error

func (f hubOptFunc) apply(h *Hub) error { return f(h) }

// WithBufferSize sets the event buffer size.
func WithBufferSize(n int) HubOption {
	return hubOptFunc(func(h *Hub) error {
		if n < 1 {
			return errors.New("events: buffer size must be positive")
		}
		h.events = make(chan Event, n)

		return nil
	})
}

// WithCloseTimeout sets how long Close waits for the buffer to drain.
func WithCloseTimeout(d time.Duration) HubOption {
	return hubOptFunc(func(h *Hub) error {
		if d <= 0 {
			return errors.New("events: close timeout must be positive")
		}
		h.closeTimeout = d

		return nil
	})
}

// WithLogger sets the logger of the hub.
func WithLogger(l logger.Logger) HubOption {
	return hubOptFunc(func(h *Hub) error {
		if l == nil {
			return errors.New("events: logger must not be nil")
		}
		h.logger = l

		return nil
	})
}

// NewHub creates a Hub and starts its dispatch goroutine.
func NewHub(opts ...HubOption) (*Hub, error) {
	h := &Hub{
		subs:         xsync.NewMapOf[uint64, Handler](),
		done:         make(chan struct{}),
		exited:       make(chan struct{}),
		closeTimeout: DefaultCloseTimeout,
		logger:       logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(h); err != nil {
			return nil, err
		}
	}
	if h.events == nil {
		h.events = make(chan Event, DefaultBufferSize)
	}

	go h.dispatch()

	return h, nil
}

// Subscribe registers a handler and returns a function that removes it.
func (h *Hub) Subscribe(handler Handler) (unsubscribe func()) {
	if handler == nil {
		return func() {}
	}

	id := h.nextID.Add(1)
	h.subs.Store(id, handler)

	return func() { h.subs.Delete(id) }
}

// Subscribers returns the number of registered handlers.
func (h *Hub) Subscribers() int {
	return h.subs.Size()
}

// Publish queues ev for delivery without blocking. A zero Time is set to now.
// Safe to call on a nil Hub.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}

	select {
	case <-h.done:
		h.metrics.DroppedCount.Add(1)
		return
	default:
	}

	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	select {
	case h.events <- ev:
		h.metrics.PublishedCount.Add(1)
	default:
		h.metrics.DroppedCount.Add(1)
	}
}

// StateHandler returns a connection state handler that publishes StateChanged events.
func (h *Hub) StateHandler() transport.ConnStateChangeHandler {
	return func(_, cur transport.ConnState) {
		h.Publish(Event{Type: StateChanged, State: cur})
	}
}

// Metrics returns the hub counters.
func (h *Hub) Metrics() *HubMetrics {
	return &h.metrics
}

// Close stops accepting events, delivers what is already buffered and stops the
// dispatch goroutine. It waits at most the close timeout. Close is idempotent.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)

		timer := pool.GetTimer(h.closeTimeout)
		defer pool.PutTimer(timer)

		select {
		case <-h.exited:
		case <-timer.C:
			h.logger.Warn("events: timed out delivering buffered events", "pending", len(h.events))
		}
	})
}

func (h *Hub) dispatch() {
	defer close(h.exited)

	for {
		select {
		case ev := <-h.events:
			h.deliver(ev)
		case <-h.done:
			for {
				select {
				case ev := <-h.events:
					h.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (h *Hub) deliver(ev Event) {
	h.subs.Range(func(id uint64, handler Handler) bool {
		h.callWithRecover(id, handler, ev)
		return true
	})
}

func (h *Hub) callWithRecover(id uint64, handler Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("events: panic in handler", "subscriber", id, "type", ev.Type, "panic", r)
		}
	}()

	handler(ev)
	h.metrics.DeliveredCount.Add(1)
}
