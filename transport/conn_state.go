package transport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-pldlink/logger"
)

// ConnState is the state of the physical link.
type ConnState uint32

const (
	// Closed indicates no port is held.
	Closed ConnState = iota
	// Open indicates the port is held and usable.
	Open
	// Faulted indicates the port reported an unrecoverable I/O error.
	Faulted
)

// IsClosed returns if the state is Closed.
func (cs ConnState) IsClosed() bool { return cs == Closed }

// IsOpen returns if the state is Open.
func (cs ConnState) IsOpen() bool { return cs == Open }

// IsFaulted returns if the state is Faulted.
func (cs ConnState) IsFaulted() bool { return cs == Faulted }

// String returns string representation of the state.
func (cs ConnState) String() string {
	switch cs {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// ConnStateChangeHandler is invoked on every state transition.
//
// Note: handlers are invoked synchronously while the transition is in progress and
// must not trigger another transition.
type ConnStateChangeHandler func(prevState ConnState, newState ConnState)

// StateManager tracks the connection state and notifies handlers of transitions.
//
// Allowed transitions:
//
//	Closed  -> Open     (port opened)
//	Open    -> Faulted  (I/O error)
//	any     -> Closed   (explicit close)
type StateManager struct {
	mu       sync.Mutex
	cond     *sync.Cond
	state    atomic.Uint32
	logger   logger.Logger
	handlers []ConnStateChangeHandler
}

// NewStateManager creates a StateManager in the Closed state.
func NewStateManager(l logger.Logger, handlers ...ConnStateChangeHandler) *StateManager {
	sm := &StateManager{logger: l}
	if sm.logger == nil {
		sm.logger = logger.GetLogger()
	}
	sm.cond = sync.NewCond(&sm.mu)
	sm.AddHandler(handlers...)

	return sm
}

// State returns the current connection state.
func (sm *StateManager) State() ConnState {
	return ConnState(sm.state.Load())
}

// AddHandler registers handlers invoked on each state change.
func (sm *StateManager) AddHandler(handlers ...ConnStateChangeHandler) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			sm.handlers = append(sm.handlers, h)
		}
	}
}

// WaitState blocks until the state equals state or ctx is done.
func (sm *StateManager) WaitState(ctx context.Context, state ConnState) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.State() == state {
		return nil
	}

	stop := context.AfterFunc(ctx, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		sm.cond.Broadcast()
	})
	defer stop()

	for sm.State() != state {
		if err := ctx.Err(); err != nil {
			return err
		}
		sm.cond.Wait()
	}

	return nil
}

// ToOpen transitions Closed -> Open. It returns false for any other current state.
func (sm *StateManager) ToOpen() bool {
	return sm.transition(Open, func(cur ConnState) bool { return cur == Closed })
}

// ToFaulted transitions Open -> Faulted. It returns false for any other current state.
func (sm *StateManager) ToFaulted() bool {
	return sm.transition(Faulted, func(cur ConnState) bool { return cur == Open })
}

// ToClosed transitions any state to Closed. It is a no-op when already Closed.
func (sm *StateManager) ToClosed() bool {
	return sm.transition(Closed, func(cur ConnState) bool { return cur != Closed })
}

func (sm *StateManager) transition(next ConnState, allowed func(ConnState) bool) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	cur := sm.State()
	if !allowed(cur) {
		return false
	}

	sm.state.Store(uint32(next))
	sm.cond.Broadcast()
	sm.logger.Debug("transport: connection state changed", "prevState", cur, "newState", next)

	for _, h := range sm.handlers {
		h(cur, next)
	}

	return true
}
