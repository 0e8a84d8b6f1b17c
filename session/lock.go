package session

import (
	"context"
	"sync"

	"github.com/arloliu/go-pldlink/internal/queue"
)

// fifoLock is a mutex that hands ownership to waiters in arrival order.
// sync.Mutex allows barging, which would let a later exchange overtake an earlier one.
//
// A place in line can be taken without blocking (join) and waited on later (await),
// so a caller may fix its position before doing anything else.
type fifoLock struct {
	mu      sync.Mutex
	held    bool
	waiters *queue.Queue[chan struct{}]
}

func newFIFOLock() *fifoLock {
	return &fifoLock{waiters: queue.New[chan struct{}](8)}
}

// Lock acquires the lock or returns ctx.Err() if ctx ends first.
func (l *fifoLock) Lock(ctx context.Context) error {
	return l.await(ctx, l.join())
}

// join takes a place in line without blocking. A nil place means the lock was
// free and is now held by the caller.
func (l *fifoLock) join() chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		l.held = true
		return nil
	}

	ready := make(chan struct{})
	l.waiters.Enqueue(ready)

	return ready
}

// await waits until place owns the lock. If ctx ends first the place is given up
// and ctx.Err() is returned.
func (l *fifoLock) await(ctx context.Context, place chan struct{}) error {
	if place == nil {
		return nil
	}

	select {
	case <-place:
		return nil
	case <-ctx.Done():
		l.leave(place)
		return ctx.Err()
	}
}

// leave gives up a place returned by join. If ownership already reached it, the
// lock passes on to the next waiter.
func (l *fifoLock) leave(place chan struct{}) {
	if place != nil {
		l.mu.Lock()
		removed := l.waiters.Remove(func(c chan struct{}) bool { return c == place })
		l.mu.Unlock()

		if removed {
			return
		}
	}

	l.Unlock()
}

// Unlock releases the lock, handing it directly to the oldest waiter if any.
func (l *fifoLock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if next, ok := l.waiters.Dequeue(); ok {
		close(next)
		return
	}
	l.held = false
}

// Waiters returns the number of goroutines queued for the lock.
func (l *fifoLock) Waiters() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.waiters.Length()
}
