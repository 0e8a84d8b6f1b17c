package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFIFOLock_ArrivalOrder(t *testing.T) {
	l := newFIFOLock()
	require.NoError(t, l.Lock(context.Background()))

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.Lock(context.Background()))
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			l.Unlock()
		}()
		// queue strictly one after another
		require.Eventually(t, func() bool { return l.Waiters() == i+1 }, time.Second, time.Millisecond)
	}

	l.Unlock()
	wg.Wait()

	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
	require.Equal(t, 0, l.Waiters())
}

func TestFIFOLock_CancelKeepsQueue(t *testing.T) {
	l := newFIFOLock()
	require.NoError(t, l.Lock(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Lock(ctx) }()
	require.Eventually(t, func() bool { return l.Waiters() == 1 }, time.Second, time.Millisecond)

	acquired := make(chan struct{})
	go func() {
		_ = l.Lock(context.Background())
		close(acquired)
	}()
	require.Eventually(t, func() bool { return l.Waiters() == 2 }, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	require.Equal(t, 1, l.Waiters())

	l.Unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second waiter never acquired the lock")
	}
	l.Unlock()

	require.NoError(t, l.Lock(context.Background()))
	l.Unlock()
}
