package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/dispatcher"
	"github.com/arloliu/go-pldlink/logger"
	"github.com/arloliu/go-pldlink/session"
)

// hkExecutor answers housekeeping requests; while gate is non-nil it waits on it first.
type hkExecutor struct {
	gate  chan struct{}
	calls atomic.Int32
}

func (e *hkExecutor) Execute(_ context.Context, cmd codec.Command) session.Outcome {
	e.calls.Add(1)
	if e.gate != nil {
		<-e.gate
	}

	return session.Outcome{Command: cmd, Packet: &codec.Housekeeping{}}
}

type testRig struct {
	clock   *clock.Mock
	exec    *hkExecutor
	poller  *Poller
	handled atomic.Int32
}

func newTestRig(t *testing.T, exec *hkExecutor, opts ...Option) *testRig {
	t.Helper()

	d, err := dispatcher.New(exec, dispatcher.WithLogger(logger.NewNopMockLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(context.Background()) })

	rig := &testRig{clock: clock.NewMock(), exec: exec}
	base := []Option{
		WithClock(rig.clock),
		WithLogger(logger.NewNopMockLogger()),
		WithHandler(func(out session.Outcome) {
			if out.OK() {
				rig.handled.Add(1)
			}
		}),
	}

	rig.poller, err = New(d, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(rig.poller.Close)

	return rig
}

// waitHandled waits until n poll outcomes have been delivered.
func (r *testRig) waitHandled(t *testing.T, n int32) {
	t.Helper()
	require.Eventually(t, func() bool { return r.handled.Load() == n }, time.Second, time.Millisecond)
}

func TestPoller_TwoPollsInTwelveSeconds(t *testing.T) {
	rig := newTestRig(t, &hkExecutor{}, WithInterval(5*time.Second))
	p := rig.poller

	require.False(t, p.Enabled())
	p.Enable()
	require.True(t, p.Enabled())

	rig.clock.Add(5 * time.Second)
	rig.waitHandled(t, 1)

	rig.clock.Add(5 * time.Second)
	rig.waitHandled(t, 2)

	rig.clock.Add(2 * time.Second)
	p.Disable()
	require.False(t, p.Enabled())

	// the tick that would land at t=15s never submits
	rig.clock.Add(3 * time.Second)
	rig.clock.Add(10 * time.Second)
	time.Sleep(20 * time.Millisecond)

	require.EqualValues(t, 2, p.Submissions())
	require.EqualValues(t, 2, rig.exec.calls.Load())
}

func TestPoller_NoSubmissionAfterDisableReturns(t *testing.T) {
	rig := newTestRig(t, &hkExecutor{}, WithInterval(time.Second))
	p := rig.poller

	for range 20 {
		p.Enable()
		// the tick is delivered to the loop but may not have been handled yet
		rig.clock.Add(time.Second)
		p.Disable()

		before := p.Submissions()
		time.Sleep(2 * time.Millisecond)
		require.Equal(t, before, p.Submissions())
	}
}

func TestPoller_IntervalChangeAppliesFromNextTick(t *testing.T) {
	rig := newTestRig(t, &hkExecutor{}, WithInterval(5*time.Second))
	p := rig.poller
	p.Enable()

	rig.clock.Add(time.Second)
	require.NoError(t, p.SetInterval(2*time.Second))
	require.Equal(t, 2*time.Second, p.Interval())

	// the pending tick keeps its t=5s schedule
	rig.clock.Add(3 * time.Second)
	time.Sleep(5 * time.Millisecond)
	require.EqualValues(t, 0, p.Submissions())

	rig.clock.Add(time.Second)
	rig.waitHandled(t, 1)

	// then every 2s
	rig.clock.Add(2 * time.Second)
	rig.waitHandled(t, 2)
	rig.clock.Add(2 * time.Second)
	rig.waitHandled(t, 3)
}

func TestPoller_SkipsWhilePreviousUnresolved(t *testing.T) {
	exec := &hkExecutor{gate: make(chan struct{})}
	rig := newTestRig(t, exec, WithInterval(time.Second))
	p := rig.poller
	p.Enable()

	rig.clock.Add(time.Second)
	require.Eventually(t, func() bool { return exec.calls.Load() == 1 }, time.Second, time.Millisecond)

	rig.clock.Add(time.Second)
	require.Eventually(t, func() bool { return p.Metrics().SkippedCount.Load() == 1 }, time.Second, time.Millisecond)
	rig.clock.Add(time.Second)
	require.Eventually(t, func() bool { return p.Metrics().SkippedCount.Load() == 2 }, time.Second, time.Millisecond)
	require.EqualValues(t, 1, p.Submissions())

	exec.gate <- struct{}{}
	rig.waitHandled(t, 1)
	close(exec.gate)

	rig.clock.Add(time.Second)
	rig.waitHandled(t, 2)
	require.EqualValues(t, 2, p.Submissions())
}

func TestPoller_ToggleAndClose(t *testing.T) {
	rig := newTestRig(t, &hkExecutor{}, WithInterval(time.Second))
	p := rig.poller

	p.Toggle(true)
	p.Toggle(true)
	require.True(t, p.Enabled())
	rig.clock.Add(time.Second)
	rig.waitHandled(t, 1)

	p.Toggle(false)
	p.Toggle(false)
	require.False(t, p.Enabled())

	p.Close()
	p.Enable()
	require.False(t, p.Enabled(), "closed poller cannot be enabled")
}

func TestPoller_SubmitErrorsAreCounted(t *testing.T) {
	d, err := dispatcher.New(&hkExecutor{}, dispatcher.WithLogger(logger.NewNopMockLogger()))
	require.NoError(t, err)
	require.NoError(t, d.Close(context.Background()))

	mock := clock.NewMock()
	p, err := New(d, WithClock(mock), WithInterval(time.Second), WithLogger(logger.NewNopMockLogger()))
	require.NoError(t, err)
	defer p.Close()

	p.Enable()
	mock.Add(time.Second)
	require.Eventually(t, func() bool { return p.Metrics().SubmitErrorCount.Load() == 1 }, time.Second, time.Millisecond)
	require.EqualValues(t, 0, p.Submissions())
}

func TestPoller_Validation(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	d, err := dispatcher.New(&hkExecutor{}, dispatcher.WithLogger(logger.NewNopMockLogger()))
	require.NoError(t, err)
	defer func() { _ = d.Close(context.Background()) }()

	_, err = New(d, WithInterval(10*time.Millisecond))
	require.Error(t, err)
	_, err = New(d, WithClock(nil))
	require.Error(t, err)
	_, err = New(d, WithLogger(nil))
	require.Error(t, err)

	p, err := New(d)
	require.NoError(t, err)
	require.Equal(t, DefaultInterval, p.Interval())
	require.Error(t, p.SetInterval(time.Millisecond))
}
