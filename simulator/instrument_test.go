package simulator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/dispatcher"
	"github.com/arloliu/go-pldlink/logger"
	"github.com/arloliu/go-pldlink/session"
	"github.com/arloliu/go-pldlink/simulator"
	"github.com/arloliu/go-pldlink/transport"
)

type rig struct {
	inst *simulator.Instrument
	tr   *transport.Transport
	sess *session.Session
}

func newRig(t *testing.T, opts ...simulator.Option) *rig {
	t.Helper()

	l := logger.NewNopMockLogger()
	inst := simulator.New(append([]simulator.Option{simulator.WithLogger(l)}, opts...)...)

	tr, err := transport.New(
		transport.WithLogger(l),
		transport.WithPortOpener(inst.Opener()),
		transport.WithPortLister(inst.Lister("SIM0")),
	)
	require.NoError(t, err)

	sess, err := session.New(tr, session.WithLogger(l))
	require.NoError(t, err)
	require.NoError(t, sess.Open("SIM0"))
	t.Cleanup(sess.Close)

	return &rig{inst: inst, tr: tr, sess: sess}
}

func TestInstrument_PortLevelExchange(t *testing.T) {
	inst := simulator.New(simulator.WithLogger(logger.NewNopMockLogger()))
	c := codec.NewFrameCodec()

	port, err := inst.Opener()("SIM0", transport.LinkMode())
	require.NoError(t, err)
	require.NoError(t, port.SetReadTimeout(transport.ReadTimeout))

	frame, err := c.Encode(codec.GetHousekeeping())
	require.NoError(t, err)

	// split writes are reassembled
	_, err = port.Write(frame[:3])
	require.NoError(t, err)
	_, err = port.Write(frame[3:])
	require.NoError(t, err)

	buf := make([]byte, codec.MaxFrameSize)
	n, err := port.Read(buf)
	require.NoError(t, err)

	pkt, err := c.Decode(buf[:n])
	require.NoError(t, err)
	hk, ok := pkt.(*codec.Housekeeping)
	require.True(t, ok)
	require.True(t, hk.Powered(codec.AnalogBoard))
	require.InDelta(t, 3.3, hk.Voltage(codec.Rail3V3), 0.001)

	// nothing pending: a read times out with (0, nil)
	start := time.Now()
	n, err = port.Read(buf)
	require.NoError(t, err)
	require.Zero(t, n)
	require.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)

	require.Equal(t, []codec.Command{codec.GetHousekeeping()}, inst.Received())
	require.NoError(t, port.Close())
	_, err = port.Write(frame)
	require.ErrorIs(t, err, simulator.ErrPortClosed)
}

func TestInstrument_SessionRoundTrips(t *testing.T) {
	r := newRig(t, simulator.WithEventsPerBatch(5))
	ctx := context.Background()

	hk, err := r.sess.GetHousekeeping(ctx)
	require.NoError(t, err)
	require.False(t, hk.Powered(codec.ScienceStream))

	ack, err := r.sess.SetControl(ctx, codec.ScienceStream, true)
	require.NoError(t, err)
	require.True(t, ack.OK())
	require.True(t, r.inst.Powered(codec.ScienceStream))

	hk, err = r.sess.GetHousekeeping(ctx)
	require.NoError(t, err)
	require.True(t, hk.Powered(codec.ScienceStream))

	sci, err := r.sess.GetScience(ctx)
	require.NoError(t, err)
	require.Len(t, sci.Events, 5)
	require.EqualValues(t, 1, sci.Sequence)

	tbl := codec.ConfigTable{Entries: []codec.ConfigEntry{{ID: 1, Value: 500}, {ID: 9, Value: 7}}}
	_, err = r.sess.SetConfig(ctx, tbl)
	require.NoError(t, err)
	got, err := r.sess.GetConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, tbl.Entries, got.Entries)

	_, err = r.sess.SetDefaultConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, codec.DefaultConfigTable().Entries, r.inst.Config().Entries)

	_, err = r.sess.SetTimeOfTone(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)

	reply, err := r.sess.PassThrough(ctx, []byte("*IDN?"))
	require.NoError(t, err)
	require.Equal(t, []byte("*IDN?"), reply.Data)

	dbg, err := r.sess.GetDebug(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 10, dbg.CommandCount)
}

func TestInstrument_SilentReplyTimesOutWithoutFault(t *testing.T) {
	r := newRig(t)
	r.inst.Mute(codec.KindSetControl, true)

	start := time.Now()
	_, err := r.sess.SetControl(context.Background(), codec.Instrument1, true)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, session.ErrReadTimeout)
	require.Less(t, elapsed, 300*time.Millisecond)
	require.Equal(t, transport.Open, r.sess.State())

	r.inst.Mute(codec.KindSetControl, false)
	_, err = r.sess.SetControl(context.Background(), codec.Instrument1, true)
	require.NoError(t, err)
}

func TestInstrument_LateReplyIsFlushed(t *testing.T) {
	r := newRig(t, simulator.WithLatency(300*time.Millisecond))

	_, err := r.sess.GetDebug(context.Background())
	require.ErrorIs(t, err, session.ErrReadTimeout)

	// the debug reply lands now, after its exchange gave up
	time.Sleep(150 * time.Millisecond)

	// the stale debug reply must not be taken as the answer to the next command
	out := r.sess.Execute(context.Background(), codec.GetHousekeeping())
	require.Equal(t, session.ReadTimeout, out.FailureKind())
}

func TestInstrument_CorruptReply(t *testing.T) {
	r := newRig(t)
	r.inst.Corrupt(codec.KindGetHousekeeping, true)

	out := r.sess.Execute(context.Background(), codec.GetHousekeeping())
	require.Equal(t, session.DecodeFailure, out.FailureKind())
	require.ErrorIs(t, out.Error(), codec.ErrBadChecksum)
	require.Equal(t, transport.Open, r.sess.State())
}

func TestInstrument_UnplugFaultsUntilReopen(t *testing.T) {
	r := newRig(t)
	r.inst.Unplug()

	out := r.sess.Execute(context.Background(), codec.GetHousekeeping())
	require.Equal(t, session.SendFailure, out.FailureKind())
	require.Equal(t, transport.Faulted, r.sess.State())

	out = r.sess.Execute(context.Background(), codec.GetHousekeeping())
	require.Equal(t, session.NotConnected, out.FailureKind())

	r.sess.Close()
	require.ErrorIs(t, r.sess.Open("SIM0"), session.ErrPortUnavailable)
	require.Equal(t, transport.Closed, r.sess.State())

	r.inst.Replug()
	require.NoError(t, r.sess.Open("SIM0"))
	_, err := r.sess.GetHousekeeping(context.Background())
	require.NoError(t, err)
}

func TestInstrument_DispatcherUnderLoad(t *testing.T) {
	r := newRig(t)

	d, err := dispatcher.New(r.sess, dispatcher.WithLogger(logger.NewNopMockLogger()), dispatcher.WithWorkers(4))
	require.NoError(t, err)

	const n = 40
	var mu sync.Mutex
	results := make(map[codec.Kind]int)
	var wg sync.WaitGroup
	wg.Add(n)

	for i := range n {
		cmd := codec.GetHousekeeping()
		if i%3 == 0 {
			cmd = codec.GetScience()
		}
		_, err := d.Submit(cmd, func(out session.Outcome) {
			defer wg.Done()
			if out.OK() {
				mu.Lock()
				results[out.Packet.Kind()]++
				mu.Unlock()
			}
		})
		require.NoError(t, err)
	}
	wg.Wait()
	require.NoError(t, d.Close(context.Background()))

	require.Equal(t, 14, results[codec.KindGetScience])
	require.Equal(t, 26, results[codec.KindGetHousekeeping])
	require.Len(t, r.inst.Received(), n)
	require.EqualValues(t, n, r.sess.Metrics().SuccessCount.Load())
}

func TestInstrument_ListPorts(t *testing.T) {
	r := newRig(t)

	names, err := r.tr.ListPorts()
	require.NoError(t, err)
	require.Equal(t, []string{"SIM0"}, names)
}
