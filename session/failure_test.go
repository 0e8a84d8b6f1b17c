package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/transport"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want FailureKind
	}{
		{fmt.Errorf("wrap: %w", transport.ErrNotConnected), NotConnected},
		{fmt.Errorf("wrap: %w", transport.ErrReadTimeout), ReadTimeout},
		{fmt.Errorf("wrap: %w", transport.ErrReadFailure), ReadFailure},
		{fmt.Errorf("wrap: %w", transport.ErrSendFailure), SendFailure},
		{fmt.Errorf("wrap: %w", transport.ErrPortUnavailable), PortUnavailable},
		{fmt.Errorf("wrap: %w", transport.ErrOpenFailed), OpenFailed},
		{transport.ErrAlreadyOpen, OpenFailed},
		{transport.ErrBufferFlushFailed, BufferFlushFailed},
		{fmt.Errorf("%w: %w", codec.ErrDecode, codec.ErrBadChecksum), DecodeFailure},
		{codec.ErrEncode, InvalidCommand},
		{context.Canceled, Aborted},
		{context.DeadlineExceeded, Aborted},
		{NewFailure(ReadTimeout, "", nil), ReadTimeout},
		{errors.New("something else"), SendFailure},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.err, SendFailure))
		})
	}
}

func TestFailure_ErrorsIs(t *testing.T) {
	cause := errors.New("device disconnected")
	f := NewFailure(ReadFailure, "frame header", cause)

	require.ErrorIs(t, f, ErrReadFailure)
	require.ErrorIs(t, f, cause)
	require.NotErrorIs(t, f, ErrReadTimeout)
	require.Equal(t, "session: read failure: frame header: device disconnected", f.Error())

	require.Nil(t, AsFailure(nil, ReadFailure))
	require.Same(t, f, AsFailure(fmt.Errorf("outer: %w", f), SendFailure))
}

func TestFailureKind_String(t *testing.T) {
	for k := PortUnavailable; k < failureKindCount; k++ {
		require.NotContains(t, k.String(), "failure(")
		require.Equal(t, "session: "+k.String(), kindSentinels[k].Error())
	}
	require.Equal(t, "failure(200)", FailureKind(200).String())
}

func TestOutcome(t *testing.T) {
	ok := Outcome{Command: codec.GetDebug(), Packet: &codec.Debug{}}
	require.True(t, ok.OK())
	require.NoError(t, ok.Error())
	require.Zero(t, ok.FailureKind())

	_, isHK := PacketAs[*codec.Housekeeping](ok)
	require.False(t, isHK)

	failed := Failed(codec.GetDebug(), NewFailure(Aborted, "shutdown", nil))
	require.False(t, failed.OK())
	require.ErrorIs(t, failed.Error(), ErrAborted)
	require.Equal(t, Aborted, failed.FailureKind())
}
