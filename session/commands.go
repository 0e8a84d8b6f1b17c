package session

import (
	"context"
	"fmt"
	"time"

	"github.com/arloliu/go-pldlink/codec"
)

func executeAs[T codec.Packet](ctx context.Context, s *Session, cmd codec.Command) (T, error) {
	out := s.Execute(ctx, cmd)

	var zero T
	if out.Err != nil {
		return zero, out.Err
	}

	pkt, ok := PacketAs[T](out)
	if !ok {
		return zero, NewFailure(DecodeFailure, fmt.Sprintf("unexpected packet %T", out.Packet), nil)
	}

	return pkt, nil
}

// GetHousekeeping requests a housekeeping packet.
func (s *Session) GetHousekeeping(ctx context.Context) (*codec.Housekeeping, error) {
	return executeAs[*codec.Housekeeping](ctx, s, codec.GetHousekeeping())
}

// GetScience requests a batch of science events.
func (s *Session) GetScience(ctx context.Context) (*codec.Science, error) {
	return executeAs[*codec.Science](ctx, s, codec.GetScience())
}

// GetConfig requests the instrument configuration table.
func (s *Session) GetConfig(ctx context.Context) (*codec.ConfigTable, error) {
	return executeAs[*codec.ConfigTable](ctx, s, codec.GetConfig())
}

// GetDebug requests the firmware diagnostic counters.
func (s *Session) GetDebug(ctx context.Context) (*codec.Debug, error) {
	return executeAs[*codec.Debug](ctx, s, codec.GetDebug())
}

// SetConfig writes a configuration table.
func (s *Session) SetConfig(ctx context.Context, table codec.ConfigTable) (*codec.Ack, error) {
	cmd, err := codec.SetConfig(table)
	if err != nil {
		return nil, NewFailure(InvalidCommand, "", err)
	}

	return executeAs[*codec.Ack](ctx, s, cmd)
}

// SetDefaultConfig restores the factory configuration table.
func (s *Session) SetDefaultConfig(ctx context.Context) (*codec.Ack, error) {
	return executeAs[*codec.Ack](ctx, s, codec.SetDefaultConfig())
}

// SetControl switches power of target.
func (s *Session) SetControl(ctx context.Context, target codec.ControlTarget, enable bool) (*codec.ControlAck, error) {
	cmd, err := codec.SetControl(target, enable)
	if err != nil {
		return nil, NewFailure(InvalidCommand, "", err)
	}

	return executeAs[*codec.ControlAck](ctx, s, cmd)
}

// SetTimeOfTone sets the instrument clock at the next time tone.
func (s *Session) SetTimeOfTone(ctx context.Context, tone time.Time) (*codec.Ack, error) {
	cmd, err := codec.SetTimeOfTone(tone)
	if err != nil {
		return nil, NewFailure(InvalidCommand, "", err)
	}

	return executeAs[*codec.Ack](ctx, s, cmd)
}

// PassThrough forwards raw bytes to the instrument and returns its raw reply.
func (s *Session) PassThrough(ctx context.Context, raw []byte) (*codec.PassThroughReply, error) {
	cmd, err := codec.PassThrough(raw)
	if err != nil {
		return nil, NewFailure(InvalidCommand, "", err)
	}

	return executeAs[*codec.PassThroughReply](ctx, s, cmd)
}
