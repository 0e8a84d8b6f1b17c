package codec

import (
	"fmt"
)

// Codec maps logical commands to frames and response frames to packets.
//
// Implementations must be deterministic and must never panic on malformed input.
type Codec interface {
	// Encode frames a command for transmission.
	Encode(cmd Command) ([]byte, error)
	// HeaderLength is the number of bytes needed to call FrameLength.
	HeaderLength() int
	// FrameLength returns the total size of the frame announced by header.
	FrameLength(header []byte) (int, error)
	// Decode turns a complete response frame into a Packet.
	// Errors satisfy errors.Is(err, ErrDecode).
	Decode(frame []byte) (Packet, error)
}

// FrameCodec is the Codec for the PLD interface. The zero value is ready to use.
type FrameCodec struct{}

var _ Codec = FrameCodec{}

// NewFrameCodec returns the PLD frame codec.
func NewFrameCodec() FrameCodec { return FrameCodec{} }

// Encode frames cmd as a host-to-instrument frame.
func (FrameCodec) Encode(cmd Command) ([]byte, error) {
	if !cmd.kind.Valid() {
		return nil, fmt.Errorf("%w: %w: %s", ErrEncode, ErrUnknownKind, cmd.kind)
	}
	if len(cmd.payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrEncode, len(cmd.payload), MaxPayloadSize)
	}

	f := frame{id: byte(cmd.kind), payload: cmd.payload}

	return f.pack(), nil
}

// HeaderLength returns HeaderSize.
func (FrameCodec) HeaderLength() int { return HeaderSize }

// FrameLength returns the total frame size announced by header.
func (FrameCodec) FrameLength(header []byte) (int, error) {
	return frameLength(header)
}

// Decode parses an instrument-to-host frame.
func (FrameCodec) Decode(data []byte) (Packet, error) {
	f, err := parseFrame(data)
	if err != nil {
		return nil, err
	}
	if !f.isResponse() {
		return nil, fmt.Errorf("%w: %w: got a command frame", ErrDecode, ErrBadDirection)
	}

	pkt, err := decodePayload(f.kind(), f.payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, f.kind(), err)
	}

	return pkt, nil
}

// DecodeCommand parses a host-to-instrument frame. It is the inverse of Encode and
// is used by loopback tests and the instrument simulator.
func (FrameCodec) DecodeCommand(data []byte) (Command, error) {
	f, err := parseFrame(data)
	if err != nil {
		return Command{}, err
	}
	if f.isResponse() {
		return Command{}, fmt.Errorf("%w: %w: got a response frame", ErrDecode, ErrBadDirection)
	}

	cmd, err := commandFromPayload(f.kind(), f.payload)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %s: %w", ErrDecode, f.kind(), err)
	}

	return cmd, nil
}

// EncodePacket frames p as an instrument-to-host frame. It is the inverse of Decode.
func (FrameCodec) EncodePacket(p Packet) ([]byte, error) {
	payload, err := encodePayload(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrEncode, len(payload), MaxPayloadSize)
	}

	f := frame{id: byte(p.Kind()) | responseBit, payload: payload}

	return f.pack(), nil
}
