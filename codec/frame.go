package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/sigurn/crc16"
)

// Frame layout constants.
const (
	// HeaderSize is Sync(2) + ID(1) + Length(2).
	HeaderSize = 5
	// TrailerSize is the CRC-16 trailer.
	TrailerSize = 2
	// MaxPayloadSize is the largest payload a frame may declare.
	MaxPayloadSize = 1024
	// MaxFrameSize is the size of a frame carrying MaxPayloadSize bytes.
	MaxFrameSize = HeaderSize + MaxPayloadSize + TrailerSize
)

// Sync marker bytes opening every frame.
const (
	Sync1 byte = 0xEB
	Sync2 byte = 0x90
)

// responseBit marks frames sent by the instrument.
const responseBit byte = 0x80

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// frame is one unit on the wire before payload interpretation.
type frame struct {
	id      byte
	payload []byte
}

func (f *frame) kind() Kind { return Kind(f.id &^ responseBit) }

func (f *frame) isResponse() bool { return f.id&responseBit != 0 }

// pack serializes the frame to its wire format.
func (f *frame) pack() []byte {
	buf := make([]byte, HeaderSize+len(f.payload)+TrailerSize)
	buf[0] = Sync1
	buf[1] = Sync2
	buf[2] = f.id
	binary.BigEndian.PutUint16(buf[3:5], uint16(len(f.payload))) //nolint:gosec // callers enforce MaxPayloadSize
	copy(buf[HeaderSize:], f.payload)

	crc := crc16.Checksum(buf[2:HeaderSize+len(f.payload)], crcTable)
	binary.BigEndian.PutUint16(buf[len(buf)-TrailerSize:], crc)

	return buf
}

// frameLength validates a header and returns the full frame size it declares.
func frameLength(header []byte) (int, error) {
	if len(header) < HeaderSize {
		return 0, fmt.Errorf("%w: %w: header has %d bytes, want %d", ErrDecode, ErrTruncated, len(header), HeaderSize)
	}
	if header[0] != Sync1 || header[1] != Sync2 {
		return 0, fmt.Errorf("%w: %w: got % X", ErrDecode, ErrBadSync, header[0:2])
	}

	n := int(binary.BigEndian.Uint16(header[3:5]))
	if n > MaxPayloadSize {
		return 0, fmt.Errorf("%w: %w: %d > %d", ErrDecode, ErrBadLength, n, MaxPayloadSize)
	}

	return HeaderSize + n + TrailerSize, nil
}

// parseFrame validates framing and checksum. The returned payload aliases data.
func parseFrame(data []byte) (*frame, error) {
	size, err := frameLength(data)
	if err != nil {
		return nil, err
	}
	if len(data) < size {
		return nil, fmt.Errorf("%w: %w: got %d bytes, frame declares %d", ErrDecode, ErrTruncated, len(data), size)
	}
	if len(data) > size {
		return nil, fmt.Errorf("%w: %w: %d trailing bytes after frame", ErrDecode, ErrBadLength, len(data)-size)
	}

	wire := binary.BigEndian.Uint16(data[size-TrailerSize : size])
	calc := crc16.Checksum(data[2:size-TrailerSize], crcTable)
	if wire != calc {
		return nil, fmt.Errorf("%w: %w: wire=0x%04X, computed=0x%04X", ErrDecode, ErrBadChecksum, wire, calc)
	}

	return &frame{id: data[2], payload: data[HeaderSize : size-TrailerSize]}, nil
}
