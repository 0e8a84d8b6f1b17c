package codec

import "errors"

var (
	// ErrDecode is the umbrella error for any response frame that cannot be turned into
	// a Packet. Every decode error satisfies errors.Is(err, ErrDecode).
	ErrDecode = errors.New("codec: decode failure")

	// ErrEncode is the umbrella error for commands that cannot be framed.
	ErrEncode = errors.New("codec: encode failure")
)

var (
	// ErrTruncated indicates fewer bytes than the frame header declares.
	ErrTruncated = errors.New("truncated frame")
	// ErrBadSync indicates the frame does not start with the sync marker.
	ErrBadSync = errors.New("bad sync marker")
	// ErrBadLength indicates a declared payload length above MaxPayloadSize.
	ErrBadLength = errors.New("payload length out of range")
	// ErrBadChecksum indicates a CRC mismatch.
	ErrBadChecksum = errors.New("checksum mismatch")
	// ErrUnknownKind indicates an ID outside the command taxonomy.
	ErrUnknownKind = errors.New("unknown packet kind")
	// ErrBadDirection indicates a command frame where a response was expected, or the reverse.
	ErrBadDirection = errors.New("unexpected frame direction")
	// ErrBadPayload indicates a payload whose size or content does not fit its kind.
	ErrBadPayload = errors.New("malformed payload")
)
