package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/transport"
)

// FailureKind classifies why an exchange or connection operation failed.
type FailureKind uint8

const (
	// PortUnavailable indicates the port does not exist or is held elsewhere.
	PortUnavailable FailureKind = iota + 1
	// OpenFailed indicates the port could not be opened or configured.
	OpenFailed
	// NotConnected indicates the connection was not Open.
	NotConnected
	// SendFailure indicates the command could not be written.
	SendFailure
	// ReadTimeout indicates the reply did not arrive within the read timeout.
	ReadTimeout
	// ReadFailure indicates the port reported an error while reading.
	ReadFailure
	// DecodeFailure indicates the reply frame was malformed or did not answer the command.
	DecodeFailure
	// BufferFlushFailed indicates a buffer flush was rejected.
	BufferFlushFailed
	// Aborted indicates the exchange never reached the wire because it was canceled or shut down.
	Aborted
	// InvalidCommand indicates the command could not be encoded.
	InvalidCommand

	failureKindCount
)

var (
	ErrPortUnavailable   = errors.New("session: port unavailable")
	ErrOpenFailed        = errors.New("session: open failed")
	ErrNotConnected      = errors.New("session: not connected")
	ErrSendFailure       = errors.New("session: send failure")
	ErrReadTimeout       = errors.New("session: read timeout")
	ErrReadFailure       = errors.New("session: read failure")
	ErrDecodeFailure     = errors.New("session: decode failure")
	ErrBufferFlushFailed = errors.New("session: buffer flush failed")
	ErrAborted           = errors.New("session: aborted")
	ErrInvalidCommand    = errors.New("session: invalid command")
)

var kindSentinels = [failureKindCount]error{
	PortUnavailable:   ErrPortUnavailable,
	OpenFailed:        ErrOpenFailed,
	NotConnected:      ErrNotConnected,
	SendFailure:       ErrSendFailure,
	ReadTimeout:       ErrReadTimeout,
	ReadFailure:       ErrReadFailure,
	DecodeFailure:     ErrDecodeFailure,
	BufferFlushFailed: ErrBufferFlushFailed,
	Aborted:           ErrAborted,
	InvalidCommand:    ErrInvalidCommand,
}

// String returns the kind name, e.g. "read timeout".
func (k FailureKind) String() string {
	switch k {
	case PortUnavailable:
		return "port unavailable"
	case OpenFailed:
		return "open failed"
	case NotConnected:
		return "not connected"
	case SendFailure:
		return "send failure"
	case ReadTimeout:
		return "read timeout"
	case ReadFailure:
		return "read failure"
	case DecodeFailure:
		return "decode failure"
	case BufferFlushFailed:
		return "buffer flush failed"
	case Aborted:
		return "aborted"
	case InvalidCommand:
		return "invalid command"
	default:
		return fmt.Sprintf("failure(%d)", uint8(k))
	}
}

// Failure is the error side of an Outcome.
//
// errors.Is matches both the kind sentinel (ErrReadTimeout, ...) and the
// underlying transport or codec error.
type Failure struct {
	Kind   FailureKind
	Detail string
	Err    error
}

// NewFailure creates a Failure of the given kind.
func NewFailure(kind FailureKind, detail string, err error) *Failure {
	return &Failure{Kind: kind, Detail: detail, Err: err}
}

func (f *Failure) Error() string {
	msg := "session: " + f.Kind.String()
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}

	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

// Is reports whether target is the sentinel of f's kind.
func (f *Failure) Is(target error) bool {
	if f.Kind >= failureKindCount {
		return false
	}

	return kindSentinels[f.Kind] != nil && target == kindSentinels[f.Kind]
}

// Classify maps a transport, codec or context error to a FailureKind.
// Unrecognized errors map to fallback.
func Classify(err error, fallback FailureKind) FailureKind {
	var f *Failure
	switch {
	case errors.As(err, &f):
		return f.Kind
	case errors.Is(err, transport.ErrNotConnected):
		return NotConnected
	case errors.Is(err, transport.ErrReadTimeout):
		return ReadTimeout
	case errors.Is(err, transport.ErrReadFailure):
		return ReadFailure
	case errors.Is(err, transport.ErrSendFailure):
		return SendFailure
	case errors.Is(err, transport.ErrPortUnavailable):
		return PortUnavailable
	case errors.Is(err, transport.ErrOpenFailed), errors.Is(err, transport.ErrAlreadyOpen):
		return OpenFailed
	case errors.Is(err, transport.ErrBufferFlushFailed):
		return BufferFlushFailed
	case errors.Is(err, codec.ErrDecode):
		return DecodeFailure
	case errors.Is(err, codec.ErrEncode):
		return InvalidCommand
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Aborted
	default:
		return fallback
	}
}

// AsFailure wraps err as a Failure, classifying it with fallback. A nil err returns nil.
func AsFailure(err error, fallback FailureKind) *Failure {
	if err == nil {
		return nil
	}

	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	return &Failure{Kind: Classify(err, fallback), Err: err}
}
