package transport

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.bug.st/serial"
)

// Fixed link parameters of the instrument line.
const (
	BaudRate    = 115200
	DataBits    = 8
	ReadTimeout = 200 * time.Millisecond
)

// Port is the subset of a serial device the transport drives.
// go.bug.st/serial ports satisfy it directly.
//
// Read must return (0, nil) when the read timeout elapses without data.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	ResetOutputBuffer() error
	Drain() error
}

// PortOpener opens the named port with the given mode.
type PortOpener func(name string, mode *serial.Mode) (Port, error)

// PortLister enumerates the serial ports present on the system.
type PortLister func() ([]string, error)

// LinkMode returns the serial mode used for every Open: 115200 baud, 8-N-1.
func LinkMode() *serial.Mode {
	return &serial.Mode{
		BaudRate: BaudRate,
		DataBits: DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// SerialOpener opens a real serial device.
func SerialOpener(name string, mode *serial.Mode) (Port, error) {
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// SerialLister lists the serial devices known to the operating system.
func SerialLister() ([]string, error) {
	return serial.GetPortsList()
}

// classifyOpenError maps an open error to ErrPortUnavailable or ErrOpenFailed,
// keeping the underlying error in the chain.
func classifyOpenError(name string, err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortBusy:
			return fmt.Errorf("%w: %s: busy: %w", ErrPortUnavailable, name, err)
		case serial.PortNotFound:
			return fmt.Errorf("%w: %s: not found: %w", ErrPortUnavailable, name, err)
		case serial.PermissionDenied:
			return fmt.Errorf("%w: %s: permission denied: %w", ErrOpenFailed, name, err)
		default:
			return fmt.Errorf("%w: %s: %w", ErrOpenFailed, name, err)
		}
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s: not found: %w", ErrPortUnavailable, name, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s: permission denied: %w", ErrOpenFailed, name, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrOpenFailed, name, err)
	}
}
