package transport

import "errors"

var (
	// ErrPortUnavailable indicates the named port does not exist or is held by another process.
	ErrPortUnavailable = errors.New("transport: port unavailable")
	// ErrOpenFailed indicates the port exists but could not be opened or configured.
	ErrOpenFailed = errors.New("transport: open failed")
	// ErrAlreadyOpen is returned by Open while a port is held; Close it first.
	ErrAlreadyOpen = errors.New("transport: port already open")
	// ErrNotConnected indicates the connection is not Open.
	ErrNotConnected = errors.New("transport: not connected")
	// ErrSendFailure indicates the write to the port failed.
	ErrSendFailure = errors.New("transport: send failure")
	// ErrReadTimeout indicates fewer bytes than requested arrived within the read timeout.
	ErrReadTimeout = errors.New("transport: read timeout")
	// ErrReadFailure indicates the port reported an error while reading.
	ErrReadFailure = errors.New("transport: read failure")
	// ErrBufferFlushFailed indicates a buffer reset was rejected by the port.
	ErrBufferFlushFailed = errors.New("transport: buffer flush failed")
	// ErrListPorts indicates the operating system could not enumerate serial ports.
	ErrListPorts = errors.New("transport: list ports failed")
)
