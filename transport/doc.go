// Package transport owns the serial line to the PLD instrument.
//
// A Transport opens one port with fixed link parameters (115200 baud, 8 data bits,
// no parity, one stop bit) and moves raw bytes with a bounded read timeout of
// 200 ms, so a silent instrument becomes a fast, reportable failure instead of a
// stalled worker.
//
// # Connection States
//
//   - Closed: no port is held.
//   - Open: the port is held and healthy.
//   - Faulted: the port reported an I/O error (for example the adapter was unplugged).
//     Only Close followed by Open recovers; the transport never retries on its own.
//
// A read timeout is not a fault: the connection stays Open and the caller may retry.
//
// Transport methods are goroutine-safe, but the transport does not order exchanges;
// the session package serializes send/receive pairs on top of it.
package transport
