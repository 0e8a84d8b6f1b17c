// Package simulator provides an in-memory PLD instrument.
//
// An Instrument implements transport.Port: command frames written to it are decoded
// with the frame codec and answered with encoded response packets that become
// readable after a configurable latency. It keeps a small model of the instrument
// (uptime, rails, power switches, configuration table, science sequence) and can
// inject faults: silence per command kind, corrupted checksums, or an unplugged
// adapter.
package simulator
