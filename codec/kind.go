package codec

import "fmt"

// Kind identifies a logical command and the packet type answering it.
// The numeric value is the frame ID sent on the wire.
type Kind uint8

const (
	// KindGetHousekeeping requests rail, temperature and status telemetry.
	KindGetHousekeeping Kind = 0x01
	// KindGetScience requests the next batch of detector events.
	KindGetScience Kind = 0x02
	// KindGetConfig reads the configuration table.
	KindGetConfig Kind = 0x03
	// KindSetConfig writes the configuration table.
	KindSetConfig Kind = 0x04
	// KindSetDefaultConfig restores the factory configuration table.
	KindSetDefaultConfig Kind = 0x05
	// KindSetControl switches a subsystem on or off.
	KindSetControl Kind = 0x06
	// KindSetTimeOfTone sets the instrument clock at the time-of-tone pulse.
	KindSetTimeOfTone Kind = 0x07
	// KindPassThrough forwards raw bytes to a subsystem and returns its reply.
	KindPassThrough Kind = 0x08
	// KindGetDebug reads the diagnostic counters.
	KindGetDebug Kind = 0x09
)

// Kinds lists every command kind in wire ID order.
var Kinds = []Kind{
	KindGetHousekeeping,
	KindGetScience,
	KindGetConfig,
	KindSetConfig,
	KindSetDefaultConfig,
	KindSetControl,
	KindSetTimeOfTone,
	KindPassThrough,
	KindGetDebug,
}

// Valid reports whether k is part of the command taxonomy.
func (k Kind) Valid() bool {
	return k >= KindGetHousekeeping && k <= KindGetDebug
}

// String returns string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindGetHousekeeping:
		return "get-housekeeping"
	case KindGetScience:
		return "get-science"
	case KindGetConfig:
		return "get-config"
	case KindSetConfig:
		return "set-config"
	case KindSetDefaultConfig:
		return "set-default-config"
	case KindSetControl:
		return "set-control"
	case KindSetTimeOfTone:
		return "set-time-of-tone"
	case KindPassThrough:
		return "pass-through"
	case KindGetDebug:
		return "get-debug"
	default:
		return fmt.Sprintf("kind(0x%02X)", uint8(k))
	}
}

// ControlTarget is a switchable subsystem of the instrument.
type ControlTarget uint8

const (
	// AnalogBoard switches the +5V and -5V rails of the analog board.
	AnalogBoard ControlTarget = 0x01
	// Instrument1 and Instrument2 power the two detector front ends.
	Instrument1 ControlTarget = 0x02
	Instrument2 ControlTarget = 0x03
	// NST1 and NST2 are the two star trackers.
	NST1 ControlTarget = 0x04
	NST2 ControlTarget = 0x05
	// ScienceStream starts or stops the science data stream.
	ScienceStream ControlTarget = 0x06
)

// Valid reports whether t names a known subsystem.
func (t ControlTarget) Valid() bool {
	return t >= AnalogBoard && t <= ScienceStream
}

// String returns string representation of the target.
func (t ControlTarget) String() string {
	switch t {
	case AnalogBoard:
		return "analog-board"
	case Instrument1:
		return "instrument-1"
	case Instrument2:
		return "instrument-2"
	case NST1:
		return "nst-1"
	case NST2:
		return "nst-2"
	case ScienceStream:
		return "science"
	default:
		return fmt.Sprintf("target(0x%02X)", uint8(t))
	}
}

// statusBit is the housekeeping status flag mirroring the target's power state.
func (t ControlTarget) statusBit() uint16 {
	return 1 << (uint8(t) - 1)
}
