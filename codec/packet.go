package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Packet is a decoded instrument response. The concrete type is determined by
// Kind: *Housekeeping, *Science, *ConfigTable, *Debug, *ControlAck, *Ack or
// *PassThroughReply.
type Packet interface {
	// Kind returns the command kind this packet answers.
	Kind() Kind
}

// Status codes carried by acknowledgement packets.
const (
	StatusOK       uint8 = 0x00
	StatusRejected uint8 = 0x01
	StatusBusy     uint8 = 0x02
)

// Rail identifies a monitored power rail.
type Rail int

const (
	// RailPos5V is the +5V analog rail.
	RailPos5V Rail = iota
	// RailNeg5V is the -5V analog rail.
	RailNeg5V
	// Rail3V3 is the 3.3V digital rail.
	Rail3V3
	// Rail1V8 is the 1.8V FPGA core rail.
	Rail1V8
	// RailCount is the number of monitored rails.
	RailCount
)

// Valid reports whether r names a monitored rail.
func (r Rail) Valid() bool { return r >= 0 && r < RailCount }

// TempSensor identifies a temperature sensor.
type TempSensor int

const (
	// TempBoard is the board ambient sensor.
	TempBoard TempSensor = iota
	// TempFPGA is the FPGA die sensor.
	TempFPGA
	// TempDetector1 and TempDetector2 sit on the two detector heads.
	TempDetector1
	TempDetector2
	// TempSensorCount is the number of temperature sensors.
	TempSensorCount
)

// Valid reports whether s names a temperature sensor.
func (s TempSensor) Valid() bool { return s >= 0 && s < TempSensorCount }

// housekeepingSize is the fixed payload size of a housekeeping packet.
const housekeepingSize = 4 + 2*int(RailCount) + 2*int(RailCount) + 2*int(TempSensorCount) + 2

// Housekeeping is the instrument health telemetry.
type Housekeeping struct {
	// Uptime is the instrument uptime in seconds.
	Uptime         uint32
	RailMillivolts [RailCount]int16
	RailMilliamps  [RailCount]int16
	// TempCentiC holds temperatures in hundredths of a degree Celsius.
	TempCentiC [TempSensorCount]int16
	Status     uint16
}

var _ Packet = (*Housekeeping)(nil)

func (*Housekeeping) Kind() Kind { return KindGetHousekeeping }

// Voltage returns the rail voltage in volts, or 0 for an unknown rail.
func (h *Housekeeping) Voltage(r Rail) float64 {
	if !r.Valid() {
		return 0
	}

	return float64(h.RailMillivolts[r]) / 1000
}

// Current returns the rail current in amperes, or 0 for an unknown rail.
func (h *Housekeeping) Current(r Rail) float64 {
	if !r.Valid() {
		return 0
	}

	return float64(h.RailMilliamps[r]) / 1000
}

// Temperature returns the sensor reading in degrees Celsius, or 0 for an unknown sensor.
func (h *Housekeeping) Temperature(s TempSensor) float64 {
	if !s.Valid() {
		return 0
	}

	return float64(h.TempCentiC[s]) / 100
}

// Powered reports the status flag of a switchable subsystem.
func (h *Housekeeping) Powered(t ControlTarget) bool {
	return t.Valid() && h.Status&t.statusBit() != 0
}

func (h *Housekeeping) appendTo(buf []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, h.Uptime)
	for _, v := range h.RailMillivolts {
		buf = binary.BigEndian.AppendUint16(buf, uint16(v)) //nolint:gosec // two's complement on the wire
	}
	for _, v := range h.RailMilliamps {
		buf = binary.BigEndian.AppendUint16(buf, uint16(v)) //nolint:gosec
	}
	for _, v := range h.TempCentiC {
		buf = binary.BigEndian.AppendUint16(buf, uint16(v)) //nolint:gosec
	}

	return binary.BigEndian.AppendUint16(buf, h.Status)
}

func parseHousekeeping(p []byte) (*Housekeeping, error) {
	if len(p) != housekeepingSize {
		return nil, fmt.Errorf("%w: housekeeping needs %d bytes, got %d", ErrBadPayload, housekeepingSize, len(p))
	}

	h := &Housekeeping{Uptime: binary.BigEndian.Uint32(p[0:4])}
	off := 4
	next := func() int16 {
		v := int16(binary.BigEndian.Uint16(p[off : off+2])) //nolint:gosec
		off += 2
		return v
	}
	for i := range h.RailMillivolts {
		h.RailMillivolts[i] = next()
	}
	for i := range h.RailMilliamps {
		h.RailMilliamps[i] = next()
	}
	for i := range h.TempCentiC {
		h.TempCentiC[i] = next()
	}
	h.Status = binary.BigEndian.Uint16(p[off : off+2])

	return h, nil
}

// eventSize is the wire size of one science event record.
const eventSize = 9

// MaxScienceEvents is the number of event records that fit one frame.
const MaxScienceEvents = (MaxPayloadSize - 4) / eventSize

// Event is one detector hit.
type Event struct {
	// Timestamp is the instrument clock in microseconds.
	Timestamp uint32
	Detector  uint8
	Pixel     uint16
	Energy    uint16
}

// Science is a batch of event records.
type Science struct {
	Sequence uint16
	Events   []Event
}

var _ Packet = (*Science)(nil)

func (*Science) Kind() Kind { return KindGetScience }

func (s *Science) appendTo(buf []byte) ([]byte, error) {
	if len(s.Events) > MaxScienceEvents {
		return nil, fmt.Errorf("science packet has %d events, max %d", len(s.Events), MaxScienceEvents)
	}

	buf = binary.BigEndian.AppendUint16(buf, s.Sequence)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s.Events))) //nolint:gosec // bounded above
	for _, e := range s.Events {
		buf = binary.BigEndian.AppendUint32(buf, e.Timestamp)
		buf = append(buf, e.Detector)
		buf = binary.BigEndian.AppendUint16(buf, e.Pixel)
		buf = binary.BigEndian.AppendUint16(buf, e.Energy)
	}

	return buf, nil
}

func parseScience(p []byte) (*Science, error) {
	if len(p) < 4 {
		return nil, fmt.Errorf("%w: science header needs 4 bytes, got %d", ErrBadPayload, len(p))
	}

	s := &Science{Sequence: binary.BigEndian.Uint16(p[0:2])}
	n := int(binary.BigEndian.Uint16(p[2:4]))
	if len(p) != 4+n*eventSize {
		return nil, fmt.Errorf("%w: science declares %d events in %d bytes", ErrBadPayload, n, len(p))
	}

	s.Events = make([]Event, n)
	for i := range n {
		r := p[4+i*eventSize:]
		s.Events[i] = Event{
			Timestamp: binary.BigEndian.Uint32(r[0:4]),
			Detector:  r[4],
			Pixel:     binary.BigEndian.Uint16(r[5:7]),
			Energy:    binary.BigEndian.Uint16(r[7:9]),
		}
	}

	return s, nil
}

const debugSize = 16

// Debug carries diagnostic counters of the instrument firmware.
type Debug struct {
	ResetCause    uint8
	LastError     uint8
	ErrorCount    uint16
	CommandCount  uint32
	CRCErrors     uint16
	FreeMemory    uint32
	MaxLoopMicros uint16
}

var _ Packet = (*Debug)(nil)

func (*Debug) Kind() Kind { return KindGetDebug }

func (d *Debug) appendTo(buf []byte) []byte {
	buf = append(buf, d.ResetCause, d.LastError)
	buf = binary.BigEndian.AppendUint16(buf, d.ErrorCount)
	buf = binary.BigEndian.AppendUint32(buf, d.CommandCount)
	buf = binary.BigEndian.AppendUint16(buf, d.CRCErrors)
	buf = binary.BigEndian.AppendUint32(buf, d.FreeMemory)

	return binary.BigEndian.AppendUint16(buf, d.MaxLoopMicros)
}

func parseDebug(p []byte) (*Debug, error) {
	if len(p) != debugSize {
		return nil, fmt.Errorf("%w: debug needs %d bytes, got %d", ErrBadPayload, debugSize, len(p))
	}

	return &Debug{
		ResetCause:    p[0],
		LastError:     p[1],
		ErrorCount:    binary.BigEndian.Uint16(p[2:4]),
		CommandCount:  binary.BigEndian.Uint32(p[4:8]),
		CRCErrors:     binary.BigEndian.Uint16(p[8:10]),
		FreeMemory:    binary.BigEndian.Uint32(p[10:14]),
		MaxLoopMicros: binary.BigEndian.Uint16(p[14:16]),
	}, nil
}

// ControlAck acknowledges a SetControl command.
type ControlAck struct {
	Target  ControlTarget
	Enabled bool
	Status  uint8
}

var _ Packet = (*ControlAck)(nil)

func (*ControlAck) Kind() Kind { return KindSetControl }

// OK reports whether the instrument accepted the command.
func (a *ControlAck) OK() bool { return a.Status == StatusOK }

func parseControlAck(p []byte) (*ControlAck, error) {
	if len(p) != 3 || !ControlTarget(p[0]).Valid() {
		return nil, fmt.Errorf("%w: bad control acknowledgement % X", ErrBadPayload, p)
	}

	return &ControlAck{Target: ControlTarget(p[0]), Enabled: p[1] != 0, Status: p[2]}, nil
}

// Ack acknowledges SetConfig, SetDefaultConfig and SetTimeOfTone.
type Ack struct {
	For    Kind
	Status uint8
}

var _ Packet = (*Ack)(nil)

// Kind returns the kind of the acknowledged command.
func (a *Ack) Kind() Kind { return a.For }

// OK reports whether the instrument accepted the command.
func (a *Ack) OK() bool { return a.Status == StatusOK }

// PassThroughReply is the raw answer of the instrument to a pass-through command.
type PassThroughReply struct {
	Data []byte
}

var _ Packet = (*PassThroughReply)(nil)

func (*PassThroughReply) Kind() Kind { return KindPassThrough }

// decodePayload turns a response payload into its Packet.
func decodePayload(kind Kind, p []byte) (Packet, error) {
	switch kind {
	case KindGetHousekeeping:
		return parseHousekeeping(p)
	case KindGetScience:
		return parseScience(p)
	case KindGetConfig:
		tbl, err := parseConfigTable(p)
		if err != nil {
			return nil, err
		}

		return &tbl, nil
	case KindGetDebug:
		return parseDebug(p)
	case KindSetControl:
		return parseControlAck(p)
	case KindSetConfig, KindSetDefaultConfig, KindSetTimeOfTone:
		if len(p) != 1 {
			return nil, fmt.Errorf("%w: acknowledgement needs 1 byte, got %d", ErrBadPayload, len(p))
		}

		return &Ack{For: kind, Status: p[0]}, nil
	case KindPassThrough:
		return &PassThroughReply{Data: bytes.Clone(p)}, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownKind, uint8(kind))
	}
}

// encodePayload is the inverse of decodePayload.
func encodePayload(p Packet) ([]byte, error) {
	switch pkt := p.(type) {
	case *Housekeeping:
		return pkt.appendTo(make([]byte, 0, housekeepingSize)), nil
	case *Science:
		return pkt.appendTo(nil)
	case *ConfigTable:
		return pkt.appendTo(nil)
	case *Debug:
		return pkt.appendTo(make([]byte, 0, debugSize)), nil
	case *ControlAck:
		if !pkt.Target.Valid() {
			return nil, fmt.Errorf("invalid control target %s", pkt.Target)
		}

		return []byte{byte(pkt.Target), boolByte(pkt.Enabled), pkt.Status}, nil
	case *Ack:
		switch pkt.For {
		case KindSetConfig, KindSetDefaultConfig, KindSetTimeOfTone:
			return []byte{pkt.Status}, nil
		default:
			return nil, fmt.Errorf("ack is not a valid answer to %s", pkt.For)
		}
	case *PassThroughReply:
		return bytes.Clone(pkt.Data), nil
	case nil:
		return nil, fmt.Errorf("nil packet")
	default:
		return nil, fmt.Errorf("unsupported packet type %T", p)
	}
}
