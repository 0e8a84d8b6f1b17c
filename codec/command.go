package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Command is a logical request to the instrument.
//
// A Command is immutable: constructors copy their inputs and Payload returns a copy,
// so Commands may be handed between goroutines freely.
type Command struct {
	kind    Kind
	payload []byte
}

// GetHousekeeping requests the housekeeping packet.
func GetHousekeeping() Command { return Command{kind: KindGetHousekeeping} }

// GetScience requests the next science packet.
func GetScience() Command { return Command{kind: KindGetScience} }

// GetConfig requests the current configuration table.
func GetConfig() Command { return Command{kind: KindGetConfig} }

// SetDefaultConfig restores the factory configuration table.
func SetDefaultConfig() Command { return Command{kind: KindSetDefaultConfig} }

// GetDebug requests the debugging packet.
func GetDebug() Command { return Command{kind: KindGetDebug} }

// SetConfig assigns a new configuration table.
func SetConfig(table ConfigTable) (Command, error) {
	payload, err := table.appendTo(nil)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	return Command{kind: KindSetConfig, payload: payload}, nil
}

// SetControl switches a subsystem on or off.
func SetControl(target ControlTarget, enable bool) (Command, error) {
	if !target.Valid() {
		return Command{}, fmt.Errorf("%w: invalid control target %s", ErrEncode, target)
	}

	return Command{kind: KindSetControl, payload: []byte{byte(target), boolByte(enable)}}, nil
}

// SetTimeOfTone sends the time of the next tone. Only whole microseconds are kept.
func SetTimeOfTone(tone time.Time) (Command, error) {
	sec := tone.Unix()
	if sec < 0 || sec > int64(^uint32(0)) {
		return Command{}, fmt.Errorf("%w: time of tone %s out of range", ErrEncode, tone)
	}

	payload := make([]byte, 0, 8)
	payload = binary.BigEndian.AppendUint32(payload, uint32(sec))
	payload = binary.BigEndian.AppendUint32(payload, uint32(tone.Nanosecond()/1000)) //nolint:gosec // < 1e6

	return Command{kind: KindSetTimeOfTone, payload: payload}, nil
}

// PassThrough forwards raw bytes directly to the instrument.
func PassThrough(raw []byte) (Command, error) {
	if len(raw) == 0 || len(raw) > MaxPayloadSize {
		return Command{}, fmt.Errorf("%w: pass-through size %d out of range [1, %d]", ErrEncode, len(raw), MaxPayloadSize)
	}

	return Command{kind: KindPassThrough, payload: bytes.Clone(raw)}, nil
}

// Kind returns the command kind.
func (c Command) Kind() Kind { return c.kind }

// Payload returns a copy of the encoded parameters.
func (c Command) Payload() []byte { return bytes.Clone(c.payload) }

// IsZero reports whether c was never constructed.
func (c Command) IsZero() bool { return c.kind == 0 }

// Equal reports whether both commands would encode to the same frame.
func (c Command) Equal(o Command) bool {
	return c.kind == o.kind && bytes.Equal(c.payload, o.payload)
}

// Control returns the target and switch state of a SetControl command.
func (c Command) Control() (ControlTarget, bool, bool) {
	if c.kind != KindSetControl || len(c.payload) != 2 {
		return 0, false, false
	}

	return ControlTarget(c.payload[0]), c.payload[1] != 0, true
}

// TimeOfTone returns the timestamp of a SetTimeOfTone command.
func (c Command) TimeOfTone() (time.Time, bool) {
	if c.kind != KindSetTimeOfTone || len(c.payload) != 8 {
		return time.Time{}, false
	}

	sec := binary.BigEndian.Uint32(c.payload[0:4])
	usec := binary.BigEndian.Uint32(c.payload[4:8])

	return time.Unix(int64(sec), int64(usec)*1000).UTC(), true
}

// ConfigTable returns the table carried by a SetConfig command.
func (c Command) ConfigTable() (ConfigTable, bool) {
	if c.kind != KindSetConfig {
		return ConfigTable{}, false
	}

	tbl, err := parseConfigTable(c.payload)
	if err != nil {
		return ConfigTable{}, false
	}

	return tbl, true
}

// String returns a short description for logs.
func (c Command) String() string {
	if target, on, ok := c.Control(); ok {
		return fmt.Sprintf("%s{%s=%t}", c.kind, target, on)
	}
	if len(c.payload) > 0 {
		return fmt.Sprintf("%s[%d]", c.kind, len(c.payload))
	}

	return c.kind.String()
}

// commandFromPayload validates an incoming command payload for its kind.
func commandFromPayload(kind Kind, payload []byte) (Command, error) {
	switch kind {
	case KindGetHousekeeping, KindGetScience, KindGetConfig, KindSetDefaultConfig, KindGetDebug:
		if len(payload) != 0 {
			return Command{}, fmt.Errorf("%w: %s carries no parameters, got %d bytes", ErrBadPayload, kind, len(payload))
		}

		return Command{kind: kind}, nil

	case KindSetConfig:
		if _, err := parseConfigTable(payload); err != nil {
			return Command{}, err
		}

	case KindSetControl:
		if len(payload) != 2 || !ControlTarget(payload[0]).Valid() {
			return Command{}, fmt.Errorf("%w: bad set-control parameters % X", ErrBadPayload, payload)
		}

	case KindSetTimeOfTone:
		if len(payload) != 8 {
			return Command{}, fmt.Errorf("%w: time of tone needs 8 bytes, got %d", ErrBadPayload, len(payload))
		}

	case KindPassThrough:
		if len(payload) == 0 {
			return Command{}, fmt.Errorf("%w: empty pass-through", ErrBadPayload)
		}

	default:
		return Command{}, fmt.Errorf("%w: 0x%02X", ErrUnknownKind, uint8(kind))
	}

	return Command{kind: kind, payload: bytes.Clone(payload)}, nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}

	return 0
}
