package codec

import (
	"encoding/binary"
	"fmt"
	"slices"
)

// MaxConfigEntries is the largest table a single frame can carry.
const MaxConfigEntries = 255

// ConfigEntry is one operating parameter of the instrument.
type ConfigEntry struct {
	ID    uint8
	Value uint16
}

// ConfigTable is the instrument's configuration table. It is both the payload of
// SetConfig and the packet answering GetConfig.
type ConfigTable struct {
	Entries []ConfigEntry
}

var _ Packet = (*ConfigTable)(nil)

// Kind returns KindGetConfig.
func (t *ConfigTable) Kind() Kind { return KindGetConfig }

// Lookup returns the value stored under id.
func (t *ConfigTable) Lookup(id uint8) (uint16, bool) {
	for _, e := range t.Entries {
		if e.ID == id {
			return e.Value, true
		}
	}

	return 0, false
}

// Clone returns a deep copy of the table.
func (t ConfigTable) Clone() ConfigTable {
	return ConfigTable{Entries: slices.Clone(t.Entries)}
}

// DefaultConfigTable returns the factory table the instrument restores on
// SetDefaultConfig.
func DefaultConfigTable() ConfigTable {
	return ConfigTable{Entries: []ConfigEntry{
		{ID: 0x01, Value: 1000}, // housekeeping cadence, ms
		{ID: 0x02, Value: 250},  // science frame period, ms
		{ID: 0x03, Value: 0x0F}, // detector enable mask
		{ID: 0x04, Value: 512},  // energy threshold, ADC counts
		{ID: 0x05, Value: 16},   // pixel bias DAC
		{ID: 0x06, Value: 0},    // test pattern
	}}
}

func (t ConfigTable) appendTo(buf []byte) ([]byte, error) {
	if len(t.Entries) > MaxConfigEntries {
		return nil, fmt.Errorf("config table has %d entries, max %d", len(t.Entries), MaxConfigEntries)
	}

	buf = append(buf, byte(len(t.Entries)))
	for _, e := range t.Entries {
		buf = append(buf, e.ID)
		buf = binary.BigEndian.AppendUint16(buf, e.Value)
	}

	return buf, nil
}

func parseConfigTable(payload []byte) (ConfigTable, error) {
	if len(payload) < 1 {
		return ConfigTable{}, fmt.Errorf("%w: empty config table", ErrBadPayload)
	}

	n := int(payload[0])
	if len(payload) != 1+n*3 {
		return ConfigTable{}, fmt.Errorf("%w: config table declares %d entries in %d bytes", ErrBadPayload, n, len(payload))
	}

	tbl := ConfigTable{Entries: make([]ConfigEntry, n)}
	for i := range n {
		off := 1 + i*3
		tbl.Entries[i] = ConfigEntry{
			ID:    payload[off],
			Value: binary.BigEndian.Uint16(payload[off+1 : off+3]),
		}
	}

	return tbl, nil
}
