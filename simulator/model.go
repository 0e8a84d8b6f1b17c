package simulator

import (
	"time"

	"github.com/arloliu/go-pldlink/codec"
)

// model is the simulated instrument state. It is guarded by the Instrument mutex.
type model struct {
	start          time.Time
	status         uint16
	config         codec.ConfigTable
	toneOffset     time.Duration
	sequence       uint16
	eventsPerBatch int
	commands       uint32
	crcErrors      uint16
}

func newModel(now time.Time) model {
	return model{
		start:          now,
		status:         1 << (codec.AnalogBoard - 1),
		config:         codec.DefaultConfigTable(),
		eventsPerBatch: 8,
	}
}

func (m *model) handle(cmd codec.Command, now time.Time) codec.Packet {
	switch cmd.Kind() {
	case codec.KindGetHousekeeping:
		return m.housekeeping(now)
	case codec.KindGetScience:
		return m.science(now)
	case codec.KindGetConfig:
		tbl := m.config.Clone()
		return &tbl
	case codec.KindSetConfig:
		if tbl, ok := cmd.ConfigTable(); ok {
			m.config = tbl
			return &codec.Ack{For: codec.KindSetConfig, Status: codec.StatusOK}
		}

		return &codec.Ack{For: codec.KindSetConfig, Status: codec.StatusRejected}
	case codec.KindSetDefaultConfig:
		m.config = codec.DefaultConfigTable()
		return &codec.Ack{For: codec.KindSetDefaultConfig, Status: codec.StatusOK}
	case codec.KindSetControl:
		target, enable, _ := cmd.Control()
		bit := uint16(1) << (target - 1)
		if enable {
			m.status |= bit
		} else {
			m.status &^= bit
		}

		return &codec.ControlAck{Target: target, Enabled: enable, Status: codec.StatusOK}
	case codec.KindSetTimeOfTone:
		tone, _ := cmd.TimeOfTone()
		m.toneOffset = tone.Sub(now)

		return &codec.Ack{For: codec.KindSetTimeOfTone, Status: codec.StatusOK}
	case codec.KindPassThrough:
		return &codec.PassThroughReply{Data: cmd.Payload()}
	default:
		return m.debug()
	}
}

func (m *model) housekeeping(now time.Time) *codec.Housekeeping {
	uptime := now.Sub(m.start)
	wobble := int16(uptime / time.Second % 7) //nolint:gosec // < 7

	hk := &codec.Housekeeping{
		Uptime: uint32(uptime / time.Second), //nolint:gosec // process lifetime
		Status: m.status,
	}
	hk.RailMillivolts = [codec.RailCount]int16{5000 + wobble, -5000 - wobble, 3300, 1800}
	hk.RailMilliamps = [codec.RailCount]int16{120, 95, 310, 450}
	hk.TempCentiC = [codec.TempSensorCount]int16{2150 + wobble*10, 3825, -1200, -1195}

	return hk
}

func (m *model) science(now time.Time) *codec.Science {
	m.sequence++
	sci := &codec.Science{Sequence: m.sequence, Events: make([]codec.Event, m.eventsPerBatch)}

	// instrument time in microseconds, shifted by the last time tone
	base := uint32(now.Add(m.toneOffset).Sub(m.start) / time.Microsecond) //nolint:gosec // wraps like the firmware counter
	for i := range sci.Events {
		n := uint16(i) //nolint:gosec // bounded by MaxScienceEvents
		sci.Events[i] = codec.Event{
			Timestamp: base + uint32(i)*50, //nolint:gosec // bounded
			Detector:  uint8(i % 2),        //nolint:gosec // 0 or 1
			Pixel:     (m.sequence*31 + n*17) % 256,
			Energy:    100 + (m.sequence*7+n*13)%900,
		}
	}

	return sci
}

func (m *model) debug() *codec.Debug {
	return &codec.Debug{
		CommandCount: m.commands,
		CRCErrors:    m.crcErrors,
		FreeMemory:   48 * 1024,
	}
}
