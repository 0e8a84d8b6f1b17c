package session

import (
	"sync/atomic"
)

// Metrics contains atomic counters of a Session.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// ExchangeCount indicates the number of Execute calls.
	ExchangeCount atomic.Uint64
	// SuccessCount indicates the number of exchanges that produced a packet.
	SuccessCount atomic.Uint64
	// FailureCount indicates the number of exchanges that resolved to a failure.
	FailureCount atomic.Uint64
	// BytesSent indicates the number of frame bytes written.
	BytesSent atomic.Uint64
	// BytesReceived indicates the number of frame bytes read.
	BytesReceived atomic.Uint64
	// FlushFailureCount indicates the number of rejected buffer flushes.
	FlushFailureCount atomic.Uint64
	// InflightGauge indicates whether an exchange currently holds the wire.
	InflightGauge atomic.Int64

	failures [failureKindCount]atomic.Uint64
}

// Failures returns the number of failures of the given kind.
func (m *Metrics) Failures(kind FailureKind) uint64 {
	if kind >= failureKindCount {
		return 0
	}

	return m.failures[kind].Load()
}

func (m *Metrics) incExchangeCount() {
	m.ExchangeCount.Add(1)
}

func (m *Metrics) incSuccessCount() {
	m.SuccessCount.Add(1)
}

func (m *Metrics) incFailureCount(kind FailureKind) {
	m.FailureCount.Add(1)
	if kind < failureKindCount {
		m.failures[kind].Add(1)
	}
}

func (m *Metrics) addBytesSent(n int) {
	m.BytesSent.Add(uint64(n)) //nolint:gosec // n is a frame length
}

func (m *Metrics) addBytesReceived(n int) {
	m.BytesReceived.Add(uint64(n)) //nolint:gosec // n is a frame length
}

func (m *Metrics) incFlushFailureCount() {
	m.FlushFailureCount.Add(1)
}

func (m *Metrics) incInflight() {
	m.InflightGauge.Add(1)
}

func (m *Metrics) decInflight() {
	m.InflightGauge.Add(-1)
}
