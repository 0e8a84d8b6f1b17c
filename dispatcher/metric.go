package dispatcher

import "sync/atomic"

// Metrics contains atomic counters of a Dispatcher.
type Metrics struct {
	// SubmittedCount indicates the number of accepted submissions.
	SubmittedCount atomic.Uint64
	// CompletedCount indicates the number of delivered outcomes.
	CompletedCount atomic.Uint64
	// AbortedCount indicates the number of submissions resolved without running.
	AbortedCount atomic.Uint64
	// PanicCount indicates the number of recovered panics in executors and callbacks.
	PanicCount atomic.Uint64
	// RunningGauge indicates the number of exchanges currently executing.
	RunningGauge atomic.Int64
}
