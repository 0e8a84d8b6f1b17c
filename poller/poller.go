// Package poller requests housekeeping telemetry on a fixed interval.
//
// While enabled, every tick submits a GetHousekeeping command through a Submitter.
// Disable guarantees that no submission happens after it returns, even when a tick
// was about to fire. A tick is skipped while the previous poll is still unresolved
// so a slow or silent instrument does not pile up requests.
package poller

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/dispatcher"
	"github.com/arloliu/go-pldlink/logger"
)

const (
	// DefaultInterval is the poll interval used when WithInterval is not given.
	DefaultInterval = 5 * time.Second
	// MinInterval is the shortest accepted poll interval.
	MinInterval = 100 * time.Millisecond
)

// Submitter queues a command. *dispatcher.Dispatcher implements it.
type Submitter interface {
	Submit(cmd codec.Command, onComplete dispatcher.CompletionFunc) (*dispatcher.Pending, error)
}

var _ Submitter = (*dispatcher.Dispatcher)(nil)

// Metrics contains atomic counters of a Poller.
type Metrics struct {
	// SubmissionCount indicates the number of housekeeping requests submitted.
	SubmissionCount atomic.Uint64
	// SkippedCount indicates the number of ticks skipped because the previous poll was unresolved.
	SkippedCount atomic.Uint64
	// SubmitErrorCount indicates the number of ticks whose submission was rejected.
	SubmitErrorCount atomic.Uint64
}

// Poller is the auto-poll state machine: Disabled <-> Enabled.
type Poller struct {
	sub     Submitter
	clock   clock.Clock
	handler dispatcher.CompletionFunc
	logger  logger.Logger
	metrics Metrics

	mu       sync.Mutex
	enabled  bool
	closed   bool
	interval time.Duration
	// resetPending marks an interval change to apply at the next tick.
	resetPending bool
	ticker       *clock.Ticker
	// stop identifies the running tick loop; a new one is made on each Enable.
	stop chan struct{}
	last *dispatcher.Pending
}

// Option is a functional option for configuring a Poller.
type Option interface {
	apply(*Poller) error
}

type optFunc func(*Poller) error

func (f optFunc) apply(p *Poller) error { return f(p) }

// WithClock sets the clock driving the ticks.
func WithClock(c clock.Clock) Option {
	return optFunc(func(p *Poller) error {
		if c == nil {
			return errors.New("poller: clock must not be nil")
		}
		p.clock = c

		return nil
	})
}

// WithInterval sets the initial poll interval.
func WithInterval(d time.Duration) Option {
	return optFunc(func(p *Poller) error {
		if err := validateInterval(d); err != nil {
			return err
		}
		p.interval = d

		return nil
	})
}

// WithHandler sets the callback receiving every poll outcome.
func WithHandler(h dispatcher.CompletionFunc) Option {
	return optFunc(func(p *Poller) error {
		p.handler = h
		return nil
	})
}

// WithLogger sets the logger of the poller.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(p *Poller) error {
		if l == nil {
			return errors.New("poller: logger must not be nil")
		}
		p.logger = l

		return nil
	})
}

func validateInterval(d time.Duration) error {
	if d < MinInterval {
		return fmt.Errorf("poller: interval %v below minimum %v", d, MinInterval)
	}

	return nil
}

// New creates a disabled Poller.
func New(sub Submitter, opts ...Option) (*Poller, error) {
	if sub == nil {
		return nil, errors.New("poller: submitter must not be nil")
	}

	p := &Poller{
		sub:      sub,
		clock:    clock.New(),
		interval: DefaultInterval,
		logger:   logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Metrics returns the poller counters.
func (p *Poller) Metrics() *Metrics {
	return &p.metrics
}

// Submissions returns the number of housekeeping requests submitted so far.
func (p *Poller) Submissions() uint64 {
	return p.metrics.SubmissionCount.Load()
}

// Enabled reports whether the poller is enabled.
func (p *Poller) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.enabled
}

// Interval returns the configured poll interval.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.interval
}

// Toggle enables or disables polling.
func (p *Poller) Toggle(on bool) {
	if on {
		p.Enable()
	} else {
		p.Disable()
	}
}

// Enable starts polling; the first request is submitted one interval from now.
// It is a no-op when already enabled or closed.
func (p *Poller) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.enabled || p.closed {
		return
	}

	p.enabled = true
	p.resetPending = false
	p.ticker = p.clock.Ticker(p.interval)
	p.stop = make(chan struct{})
	go p.loop(p.ticker, p.stop)

	p.logger.Info("poller: enabled", "interval", p.interval)
}

// Disable stops polling. No request is submitted after Disable returns.
func (p *Poller) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.disableLocked()
}

func (p *Poller) disableLocked() {
	if !p.enabled {
		return
	}

	p.enabled = false
	p.ticker.Stop()
	close(p.stop)
	p.ticker, p.stop = nil, nil

	p.logger.Info("poller: disabled")
}

// SetInterval changes the poll interval. While enabled, the tick already scheduled
// keeps its time and the new interval applies from the tick after it.
func (p *Poller) SetInterval(d time.Duration) error {
	if err := validateInterval(d); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.interval == d {
		return nil
	}
	p.interval = d
	p.resetPending = p.enabled
	p.logger.Debug("poller: interval changed", "interval", d)

	return nil
}

// Close disables the poller permanently.
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.disableLocked()
	p.closed = true
}

func (p *Poller) loop(ticker *clock.Ticker, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ticker = p.fire(ticker, stop)
		}
	}
}

// fire handles one tick and returns the ticker the loop should wait on next.
func (p *Poller) fire(ticker *clock.Ticker, stop chan struct{}) *clock.Ticker {
	p.mu.Lock()
	defer p.mu.Unlock()

	// the loop may belong to an earlier Enable, or Disable won the race for the lock
	if !p.enabled || p.stop != stop {
		return ticker
	}

	if p.resetPending {
		ticker.Stop()
		ticker = p.clock.Ticker(p.interval)
		p.ticker = ticker
		p.resetPending = false
	}

	if p.last != nil && !p.last.Resolved() {
		p.metrics.SkippedCount.Add(1)
		p.logger.Debug("poller: previous poll unresolved, skipping tick")

		return ticker
	}

	pending, err := p.sub.Submit(codec.GetHousekeeping(), p.handler)
	if err != nil {
		p.metrics.SubmitErrorCount.Add(1)
		p.logger.Warn("poller: failed to submit housekeeping request", "error", err)

		return ticker
	}

	p.last = pending
	p.metrics.SubmissionCount.Add(1)

	return ticker
}
