package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/internal/queue"
	"github.com/arloliu/go-pldlink/logger"
	"github.com/arloliu/go-pldlink/session"
)

// Executor runs one exchange. *session.Session implements it.
type Executor interface {
	Execute(ctx context.Context, cmd codec.Command) session.Outcome
}

var _ Executor = (*session.Session)(nil)

// Reserver is implemented by executors that can fix an exchange's place on the wire
// before running it. Workers reserve while dequeuing, so exchanges reach the wire in
// submission order whatever the number of workers. *session.Session implements it.
type Reserver interface {
	Reserve() *session.Reservation
}

var _ Reserver = (*session.Session)(nil)

type delivery struct {
	p   *Pending
	out session.Outcome
}

// Dispatcher schedules commands on a bounded worker pool.
type Dispatcher struct {
	exec    Executor
	reserve Reserver
	cfg     *config
	logger  logger.Logger
	metrics Metrics
	seq     atomic.Uint64

	// ctx is canceled on Close so exchanges still waiting for the wire give up.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	cond   *sync.Cond
	jobs   *queue.Queue[*Pending]
	closed bool

	dmu        sync.Mutex
	dcond      *sync.Cond
	deliveries *queue.Queue[delivery]
	dclosed    bool

	workers      sync.WaitGroup
	deliveryDone chan struct{}
	closeOnce    sync.Once
	closeErr     error
}

// New creates a Dispatcher and starts its workers.
func New(exec Executor, opts ...Option) (*Dispatcher, error) {
	if exec == nil {
		return nil, errors.New("dispatcher: executor must not be nil")
	}

	cfg := &config{
		workers:      DefaultWorkers,
		closeTimeout: DefaultCloseTimeout,
		logger:       logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	d := &Dispatcher{
		exec:         exec,
		cfg:          cfg,
		logger:       cfg.logger,
		jobs:         queue.New[*Pending](64),
		deliveries:   queue.New[delivery](64),
		deliveryDone: make(chan struct{}),
	}
	d.reserve, _ = exec.(Reserver)
	d.cond = sync.NewCond(&d.mu)
	d.dcond = sync.NewCond(&d.dmu)
	d.ctx, d.cancel = context.WithCancel(context.Background())

	d.workers.Add(cfg.workers)
	for i := range cfg.workers {
		go d.worker(i)
	}
	go d.deliverLoop()

	return d, nil
}

// Metrics returns the dispatcher counters.
func (d *Dispatcher) Metrics() *Metrics {
	return &d.metrics
}

// Workers returns the size of the worker pool.
func (d *Dispatcher) Workers() int {
	return d.cfg.workers
}

// Queued returns the number of submissions not yet picked up by a worker.
func (d *Dispatcher) Queued() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.jobs.Length()
}

// Running returns the number of exchanges currently executing.
func (d *Dispatcher) Running() int {
	return int(d.metrics.RunningGauge.Load())
}

// Submit queues cmd and returns immediately. onComplete, if not nil, is called
// exactly once with the outcome on the delivery goroutine.
func (d *Dispatcher) Submit(cmd codec.Command, onComplete CompletionFunc) (*Pending, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}

	p := newPending(d.seq.Add(1), cmd, onComplete)
	d.jobs.Enqueue(p)
	d.metrics.SubmittedCount.Add(1)
	d.cond.Signal()

	return p, nil
}

// Close stops accepting submissions, resolves queued ones with an Aborted failure and
// waits for running exchanges and pending callbacks to finish.
//
// If ctx has no deadline the configured close timeout applies. Close is idempotent.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.closeErr = d.close(ctx)
	})

	return d.closeErr
}

func (d *Dispatcher) close(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.closeTimeout)
		defer cancel()
	}

	d.mu.Lock()
	d.closed = true
	queued := d.jobs.Drain()
	d.cond.Broadcast()
	d.mu.Unlock()

	d.cancel()

	for _, p := range queued {
		d.metrics.AbortedCount.Add(1)
		d.enqueueDelivery(p, session.Failed(p.cmd, session.NewFailure(session.Aborted, "dispatcher closed", nil)))
	}

	workersDone := make(chan struct{})
	go func() {
		d.workers.Wait()
		close(workersDone)
	}()

	select {
	case <-workersDone:
	case <-ctx.Done():
		return fmt.Errorf("dispatcher: waiting for workers: %w", ctx.Err())
	}

	d.dmu.Lock()
	d.dclosed = true
	d.dcond.Broadcast()
	d.dmu.Unlock()

	select {
	case <-d.deliveryDone:
	case <-ctx.Done():
		return fmt.Errorf("dispatcher: waiting for callbacks: %w", ctx.Err())
	}

	d.logger.Debug("dispatcher: closed", "aborted", len(queued))

	return nil
}

// nextJob dequeues the oldest job. When the executor supports it, the job's wire
// place is reserved before the queue lock is released.
func (d *Dispatcher) nextJob() (*Pending, *session.Reservation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for d.jobs.IsEmpty() && !d.closed {
		d.cond.Wait()
	}

	p, ok := d.jobs.Dequeue()
	if !ok {
		return nil, nil, false
	}

	var res *session.Reservation
	if d.reserve != nil {
		res = d.reserve.Reserve()
	}

	return p, res, true
}

func (d *Dispatcher) worker(id int) {
	defer d.workers.Done()

	for {
		p, res, ok := d.nextJob()
		if !ok {
			return
		}

		d.metrics.RunningGauge.Add(1)
		out := d.execute(id, p, res)
		d.metrics.RunningGauge.Add(-1)

		d.enqueueDelivery(p, out)
	}
}

func (d *Dispatcher) execute(id int, p *Pending, res *session.Reservation) (out session.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.PanicCount.Add(1)
			d.logger.Error("dispatcher: panic in executor", "worker", id, "kind", p.cmd.Kind(), "panic", r)
			out = session.Failed(p.cmd, session.NewFailure(session.Aborted, fmt.Sprintf("executor panic: %v", r), nil))
		}
		if res != nil {
			res.Release()
		}
	}()

	if res != nil {
		return res.Execute(d.ctx, p.cmd)
	}

	return d.exec.Execute(d.ctx, p.cmd)
}

func (d *Dispatcher) enqueueDelivery(p *Pending, out session.Outcome) {
	d.dmu.Lock()
	defer d.dmu.Unlock()

	d.deliveries.Enqueue(delivery{p: p, out: out})
	d.dcond.Signal()
}

func (d *Dispatcher) nextDelivery() (delivery, bool) {
	d.dmu.Lock()
	defer d.dmu.Unlock()

	for d.deliveries.IsEmpty() && !d.dclosed {
		d.dcond.Wait()
	}

	return d.deliveries.Dequeue()
}

func (d *Dispatcher) deliverLoop() {
	defer close(d.deliveryDone)

	for {
		dl, ok := d.nextDelivery()
		if !ok {
			return
		}

		if !dl.p.resolve(dl.out) {
			continue
		}
		d.metrics.CompletedCount.Add(1)

		if dl.p.onComplete != nil {
			d.callWithRecover(dl.p, dl.out)
		}
	}
}

// callWithRecover calls the completion callback with panic protection
func (d *Dispatcher) callWithRecover(p *Pending, out session.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.PanicCount.Add(1)
			d.logger.Error("dispatcher: panic in completion callback", "id", p.id, "kind", p.cmd.Kind(), "panic", r)
		}
	}()

	p.onComplete(out)
}
