// Package worker drains assignment events from the queue and hands them to a
// notifier.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/carematch/internal/adapters/mq/queue"
	"github.com/okian/carematch/internal/domain/model"
	"github.com/okian/carematch/pkg/logger"
	"github.com/okian/carematch/pkg/metrics"
)

const (
	defaultAttempts      = 1
	defaultRetryDelay    = 100 * time.Millisecond
	defaultNotifyTimeout = 5 * time.Second
	poolShutdownTimeout  = 30 * time.Second
)

// Notifier delivers one assignment event to whoever listens downstream.
type Notifier interface {
	Notify(ctx context.Context, e model.AssignmentEvent) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e model.AssignmentEvent) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, e model.AssignmentEvent) error { //nolint:gocritic // hugeParam
	return f(ctx, e)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Event
}

// Worker processes events until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called,
	// or the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the loop to exit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker forwards queued events to a Notifier.
type InMemoryWorker struct {
	queue    Queue
	notifier Notifier
	name     string

	attempts      int
	retryDelay    time.Duration
	notifyTimeout time.Duration

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

var _ Worker = (*InMemoryWorker)(nil)

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, n Notifier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:         q,
		notifier:      n,
		name:          "worker",
		attempts:      defaultAttempts,
		retryDelay:    defaultRetryDelay,
		notifyTimeout: defaultNotifyTimeout,
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logger.String("worker", w.name))
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, e); err != nil {
				w.logger.Warn(ctx, "notification failed",
					logger.String("event_id", e.EventID),
					logger.String("booking_id", e.BookingID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker without draining what is left in the queue.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent delivers a single event, trying at most w.attempts times.
func (w *InMemoryWorker) processEvent(ctx context.Context, e queue.Event) error { //nolint:gocritic // hugeParam: events travel by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	var err error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("notify %s: %w", e.EventID, ctx.Err())
			case <-time.After(w.retryDelay):
			}
		}

		nctx, cancel := context.WithTimeout(ctx, w.notifyTimeout)
		err = w.notifier.Notify(nctx, e)
		cancel()
		if err == nil {
			metrics.RecordNotificationSent(e.Type)
			w.logger.Debug(ctx, "notification sent",
				logger.String("event_id", e.EventID),
				logger.String("type", e.Type),
				logger.Int("attempt", attempt),
			)
			return nil
		}
	}

	metrics.RecordWorkerError()
	metrics.RecordErrorByComponent("worker", "notify_error")
	return fmt.Errorf("notify %s after %d attempt(s): %w", e.EventID, w.attempts, err)
}

// Pool manages multiple workers reading the same queue.
type Pool struct {
	workers []*InMemoryWorker
	logger  logger.Logger
}

// NewPool creates workerCount workers. A non-positive count means one per CPU.
func NewPool(workerCount int, q Queue, n Notifier, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	probe := &InMemoryWorker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(probe)
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		logger:  probe.logger.With(logger.String("component", "worker-pool")),
	}
	for i := range p.workers {
		wopts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))
		p.workers[i] = NewInMemoryWorker(q, n, wopts...)
	}

	metrics.UpdateWorkerCount(0)
	return p
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
}

// Shutdown waits for workers to drain the queue and exit. Close the queue
// first; workers still running when ctx (or the pool timeout) expires are
// stopped without draining.
func (p *Pool) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker did not drain in time", logger.Int("worker_id", i))
			w.stopOnce.Do(func() { close(w.shutdown) })
			timedOut++
		}
	}
	metrics.UpdateWorkerCount(0)

	if timedOut > 0 {
		return fmt.Errorf("%d worker(s) stopped before draining: %w", timedOut, shutdownCtx.Err())
	}
	return nil
}
