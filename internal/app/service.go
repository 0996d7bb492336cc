// Package service composes the booking assignment components into the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	eventqueue "github.com/okian/carematch/internal/adapters/mq/queue"
	workerpool "github.com/okian/carematch/internal/adapters/mq/worker"
	"github.com/okian/carematch/internal/adapters/notify"
	"github.com/okian/carematch/internal/adapters/repository"
	"github.com/okian/carematch/internal/domain/calendar"
	"github.com/okian/carematch/internal/domain/dedupe"
	"github.com/okian/carematch/internal/domain/directory"
	"github.com/okian/carematch/internal/domain/model"
	"github.com/okian/carematch/internal/domain/scoring"
	"github.com/okian/carematch/internal/domain/timeslot"
	"github.com/okian/carematch/internal/domain/workflow"
	"github.com/okian/carematch/internal/seed"
	"github.com/okian/carematch/pkg/logger"
	"github.com/okian/carematch/pkg/metrics"
)

// Lifecycle errors.
var (
	// ErrNotStarted is returned by operations called before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrStopped is returned by Start once the service has been stopped; the
	// store and notifier are closed by then.
	ErrStopped = errors.New("service stopped")
)

// Service implements the API dependencies for the booking assignment system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	notifier workerpool.Notifier
	deduper  dedupe.Deduper
	queue    *eventqueue.InMemoryQueue
	pool     *workerpool.Pool
	catalog  *model.Catalog
	engine   *scoring.Engine
	flow     *workflow.Workflow
	dir      *directory.Directory
	matcher  *calendar.Matcher

	// Configuration
	services       map[string]string
	workerCount    int
	queueSize      int
	notifyAttempts int
	dedupeSize     int
	firstHour      int
	lastHour       int
	weekStart      time.Weekday
	seedDemo       bool
	now            func() time.Time

	// State
	started    bool
	stopped    bool
	stopWorker context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		services: map[string]string{
			"cleaning":   "Cleaning",
			"driving":    "Driving",
			"childcare":  "Childcare",
			"elder-care": "Elder Care",
			"laundry":    "Laundry",
		},
		workerCount:    4,
		queueSize:      10_000,
		notifyAttempts: 1,
		dedupeSize:     50_000,
		firstHour:      7,
		lastHour:       20,
		weekStart:      time.Monday,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	return s
}

// Start builds the components and starts the notification workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}
	s.logger.Info(ctx, "starting booking service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx, repository.WithClock(s.now))
		s.logger.Info(ctx, "using in-memory store")
	}
	if s.notifier == nil {
		s.notifier = notify.NewLogNotifier(s.logger.Named("notify"))
	}

	s.catalog = model.NewCatalog(s.services)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.engine = scoring.NewEngine(s.store)
	s.dir = directory.New(s.store)
	s.matcher = calendar.NewMatcher(s.catalog)
	s.flow = workflow.New(s.store,
		workflow.WithEventSink(s.queue),
		workflow.WithClock(s.now),
		workflow.WithLogger(s.logger.Named("workflow")),
	)

	if s.seedDemo {
		ds := seed.Generate(seed.WithNow(s.now()), seed.WithServices(s.titles()), seed.WithWeekStart(s.weekStart))
		if err := seed.Load(ctx, s.store, ds, s.logger.Named("seed")); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	// Workers outlive the start context; Stop cancels them.
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.stopWorker = cancel
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.notifier,
		workerpool.WithAttempts(s.notifyAttempts),
		workerpool.WithLogger(s.logger.Named("worker")),
	)
	s.pool.Start(workerCtx)

	s.started = true
	s.logger.Info(ctx, "booking service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("services", len(s.services)),
	)
	return nil
}

// Stop drains pending notifications and releases the store and notifier.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping booking service...")

	var errs []error
	_ = s.queue.Close()
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.stopWorker()

	if c, ok := s.notifier.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close notifier: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "booking service stopped")
	return errors.Join(errs...)
}

// keys returns the deduper, or nil before Start.
func (s *Service) keys() dedupe.Deduper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil
	}
	return s.deduper
}

// SeenAndRecord reports whether key was already recorded, recording it as in
// flight if not. Before Start nothing is recorded.
func (s *Service) SeenAndRecord(ctx context.Context, key string) (dedupe.Entry, bool) {
	d := s.keys()
	if d == nil {
		return dedupe.Entry{}, false
	}
	return d.SeenAndRecord(ctx, key)
}

// Complete stores the response for key so repeats can replay it.
func (s *Service) Complete(ctx context.Context, key string, result []byte) {
	if d := s.keys(); d != nil {
		d.Complete(ctx, key, result)
	}
}

// Unrecord forgets key so the same request may be submitted again.
func (s *Service) Unrecord(ctx context.Context, key string) {
	if d := s.keys(); d != nil {
		d.Unrecord(ctx, key)
	}
}

// Size returns the number of remembered idempotency keys.
func (s *Service) Size() int64 {
	d := s.keys()
	if d == nil {
		return 0
	}
	return d.Size()
}

// Services returns the catalog sorted by id.
func (s *Service) Services() []model.Service {
	if s.catalog == nil {
		return model.NewCatalog(s.services).Services()
	}
	return s.catalog.Services()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":          s.started,
		"worker_count":     s.workerCount,
		"queue_capacity":   s.queueSize,
		"notify_attempts":  s.notifyAttempts,
		"idempotency_size": s.dedupeSize,
		"services":         len(s.services),
	}
	if !s.started {
		return stats
	}

	stats["queue_length"] = s.queue.Len(ctx)
	stats["idempotency_keys"] = s.deduper.Size()
	counts, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Warn(ctx, "stats: count failed", logger.Error(err))
		stats["store_error"] = err.Error()
		return stats
	}
	stats["bookings"] = counts.Bookings
	stats["talents"] = counts.Talents
	stats["customers"] = counts.Customers
	metrics.UpdateRepositoryRecords("bookings", counts.Bookings)
	return stats
}

func (s *Service) titles() []string {
	ids := slices.Sorted(maps.Keys(s.services))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.services[id])
	}
	return out
}

// slotLabels returns the configured calendar rows.
func (s *Service) slotLabels() []string {
	return timeslot.SlotLabels(s.firstHour, s.lastHour)
}

// currentWeek returns the first day of the week containing t.
func (s *Service) currentWeek(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(d.Weekday()) - int(s.weekStart) + 7) % 7
	return d.AddDate(0, 0, -offset)
}
