package service

import (
	"time"

	"github.com/okian/carematch/internal/adapters/mq/worker"
	"github.com/okian/carematch/internal/adapters/repository"
	"github.com/okian/carematch/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. Without it Start creates an
// in-memory store. The service closes the store on Stop.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithNotifier sets where assignment events are delivered. Defaults to a log
// notifier.
func WithNotifier(n worker.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithServices sets the id -> title service catalog.
func WithServices(services map[string]string) Option {
	return func(s *Service) {
		if len(services) > 0 {
			s.services = services
		}
	}
}

// WithWorkerCount sets the number of notification workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the notification queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithNotifyAttempts caps delivery attempts per event.
func WithNotifyAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.notifyAttempts = n
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithCalendarHours sets the default slot rows of calendar grids.
func WithCalendarHours(first, last int) Option {
	return func(s *Service) {
		if first >= 0 && last <= 23 && first <= last {
			s.firstHour, s.lastHour = first, last
		}
	}
}

// WithWeekStart sets the first day of calendar weeks.
func WithWeekStart(day time.Weekday) Option {
	return func(s *Service) {
		s.weekStart = day
	}
}

// WithSeedDemo loads the demo dataset on Start.
func WithSeedDemo(enabled bool) Option {
	return func(s *Service) {
		s.seedDemo = enabled
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
