package worker

import (
	"time"

	"github.com/okian/carematch/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithAttempts caps how many times one event is offered to the notifier.
// 1 means no retry.
func WithAttempts(n int) Option {
	return func(w *InMemoryWorker) {
		if n > 0 {
			w.attempts = n
		}
	}
}

// WithRetryDelay sets the pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d >= 0 {
			w.retryDelay = d
		}
	}
}

// WithNotifyTimeout bounds a single notifier call.
func WithNotifyTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.notifyTimeout = d
		}
	}
}
