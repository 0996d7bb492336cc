package workflow

import (
	"time"

	"github.com/okian/carematch/pkg/logger"
)

// Option applies a configuration option to the Workflow.
type Option func(*Workflow)

// WithEventSink sets where assignment events are published.
func WithEventSink(sink EventSink) Option {
	return func(w *Workflow) {
		if sink != nil {
			w.sink = sink
		}
	}
}

// WithClock overrides the time source used for assignment stamps.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		if now != nil {
			w.now = now
		}
	}
}

// WithIDGenerator overrides how event ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(w *Workflow) {
		if gen != nil {
			w.newID = gen
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l
		}
	}
}
