// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config holding defaults; Load layers file and env on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Notifier backends.
const (
	NotifierLog  = "log"
	NotifierAMQP = "amqp"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// RequestTimeoutMS bounds every HTTP request, including backend calls.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`
	// CORSAllowedOrigins lists origins allowed to call the API from a browser.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Store selects the persistence backend: memory or postgres.
	Store string `koanf:"store"`
	// DatabaseURL is the Postgres connection string used when Store is postgres.
	DatabaseURL string `koanf:"database_url"`
	// SeedDemo loads a demo dataset into the memory store at startup.
	SeedDemo bool `koanf:"seed_demo"`

	// NotifyQueueSize bounds the assignment notification queue.
	NotifyQueueSize int `koanf:"notify_queue_size"`
	// NotifyWorkers sets the number of notification workers.
	NotifyWorkers int `koanf:"notify_workers"`
	// NotifyAttempts caps delivery attempts per notification (1 = no retry).
	NotifyAttempts int `koanf:"notify_attempts"`
	// Notifier selects the notification sink: log or amqp.
	Notifier string `koanf:"notifier"`
	// AMQPURL and AMQPExchange configure the RabbitMQ notifier.
	AMQPURL      string `koanf:"amqp_url"`
	AMQPExchange string `koanf:"amqp_exchange"`

	// CalendarFirstHour and CalendarLastHour bound the default slot rows.
	CalendarFirstHour int `koanf:"calendar_first_hour"`
	CalendarLastHour  int `koanf:"calendar_last_hour"`
	// WeekStart is monday or sunday.
	WeekStart string `koanf:"week_start"`

	// IdempotencyKeys bounds how many mutation keys are remembered.
	IdempotencyKeys int `koanf:"idempotency_keys"`

	// TracingEnabled turns on OTLP/HTTP trace export to OTLPEndpoint.
	TracingEnabled bool   `koanf:"tracing_enabled"`
	OTLPEndpoint   string `koanf:"otlp_endpoint"`

	// Services maps catalog ids to service titles as used on bookings.
	Services map[string]string `koanf:"services"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		RequestTimeoutMS:   5_000,
		CORSAllowedOrigins: []string{"*"},
		Store:              StoreMemory,
		NotifyQueueSize:    10_000,
		NotifyWorkers:      4,
		NotifyAttempts:     1,
		Notifier:           NotifierLog,
		AMQPExchange:       "booking.exchange",
		CalendarFirstHour:  7,
		CalendarLastHour:   20,
		WeekStart:          "monday",
		IdempotencyKeys:    50_000,
		OTLPEndpoint:       "localhost:4318",
		Services: map[string]string{
			"cleaning":   "Cleaning",
			"driving":    "Driving",
			"childcare":  "Childcare",
			"elder-care": "Elder Care",
			"laundry":    "Laundry",
		},
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// WeekStartDay maps WeekStart to a time.Weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if strings.EqualFold(c.WeekStart, "sunday") {
		return time.Sunday
	}
	return time.Monday
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Store != StoreMemory && c.Store != StorePostgres:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	case c.Store == StorePostgres && strings.TrimSpace(c.DatabaseURL) == "":
		return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
	case c.Notifier != NotifierLog && c.Notifier != NotifierAMQP:
		return fmt.Errorf("%w: unknown notifier %q", ErrInvalidConfig, c.Notifier)
	case c.Notifier == NotifierAMQP && strings.TrimSpace(c.AMQPURL) == "":
		return fmt.Errorf("%w: amqp_url is required for the amqp notifier", ErrInvalidConfig)
	case c.CalendarFirstHour < 0 || c.CalendarLastHour > 23 || c.CalendarFirstHour > c.CalendarLastHour:
		return fmt.Errorf("%w: calendar hours must satisfy 0 <= first <= last <= 23", ErrInvalidConfig)
	case !strings.EqualFold(c.WeekStart, "monday") && !strings.EqualFold(c.WeekStart, "sunday"):
		return fmt.Errorf("%w: week_start must be monday or sunday", ErrInvalidConfig)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case len(c.Services) == 0:
		return fmt.Errorf("%w: services catalog must not be empty", ErrInvalidConfig)
	}
	return nil
}
