package seed

import "time"

type config struct {
	seed      uint64
	customers int
	talents   int
	bookings  int
	services  []string
	now       time.Time
	weekStart time.Weekday
}

func defaultConfig() config {
	return config{
		seed:      42,
		customers: 12,
		talents:   20,
		bookings:  40,
		services:  []string{"Cleaning", "Driving", "Childcare", "Elder Care", "Laundry"},
		now:       time.Now().UTC(),
		weekStart: time.Monday,
	}
}

// Option tunes Generate.
type Option func(*config)

// WithSeed changes the pseudo-random sequence.
func WithSeed(seed uint64) Option {
	return func(c *config) { c.seed = seed }
}

// WithSizes sets how many customers, talents and bookings are generated.
// Non-positive values keep the defaults.
func WithSizes(customers, talents, bookings int) Option {
	return func(c *config) {
		if customers > 0 {
			c.customers = customers
		}
		if talents > 0 {
			c.talents = talents
		}
		if bookings > 0 {
			c.bookings = bookings
		}
	}
}

// WithServices sets the service titles used for capabilities and bookings.
func WithServices(titles []string) Option {
	return func(c *config) {
		if len(titles) > 0 {
			c.services = append([]string(nil), titles...)
		}
	}
}

// WithNow anchors booking dates to the week containing now.
func WithNow(now time.Time) Option {
	return func(c *config) {
		if !now.IsZero() {
			c.now = now
		}
	}
}

// WithWeekStart sets the first day of the generated week.
func WithWeekStart(day time.Weekday) Option {
	return func(c *config) { c.weekStart = day }
}
