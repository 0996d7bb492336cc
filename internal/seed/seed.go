// Package seed generates a deterministic demo dataset and loads it into a store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okian/carematch/internal/adapters/repository"
	"github.com/okian/carematch/internal/domain/model"
	"github.com/okian/carematch/pkg/logger"
)

var namespace = uuid.MustParse("6f1c1a8e-3d5b-4c51-9a53-2f0f3f7f1c10")

var cities = []string{"Springfield", "Shelbyville", "Capital City", "Ogdenville", "North Haverbrook"}

var streets = []string{"Evergreen Terrace", "Maple Street", "Elm Avenue", "Harbor Road", "Main Street"}

var firstNames = []string{"Ada", "Grace", "Alan", "Edsger", "Barbara", "Donald", "Frances", "Ken", "Radia", "Niklaus"}

var lastNames = []string{"Lovelace", "Hopper", "Turing", "Dijkstra", "Liskov", "Knuth", "Allen", "Thompson", "Perlman", "Wirth"}

// Booking times as customers type them. "flexible" never parses and lands
// at the end of the directory order.
var times = []string{"8:00 am", "9 AM", "10:30 am", "13:00", "2 pm", "4:00 PM", "flexible"}

// Dataset is a consistent set of customers, talents and bookings.
type Dataset struct {
	Customers []model.Customer
	Talents   []model.Talent
	Bookings  []model.Booking
}

// Generate builds a dataset. The same options always yield the same dataset.
func Generate(opts ...Option) Dataset {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x9e3779b97f4a7c15)) //nolint:gosec // demo data

	var ds Dataset
	for i := range cfg.customers {
		city := cities[i%len(cities)]
		ds.Customers = append(ds.Customers, model.Customer{
			ID:        id("customer", i),
			FirstName: firstNames[i%len(firstNames)],
			LastName:  lastNames[(i/len(firstNames)+i)%len(lastNames)],
			City:      city,
		})
	}

	for i := range cfg.talents {
		city := cities[rng.IntN(len(cities))]
		caps := pick(rng, cfg.services, 1+rng.IntN(3))
		rate := decimal.New(int64(1800+rng.IntN(2400)), -2)
		approval := model.ApprovalApproved
		switch {
		case i%7 == 3:
			approval = model.ApprovalPending
		case i%11 == 5:
			approval = model.ApprovalRejected
		}
		ds.Talents = append(ds.Talents, model.Talent{
			ID:           id("talent", i),
			Name:         firstNames[(i+3)%len(firstNames)] + " " + lastNames[i%len(lastNames)],
			Address:      fmt.Sprintf("%d %s, %s", 10+rng.IntN(90), streets[rng.IntN(len(streets))], city),
			City:         city,
			Capabilities: caps,
			Rate:         &rate,
			Experience:   fmt.Sprintf("%d years", 1+rng.IntN(12)),
			Approval:     approval,
		})
	}

	weekStart := startOfWeek(cfg.now, cfg.weekStart)
	for i := range cfg.bookings {
		c := ds.Customers[rng.IntN(len(ds.Customers))]
		service := cfg.services[rng.IntN(len(cfg.services))]
		b := model.Booking{
			ID:          id("booking", i),
			CustomerID:  c.ID,
			ServiceType: service,
			Address:     fmt.Sprintf("%d %s, %s", 1+rng.IntN(200), streets[rng.IntN(len(streets))], c.City),
			Date:        weekStart.AddDate(0, 0, rng.IntN(7)),
			Time:        times[rng.IntN(len(times))],
			Duration:    fmt.Sprintf("%d hours", 1+rng.IntN(4)),
			Status:      model.StatusPending,
		}

		switch i % 8 {
		case 1, 4:
			if t, ok := offering(ds.Talents, service, rng); ok {
				at := cfg.now
				b.Status = model.StatusAssigned
				b.AssignedTalentID, b.AssignedAt, b.AssignedBy = t.ID, &at, "seed"
			}
		case 6:
			if t, ok := offering(ds.Talents, service, rng); ok {
				at := cfg.now
				b.Status = model.StatusCompleted
				b.AssignedTalentID, b.AssignedAt, b.AssignedBy = t.ID, &at, "seed"
			}
		case 7:
			b.Status = model.StatusCancelled
		}
		ds.Bookings = append(ds.Bookings, b)
	}
	return ds
}

// Sink is where Load writes the dataset.
type Sink interface {
	PutCustomer(ctx context.Context, c model.Customer) error
	PutTalent(ctx context.Context, t model.Talent) error
	CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error)
}

// Load writes ds into dst. Bookings that already exist are skipped, so loading
// the same dataset twice is harmless.
func Load(ctx context.Context, dst Sink, ds Dataset, log logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	for _, c := range ds.Customers {
		if err := dst.PutCustomer(ctx, c); err != nil {
			return fmt.Errorf("seed customer %s: %w", c.ID, err)
		}
	}
	for _, t := range ds.Talents {
		if err := dst.PutTalent(ctx, t); err != nil {
			return fmt.Errorf("seed talent %s: %w", t.ID, err)
		}
	}
	var created, skipped int
	for _, b := range ds.Bookings {
		_, err := dst.CreateBooking(ctx, b)
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			skipped++
		case err != nil:
			return fmt.Errorf("seed booking %s: %w", b.ID, err)
		default:
			created++
		}
	}
	log.Info(ctx, "demo data loaded",
		logger.Int("customers", len(ds.Customers)),
		logger.Int("talents", len(ds.Talents)),
		logger.Int("bookings_created", created),
		logger.Int("bookings_skipped", skipped),
	)
	return nil
}

func id(kind string, i int) string {
	return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("%s-%d", kind, i))).String()
}

func pick(rng *rand.Rand, from []string, n int) []string {
	if n > len(from) {
		n = len(from)
	}
	idx := rng.Perm(len(from))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = from[j]
	}
	return out
}

func offering(talents []model.Talent, service string, rng *rand.Rand) (model.Talent, bool) {
	var eligible []model.Talent
	for _, t := range talents {
		if t.Eligible() && t.Offers(service) {
			eligible = append(eligible, t)
		}
	}
	if len(eligible) == 0 {
		return model.Talent{}, false
	}
	return eligible[rng.IntN(len(eligible))], true
}

func startOfWeek(now time.Time, first time.Weekday) time.Time {
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(d.Weekday()) - int(first) + 7) % 7
	return d.AddDate(0, 0, -offset)
}
