package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/carematch/internal/domain/model"
	"github.com/okian/carematch/pkg/metrics"
)

// MemoryStore is an in-process Store. Listings follow insertion order.
type MemoryStore struct {
	mu sync.RWMutex

	bookings     map[string]model.Booking
	bookingOrder []string
	talents      map[string]model.Talent
	talentOrder  []string
	customers    map[string]model.Customer

	now                   func() time.Time
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store and starts its metrics updater,
// which runs until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		bookings:              make(map[string]model.Booking),
		talents:               make(map[string]model.Talent),
		customers:             make(map[string]model.Customer),
		now:                   func() time.Time { return time.Now().UTC() },
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) GetBooking(_ context.Context, id string) (model.Booking, error) {
	defer observeQuery("bookings", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Booking{}, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	return cloneBooking(b), nil
}

func (s *MemoryStore) ListBookings(_ context.Context, f model.BookingFilter) ([]model.Booking, error) {
	defer observeQuery("bookings", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Booking, 0, len(s.bookingOrder))
	for _, id := range s.bookingOrder {
		if b := s.bookings[id]; f.MatchExact(b) {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateBooking(_ context.Context, b model.Booking) (model.Booking, error) {
	if strings.TrimSpace(b.ServiceType) == "" {
		return model.Booking{}, fmt.Errorf("%w: service type is required", ErrInvalidRecord)
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = model.StatusPending
	}
	if !b.Status.Valid() {
		return model.Booking{}, fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, b.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bookings[b.ID]; exists {
		return model.Booking{}, fmt.Errorf("booking %s: %w", b.ID, ErrDuplicate)
	}
	now := s.now()
	b.Version = 1
	b.CreatedAt, b.UpdatedAt = now, now
	s.bookings[b.ID] = cloneBooking(b)
	s.bookingOrder = append(s.bookingOrder, b.ID)
	return cloneBooking(b), nil
}

func (s *MemoryStore) UpdateBooking(_ context.Context, b model.Booking, expectedVersion int64) (model.Booking, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds())) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.bookings[b.ID]
	if !ok {
		return model.Booking{}, fmt.Errorf("booking %s: %w", b.ID, ErrNotFound)
	}
	if cur.Version != expectedVersion {
		metrics.RecordRepositoryConflict()
		return model.Booking{}, fmt.Errorf("booking %s at version %d, expected %d: %w", b.ID, cur.Version, expectedVersion, ErrConflict)
	}

	cur.Status = b.Status
	cur.AssignedTalentID = b.AssignedTalentID
	cur.AssignedAt = cloneTime(b.AssignedAt)
	cur.AssignedBy = b.AssignedBy
	cur.Version++
	cur.UpdatedAt = s.now()
	s.bookings[b.ID] = cur
	return cloneBooking(cur), nil
}

func (s *MemoryStore) GetTalent(_ context.Context, id string) (model.Talent, error) {
	defer observeQuery("talents", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.talents[id]
	if !ok {
		return model.Talent{}, fmt.Errorf("talent %s: %w", id, ErrNotFound)
	}
	return cloneTalent(t), nil
}

func (s *MemoryStore) ListTalents(_ context.Context, f model.TalentFilter) ([]model.Talent, error) {
	defer observeQuery("talents", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Talent, 0)
	for _, id := range s.talentOrder {
		if t := s.talents[id]; f.Match(t) {
			out = append(out, cloneTalent(t))
		}
	}
	return out, nil
}

// PutTalent inserts or replaces a talent.
func (s *MemoryStore) PutTalent(_ context.Context, t model.Talent) error {
	if t.ID == "" {
		return fmt.Errorf("%w: talent id is required", ErrInvalidRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.talents[t.ID]; !exists {
		s.talentOrder = append(s.talentOrder, t.ID)
	}
	s.talents[t.ID] = cloneTalent(t)
	return nil
}

func (s *MemoryStore) GetCustomer(_ context.Context, id string) (model.Customer, error) {
	defer observeQuery("customers", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return model.Customer{}, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	return c, nil
}

func (s *MemoryStore) ListCustomers(_ context.Context, ids []string) ([]model.Customer, error) {
	defer observeQuery("customers", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Customer, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.customers[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// PutCustomer inserts or replaces a customer.
func (s *MemoryStore) PutCustomer(_ context.Context, c model.Customer) error {
	if c.ID == "" {
		return fmt.Errorf("%w: customer id is required", ErrInvalidRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{Bookings: len(s.bookings), Talents: len(s.talents), Customers: len(s.customers)}, nil
}

// startMetricsUpdater periodically publishes record and status gauges.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	byStatus := make(map[model.Status]int, len(model.Statuses))
	s.mu.RLock()
	for _, b := range s.bookings {
		byStatus[b.Status]++
	}
	counts := Counts{Bookings: len(s.bookings), Talents: len(s.talents), Customers: len(s.customers)}
	s.mu.RUnlock()

	for _, st := range model.Statuses {
		metrics.UpdateBookingsByStatus(string(st), byStatus[st])
	}
	metrics.UpdateRepositoryRecords("bookings", counts.Bookings)
	metrics.UpdateRepositoryRecords("talents", counts.Talents)
	metrics.UpdateRepositoryRecords("customers", counts.Customers)
}

func observeQuery(entity string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(entity, float64(time.Since(start).Milliseconds()))
}

func cloneBooking(b model.Booking) model.Booking {
	b.AssignedAt = cloneTime(b.AssignedAt)
	return b
}

func cloneTalent(t model.Talent) model.Talent {
	t.Capabilities = append([]string(nil), t.Capabilities...)
	if t.Rate != nil {
		r := *t.Rate
		t.Rate = &r
	}
	return t
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
