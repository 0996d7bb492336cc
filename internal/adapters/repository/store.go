// Package repository persists bookings, talents and customers.
package repository

import (
	"context"

	"github.com/okian/carematch/internal/domain/model"
)

// Counts reports how many records each entity holds.
type Counts struct {
	Bookings  int `json:"bookings"`
	Talents   int `json:"talents"`
	Customers int `json:"customers"`
}

// Store provides read/write access to the booking state.
type Store interface {
	// GetBooking returns ErrNotFound if the booking is unknown.
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	// ListBookings applies the exact service type and status filters; Query is ignored.
	ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	// CreateBooking stores a new pending booking at version 1.
	CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error)
	// UpdateBooking writes the status and assignment fields of b if the stored
	// version equals expectedVersion, and returns the stored booking.
	// Returns ErrConflict on a version mismatch.
	UpdateBooking(ctx context.Context, b model.Booking, expectedVersion int64) (model.Booking, error)

	GetTalent(ctx context.Context, id string) (model.Talent, error)
	ListTalents(ctx context.Context, f model.TalentFilter) ([]model.Talent, error)
	PutTalent(ctx context.Context, t model.Talent) error

	GetCustomer(ctx context.Context, id string) (model.Customer, error)
	// ListCustomers returns the customers among ids that exist.
	ListCustomers(ctx context.Context, ids []string) ([]model.Customer, error)
	PutCustomer(ctx context.Context, c model.Customer) error

	Count(ctx context.Context) (Counts, error)
	Close() error
}
